package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"social-ops/domain/repository"
	"social-ops/infrastructure/cache"
	googleclient "social-ops/infrastructure/clients/google"
	workflowclient "social-ops/infrastructure/clients/workflow"
	"social-ops/infrastructure/configuration"
	"social-ops/infrastructure/crypto"
	"social-ops/infrastructure/logger"
	"social-ops/infrastructure/persistence"
	"social-ops/infrastructure/pubsub"
	"social-ops/infrastructure/realtime"
	"social-ops/infrastructure/servicebus"
	httpHandler "social-ops/interfaces/http"
	"social-ops/server"
	"social-ops/usecase"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// Load env from files (non-destructive; OS env still has precedence)
	configuration.LoadEnvFromFile("config.env", ".env")

	app := configuration.C.App

	primaryDb, psqlDb, err := InitiateDatabase()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Database initialization failed")
	}

	mongoDb, err := persistence.NewMongoDb(
		configuration.C.Database.Mongo.Host,
		configuration.C.Database.Mongo.Port,
		configuration.C.Database.Mongo.User,
		configuration.C.Database.Mongo.Password,
		configuration.C.Database.Mongo.Name,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB not available - continuing without callback archive")
		mongoDb = nil
	} else if err := mongoDb.Ping(ctx, nil); err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB ping failed - continuing without callback archive")
		mongoDb = nil
	}

	// The account and publish repositories emit Postgres-only SQL
	// (ON CONFLICT upserts, DISTINCT ON). MSSQL cannot stand in for it.
	dataDb, err := dataSQLDB(psqlDb)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Refusing to start without PostgreSQL")
		return
	}
	if err := persistence.EnsureSocialAccountSchema(dataDb); err != nil {
		logger.GetLogger().WithField("error", err).Error("failed ensuring social account schema")
	}
	if err := persistence.EnsurePublishSchema(dataDb); err != nil {
		logger.GetLogger().WithField("error", err).Error("failed ensuring publish schema")
	}

	pubSubClient, err := pubsub.NewPubSub(ctx, configuration.C.Pubsub.ProjectID)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("PubSub not available - continuing without status events")
		pubSubClient = nil
	}
	azServiceBusClient, err := servicebus.NewServiceBus(ctx, configuration.C.ServiceBus.Namespace)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - continuing without Service Bus features")
		azServiceBusClient = nil
	}

	redisClient, err := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", configuration.C.RedisClient.Host, configuration.C.RedisClient.Port),
		configuration.C.RedisClient.Username,
		configuration.C.RedisClient.Password,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis ping failed; OAuth flows will not work until it recovers")
	}

	tokenCipher := crypto.NewTokenCipher(configuration.C.Crypto.TokenKey)

	// User store wiring: MSSQL in production, otherwise PostgreSQL.
	var userRepository repository.IUser
	if mssqlSelected() {
		userRepository = persistence.NewUserRepositoryMSSQL(primaryDb)
	} else {
		userRepository = persistence.NewUserRepository(psqlDb)
	}
	accountRepository := persistence.NewSocialAccountRepository(dataDb)
	publishRepository := persistence.NewPublishRepository(dataDb)
	sessionStore := cache.NewOAuthSessionStore(redisClient)
	callbackArchive := persistence.NewCallbackArchive(mongoDb, configuration.C.Database.Mongo.Name)

	var googleClient repository.IGoogleOAuth
	if googleConfig, err := configuration.GetGoogleOAuthConfig(); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Google OAuth not configured - YouTube binding disabled")
	} else {
		googleClient, err = googleclient.NewGoogleClient(&googleclient.Config{
			ClientID:     googleConfig.ClientID,
			ClientSecret: googleConfig.ClientSecret,
			RedirectURL:  googleConfig.RedirectURL,
		})
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Failed to initialize Google client")
			googleClient = nil
		}
	}

	workflowClient := workflowclient.NewWorkflowClient(
		configuration.C.Workflow.BaseURL,
		configuration.C.Workflow.APIKey,
		configuration.C.Workflow.PublishWorkflow,
	)

	publishHub := realtime.NewPublishHub()
	eventPublisher := pubsub.NewTaskEventPublisher(pubSubClient, configuration.C.Pubsub.Topic)
	eventSender := servicebus.NewTaskEventSender(azServiceBusClient, configuration.C.ServiceBus.Queue)

	tokenGuard := usecase.NewTokenGuard(accountRepository, googleClient, tokenCipher, configuration.C.Publish.RefreshBufferMins)

	userUsecase := usecase.NewUserUsecase(userRepository)
	accountUsecase := usecase.NewAccountUsecase(accountRepository, googleClient, tokenGuard, tokenCipher)
	oauthUsecase := usecase.NewOAuthUsecase(
		accountRepository,
		sessionStore,
		googleClient,
		tokenCipher,
		configuration.C.Publish.StateTTLMins,
		configuration.C.Publish.SelectionTTLMins,
	)
	publishUsecase := usecase.NewPublishUsecase(
		publishRepository,
		accountRepository,
		workflowClient,
		googleClient,
		tokenGuard,
		publishHub,
		eventPublisher,
		eventSender,
		callbackArchive,
	)

	userHandler := httpHandler.NewUserHandler(userUsecase)
	accountHandler := httpHandler.NewAccountHandler(accountUsecase)
	publishHandler := httpHandler.NewPublishHandler(publishUsecase, publishHub)

	var oauthHandler httpHandler.IOAuthHandler
	if googleClient != nil {
		oauthHandler = httpHandler.NewOAuthHandler(oauthUsecase)
	}

	router := server.InitiateRouter(userHandler, accountHandler, oauthHandler, publishHandler)

	port := app.Port
	logger.GetLogger().WithFields(map[string]interface{}{"port": port, "tls": app.TLSEnabled}).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}
		if app.TLSEnabled {
			cert := app.TLSCertFile
			key := app.TLSKeyFile
			if cert == "" || key == "" {
				logger.GetLogger().Error("TLS enabled but cert or key path empty; falling back to HTTP")
				if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			} else {
				if err := httpServer.ListenAndServeTLS(cert, key); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			}
		} else {
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

// mssqlSelected reports whether the user store runs on MSSQL.
func mssqlSelected() bool {
	env := os.Getenv("ENV")
	return os.Getenv("DB_VENDOR") == "mssql" || env == "production" || env == "prod"
}

// dataSQLDB picks the connection backing the account and publish tables.
// Their SQL is Postgres-only, so there is no MSSQL fallback.
func dataSQLDB(psqlDb *sql.DB) (*sql.DB, error) {
	if psqlDb == nil {
		return nil, errors.New("account and publish storage require PostgreSQL")
	}
	return psqlDb, nil
}

func InitiateDatabase() (*sql.DB, *sql.DB, error) {
	// Contract: return (primaryDB, psqlDB). In production, primaryDB = MSSQL
	// for the user store; psqlDB always backs the account and publish tables.
	// Locally, primaryDB = MySQL native.
	if mssqlSelected() {
		mssql, err := persistence.NewMSSQLDB()
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Cannot connect to MSSQL")
			return nil, nil, err
		}
		postgres, err := persistence.NewPostgreSQLDB()
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Cannot connect to PostgreSQL for the publish tables")
			return mssql, nil, err
		}
		return mssql, postgres, nil
	}

	db, err := persistence.NewNativeDb()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot connect to the local database")
		return nil, nil, err
	}
	postgres, err := persistence.NewPostgreSQLDB()
	if err != nil {
		return nil, nil, err
	}
	return db, postgres, nil
}
