package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	httpHandler "social-ops/interfaces/http"
	"social-ops/interfaces/middleware"
)

func InitiateRouter(
	userHandler httpHandler.IUserHandler,
	accountHandler httpHandler.IAccountHandler,
	oauthHandler httpHandler.IOAuthHandler,
	publishHandler httpHandler.IPublishHandler,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:4200", "http://localhost:4201", "https://localhost:4200", "https://localhost:4201", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.POST("/login", userHandler.Login)
	router.POST("/register", userHandler.Register)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Provider redirects arrive without an Authorization header; the flow
	// recovers the session from its state binding.
	if oauthHandler != nil {
		router.GET("/auth/youtube/callback", oauthHandler.Callback)
	}

	// The workflow engine reports per-platform results here.
	if publishHandler != nil {
		router.POST("/publish/callback", publishHandler.Callback)
	}

	api := router.Group("api")
	api.Use(middleware.Auth())

	if oauthHandler != nil {
		oauth := api.Group("/oauth/youtube")
		{
			oauth.GET("/authorize", oauthHandler.Authorize)
			oauth.GET("/channels", oauthHandler.PendingChannels)
			oauth.POST("/confirm-channels", oauthHandler.ConfirmChannels)
		}
	}

	accounts := api.Group("/accounts")
	{
		accounts.POST("", accountHandler.Create)
		accounts.GET("", accountHandler.List)
		accounts.GET("/:accountId", accountHandler.Get)
		accounts.PATCH("/:accountId", accountHandler.Update)
		accounts.DELETE("/:accountId", accountHandler.Delete)
		accounts.POST("/:accountId/toggle-status", accountHandler.ToggleStatus)
		accounts.POST("/:accountId/refresh-token", accountHandler.RefreshToken)
		accounts.POST("/:accountId/refresh-channel", accountHandler.RefreshChannel)
	}

	publish := api.Group("/publish")
	{
		publish.POST("", publishHandler.Create)
		publish.GET("", publishHandler.List)
		publish.GET("/stream", publishHandler.Stream)
		publish.GET("/executions", publishHandler.Executions)
		publish.GET("/:taskId", publishHandler.Get)
		publish.PATCH("/:taskId", publishHandler.Update)
		publish.DELETE("/:taskId", publishHandler.Delete)
		publish.PUT("/:taskId/platform-content", publishHandler.UpsertContent)
		publish.GET("/:taskId/platform-content", publishHandler.ListContents)
		publish.POST("/:taskId/trigger", publishHandler.Trigger)
		publish.POST("/:taskId/cancel-schedule", publishHandler.CancelSchedule)
		publish.GET("/:taskId/records", publishHandler.Records)
	}

	return router
}
