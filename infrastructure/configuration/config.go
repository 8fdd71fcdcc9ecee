package configuration

import (
	"fmt"
	"os"
	"strconv"

	"social-ops/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	Database    Database    `json:"database"`
	App         App         `json:"app"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
	RedisClient RedisClient `json:"redisClient"`
	Logger      Logger      `json:"logger"`
	OAuth       OAuth       `json:"oauth"`
	Crypto      Crypto      `json:"crypto"`
	Workflow    Workflow    `json:"workflow"`
	Frontend    Frontend    `json:"frontend"`
	Publish     Publish     `json:"publish"`
}

type App struct {
	Port          int    `json:"port"`
	SecretKey     string `json:"secretKey"`
	TLSEnabled    bool   `json:"tlsEnabled"`
	TLSCertFile   string `json:"tlsCertFile"`
	TLSKeyFile    string `json:"tlsKeyFile"`
	SecureCookies bool   `json:"secureCookies"`
}

type Database struct {
	Psql  Db `json:"psql"`
	MySql Db `json:"mysql"`
	Mongo Db `json:"mongo"`
	Mssql Db `json:"mssql"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
	Topic     string `json:"topic"`
}

type ServiceBus struct {
	Namespace string `json:"namespace"`
	Queue     string `json:"queue"`
}

type RedisClient struct {
	Host         string `json:"host"`
	Port         string `json:"port"`
	Password     string `json:"password"`
	DatabaseName string `json:"databaseName"`
	Username     string `json:"username"`
}

type Logger struct {
	Format string `json:"format"`
}

// OAuth holds third-party platform OAuth client credentials.
type OAuth struct {
	Google OAuthClient `json:"google"`
}

type OAuthClient struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	RedirectURI  string `json:"redirectURI"`
}

// Crypto holds the token-at-rest encryption key (64 hex chars, AES-256).
// An empty key degrades to plaintext storage with a logged warning.
type Crypto struct {
	TokenKey string `json:"tokenKey"`
}

// Workflow points at the external n8n engine.
type Workflow struct {
	BaseURL         string `json:"baseURL"`
	APIKey          string `json:"apiKey"`
	PublishWorkflow string `json:"publishWorkflow"`
}

// Frontend is the dashboard origin used for OAuth result redirects.
type Frontend struct {
	BaseURL string `json:"baseURL"`
}

// Publish holds publish-subsystem tunables.
type Publish struct {
	Platforms         []string `json:"platforms"`
	RefreshBufferMins int      `json:"refreshBufferMins"`
	StateTTLMins      int      `json:"stateTTLMins"`
	SelectionTTLMins  int      `json:"selectionTTLMins"`
}

var C Config

func init() {
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	initIntegrations(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = os.Getenv("DB_PORT")
	}

	// Optional MSSQL config via environment variables (production path)
	if v := os.Getenv("MSSQL_DB_NAME"); v != "" && C.Database.Mssql.Name == "" {
		C.Database.Mssql.Name = v
	}
	if v := os.Getenv("MSSQL_HOST"); v != "" && C.Database.Mssql.Host == "" {
		C.Database.Mssql.Host = v
	}
	if v := os.Getenv("MSSQL_USER"); v != "" && C.Database.Mssql.User == "" {
		C.Database.Mssql.User = v
	}
	if v := os.Getenv("MSSQL_PASSWORD"); v != "" && C.Database.Mssql.Password == "" {
		C.Database.Mssql.Password = v
	}
	if C.Database.Mssql.Port == "" {
		if v := os.Getenv("MSSQL_PORT"); v != "" {
			C.Database.Mssql.Port = v
		} else {
			C.Database.Mssql.Port = "1433"
		}
	}
}

func initApp(C *Config) {
	// Prefer SECRET_KEY from environment for JWT verification
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default 10001
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
	if v := os.Getenv("TLS_ENABLED"); v != "" {
		switch v {
		case "1", "true", "TRUE", "True":
			C.App.TLSEnabled = true
		case "0", "false", "FALSE", "False":
			C.App.TLSEnabled = false
		}
	}
	if C.App.TLSCertFile == "" {
		C.App.TLSCertFile = os.Getenv("TLS_CERT_FILE")
	}
	if C.App.TLSKeyFile == "" {
		C.App.TLSKeyFile = os.Getenv("TLS_KEY_FILE")
	}
	// Secure cookies follow ENV=production unless explicitly overridden
	if v := os.Getenv("SECURE_COOKIES"); v != "" {
		C.App.SecureCookies = v == "1" || v == "true"
	} else if env := os.Getenv("ENV"); env == "production" || env == "prod" {
		C.App.SecureCookies = true
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
}

func initIntegrations(C *Config) {
	if v := os.Getenv("TOKEN_ENCRYPTION_KEY"); v != "" {
		C.Crypto.TokenKey = v
	}
	if v := os.Getenv("N8N_BASE_URL"); v != "" {
		C.Workflow.BaseURL = v
	}
	if v := os.Getenv("N8N_API_KEY"); v != "" {
		C.Workflow.APIKey = v
	}
	if v := os.Getenv("N8N_PUBLISH_WORKFLOW"); v != "" {
		C.Workflow.PublishWorkflow = v
	}
	if C.Workflow.PublishWorkflow == "" {
		C.Workflow.PublishWorkflow = "publish-video"
	}
	if v := os.Getenv("FRONTEND_BASE_URL"); v != "" {
		C.Frontend.BaseURL = v
	}
	if C.Frontend.BaseURL == "" {
		C.Frontend.BaseURL = fmt.Sprintf("http://localhost:%d", C.App.Port)
	}
	if len(C.Publish.Platforms) == 0 {
		C.Publish.Platforms = []string{"INSTAGRAM", "THREADS", "YOUTUBE"}
	}
	if C.Publish.RefreshBufferMins == 0 {
		C.Publish.RefreshBufferMins = 5
	}
	if C.Publish.StateTTLMins == 0 {
		C.Publish.StateTTLMins = 5
	}
	if C.Publish.SelectionTTLMins == 0 {
		C.Publish.SelectionTTLMins = 10
	}
	if C.Crypto.TokenKey == "" {
		logger.GetLogger().Warn("Crypto.TokenKey not set; OAuth tokens will be stored in plaintext (development fallback)")
	}
}
