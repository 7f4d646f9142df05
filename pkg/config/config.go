package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Server configuration
	Server struct {
		Port    string
		Env     string
		Timeout time.Duration
	}

	// Forum service connection
	Forum struct {
		BaseURL           string
		APIKey            string
		ActingUserID      int
		SessionCategoryID int
		SheetCategoryID   int
		SessionTags       []string
		TitlePrefix       string
		Timeout           time.Duration
	}

	// Text-generation service
	AI struct {
		OpenAIKey     string
		LocalModelURL string
		SystemPrompt  string
	}

	// Security configuration
	Security struct {
		RateLimit      float64
		RateLimitBurst int
		AllowedOrigins []string
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// Redis settings; when disabled the in-memory cache is used instead
	Redis struct {
		Enabled bool
		Addr    string
	}

	// Cache settings for the in-memory fallback
	Cache struct {
		TTL         time.Duration
		PurgeWindow time.Duration
	}

	// Observability settings
	Metrics struct {
		Enabled bool
		Addr    string
	}

	// OpenAPI schema path; empty disables request validation
	OpenAPISchemaPath string
}

var (
	instance *Config
	once     sync.Once
)

// New builds the Config from environment variables, loading a .env file if
// one is present. Singleton: later calls return the first instance.
func New() *Config {
	once.Do(func() {
		godotenv.Load()

		instance = &Config{}

		instance.Server.Port = getEnvString("PORT", "8081")
		instance.Server.Env = getEnvString("APP_ENV", "development")
		instance.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)

		instance.Forum.BaseURL = getEnvString("FORUM_BASE_URL", "http://localhost:4567/api")
		instance.Forum.APIKey = getEnvString("FORUM_API_KEY", "")
		instance.Forum.ActingUserID = getEnvInt("FORUM_UID", 1)
		instance.Forum.SessionCategoryID = getEnvInt("FORUM_SESSION_CATEGORY", 1)
		instance.Forum.SheetCategoryID = getEnvInt("FORUM_SHEET_CATEGORY", 2)
		instance.Forum.SessionTags = getEnvStringSlice("FORUM_SESSION_TAGS", []string{"game-session"})
		instance.Forum.TitlePrefix = getEnvString("FORUM_TITLE_PREFIX", "Game Session")
		instance.Forum.Timeout = getEnvDuration("FORUM_TIMEOUT", 15*time.Second)

		instance.AI.OpenAIKey = getEnvString("OPENAI_API_KEY", "")
		instance.AI.LocalModelURL = getEnvString("LOCAL_MODEL_URL", "")
		instance.AI.SystemPrompt = getEnvString("AI_SYSTEM_PROMPT", "")

		instance.Security.RateLimit = float64(getEnvInt("RATE_LIMIT", 5))
		instance.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 10)
		instance.Security.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"*"})

		instance.Logging.Level = getEnvString("LOG_LEVEL", "info")
		instance.Logging.Format = getEnvString("LOG_FORMAT", "json")

		instance.Redis.Enabled = getEnvBool("REDIS_ENABLED", false)
		instance.Redis.Addr = getEnvString("REDIS_URL", "localhost:6379")

		instance.Cache.TTL = getEnvDuration("CACHE_TTL", 10*time.Minute)
		instance.Cache.PurgeWindow = getEnvDuration("CACHE_PURGE_WINDOW", 10*time.Minute)

		instance.Metrics.Enabled = getEnvBool("METRICS_ENABLED", true)
		instance.Metrics.Addr = getEnvString("METRICS_ADDR", ":2112")

		instance.OpenAPISchemaPath = getEnvString("OPENAPI_SCHEMA_PATH", "")
	})

	return instance
}

// Get returns the singleton Config instance.
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
