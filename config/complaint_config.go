package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"complaint_server/pkg/apperr"
)

type Config struct {
	Host        string
	Port        string
	Environment string

	// Logging
	LogLevel  string
	LogFormat string

	// API
	APIPrefix       string
	AllowedOrigins  []string
	CreateRateLimit int    // creates per client IP per minute, 0 disables
	ProxyHeader     string // header carrying the client IP when behind a proxy
	BodyLimit       int
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL    string
	DatabaseDriver string
	DBMaxConns     int

	// Redis (complaint events, optional)
	RedisURL     string
	EventsStream string
	EventsMaxLen int
	EventsGroup  string
	EventsWorker string

	// Sentiment API
	SentimentURL       string
	SentimentAPIKey    string
	SentimentKeyHeader string

	// LLM (OpenAI-compatible chat completions)
	LLMBaseURL   string
	LLMAPIKey    string
	LLMModel     string
	LLMMaxTokens int

	// Classification
	ClassifierTimeout time.Duration
	RecentWindow      time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Host:        getEnv("HOST", "0.0.0.0"),
		Port:        getEnv("PORT", "8000"),
		Environment: getEnv("ENV", "development"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		APIPrefix:       getEnv("API_PREFIX", "/api/v1"),
		AllowedOrigins:  getEnvSlice("ALLOWED_ORIGINS", []string{"*"}),
		CreateRateLimit: getEnvInt("RATE_LIMIT_CREATE_PER_MIN", 0),
		ProxyHeader:     getEnv("PROXY_HEADER", ""),
		BodyLimit:       getEnvInt("BODY_LIMIT_BYTES", 64*1024),
		ShutdownTimeout: time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_SEC", 15)) * time.Second,

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		DatabaseDriver: getEnv("DATABASE_DRIVER", "pgx"),
		DBMaxConns:     getEnvInt("DB_MAX_CONNS", 25),

		RedisURL:     getEnv("REDIS_URL", ""),
		EventsStream: getEnv("COMPLAINT_EVENTS_STREAM", "complaints:events"),
		EventsMaxLen: getEnvInt("COMPLAINT_EVENTS_MAX_LEN", 100000),
		EventsGroup:  getEnv("COMPLAINT_EVENTS_GROUP", "complaint-audit"),
		EventsWorker: getEnv("COMPLAINT_EVENTS_CONSUMER", hostname()),

		SentimentURL:       getEnv("SENTIMENT_API_URL", "https://api.apilayer.com/sentiment/analysis"),
		SentimentAPIKey:    getEnv("SENTIMENT_API_KEY", ""),
		SentimentKeyHeader: getEnv("SENTIMENT_API_KEY_HEADER", "apikey"),

		LLMBaseURL:   getEnv("LLM_BASE_URL", "https://router.huggingface.co/v1"),
		LLMAPIKey:    getEnv("LLM_API_KEY", ""),
		LLMModel:     getEnv("LLM_MODEL", "mistralai/Mistral-7B-Instruct-v0.3"),
		LLMMaxTokens: getEnvInt("LLM_MAX_TOKENS", 10),

		ClassifierTimeout: time.Duration(getEnvInt("CLASSIFIER_TIMEOUT_SEC", 10)) * time.Second,
		RecentWindow:      time.Duration(getEnvInt("RECENT_WINDOW_MIN", 60)) * time.Minute,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return apperr.ConfigError("DATABASE_URL", "is required")
	}
	switch c.DatabaseDriver {
	case "pgx", "postgres":
	default:
		return apperr.ConfigError("DATABASE_DRIVER", "must be pgx or postgres")
	}
	if c.ClassifierTimeout <= 0 {
		return apperr.ConfigError("CLASSIFIER_TIMEOUT_SEC", "must be positive")
	}
	if c.RecentWindow <= 0 {
		return apperr.ConfigError("RECENT_WINDOW_MIN", "must be positive")
	}
	if c.CreateRateLimit < 0 {
		return apperr.ConfigError("RATE_LIMIT_CREATE_PER_MIN", "must not be negative")
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

func hostname() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "complaint-server"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
