package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Create a new instance of the logger
// Configure it to log at the desired level
// and format it as JSON for structured logging
var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(LevelForEnvironment(GetEnvWithDefault("APP_ENV", "development")))
}

// LevelForEnvironment maps APP_ENV to a logrus level
func LevelForEnvironment(environment string) logrus.Level {
	switch environment {
	case "development":
		return logrus.DebugLevel
	case "production":
		return logrus.ErrorLevel
	default:
		// Default to info level for other environments
		return logrus.InfoLevel
	}
}

// Config used for the application configuration, loading the input from environment variables
type Config struct {
	// Server Configuration
	Port        int    `json:"port"`
	Host        string `json:"host"`
	Environment string `json:"environment"`

	// Database configuration
	DBDriver    string `json:"db_driver"`
	DBPath      string `json:"db_path"`
	DBHost      string `json:"db_host"`
	DBPort      string `json:"db_port"`
	DBName      string `json:"db_name"`
	DBUser      string `json:"db_user"`
	DBPassword  string `json:"db_password"`
	DBSSLMode   string `json:"db_sslmode"`
	DatabaseURL string `json:"database_url"`

	// Logging configuration
	LogLevel string `json:"log_level"`

	// Security Configuration
	JWTSecret         string        `json:"jwt_secret"`
	TokenTTL          time.Duration `json:"token_ttl"`
	AllowRoleOnSignup bool          `json:"allow_role_on_signup"`
	AdminEmail        string        `json:"admin_email"`
	AdminPassword     string        `json:"admin_password"`
	OAuthClientID     string        `json:"oauth_client_id"`
	OAuthClientSecret string        `json:"oauth_client_secret"`
	RateLimitRPS      int           `json:"rate_limit_rps"`
	RateLimitBurst    int           `json:"rate_limit_burst"`

	// Listing configuration
	DefaultPageSize int `json:"default_page_size"`
	MaxPageSize     int `json:"max_page_size"`

	// Cache configuration
	RedisURL string        `json:"redis_url"`
	CacheTTL time.Duration `json:"cache_ttl"`

	// Tracing configuration
	OTLPEndpoint string `json:"otlp_endpoint"`
}

// String returns a string representation of Config with sensitive data masked
func (c *Config) String() string {
	return fmt.Sprintf("Config{Port: %d, Host: %s, Environment: %s, DBDriver: %s, DBPath: %s, DBHost: %s, DBName: %s, DBUser: %s, DBPassword: [REDACTED], DatabaseURL: %s, LogLevel: %s, JWTSecret: [REDACTED], TokenTTL: %s, AllowRoleOnSignup: %t, AdminEmail: %s, AdminPassword: [REDACTED], OAuthClientID: %s, OAuthClientSecret: [REDACTED], RedisURL: %s, CacheTTL: %s, OTLPEndpoint: %s}",
		c.Port, c.Host, c.Environment, c.DBDriver, c.DBPath, c.DBHost, c.DBName, c.DBUser,
		maskDatabaseURL(c.DatabaseURL), c.LogLevel, c.TokenTTL, c.AllowRoleOnSignup, c.AdminEmail,
		c.OAuthClientID, maskDatabaseURL(c.RedisURL), c.CacheTTL, c.OTLPEndpoint)
}

// maskDatabaseURL masks password in database URL
func maskDatabaseURL(dbURL string) string {
	if dbURL == "" {
		return ""
	}

	parsed, err := url.Parse(dbURL)
	if err != nil {
		return "[REDACTED_INVALID_URL]"
	}

	if parsed.User != nil {
		// Replace password with [REDACTED]
		parsed.User = url.UserPassword(parsed.User.Username(), "[REDACTED]")
	}

	return parsed.String()
}

// LoadConfig read the proper configuration from environment variables and returns a Config struct
// It also validates formats like DatabaseURL, RedisURL and the listing limits
// Returns an error if any environment variable is invalid
func LoadConfig() (*Config, error) {
	log.Info("Loading configuration from environment variables")
	port, err := strconv.Atoi(GetEnvWithDefault("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	dbURL := GetEnvWithDefault("DATABASE_URL", "")
	if dbURL != "" {
		if _, err := url.ParseRequestURI(dbURL); err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL format: %w", err)
		}
	}

	redisURL := GetEnvWithDefault("REDIS_URL", "")
	if redisURL != "" {
		if _, err := url.ParseRequestURI(redisURL); err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL format: %w", err)
		}
	}

	config := &Config{
		Port:              port,
		Host:              GetEnvWithDefault("APP_HOST", "localhost"),
		Environment:       GetEnvWithDefault("APP_ENV", "development"),
		DBDriver:          strings.ToLower(GetEnvWithDefault("DB_DRIVER", "sqlite")),
		DBPath:            GetEnvWithDefault("DB_PATH", "users.sqlite"),
		DBHost:            GetEnvWithDefault("DB_HOST", "localhost"),
		DBPort:            GetEnvWithDefault("DB_PORT", "5432"),
		DBName:            GetEnvWithDefault("DB_NAME", "users"),
		DBUser:            GetEnvWithDefault("DB_USER", "user"),
		DBPassword:        GetEnvWithDefault("DB_PASSWORD", "password"),
		DBSSLMode:         GetEnvWithDefault("DB_SSLMODE", "disable"),
		DatabaseURL:       dbURL,
		LogLevel:          GetEnvWithDefault("LOG_LEVEL", "info"),
		JWTSecret:         GetEnvWithDefault("JWT_SECRET", "secret"),
		TokenTTL:          time.Duration(GetEnvAsType("JWT_TTL_MINUTES", 1440)) * time.Minute,
		AllowRoleOnSignup: GetEnvAsType("ALLOW_ROLE_ON_SIGNUP", true),
		AdminEmail:        os.Getenv("ADMIN_EMAIL"),
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		OAuthClientID:     os.Getenv("OAUTH_CLIENT_ID"),
		OAuthClientSecret: os.Getenv("OAUTH_CLIENT_SECRET"),
		RateLimitRPS:      GetEnvAsType("RATE_LIMIT_RPS", 5),
		RateLimitBurst:    GetEnvAsType("RATE_LIMIT_BURST", 10),
		DefaultPageSize:   GetEnvAsType("DEFAULT_PAGE_SIZE", 30),
		MaxPageSize:       GetEnvAsType("MAX_PAGE_SIZE", 100),
		RedisURL:          redisURL,
		CacheTTL:          time.Duration(GetEnvAsType("CACHE_TTL_SECONDS", 30)) * time.Second,
		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if config.DefaultPageSize < 1 || config.MaxPageSize < config.DefaultPageSize {
		return nil, fmt.Errorf("invalid page sizes: default %d, max %d", config.DefaultPageSize, config.MaxPageSize)
	}

	log.Infof("Configuration loaded: %s", config.String())
	return config, nil
}

// Helper to get environment with default values
func GetEnvWithDefault(key, defaultValue string) string {
	log.Tracef("Getting environment variable: %s", key)
	value := os.Getenv(key)
	if value == "" {
		log.Debugf("Environment variable %s not set, using default value: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

// GetEnvAsType retrieves an environment variable and converts it to the specified type
// using generic type handling.
func GetEnvAsType[T any](key string, defaultValue T) T {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result T
	switch any(result).(type) {
	case int:
		intValue, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return any(intValue).(T)
	case string:
		return any(value).(T)
	case bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return any(boolValue).(T)
	default:
		return defaultValue // Fallback for unsupported types
	}
}
