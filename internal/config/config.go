// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Log         LogConfig
	Reconcile   ReconcileConfig
	Batch       BatchConfig
	Source      SourceConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Driver       string // postgres | sqlite
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	SQLitePath   string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type JWTConfig struct {
	SecretKey       string
	Issuer          string
	ServiceTokenTTL int // in hours
}

type LogConfig struct {
	Level  string
	Format string // text | json
}

// ReconcileConfig is handed to the reconciler at construction time.
type ReconcileConfig struct {
	DefaultReliability  int
	KeepKnownAttributes bool
	ResolveAttempts     int
	// ComposeUnicode NFC-composes names before keying. Off by default; turning
	// it on for a populated store splits decomposed names from their rows.
	ComposeUnicode bool
}

type BatchConfig struct {
	Workers              int
	MaxAttempts          int
	RecordTimeout        time.Duration
	RetryInitialInterval time.Duration
}

// SourceConfig is the descriptor used when a caller does not name a source.
type SourceConfig struct {
	Name    string
	BaseURL string
}

type RateLimitConfig struct {
	PerSecond float64
	Burst     int
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 60),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", "postgres"),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "scentdb"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			SQLitePath:   getEnv("DB_SQLITE_PATH", "scentdb.db"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "warn"),
		},
		JWT: JWTConfig{
			SecretKey:       getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			Issuer:          getEnv("JWT_ISSUER", "scentdb"),
			ServiceTokenTTL: getEnvAsInt("JWT_SERVICE_TTL", 24*30), // 30 days
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Reconcile: ReconcileConfig{
			DefaultReliability:  getEnvAsInt("SOURCE_DEFAULT_RELIABILITY", 80),
			KeepKnownAttributes: getEnvAsBool("RECONCILE_KEEP_KNOWN_ATTRIBUTES", false),
			ResolveAttempts:     getEnvAsInt("RECONCILE_RESOLVE_ATTEMPTS", 3),
			ComposeUnicode:      getEnvAsBool("RECONCILE_COMPOSE_UNICODE", false),
		},
		Batch: BatchConfig{
			Workers:              getEnvAsInt("BATCH_WORKERS", 1),
			MaxAttempts:          getEnvAsInt("BATCH_MAX_ATTEMPTS", 3),
			RecordTimeout:        getEnvAsDuration("BATCH_RECORD_TIMEOUT", 30*time.Second),
			RetryInitialInterval: getEnvAsDuration("BATCH_RETRY_INTERVAL", 200*time.Millisecond),
		},
		Source: SourceConfig{
			Name:    getEnv("SOURCE_NAME", "parfumo"),
			BaseURL: getEnv("SOURCE_BASE_URL", "https://www.parfumo.com"),
		},
		RateLimit: RateLimitConfig{
			PerSecond: getEnvAsFloat("INGEST_RATE_PER_SECOND", 5),
			Burst:     getEnvAsInt("INGEST_RATE_BURST", 20),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.Password == "" && c.Environment == "production" {
			return fmt.Errorf("database password is required in production")
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("DB_SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Reconcile.ResolveAttempts < 1 {
		return fmt.Errorf("RECONCILE_RESOLVE_ATTEMPTS must be at least 1")
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("BATCH_WORKERS must be at least 1")
	}
	if c.Batch.MaxAttempts < 1 {
		return fmt.Errorf("BATCH_MAX_ATTEMPTS must be at least 1")
	}
	if c.Source.Name == "" {
		return fmt.Errorf("SOURCE_NAME is required")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
