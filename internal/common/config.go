package common

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers understood by the CLI wiring.
const (
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// LLM providers understood by the CLI wiring.
const (
	LLMProviderAnthropic = "anthropic"
	LLMProviderOpenAI    = "openai"
)

// Config holds all application configuration
type Config struct {
	Store  StoreConfig
	Server ServerConfig
	LLM    LLMConfig
	Ingest IngestConfig
	Log    LogConfig
}

// StoreConfig selects and configures the record store
type StoreConfig struct {
	Driver     string
	SQLitePath string
	Database   DatabaseConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr       string
	AllowedOrigins []string
	OwnerHeader    string
	DefaultOwner   string
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider      string
	Model         string
	APIKey        string
	BaseURL       string
	Temperature   float32
	MaxTokens     int64
	Timeout       time.Duration
	RatePerMinute int
}

// IngestConfig holds inbox watcher configuration
type IngestConfig struct {
	Workers   int
	QueueSize int
	Debounce  time.Duration
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env")
// without overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return WrapError(err, "load "+p)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	provider := strings.ToLower(getEnv("LLM_PROVIDER", LLMProviderAnthropic))
	return &Config{
		Store: StoreConfig{
			Driver:     strings.ToLower(getEnv("STORE_DRIVER", StoreDriverSQLite)),
			SQLitePath: getEnv("SQLITE_PATH", "./data/retenciones.db"),
			Database: DatabaseConfig{
				DSN:              getEnv("DB_URL", ""),
				MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
				MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
				MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
				MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
				DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
				StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
			},
		},
		Server: ServerConfig{
			HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			OwnerHeader:    getEnv("OWNER_HEADER", "X-User-ID"),
			DefaultOwner:   getEnv("RETENCIONES_OWNER", ""),
		},
		LLM: LLMConfig{
			Provider:      provider,
			Model:         getEnv("LLM_MODEL", defaultModel(provider)),
			APIKey:        getEnv("LLM_API_KEY", providerAPIKey(provider)),
			BaseURL:       getEnv("LLM_BASE_URL", ""),
			Temperature:   getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			MaxTokens:     int64(getEnvAsInt("LLM_MAX_TOKENS", 1024)),
			Timeout:       getEnvAsDuration("LLM_TIMEOUT", 45*time.Second),
			RatePerMinute: getEnvAsInt("LLM_RATE_PER_MINUTE", 30),
		},
		Ingest: IngestConfig{
			Workers:   getEnvAsInt("INGEST_WORKERS", 2),
			QueueSize: getEnvAsInt("INGEST_QUEUE_SIZE", 64),
			Debounce:  getEnvAsDuration("INGEST_DEBOUNCE", 500*time.Millisecond),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
}

func defaultModel(provider string) string {
	if provider == LLMProviderOpenAI {
		return "gpt-4o-mini"
	}
	return "claude-sonnet-4-5-20250929"
}

func providerAPIKey(provider string) string {
	if provider == LLMProviderOpenAI {
		return os.Getenv("OPENAI_API_KEY")
	}
	return os.Getenv("ANTHROPIC_API_KEY")
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Validate checks the loaded configuration
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverSQLite:
		if c.Store.SQLitePath == "" {
			return NewAppError("CONFIG_ERROR", "SQLITE_PATH is required", ErrInvalidInput)
		}
	case StoreDriverPostgres:
		if c.Store.Database.DSN == "" {
			return NewAppError("CONFIG_ERROR", "DB_URL is required for the postgres store", ErrInvalidInput)
		}
	case StoreDriverMemory:
	default:
		return NewAppError("CONFIG_ERROR", "unknown STORE_DRIVER "+c.Store.Driver, ErrInvalidInput)
	}
	switch c.LLM.Provider {
	case LLMProviderAnthropic, LLMProviderOpenAI:
	default:
		return NewAppError("CONFIG_ERROR", "unknown LLM_PROVIDER "+c.LLM.Provider, ErrInvalidInput)
	}
	if c.LLM.Timeout <= 0 {
		return NewAppError("CONFIG_ERROR", "LLM_TIMEOUT must be positive", ErrInvalidInput)
	}
	return nil
}

// ValidateExtraction checks the settings needed to call the model.
func (c *Config) ValidateExtraction() error {
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "LLM_API_KEY is required", ErrInvalidInput)
	}
	return nil
}
