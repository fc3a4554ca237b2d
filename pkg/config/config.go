package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Timeouts   TimeoutConfig
	Bank       BankConfig
	RoundUp    RoundUpConfig
	Resilience ResilienceConfig
	JWT        JWTConfig
	Secrets    SecretsConfig
	NATS       NATSConfig
	Tracing    TracingConfig
	Sentry     SentryConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port            string
	Environment     string
	ServiceName     string
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
	CORSOrigins     string // Comma-separated list of allowed origins
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	MaxConns      int
	MinConns      int
	RunMigrations bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// BankConfig points the service at the banking API.
type BankConfig struct {
	BaseURL     string
	AccessToken string
	// TokenRef is a secrets manager reference (e.g. "vault://secret/bank#token").
	// When set it takes precedence over AccessToken.
	TokenRef       string
	TimeoutSeconds int
	MaxRetries     int
}

// RoundUpConfig controls the round-up engine.
type RoundUpConfig struct {
	BaseCurrency           string
	RatesFile              string
	Workers                int
	QueueSize              int
	LockTTLSeconds         int
	PipelineTimeoutSeconds int
}

// ResilienceConfig tunes the circuit breaker wrapped around the bank API.
type ResilienceConfig struct {
	BreakerIntervalSeconds int
	BreakerTimeoutSeconds  int
	FailureThreshold       int
	SuccessThreshold       int
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Enabled bool
	Secret  string
}

// SecretsConfig selects the backing secrets provider.
type SecretsConfig struct {
	Provider     string // "vault", "aws" or empty
	CacheTTL     int    // seconds
	VaultAddress string
	VaultToken   string
	VaultMount   string
	VaultNS      string
	AWSRegion    string
	AWSProfile   string
	AWSEndpoint  string
	AuditEnabled bool
}

// NATSConfig holds event bus configuration
type NATSConfig struct {
	URL     string
	Stream  string
	Enabled bool
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SampleRatio  float64
	Version      string
}

// SentryConfig holds error reporting configuration
type SentryConfig struct {
	DSN         string
	Environment string
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	environment := getEnv("ENVIRONMENT", "development")

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Environment:     environment,
			ServiceName:     serviceName,
			ReadTimeout:     getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout:    getEnvAsInt("WRITE_TIMEOUT", 10),
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 30),
			CORSOrigins:     getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnv("DB_PORT", "5432"),
			User:          getEnv("DB_USER", "postgres"),
			Password:      getEnv("DB_PASSWORD", "postgres"),
			DBName:        getEnv("DB_NAME", "roundup"),
			SSLMode:       getEnv("DB_SSLMODE", "disable"),
			MaxConns:      getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:      getEnvAsInt("DB_MIN_CONNS", 5),
			RunMigrations: getEnvAsBool("DB_RUN_MIGRATIONS", true),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Timeouts: TimeoutConfig{
			RedisReadTimeout:      getEnvAsInt("REDIS_READ_TIMEOUT", DefaultRedisReadTimeout),
			RedisWriteTimeout:     getEnvAsInt("REDIS_WRITE_TIMEOUT", DefaultRedisWriteTimeout),
			RedisOperationTimeout: getEnvAsInt("REDIS_OPERATION_TIMEOUT", DefaultRedisOperationTimeout),
			DatabaseQueryTimeout:  getEnvAsInt("DB_QUERY_TIMEOUT", DefaultDatabaseQueryTimeout),
		},
		Bank: BankConfig{
			BaseURL:        getEnv("BANK_API_BASE_URL", "https://api-sandbox.starlingbank.com"),
			AccessToken:    getEnv("BANK_API_TOKEN", ""),
			TokenRef:       getEnv("BANK_API_TOKEN_REF", ""),
			TimeoutSeconds: getEnvAsInt("BANK_API_TIMEOUT", 10),
			MaxRetries:     getEnvAsInt("BANK_API_MAX_RETRIES", 3),
		},
		RoundUp: RoundUpConfig{
			BaseCurrency:           strings.ToUpper(getEnv("BASE_CURRENCY", "GBP")),
			RatesFile:              getEnv("CURRENCY_RATES_FILE", ""),
			Workers:                getEnvAsInt("ROUNDUP_WORKERS", 4),
			QueueSize:              getEnvAsInt("ROUNDUP_QUEUE_SIZE", 100),
			LockTTLSeconds:         getEnvAsInt("ROUNDUP_LOCK_TTL", 30),
			PipelineTimeoutSeconds: getEnvAsInt("ROUNDUP_PIPELINE_TIMEOUT", 120),
		},
		Resilience: ResilienceConfig{
			BreakerIntervalSeconds: getEnvAsInt("BREAKER_INTERVAL", 60),
			BreakerTimeoutSeconds:  getEnvAsInt("BREAKER_TIMEOUT", 30),
			FailureThreshold:       getEnvAsInt("BREAKER_FAILURE_THRESHOLD", 5),
			SuccessThreshold:       getEnvAsInt("BREAKER_SUCCESS_THRESHOLD", 1),
		},
		JWT: JWTConfig{
			Enabled: getEnvAsBool("JWT_ENABLED", false),
			Secret:  getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		},
		Secrets: SecretsConfig{
			Provider:     getEnv("SECRETS_PROVIDER", ""),
			CacheTTL:     getEnvAsInt("SECRETS_CACHE_TTL", 300),
			VaultAddress: getEnv("VAULT_ADDR", ""),
			VaultToken:   getEnv("VAULT_TOKEN", ""),
			VaultMount:   getEnv("VAULT_MOUNT", "secret"),
			VaultNS:      getEnv("VAULT_NAMESPACE", ""),
			AWSRegion:    getEnv("AWS_REGION", ""),
			AWSProfile:   getEnv("AWS_PROFILE", ""),
			AWSEndpoint:  getEnv("AWS_SECRETS_ENDPOINT", ""),
			AuditEnabled: getEnvAsBool("SECRETS_AUDIT_ENABLED", true),
		},
		NATS: NATSConfig{
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Stream:  getEnv("NATS_STREAM", "ROUNDUP"),
			Enabled: getEnvAsBool("NATS_ENABLED", false),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvAsBool("OTEL_ENABLED", false),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRatio:  getEnvAsFloat("OTEL_SAMPLE_RATIO", 1.0),
			Version:      getEnv("SERVICE_VERSION", "dev"),
		},
		Sentry: SentryConfig{
			DSN:         getEnv("SENTRY_DSN", ""),
			Environment: environment,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.RoundUp.BaseCurrency == "" {
		return fmt.Errorf("config: BASE_CURRENCY must not be empty")
	}
	if c.RoundUp.Workers <= 0 {
		return fmt.Errorf("config: ROUNDUP_WORKERS must be positive, got %d", c.RoundUp.Workers)
	}
	if c.RoundUp.QueueSize < 0 {
		return fmt.Errorf("config: ROUNDUP_QUEUE_SIZE must not be negative, got %d", c.RoundUp.QueueSize)
	}
	if c.RoundUp.LockTTLSeconds <= 0 {
		return fmt.Errorf("config: ROUNDUP_LOCK_TTL must be positive, got %d", c.RoundUp.LockTTLSeconds)
	}
	if c.Bank.BaseURL == "" {
		return fmt.Errorf("config: BANK_API_BASE_URL must not be empty")
	}
	if c.JWT.Enabled && c.JWT.Secret == "" {
		return fmt.Errorf("config: JWT_SECRET is required when JWT_ENABLED is set")
	}
	return nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// MigrationURL returns the pgx5:// URL golang-migrate expects.
func (c *DatabaseConfig) MigrationURL() string {
	return fmt.Sprintf(
		"pgx5://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Timeout returns the per-request timeout for bank API calls.
func (c *BankConfig) Timeout() time.Duration {
	return secondsOr(c.TimeoutSeconds, 10*time.Second)
}

// LockTTL returns how long an admission lock may be held.
func (c *RoundUpConfig) LockTTL() time.Duration {
	return secondsOr(c.LockTTLSeconds, 30*time.Second)
}

// PipelineTimeout bounds a single background round-up run.
func (c *RoundUpConfig) PipelineTimeout() time.Duration {
	return secondsOr(c.PipelineTimeoutSeconds, 2*time.Minute)
}

func secondsOr(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}
