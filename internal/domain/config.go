package domain

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the complete Kestrel configuration, parsed from KESTREL_*
// environment variables. Thresholds and rule literals are fixed at startup;
// nothing here is mutated per request.
type Config struct {
	Server     ServerConfig     `envPrefix:"SERVER_"`
	Repository RepositoryConfig `envPrefix:"DB_"`
	Cache      CacheConfig      `envPrefix:"CACHE_"`
	EventBus   EventBusConfig   `envPrefix:"BUS_"`
	Auth       AuthConfig       `envPrefix:"AUTH_"`
	Scoring    ScoringConfig    `envPrefix:"SCORING_"`
	RateLimit  RateLimitConfig  `envPrefix:"RATELIMIT_"`
	Logging    LoggingConfig    `envPrefix:"LOG_"`
	Tracing    TracingConfig    `envPrefix:"TRACING_"`

	// AsyncWorker enables the bus-driven scoring worker for batch ingestion.
	AsyncWorker bool `env:"ASYNC_WORKER" envDefault:"false"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `env:"HOST" envDefault:"0.0.0.0"`
	Port         int    `env:"PORT" envDefault:"8080"`
	ReadTimeout  int    `env:"READ_TIMEOUT" envDefault:"30"`  // seconds
	WriteTimeout int    `env:"WRITE_TIMEOUT" envDefault:"30"` // seconds
}

// RepositoryConfig holds configuration for the historical store.
type RepositoryConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `env:"DRIVER" envDefault:"sqlite"`

	// SQLite specific.
	SQLitePath string `env:"SQLITE_PATH" envDefault:"./kestrel.db"`

	// PostgreSQL specific.
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER"`
	PostgresPassword string `env:"POSTGRES_PASSWORD"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"kestrel"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	// Connection pool settings.
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME"`
}

// AuthConfig holds token issuance and verification settings.
type AuthConfig struct {
	// JWTSecret signs HS256 tokens issued by POST /auth/token.
	JWTSecret string `env:"JWT_SECRET" envDefault:"change_me_in_production"`

	// AdminSecret is exchanged for a token.
	AdminSecret string `env:"ADMIN_SECRET" envDefault:"change_me"`

	// APIKey is a static alternative to JWT, sent via X-API-Key.
	APIKey string `env:"API_KEY" envDefault:"devtoken"`

	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
}

// ScoringConfig holds decision thresholds and model artifact locations.
type ScoringConfig struct {
	// Decision thresholds, per entity class.
	ReviewThreshold      float64 `env:"REVIEW_THRESHOLD" envDefault:"0.65"`
	TransactionThreshold float64 `env:"TX_THRESHOLD" envDefault:"0.50"`

	// Paths to model weight artifacts. Empty means rules-only scoring with
	// a zero model score.
	ReviewModelPath      string `env:"REVIEW_MODEL_PATH"`
	TransactionModelPath string `env:"TX_MODEL_PATH"`

	// RuleLimitsPath optionally points at a JSON file overriding built-in
	// rule literals.
	RuleLimitsPath string `env:"RULE_LIMITS_PATH"`
}

// RateLimitConfig holds request throttling settings.
type RateLimitConfig struct {
	Enabled bool `env:"ENABLED" envDefault:"true"`

	// Requests allowed per window, per client IP.
	Requests int           `env:"REQUESTS" envDefault:"100"`
	Window   time.Duration `env:"WINDOW" envDefault:"1h"`

	// Tighter limit applied to the predict endpoints.
	PredictRequests int           `env:"PREDICT_REQUESTS" envDefault:"30"`
	PredictWindow   time.Duration `env:"PREDICT_WINDOW" envDefault:"1m"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`  // debug, info, warn, error
	Format string `env:"FORMAT" envDefault:"json"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `env:"ENABLED" envDefault:"false"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"kestrel"`
}

// LoadConfig parses configuration from the environment.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "KESTREL_"}); err != nil {
		return nil, err
	}
	return &cfg, nil
}
