// Package config holds the process configuration for the powerplan API and
// operator CLI. It is loaded once at startup and never modified afterwards.
//
// Values are resolved in priority order:
//
//	OS environment -> .env file -> AWS SSM Parameter Store (via *_SSM_PARAM)
//
// A missing required value or an invalid format is a startup error.
package config

import (
	"time"

	"powerplan/internal/types"
)

// SecretString is an alias for types.SecretString so config consumers do not
// need to import types for it.
type SecretString = types.SecretString

// Config is the top-level configuration.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"powerplan-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server        ServerConfig
	Database      DatabaseConfig
	AWS           AWSConfig
	Auth          AuthConfig
	Security      SecurityConfig
	Observability ObservabilityConfig
	Catalog       CatalogConfig

	// Injected via ldflags, not env.
	Build BuildInfo
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port           string        `envconfig:"PORT" default:"8080"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"29s"`
	// CompressMinSize is the smallest response body, in bytes, that gets gzip
	// encoded.
	CompressMinSize int `envconfig:"COMPRESS_MIN_SIZE" default:"1024" validate:"gte=0"`
}

// DatabaseConfig holds the PostgreSQL connection string and pool tuning.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns          int32         `envconfig:"DB_MAX_CONNS" default:"10" validate:"gte=1"`
	MinConns          int32         `envconfig:"DB_MIN_CONNS" default:"1" validate:"gte=0"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// AWSConfig holds the region and an optional endpoint override for
// LocalStack.
type AWSConfig struct {
	Region      string `envconfig:"AWS_REGION" default:"eu-central-1"`
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// AuthConfig holds JWT signing settings.
type AuthConfig struct {
	JWTSigningKey SecretString  `envconfig:"JWT_SIGNING_KEY" validate:"required,min=32"`
	JWTIssuer     string        `envconfig:"JWT_ISSUER" default:"powerplan"`
	JWTAudience   string        `envconfig:"JWT_AUDIENCE" default:"powerplan-clients"`
	TokenTTL      time.Duration `envconfig:"JWT_TTL" default:"60m" validate:"gt=0"`
}

// SecurityConfig holds browser-facing settings.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
}

// ObservabilityConfig controls CloudWatch request metrics.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"PowerPlan"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"false"`
}

// CatalogConfig tunes the plan snapshot used by recommendations.
type CatalogConfig struct {
	// SnapshotTTL is how long a loaded plan list is reused before the
	// database is queried again. Zero disables reuse.
	SnapshotTTL time.Duration `envconfig:"CATALOG_SNAPSHOT_TTL" default:"30s" validate:"gte=0"`
	// BreakerFailures is the number of consecutive load failures that opens
	// the circuit.
	BreakerFailures uint32        `envconfig:"CATALOG_BREAKER_FAILURES" default:"5" validate:"gte=1"`
	BreakerTimeout  time.Duration `envconfig:"CATALOG_BREAKER_TIMEOUT" default:"30s"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	ErrMissingEnv    ConfigErrorType = "MISSING_ENV"
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	ErrValidation    ConfigErrorType = "VALIDATION_FAILED"
	ErrParsing       ConfigErrorType = "PARSING_FAILED"
)
