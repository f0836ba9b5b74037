package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"rankfair/domain/verdict"
	"rankfair/internal/errors"
	"rankfair/internal/oracle"

	"github.com/go-playground/validator/v10"
)

// Config represents the complete application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Audit      AuditConfig
	Thresholds ThresholdConfig
	Data       DataConfig
}

// DatabaseConfig holds database connection settings. An empty URL disables
// report persistence.
type DatabaseConfig struct {
	URL string `validate:"omitempty,url"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port            string        `validate:"required,numeric"`
	OpsPort         string        `validate:"required,numeric,nefield=Port"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

// AuditConfig holds the oracle defaults
type AuditConfig struct {
	TopK               int     `validate:"gte=1"`
	Runs               int     `validate:"gte=1,lte=100000"`
	Precision          int     `validate:"gte=0,lte=15"`
	StabilityPrecision int     `validate:"gte=0,lte=15"`
	Seed               int64
	Alpha              float64 `validate:"gt=0,lt=1"`
	Workers            int     `validate:"gte=1,lte=256"`
	Alternative        string  `validate:"oneof=disadvantaged advantaged"`
}

// ThresholdConfig holds the classifier cut-offs
type ThresholdConfig struct {
	Stable float64 `validate:"gte=0"`
	Fair   float64 `validate:"gt=0,lt=1"`
}

// DataConfig holds data source settings
type DataConfig struct {
	ExcelFile string
}

var validate = validator.New()

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	env := &envReader{}

	config := &Config{
		Database: DatabaseConfig{
			URL: env.String("DATABASE_URL", ""),
		},
		Server: ServerConfig{
			Port:            env.String("PORT", "8080"),
			OpsPort:         env.String("RANKFAIR_OPS_PORT", "9090"),
			ShutdownTimeout: env.Duration("RANKFAIR_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Audit: AuditConfig{
			TopK:               env.Int("RANKFAIR_TOP_K", oracle.DefaultOptions().TopK),
			Runs:               env.Int("RANKFAIR_RUNS", oracle.DefaultRuns),
			Precision:          env.Int("RANKFAIR_PRECISION", oracle.DefaultPrecision),
			StabilityPrecision: env.Int("RANKFAIR_STABILITY_PRECISION", oracle.DefaultStabilityPrecision),
			Seed:               int64(env.Int("RANKFAIR_SEED", oracle.DefaultSeed)),
			Alpha:              env.Float("RANKFAIR_ALPHA", 0.05),
			Workers:            env.Int("RANKFAIR_WORKERS", oracle.DefaultWorkers),
			Alternative:        strings.ToLower(env.String("RANKFAIR_ALTERNATIVE", string(verdict.ProtectedDisadvantaged))),
		},
		Thresholds: ThresholdConfig{
			Stable: env.Float("RANKFAIR_STABLE_THRESHOLD", verdict.StableThreshold),
			Fair:   env.Float("RANKFAIR_FAIR_THRESHOLD", verdict.FairThreshold),
		},
		Data: DataConfig{
			ExcelFile: env.String("EXCEL_FILE", ""),
		},
	}
	if env.err != nil {
		return nil, env.err
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	err := validate.Struct(config)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if stderrors.As(err, &fieldErrs) {
		fields := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields = append(fields, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
		return errors.ConfigInvalid(strings.Join(fields, "; "))
	}
	return errors.WithCode(errors.CodeConfigInvalid, err)
}

// OracleOptions returns the configured oracle defaults
func (c *Config) OracleOptions() oracle.Options {
	return oracle.Options{
		TopK:               c.Audit.TopK,
		Runs:               c.Audit.Runs,
		Precision:          c.Audit.Precision,
		StabilityPrecision: c.Audit.StabilityPrecision,
		Seed:               c.Audit.Seed,
		Workers:            c.Audit.Workers,
		Alternative:        verdict.Alternative(c.Audit.Alternative),
	}
}

// ClassifierThresholds returns the configured classifier cut-offs
func (c *Config) ClassifierThresholds() verdict.Thresholds {
	return verdict.Thresholds{Stable: c.Thresholds.Stable, Fair: c.Thresholds.Fair}
}

// envReader reads typed environment variables and keeps the first parse
// error, so a malformed value is reported instead of silently defaulted.
type envReader struct {
	err error
}

func (e *envReader) fail(key, value string, err error) {
	if e.err == nil {
		e.err = errors.ConfigInvalid(fmt.Sprintf("%s=%q: %v", key, value, err))
	}
}

func (e *envReader) String(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (e *envReader) Int(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		e.fail(key, value, err)
		return defaultValue
	}
	return intValue
}

func (e *envReader) Float(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		e.fail(key, value, err)
		return defaultValue
	}
	return floatValue
}

func (e *envReader) Duration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		e.fail(key, value, err)
		return defaultValue
	}
	return duration
}
