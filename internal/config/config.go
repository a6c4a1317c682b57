// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml), with ${VAR} references expanded from the environment
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg, err := config.LoadOrEnv("config.yaml")
//	opts, err := cfg.Reconciliation.Options()
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"pos-reconciliation/internal/domain"
)

// Config represents the entire application configuration
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Storage        StorageConfig        `yaml:"storage"`
	Reconciliation ReconciliationConfig `yaml:"reconciliation"`
	Logging        LoggingConfig        `yaml:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxUploadMB    int      `yaml:"max_upload_mb"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ReconciliationConfig holds the engine defaults. Amounts are strings so
// they are parsed as exact decimals.
type ReconciliationConfig struct {
	Mode                    string  `yaml:"mode"`
	ToleranceAmount         string  `yaml:"tolerance_amount"`
	TolerancePercentage     string  `yaml:"tolerance_percentage"`
	NameSimilarityThreshold float64 `yaml:"name_similarity_threshold"`
	DateWindowDays          int     `yaml:"date_window_days"`
	MalformedPolicy         string  `yaml:"malformed_policy"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	opts := domain.DefaultOptions()
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:3000"},
			MaxUploadMB:    32,
		},
		Storage: StorageConfig{
			DatabasePath: "reconciliation.db",
		},
		Reconciliation: ReconciliationConfig{
			Mode:                    string(domain.ModeBySKU),
			ToleranceAmount:         opts.ToleranceAmount.String(),
			TolerancePercentage:     opts.TolerancePercentage.String(),
			NameSimilarityThreshold: opts.NameSimilarityThreshold,
			DateWindowDays:          opts.DateWindowDays,
			MalformedPolicy:         string(opts.MalformedPolicy),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads and parses the config file. Keys missing from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${RECON_DB_PATH})
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	def := Default()
	return &Config{
		Server: ServerConfig{
			Port:           getEnvInt("PORT", def.Server.Port),
			AllowedOrigins: getEnvList("RECON_ALLOWED_ORIGINS", def.Server.AllowedOrigins),
			MaxUploadMB:    getEnvInt("RECON_MAX_UPLOAD_MB", def.Server.MaxUploadMB),
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("RECON_DB_PATH", def.Storage.DatabasePath),
		},
		Reconciliation: ReconciliationConfig{
			Mode:                    getEnv("RECON_MODE", def.Reconciliation.Mode),
			ToleranceAmount:         getEnv("RECON_TOLERANCE_AMOUNT", def.Reconciliation.ToleranceAmount),
			TolerancePercentage:     getEnv("RECON_TOLERANCE_PERCENTAGE", def.Reconciliation.TolerancePercentage),
			NameSimilarityThreshold: getEnvFloat("RECON_NAME_SIMILARITY_THRESHOLD", def.Reconciliation.NameSimilarityThreshold),
			DateWindowDays:          getEnvInt("RECON_DATE_WINDOW_DAYS", def.Reconciliation.DateWindowDays),
			MalformedPolicy:         getEnv("RECON_MALFORMED_POLICY", def.Reconciliation.MalformedPolicy),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", def.Logging.Level),
			Format: getEnv("LOG_FORMAT", def.Logging.Format),
		},
	}
}

// LoadOrEnv loads path when it exists and falls back to environment
// variables otherwise. A file that exists but does not parse is an error.
func LoadOrEnv(path string) (*Config, error) {
	if path != "" {
		cfg, err := Load(path)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the server settings and the reconciliation defaults.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return &domain.ConfigError{Field: "server.port", Value: c.Server.Port, Reason: "must be within [0,65535]"}
	}
	if c.Server.MaxUploadMB <= 0 {
		return &domain.ConfigError{Field: "server.max_upload_mb", Value: c.Server.MaxUploadMB, Reason: "must be > 0"}
	}
	if _, err := c.Reconciliation.ModeValue(); err != nil {
		return err
	}
	_, err := c.Reconciliation.Options()
	return err
}

// ModeValue parses the configured default mode.
func (r ReconciliationConfig) ModeValue() (domain.Mode, error) {
	return domain.ParseMode(r.Mode)
}

// Options converts the configured thresholds into validated engine options.
func (r ReconciliationConfig) Options() (domain.Options, error) {
	toleranceAmount, err := parseDecimal("tolerance_amount", r.ToleranceAmount)
	if err != nil {
		return domain.Options{}, err
	}
	tolerancePercentage, err := parseDecimal("tolerance_percentage", r.TolerancePercentage)
	if err != nil {
		return domain.Options{}, err
	}

	opts := domain.Options{
		ToleranceAmount:         toleranceAmount,
		TolerancePercentage:     tolerancePercentage,
		NameSimilarityThreshold: r.NameSimilarityThreshold,
		DateWindowDays:          r.DateWindowDays,
		MalformedPolicy:         domain.MalformedPolicy(strings.ToLower(strings.TrimSpace(r.MalformedPolicy))),
	}
	if err := opts.Validate(); err != nil {
		return domain.Options{}, err
	}
	return opts, nil
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, &domain.ConfigError{Field: field, Value: s, Reason: "must be a decimal number"}
	}
	return d, nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvList splits a comma separated variable, dropping empty entries.
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
