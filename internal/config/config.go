// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration read from strings such as "12s" in JSON, YAML and env vars.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText formats the duration as a Go duration string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config represents the CLI configuration. Values come from the environment
// (and .env) first, then a JSON or YAML file may override them.
type Config struct {
	// Credentials and storage
	APIKey      string `json:"api_key,omitempty" yaml:"api_key,omitempty" envconfig:"GEMINI_API_KEY"`
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty" envconfig:"DATABASE_URL" validate:"omitempty,url"`
	SQLitePath  string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty" envconfig:"BRD_SQLITE_PATH" default:"brd.db"`
	OwnerKey    string `json:"owner_key,omitempty" yaml:"owner_key,omitempty" envconfig:"BRD_OWNER_KEY" default:"local" validate:"required"`

	// Model
	ModelTier string `json:"model_tier,omitempty" yaml:"model_tier,omitempty" envconfig:"BRD_MODEL_TIER" default:"standard" validate:"oneof=lite standard advanced"`
	Model     string `json:"model,omitempty" yaml:"model,omitempty" envconfig:"BRD_MODEL"` // Overrides the model name of ModelTier

	// Classification
	BatchSize       int      `json:"batch_size,omitempty" yaml:"batch_size,omitempty" envconfig:"BRD_BATCH_SIZE" default:"5" validate:"min=1,max=50"`
	BatchInterval   Duration `json:"batch_interval,omitempty" yaml:"batch_interval,omitempty" envconfig:"BRD_BATCH_INTERVAL" default:"12s"`
	ClassifyRetries int      `json:"classify_retries,omitempty" yaml:"classify_retries,omitempty" envconfig:"BRD_CLASSIFY_RETRIES" default:"0" validate:"min=0,max=5"`
	RateLimitRPM    int      `json:"rate_limit_rpm,omitempty" yaml:"rate_limit_rpm,omitempty" envconfig:"BRD_RATE_LIMIT_RPM" default:"0" validate:"min=0,max=6000"` // Overrides BatchInterval when set

	// Synthesis
	MaxSamples int `json:"max_samples,omitempty" yaml:"max_samples,omitempty" envconfig:"BRD_MAX_SAMPLES" default:"20" validate:"min=1,max=500"`

	// Concurrency is how many files IngestFiles processes at once
	Concurrency int `json:"concurrency,omitempty" yaml:"concurrency,omitempty" envconfig:"BRD_CONCURRENCY" default:"4" validate:"min=1,max=64"`

	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty" envconfig:"BRD_VERBOSE"`
}

// validate checks Config struct tags
var validate = validator.New()

// LoadEnv reads .env if present, then fills a Config from environment variables with defaults.
func LoadEnv() (*Config, error) {
	// A missing .env is fine; the variables may be set in the shell
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return &cfg, nil
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// Load combines the environment with an optional config file and validates the result.
func Load(path string) (*Config, error) {
	env, err := LoadEnv()
	if err != nil {
		return nil, err
	}

	cfg := *env
	if path != "" {
		file, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = file.MergeWithDefaults(*env)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't require an API key since read-only commands work without one.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.BatchInterval.Duration < 0 {
		return fmt.Errorf("config error: 'batch_interval' must be non-negative")
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from defaults.
// This is used to layer a config file over environment values.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.SQLitePath == "" {
		result.SQLitePath = defaults.SQLitePath
	}
	if result.OwnerKey == "" {
		result.OwnerKey = defaults.OwnerKey
	}
	if result.ModelTier == "" {
		result.ModelTier = defaults.ModelTier
	}
	if result.Model == "" {
		result.Model = defaults.Model
	}

	// Numeric fields: use default if zero
	if result.BatchSize == 0 {
		result.BatchSize = defaults.BatchSize
	}
	if result.BatchInterval.Duration == 0 {
		result.BatchInterval = defaults.BatchInterval
	}
	if result.ClassifyRetries == 0 {
		result.ClassifyRetries = defaults.ClassifyRetries
	}
	if result.RateLimitRPM == 0 {
		result.RateLimitRPM = defaults.RateLimitRPM
	}
	if result.MaxSamples == 0 {
		result.MaxSamples = defaults.MaxSamples
	}
	if result.Concurrency == 0 {
		result.Concurrency = defaults.Concurrency
	}

	// Bool fields: cannot distinguish unset from false, so either source enables
	result.Verbose = result.Verbose || defaults.Verbose

	return result
}
