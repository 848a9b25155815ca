// Package config loads the application configuration from YAML,
// applying per-section defaults so a missing or partial file still
// yields a usable setup.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/healthmon/importer/internal/errs"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "30s" as well as integer nanoseconds.
type Duration time.Duration

// Std converts to a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}

	var n int64
	if err := node.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration: %s", node.Value)
	}
	*d = Duration(n)
	return nil
}

// Config is the root application configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	Validator ValidatorConfig `yaml:"validator"`
	Queue     QueueConfig     `yaml:"queue"`
}

// DatabaseConfig locates the embedded store.
type DatabaseConfig struct {
	Path  string `yaml:"path"`
	Debug bool   `yaml:"debug"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ValidatorConfig bounds the pre-flight validation pass.
type ValidatorConfig struct {
	SampleSize    int   `yaml:"sample_size"`
	MaxErrors     int   `yaml:"max_errors"`
	WarnFileBytes int64 `yaml:"warn_file_bytes"`
	WarnRecords   int   `yaml:"warn_records"`
}

// QueueConfig controls the import task queue's retry discipline. The
// queue always runs a single worker: imports are serialized against
// one store.
type QueueConfig struct {
	MaxRetries        int      `yaml:"max_retries"`
	InitialBackoff    Duration `yaml:"initial_backoff"`
	MaxBackoff        Duration `yaml:"max_backoff"`
	BackoffMultiplier float64  `yaml:"backoff_multiplier"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Path: "health.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Validator: ValidatorConfig{
			SampleSize:    1000,
			MaxErrors:     100,
			WarnFileBytes: 500 << 20,
			WarnRecords:   1_000_000,
		},
		Queue: QueueConfig{
			MaxRetries:        3,
			InitialBackoff:    Duration(time.Second),
			MaxBackoff:        Duration(30 * time.Second),
			BackoffMultiplier: 2.0,
		},
	}
}

// Load reads a YAML config file and applies defaults for absent fields.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &errs.ConfigError{Path: path, Err: err}
	}
	return Parse(data, path)
}

// Parse loads YAML bytes into a Config with defaults applied.
func Parse(data []byte, path string) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, &errs.ConfigError{Path: path, Err: err}
	}
	return applyDefaults(cfg), nil
}

func applyDefaults(cfg Config) Config {
	def := Default()
	if cfg.Database.Path == "" {
		cfg.Database.Path = def.Database.Path
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
	if cfg.Validator.SampleSize <= 0 {
		cfg.Validator.SampleSize = def.Validator.SampleSize
	}
	if cfg.Validator.MaxErrors <= 0 {
		cfg.Validator.MaxErrors = def.Validator.MaxErrors
	}
	if cfg.Validator.WarnFileBytes <= 0 {
		cfg.Validator.WarnFileBytes = def.Validator.WarnFileBytes
	}
	if cfg.Validator.WarnRecords <= 0 {
		cfg.Validator.WarnRecords = def.Validator.WarnRecords
	}
	if cfg.Queue.MaxRetries <= 0 {
		cfg.Queue.MaxRetries = def.Queue.MaxRetries
	}
	if cfg.Queue.InitialBackoff <= 0 {
		cfg.Queue.InitialBackoff = def.Queue.InitialBackoff
	}
	if cfg.Queue.MaxBackoff <= 0 {
		cfg.Queue.MaxBackoff = def.Queue.MaxBackoff
	}
	if cfg.Queue.BackoffMultiplier <= 0 {
		cfg.Queue.BackoffMultiplier = def.Queue.BackoffMultiplier
	}
	return cfg
}
