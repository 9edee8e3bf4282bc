package utils

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/vybium/vybium-p2record/internal/vybium-p2record/core"
)

// EnvPrefix prefixes every environment override, e.g. P2RECORD_WORKERS
const EnvPrefix = "P2RECORD"

// Config represents the configuration for execution record construction
type Config struct {
	// Number of elements squeezed by a finalize (must not exceed the permutation width)
	DigestSize int `mapstructure:"digest_size"`

	// Poseidon2 round numbers
	FullRounds    int `mapstructure:"full_rounds"`
	PartialRounds int `mapstructure:"partial_rounds"`

	// Worker limit for parallel construction
	Workers int `mapstructure:"workers"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`  // logrus level name
	LogFormat string `mapstructure:"log_format"` // "text" or "json"
}

// DefaultConfig returns the width-16 BabyBear configuration used by SP1
func DefaultConfig() *Config {
	return &Config{
		DigestSize:    core.DigestSize,
		FullRounds:    core.DefaultFullRounds,
		PartialRounds: core.DefaultPartialRounds,
		Workers:       runtime.NumCPU(),
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// Validate checks if the configuration is valid. Every failure is a
// configuration error and is meant to be fatal at setup.
func (c *Config) Validate() error {
	if c.DigestSize <= 0 || c.DigestSize > core.Width {
		return core.Errorf(core.ErrInvalidConfig, "digest size %d must be in [1, %d]", c.DigestSize, core.Width)
	}

	if c.FullRounds <= 0 || c.FullRounds%2 != 0 {
		return core.Errorf(core.ErrInvalidConfig, "full rounds must be a positive even number, got %d", c.FullRounds)
	}

	if c.PartialRounds <= 0 {
		return core.Errorf(core.ErrInvalidConfig, "partial rounds must be positive, got %d", c.PartialRounds)
	}

	if c.Workers <= 0 {
		return core.Errorf(core.ErrInvalidConfig, "workers must be positive, got %d", c.Workers)
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return &core.RecordError{Code: core.ErrInvalidConfig, Message: "invalid log level", Cause: err}
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return core.Errorf(core.ErrInvalidConfig, "log format must be 'text' or 'json', got '%s'", c.LogFormat)
	}

	return nil
}

// WithDigestSize sets the digest size
func (c *Config) WithDigestSize(size int) *Config {
	c.DigestSize = size
	return c
}

// WithRounds sets the full and partial round numbers
func (c *Config) WithRounds(full, partial int) *Config {
	c.FullRounds = full
	c.PartialRounds = partial
	return c
}

// WithWorkers sets the worker limit
func (c *Config) WithWorkers(workers int) *Config {
	c.Workers = workers
	return c
}

// WithLogLevel sets the log level
func (c *Config) WithLogLevel(level string) *Config {
	c.LogLevel = level
	return c
}

// Clone creates a copy of the configuration
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// NewViper returns a viper instance seeded with the defaults and bound to
// the P2RECORD_ environment prefix
func NewViper() *viper.Viper {
	v := viper.New()
	d := DefaultConfig()
	v.SetDefault("digest_size", d.DigestSize)
	v.SetDefault("full_rounds", d.FullRounds)
	v.SetDefault("partial_rounds", d.PartialRounds)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// ConfigFromViper decodes and validates the configuration held by v
func ConfigFromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, &core.RecordError{Code: core.ErrInvalidConfig, Message: "failed to decode configuration", Cause: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads the configuration file at path (any format viper
// understands) over the defaults. An empty path uses defaults and environment only.
func LoadConfig(path string) (*Config, error) {
	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, &core.RecordError{
				Code:    core.ErrInvalidConfig,
				Message: fmt.Sprintf("failed to read config file %s", path),
				Cause:   err,
			}
		}
	}
	return ConfigFromViper(v)
}
