package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"edgegen/internal/session"
)

// Defaults for the service-level settings.
const (
	DefaultAddr          = ":8080"
	DefaultModelsDir     = "~/models/llm"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultMaxQueueDepth = 32
	DefaultMaxWait       = 30 * time.Second
	DefaultMaxBodyBytes  = 1 << 20
)

// CORS configures cross-origin access to the HTTP API.
type CORS struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
	Methods []string `json:"methods" yaml:"methods" toml:"methods"`
	Headers []string `json:"headers" yaml:"headers" toml:"headers"`
}

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	Addr          string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir     string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	DefaultModel  string `json:"default_model" yaml:"default_model" toml:"default_model"`
	LogLevel      string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat     string `json:"log_format" yaml:"log_format" toml:"log_format"`
	MaxQueueDepth int    `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	// MaxWait is a Go duration string ("30s", "2m").
	MaxWait      string         `json:"max_wait" yaml:"max_wait" toml:"max_wait"`
	MaxBodyBytes int64          `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	CORS         CORS           `json:"cors" yaml:"cors" toml:"cors"`
	Engine       session.Config `json:"engine" yaml:"engine" toml:"engine"`
}

// Default returns a Config with every field populated.
func Default() Config {
	return Config{}.WithDefaults()
}

// WithDefaults fills unset fields.
func (c Config) WithDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ModelsDir == "" {
		c.ModelsDir = DefaultModelsDir
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.MaxQueueDepth <= 0 {
		c.MaxQueueDepth = DefaultMaxQueueDepth
	}
	if c.MaxWait == "" {
		c.MaxWait = DefaultMaxWait.String()
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	c.Engine = c.Engine.WithDefaults()
	return c
}

// MaxWaitDuration parses MaxWait, falling back to DefaultMaxWait when the
// value is empty or not a positive duration.
func (c Config) MaxWaitDuration() time.Duration {
	d, err := time.ParseDuration(c.MaxWait)
	if err != nil || d <= 0 {
		return DefaultMaxWait
	}
	return d
}

// Validate reports settings that cannot be defaulted.
func (c Config) Validate() error {
	if c.MaxWait != "" {
		if _, err := time.ParseDuration(c.MaxWait); err != nil {
			return fmt.Errorf("max_wait: %w", err)
		}
	}
	if c.Engine.BatchSize > 0 && c.Engine.ContextSize > 0 && c.Engine.BatchSize > c.Engine.ContextSize {
		return fmt.Errorf("engine.batch_size %d exceeds engine.context_size %d", c.Engine.BatchSize, c.Engine.ContextSize)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "console", "json":
	default:
		return fmt.Errorf("unsupported log_format: %s", c.LogFormat)
	}
	return nil
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
// The file is decoded over Default, so keys it omits keep their defaults,
// including individual sampler fields.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
