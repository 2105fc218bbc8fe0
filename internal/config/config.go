package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all popdash configuration.
type Config struct {
	// DataPath is the population CSV.
	DataPath string `yaml:"data_path"`

	// Watch purges the dataset cache as soon as the file changes on disk.
	Watch bool `yaml:"watch"`

	Server  ServerConfig  `yaml:"server"`
	Charts  ChartsConfig  `yaml:"charts"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	Title           string        `yaml:"title"`
	RateLimit       float64       `yaml:"rate_limit"` // requests per second per client, 0 disables
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ChartsConfig sizes are in inches.
type ChartsConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Format string  `yaml:"format"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		DataPath: "Cleaned_Philippine_Population.csv",
		Watch:    true,
		Server: ServerConfig{
			Addr:            ":8080",
			Title:           "Philippine Population Dashboard",
			RateLimit:       20,
			ShutdownTimeout: 10 * time.Second,
		},
		Charts: ChartsConfig{
			Width:  10,
			Height: 5,
			Format: "png",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("POPDASH_DATA"); v != "" {
		c.DataPath = v
	}
	if v := os.Getenv("POPDASH_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("POPDASH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("POPDASH_WATCH"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("POPDASH_WATCH: %w", err)
		}
		c.Watch = b
	}
	return nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.DataPath == "" {
		errs = append(errs, errors.New("data_path is required"))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit must be >= 0, got %v", c.Server.RateLimit))
	}
	if c.Charts.Width <= 0 || c.Charts.Height <= 0 {
		errs = append(errs, fmt.Errorf("charts size must be positive, got %vx%v", c.Charts.Width, c.Charts.Height))
	}
	if !slices.Contains([]string{"png", "svg"}, c.Charts.Format) {
		errs = append(errs, fmt.Errorf("charts.format must be png or svg, got %q", c.Charts.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
