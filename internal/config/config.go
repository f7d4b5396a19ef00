package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the simulator's runtime configuration. Game timing constants
// are fixed and deliberately absent.
type Config struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	IdleBackoff  time.Duration `yaml:"idle_backoff"`
	Store        StoreConfig   `yaml:"store"`
	Log          LogConfig     `yaml:"log"`
	Display      DisplayConfig `yaml:"display"`
}

type StoreConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"` // yaml | json; empty infers from Path
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type DisplayConfig struct {
	Echo bool `yaml:"echo"`
}

func Default() *Config {
	return &Config{
		TickInterval: time.Millisecond,
		Store:        StoreConfig{Path: "reflex-best.yaml"},
		Log:          LogConfig{Level: "info"},
		Display:      DisplayConfig{Echo: true},
	}
}

// Load reads path (optional) over the defaults, then applies REFLEX_*
// variables from the environment and a .env file. Environment wins.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("REFLEX_TICK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("REFLEX_TICK_INTERVAL: %w", err)
		}
		c.TickInterval = d
	}
	if v := os.Getenv("REFLEX_IDLE_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("REFLEX_IDLE_BACKOFF: %w", err)
		}
		c.IdleBackoff = d
	}
	if v := os.Getenv("REFLEX_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("REFLEX_STORE_FORMAT"); v != "" {
		c.Store.Format = strings.ToLower(v)
	}
	if v := os.Getenv("REFLEX_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("REFLEX_LOG_JSON"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("REFLEX_LOG_JSON: %w", err)
		}
		c.Log.JSON = b
	}
	if v := os.Getenv("REFLEX_DISPLAY_ECHO"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("REFLEX_DISPLAY_ECHO: %w", err)
		}
		c.Display.Echo = b
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick_interval must be positive, got %v", c.TickInterval))
	}
	if c.IdleBackoff < 0 {
		errs = append(errs, fmt.Errorf("idle_backoff must not be negative, got %v", c.IdleBackoff))
	}
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required"))
	}
	switch c.Store.Format {
	case "", "yaml", "json":
	default:
		errs = append(errs, fmt.Errorf("store.format %q: want yaml or json", c.Store.Format))
	}
	return errors.Join(errs...)
}
