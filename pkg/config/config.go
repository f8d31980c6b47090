// Package config loads the optional dolphinmem configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDir  = ".dolphinmem"
	ConfigFile  = "config.yaml"
	EnvOverride = "DOLPHINMEM_CONFIG"
)

type Config struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxAttempts  int           `yaml:"max_attempts"`
	Timeout      time.Duration `yaml:"timeout"`
	DefaultWidth string        `yaml:"default_width"`

	Pid          int      `yaml:"pid"`
	ProcessNames []string `yaml:"process_names"`

	Listen     string `yaml:"listen"`
	GRPCListen string `yaml:"grpc_listen"`

	Log LogConfig `yaml:"log"`
}

type LogConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Components string `yaml:"components"`
	Dest       string `yaml:"dest"`
}

func Default() *Config {
	return &Config{
		PollInterval: time.Second,
		DefaultWidth: "u8",
		Listen:       "127.0.0.1:0",
	}
}

// Path returns the config file location: $DOLPHINMEM_CONFIG if set,
// otherwise ~/.dolphinmem/config.yaml.
func Path() string {
	if p := os.Getenv(EnvOverride); p != "" {
		return p
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, DefaultDir, ConfigFile)
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	//nolint:gosec // G304: path is chosen by the user.
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("max_attempts must not be negative, got %d", c.MaxAttempts)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	if c.Pid < 0 {
		return fmt.Errorf("pid must not be negative, got %d", c.Pid)
	}
	return nil
}
