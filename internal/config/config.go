package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vietdv277/logmux/pkg/types"
)

// Output formats for list-style commands
const (
	OutputTable = "table"
	OutputJSON  = "json"
)

// Defaults holds settings applied when a command does not override them
type Defaults struct {
	PageSize        int           `yaml:"page_size,omitempty"`
	RefreshInterval time.Duration `yaml:"refresh_interval,omitempty"`
	Output          string        `yaml:"output,omitempty"` // table, json
}

// Config represents the configuration file
type Config struct {
	Sources  []types.LogSource `yaml:"sources,omitempty"`
	Selected []string          `yaml:"selected,omitempty"`
	Defaults *Defaults         `yaml:"defaults,omitempty"`
}

// GetConfigDir returns the config directory ($XDG_CONFIG_HOME/logmux)
func GetConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "logmux")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".logmux"
	}
	return filepath.Join(home, ".config", "logmux")
}

// GetConfigPath returns the default config file path
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

func defaultConfig() *Config {
	return &Config{
		Defaults: &Defaults{
			PageSize:        types.DefaultPageSize,
			RefreshInterval: 30 * time.Second,
			Output:          OutputTable,
		},
	}
}

// LoadConfig loads the configuration from path. A missing file yields the
// default configuration.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	def := defaultConfig().Defaults
	if cfg.Defaults == nil {
		cfg.Defaults = def
	}
	if cfg.Defaults.PageSize <= 0 {
		cfg.Defaults.PageSize = def.PageSize
	}
	if cfg.Defaults.RefreshInterval <= 0 {
		cfg.Defaults.RefreshInterval = def.RefreshInterval
	}
	if cfg.Defaults.Output == "" {
		cfg.Defaults.Output = def.Output
	}
	return &cfg, nil
}

// SaveConfig writes cfg to path, creating the directory if needed.
// The file is only readable by its owner.
func SaveConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
