// Package config loads pipeshell settings from defaults, an optional YAML
// file and PIPESHELL_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Shell    ShellConfig    `mapstructure:"shell"`
	Log      LogConfig      `mapstructure:"log"`
	History  HistoryConfig  `mapstructure:"history"`
	Observer ObserverConfig `mapstructure:"observer"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ShellConfig configures new sessions.
type ShellConfig struct {
	Cwd    string `mapstructure:"cwd"`
	Prompt string `mapstructure:"prompt"`
}

// LogConfig selects the root logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

// HistoryConfig locates the history database. An empty path disables
// history.
type HistoryConfig struct {
	Path  string `mapstructure:"path"`
	Limit int    `mapstructure:"limit"`
}

// ObserverConfig is the listen address of the WebSocket event stream.
type ObserverConfig struct {
	Addr string `mapstructure:"addr"`
}

// MetricsConfig is the listen address of the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// EnvPrefix prefixes every environment override, e.g. PIPESHELL_LOG_LEVEL.
const EnvPrefix = "PIPESHELL"

// Dir returns the directory holding the default config file.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".config", "pipeshell")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Shell:    ShellConfig{Cwd: "/", Prompt: "> "},
		Log:      LogConfig{Level: "info", Format: "console"},
		History:  HistoryConfig{Path: filepath.Join(Dir(), "history.db"), Limit: 1000},
		Observer: ObserverConfig{Addr: "127.0.0.1:7070"},
		Metrics:  MetricsConfig{Addr: "127.0.0.1:7071"},
	}
}

// Load reads the configuration. A configPath that does not exist is an
// error; a missing default config file is not.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(Dir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.History.Path = expandHome(cfg.History.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be console or json)", c.Log.Format)
	}
	if !path.IsAbs(c.Shell.Cwd) {
		return fmt.Errorf("shell cwd must be absolute: %q", c.Shell.Cwd)
	}
	if c.History.Limit < 0 {
		return fmt.Errorf("history limit must not be negative: %d", c.History.Limit)
	}
	return nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("shell.cwd", d.Shell.Cwd)
	v.SetDefault("shell.prompt", d.Shell.Prompt)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("history.path", d.History.Path)
	v.SetDefault("history.limit", d.History.Limit)
	v.SetDefault("observer.addr", d.Observer.Addr)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
