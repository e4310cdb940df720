// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads Inbound settings from defaults, inbound.yaml, INBOUND_*
// environment variables and command flags, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the full set of Inbound settings.
type Config struct {
	Database struct {
		Type string `mapstructure:"type" yaml:"type"`
		Dsn  string `mapstructure:"dsn" yaml:"dsn"`
	} `mapstructure:"database" yaml:"database"`
	Server struct {
		Listen       string `mapstructure:"listen" yaml:"listen"`
		Workers      int    `mapstructure:"workers" yaml:"workers"`
		QueueSize    int    `mapstructure:"queue_size" yaml:"queue_size"`
		MaxBodyBytes int64  `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	} `mapstructure:"server" yaml:"server"`
	Fetch struct {
		Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
		MaxPerDelivery int           `mapstructure:"max_per_delivery" yaml:"max_per_delivery"`
		MaxBodyBytes   int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
		UserAgent      string        `mapstructure:"user_agent" yaml:"user_agent"`
	} `mapstructure:"fetch" yaml:"fetch"`
	Debug struct {
		APLogUnknown bool   `mapstructure:"ap_log_unknown" yaml:"ap_log_unknown"`
		SampleSink   string `mapstructure:"sample_sink" yaml:"sample_sink"`
		SampleDir    string `mapstructure:"sample_dir" yaml:"sample_dir"`
	} `mapstructure:"debug" yaml:"debug"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	Language string `mapstructure:"language" yaml:"language"`
}

// Defaults returns the built-in values for every key.
func Defaults() map[string]any {
	return map[string]any{
		"database.type":          "sqlite",
		"database.dsn":           "./inbound.db",
		"server.listen":          ":8080",
		"server.workers":         4,
		"server.queue_size":      256,
		"server.max_body_bytes":  1 << 20,
		"fetch.timeout":          "10s",
		"fetch.max_per_delivery": 8,
		"fetch.max_body_bytes":   2 << 20,
		"fetch.user_agent":       "Inbound (+https://github.com/toeirei/inbound)",
		"debug.ap_log_unknown":   false,
		"debug.sample_sink":      "db",
		"debug.sample_dir":       "./samples",
		"log_level":              "info",
		"language":               "en",
	}
}

// Validate rejects values the daemon cannot run with.
func (c Config) Validate() error {
	switch c.Database.Type {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("database.type: unsupported value %q", c.Database.Type)
	}
	if c.Database.Dsn == "" {
		return fmt.Errorf("database.dsn: must not be empty")
	}
	switch c.Debug.SampleSink {
	case "db", "file":
	default:
		return fmt.Errorf("debug.sample_sink: expected db or file, got %q", c.Debug.SampleSink)
	}
	if c.Debug.SampleSink == "file" && c.Debug.SampleDir == "" {
		return fmt.Errorf("debug.sample_dir: required for the file sink")
	}
	if c.Server.Workers < 1 || c.Server.QueueSize < 1 {
		return fmt.Errorf("server: workers and queue_size must be positive")
	}
	return nil
}

// GetConfigPath returns the full path of the user or system inbound.yaml.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "Inbound")
		default:
			configDir = "/etc/inbound"
		}
	} else {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(dir, "inbound")
	}
	return filepath.Join(configDir, "inbound.yaml"), nil
}

// LoadConfig resolves T from defaults, the first inbound.yaml found (or
// explicitPath), the environment and the flags of cmd. A missing file is
// reported as viper.ConfigFileNotFoundError together with the resolved value.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, explicitPath *string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("inbound")
	v.SetConfigType("yaml")
	if explicitPath != nil {
		v.SetConfigFile(*explicitPath)
	}
	if userConfigPath, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".")

	var notFound error
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, err
		}
		notFound = err
	}

	v.SetEnvPrefix("inbound")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, notFound
}

// WriteConfigFile stores c as the user (or system) inbound.yaml and returns
// the path written.
func WriteConfigFile[T any](c *T, system bool) (string, error) {
	path, err := GetConfigPath(system)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}
	// The DSN may carry credentials.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
