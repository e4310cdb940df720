// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cfg "github.com/toeirei/inbound/internal/config"
)

// isolate points the user config dir at an empty temp dir and runs the test
// from another one so that no stray inbound.yaml is picked up.
func isolate(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("HOME", home)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadConfigDefaults(t *testing.T) {
	isolate(t)

	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), nil)
	if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
		t.Fatalf("expected ConfigFileNotFoundError, got %T %v", err, err)
	}
	if got.Database.Type != "sqlite" || got.Server.Workers != 4 || got.Fetch.Timeout != 10*time.Second {
		t.Fatalf("defaults not applied: %+v", got)
	}
	if got.Debug.SampleSink != "db" || got.Language != "en" {
		t.Fatalf("defaults not applied: %+v", got)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoadConfigFileEnvAndFlags(t *testing.T) {
	isolate(t)
	file := filepath.Join(t.TempDir(), "custom.yaml")
	doc := "database:\n  type: postgres\n  dsn: postgresql://user@/db\nserver:\n  workers: 9\nlanguage: de\n"
	if err := os.WriteFile(file, []byte(doc), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	t.Setenv("INBOUND_FETCH_MAX_PER_DELIVERY", "3")

	cmd := &cobra.Command{}
	cmd.Flags().String("log_level", "info", "")
	if err := cmd.Flags().Set("log_level", "debug"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	got, err := cfg.LoadConfig[cfg.Config](cmd, cfg.Defaults(), &file)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.Database.Type != "postgres" || got.Server.Workers != 9 || got.Language != "de" {
		t.Fatalf("file values not applied: %+v", got)
	}
	if got.Fetch.MaxPerDelivery != 3 {
		t.Fatalf("env override not applied: %d", got.Fetch.MaxPerDelivery)
	}
	if got.LogLevel != "debug" {
		t.Fatalf("flag override not applied: %q", got.LogLevel)
	}
}

func TestWriteConfigFile(t *testing.T) {
	isolate(t)

	c, _ := cfg.LoadConfig[cfg.Config](nil, cfg.Defaults(), nil)
	path, err := cfg.WriteConfigFile(&c, false)
	if err != nil {
		t.Fatalf("WriteConfigFile: %v", err)
	}
	if filepath.Base(path) != "inbound.yaml" || filepath.Base(filepath.Dir(path)) != "inbound" {
		t.Fatalf("unexpected path %s", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("config written with mode %v", info.Mode().Perm())
	}

	again, err := cfg.LoadConfig[cfg.Config](nil, cfg.Defaults(), &path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Database.Dsn != c.Database.Dsn || again.Server.Listen != c.Server.Listen {
		t.Fatalf("round trip lost values: %+v", again)
	}
}

func TestValidate(t *testing.T) {
	isolate(t)
	base, _ := cfg.LoadConfig[cfg.Config](nil, cfg.Defaults(), nil)

	tests := []struct {
		name   string
		mutate func(*cfg.Config)
	}{
		{"database type", func(c *cfg.Config) { c.Database.Type = "oracle" }},
		{"empty dsn", func(c *cfg.Config) { c.Database.Dsn = "" }},
		{"sample sink", func(c *cfg.Config) { c.Debug.SampleSink = "s3" }},
		{"file sink without dir", func(c *cfg.Config) { c.Debug.SampleSink = "file"; c.Debug.SampleDir = "" }},
		{"no workers", func(c *cfg.Config) { c.Server.Workers = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
