// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/toeirei/inbound/buildvars"
	"github.com/toeirei/inbound/internal/config"
	"github.com/toeirei/inbound/internal/db"
	"github.com/toeirei/inbound/internal/i18n"
	"github.com/toeirei/inbound/internal/logging"
)

var (
	cfgFile   string
	debugFlag bool
	appConfig config.Config
)

// Execute runs the CLI entrypoint.
func Execute() error {
	return NewRootCmd().Execute()
}

// setup resolves the configuration and applies language and log level.
func setup(cmd *cobra.Command) error {
	path, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}
	appConfig, err = config.LoadConfig[config.Config](cmd, config.Defaults(), path)
	if err != nil && !errors.As(err, &viper.ConfigFileNotFoundError{}) {
		return fmt.Errorf("error loading config: %w", err)
	}
	i18n.Init(appConfig.Language)

	level := appConfig.LogLevel
	if debugFlag {
		level = "debug"
		db.SetDebug(true)
	}
	if err := logging.SetLevel(level); err != nil {
		return err
	}
	if err := appConfig.Validate(); err != nil {
		return errors.New(i18n.T("config.error_invalid", err))
	}
	return nil
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	if !cmd.Flags().Changed("config") || cfgFile == "" {
		return nil, nil
	}
	if _, err := os.Stat(cfgFile); err != nil {
		return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
	}
	path := cfgFile
	return &path, nil
}

// openStore opens the configured database.
func openStore() (*db.Store, error) {
	store, err := db.NewStoreFromDSN(appConfig.Database.Type, appConfig.Database.Dsn)
	if err != nil {
		return nil, errors.New(i18n.T("config.error_init_db", err))
	}
	return store, nil
}

// NewRootCmd builds a fresh command tree. Tests call it once per invocation.
func NewRootCmd() *cobra.Command {
	cfgFile = ""
	debugFlag = false
	appConfig = config.Config{}

	cmd := &cobra.Command{
		Use:           "inbound",
		Short:         i18n.T("cli.root_short"),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup(cmd)
		},
	}
	cmd.Version = compositeVersion()

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	cmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging (including DB logs)")
	cmd.PersistentFlags().String("database.type", "sqlite", "Database type (sqlite, postgres, mysql)")
	cmd.PersistentFlags().String("database.dsn", "./inbound.db", "Database connection string (DSN)")
	cmd.PersistentFlags().String("log_level", "info", "Log level (debug, info, notice, warn, error)")
	cmd.PersistentFlags().String("language", "en", `CLI language ("en", "de")`)

	cmd.AddCommand(
		newServeCmd(),
		newProcessCmd(),
		newSamplesCmd(),
		newAccountsCmd(),
		newContactsCmd(),
		newDBCmd(),
		newConfigCmd(),
		newLanguagesCmd(),
		newVersionCmd(),
	)
	return cmd
}

func compositeVersion() string {
	v, c, d := resolveBuildVersion(nil)
	out := v
	if c != "" && c != "dev" {
		out += " (" + c + ")"
	}
	if d != "" {
		out += " built: " + d
	}
	return out
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "version",
		Short:             i18n.T("cli.version_short"),
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			v, c, d := resolveBuildVersion(nil)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version: %s\n", v)
			fmt.Fprintf(out, "commit: %s\n", c)
			if d != "" {
				fmt.Fprintf(out, "built: %s\n", d)
			}
		},
	}
}

// resolveBuildVersion computes the best-available version, commit and build
// date. If info is nil, the runtime build info is read.
func resolveBuildVersion(info *debug.BuildInfo) (versionOut, commitOut, dateOut string) {
	resolvedVersion := buildvars.VersionOrDefault("dev")
	resolvedCommit := buildvars.CommitOrDefault("dev")
	resolvedDate := buildvars.Date

	if info == nil {
		if local, ok := debug.ReadBuildInfo(); ok {
			info = local
		}
	}
	if info != nil {
		if resolvedVersion == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			resolvedVersion = info.Main.Version
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if resolvedCommit == "dev" && s.Value != "" {
					resolvedCommit = s.Value
				}
			case "vcs.time":
				if resolvedDate == "" {
					resolvedDate = s.Value
				}
			}
		}
	}
	if resolvedVersion == "dev" && resolvedCommit != "dev" {
		resolvedVersion = resolvedCommit
	}
	return resolvedVersion, resolvedCommit, resolvedDate
}
