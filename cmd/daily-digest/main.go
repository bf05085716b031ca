// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the daily-digest CLI: one-shot and
// scheduled article publication, the weekly report, and journal queries.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/daily-digest/internal/config"
	"github.com/pdiddy/daily-digest/internal/logging"
	"github.com/pdiddy/daily-digest/internal/secrets"
	"github.com/pdiddy/daily-digest/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is the validated configuration, loaded once before any subcommand.
	cfg types.Config

	// logger is the root logger built from cfg.LogLevel.
	logger *log.Logger
)

// rootCmd is the base command for the daily-digest CLI.
var rootCmd = &cobra.Command{
	Use:   "daily-digest",
	Short: "Automated daily publication of technical articles",
	Long: `daily-digest picks a fresh trending topic, drafts a Russian-language
article with a language model, verifies its code and subject, and publishes it
to a Ghost blog with a cover image and promotional blocks.

Use "run-once" for one publication, "daemon" to publish on a schedule, and
"weekly" to mail the weekly report.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: daily-digest.yaml in . or ~/.config/daily-digest)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before configuration")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets", "directory of credential files")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
}

func loadConfig(cmd *cobra.Command) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		// Existing variables win over the file.
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	v := viper.GetViper()
	config.Prepare(v)

	cfgFile, _ := cmd.Flags().GetString("config")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("daily-digest")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "daily-digest"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	dir, _ := cmd.Flags().GetString("secrets-dir")
	s, err := secrets.Load(dir, func(name string, err error) {
		fmt.Fprintf(os.Stderr, "Skipping secret %s: %v\n", name, err)
	})
	if err != nil {
		return err
	}
	applied := secrets.Apply(s, v.SetDefault)

	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		v.Set("log_level", lvl)
	}

	loaded, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg = loaded
	logger = logging.New(os.Stderr, cfg.LogLevel)
	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug("using config file", "path", used)
	}
	if len(applied) > 0 {
		logger.Debug("loaded secrets", "keys", applied)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
