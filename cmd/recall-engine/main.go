// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the recall-engine CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/recall-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// logger is configured in PersistentPreRunE from --verbose.
var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// rootCmd is the base command for the recall-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "recall-engine",
	Short: "Diverse multi-query recall over a personal memory corpus",
	Long: `recall-engine retrieves stored conversations and documents relevant to a
prompt. The prompt is decomposed into facet-specific sub-queries, each
sub-query is searched concurrently, the candidates are merged, and a
diverse top-k is chosen with Maximal Marginal Relevance.

Use ingest to load a corpus, recall to query it, and serve to expose the
engine over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir, logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			logger.Debug("loaded secrets", "names", s.Names())
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./recall-engine.yaml or ~/.config/recall-engine/recall-engine.yaml)")
	pf.String("secrets-dir", ".secrets/", "directory of secret files")
	pf.BoolP("verbose", "v", false, "debug logging")
	pf.String("store", "", "vector store backend: sqlite or pgvector")
	pf.String("db", "", "SQLite database path")
	pf.String("decomposer", "", "query decomposer: claude, openai, static, or none")

	viper.BindPFlag("store.backend", pf.Lookup("store"))
	viper.BindPFlag("store.path", pf.Lookup("db"))
	viper.BindPFlag("decomposer.provider", pf.Lookup("decomposer"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("recall-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "recall-engine"))
		}
	}

	setDefaults(viper.GetViper())

	viper.SetEnvPrefix("RECALL_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
