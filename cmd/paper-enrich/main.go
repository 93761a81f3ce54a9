// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-enrich CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-enrich/internal/logging"
	"github.com/pdiddy/paper-enrich/internal/s2"
	"github.com/pdiddy/paper-enrich/internal/secrets"
	"github.com/pdiddy/paper-enrich/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets secrets.Keys

// rootCmd is the base command for the paper-enrich CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-enrich",
	Short: "Enrich arXiv paper tables with Semantic Scholar metadata",
	Long: `paper-enrich looks up arXiv identifiers against the Semantic Scholar
batch endpoint and joins the returned metadata (url, year, citation count,
TLDR) onto the input table.

The enrich subcommand writes the results table, the narrow projection
consumed by the citation graph builder, and the list of unresolved
identifiers. The store subcommand loads the results into SQLite.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		logging.Setup(logging.Config{Level: cfg.Level, Pretty: cfg.Pretty})

		s, err := secrets.Load(secrets.DefaultDir)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			log.Debug().Strs("keys", s.Names()).Msg("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paper-enrich.yaml or ~/.config/paper-enrich/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("log-pretty", false, "human-readable log output")
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_pretty", rootCmd.PersistentFlags().Lookup("log-pretty"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-enrich")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-enrich"))
		}
	}

	viper.SetEnvPrefix("PAPER_ENRICH")
	viper.AutomaticEnv()
	setDefaults(viper.GetViper(), types.DefaultEnrichConfig())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every configuration key so that environment
// variables resolve through AutomaticEnv.
func setDefaults(v *viper.Viper, d types.EnrichConfig) {
	defaults := map[string]any{
		"timeout":                d.Timeout,
		"user_agent":             d.UserAgent,
		"base_url":               d.BaseURL,
		"api_key":                d.APIKey,
		"fields":                 d.Fields,
		"source_tag":             d.SourceTag,
		"chunk_size":             d.ChunkSize,
		"max_attempts":           d.MaxAttempts,
		"retry_delay":            d.RetryDelay,
		"chunk_delay":            d.ChunkDelay,
		"input_path":             d.InputPath,
		"new_input_path":         d.NewInputPath,
		"results_path":           d.ResultsPath,
		"projection_path":        d.ProjectionPath,
		"failures_path":          d.FailuresPath,
		"report_path":            d.ReportPath,
		"metrics_path":           d.MetricsPath,
		"dedupe_failures":        d.DedupeFailures,
		"db_path":                d.DBPath,
		"log_level":              d.Level,
		"log_pretty":             d.Pretty,
		"abort_on_chunk_failure": d.AbortOnChunkFailure,
		"incremental":            d.Incremental,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// loadConfig decodes the merged flag, env, file, and default settings.
func loadConfig(v *viper.Viper) (types.EnrichConfig, error) {
	cfg := types.DefaultEnrichConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	if cfg.ChunkSize <= 0 || cfg.ChunkSize > s2.MaxBatchSize {
		return cfg, fmt.Errorf("chunk_size must be between 1 and %d, got %d", s2.MaxBatchSize, cfg.ChunkSize)
	}
	if cfg.MaxAttempts <= 0 {
		return cfg, fmt.Errorf("max_attempts must be positive, got %d", cfg.MaxAttempts)
	}
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
