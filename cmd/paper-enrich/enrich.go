// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-enrich/internal/dataset"
	"github.com/pdiddy/paper-enrich/internal/enrich"
	"github.com/pdiddy/paper-enrich/internal/metrics"
	"github.com/pdiddy/paper-enrich/internal/s2"
	"github.com/pdiddy/paper-enrich/pkg/types"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Look up paper metadata and write the enriched tables",
	Long: `Enrich reads the identifier table, queries the Semantic Scholar batch
endpoint in chunks of up to 500 identifiers, and joins the results onto
the input rows.

A full run replaces the results, projection, and failure files. With
--new_data the run reads the incremental input table and appends to the
existing outputs instead.`,
	RunE: runEnrich,
}

func init() {
	enrichCmd.Flags().Bool("new_data", false, "incremental run: read the new-data table and append to existing outputs")
	enrichCmd.Flags().String("input", "", "override the input table (CSV or JSON)")
	enrichCmd.Flags().Int("chunk-size", 0, "identifiers per request (max 500)")
	enrichCmd.Flags().Bool("dedupe-failures", false, "drop repeated identifiers from the failure list")
	viper.BindPFlag("incremental", enrichCmd.Flags().Lookup("new_data"))
	viper.BindPFlag("chunk_size", enrichCmd.Flags().Lookup("chunk-size"))
	viper.BindPFlag("dedupe_failures", enrichCmd.Flags().Lookup("dedupe-failures"))

	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	cfg.APIKey = loadedSecrets.APIKey(cfg.APIKey)

	inputPath := selectInput(cmd, cfg)
	table, err := dataset.Load(inputPath)
	if err != nil {
		return err
	}

	rec := metrics.New()
	client := s2.NewClient(&http.Client{Timeout: cfg.Timeout}, cfg.LookupConfig, rec)
	runner := enrich.NewRunner(client, cfg, rec, os.Stdout)

	if _, err := runner.Run(cmd.Context(), table, inputPath); err != nil {
		return fmt.Errorf("enrich %s: %w", inputPath, err)
	}
	return nil
}

// selectInput returns the --input override, or the table for the run mode.
func selectInput(cmd *cobra.Command, cfg types.EnrichConfig) string {
	if override, _ := cmd.Flags().GetString("input"); override != "" {
		return override
	}
	return cfg.SelectedInput()
}
