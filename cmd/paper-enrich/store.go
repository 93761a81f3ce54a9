// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-enrich/internal/store"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Load the enriched results table into SQLite",
	Long: `Store reads the results table written by enrich and inserts every row
into the paper_info table. Rows whose url is already stored are ignored,
so the command can be rerun after each incremental enrich.`,
	RunE: runStore,
}

var storeGetCmd = &cobra.Command{
	Use:   "get [arxiv-ids...]",
	Short: "Print stored papers by arXiv identifier",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStoreGet,
}

func init() {
	storeCmd.PersistentFlags().String("db", "", "SQLite database path")
	storeCmd.Flags().String("results", "", "results table to load (default: results_path)")
	viper.BindPFlag("db_path", storeCmd.PersistentFlags().Lookup("db"))

	storeCmd.AddCommand(storeGetCmd)
	rootCmd.AddCommand(storeCmd)
}

func runStore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	resultsPath := cfg.ResultsPath
	if override, _ := cmd.Flags().GetString("results"); override != "" {
		resultsPath = override
	}

	db, err := store.Open(cfg.StoreConfig)
	if err != nil {
		return err
	}
	defer db.Close()

	sum, err := db.LoadFile(cmd.Context(), resultsPath)
	if err != nil {
		return err
	}
	total, err := db.Count(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Inserted %d, ignored %d, skipped %d; %d papers in %s\n",
		sum.Inserted, sum.Ignored, sum.Skipped, total, cfg.DBPath)
	return nil
}

func runStoreGet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	db, err := store.Open(cfg.StoreConfig)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, id := range args {
		p, err := db.Get(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%s\t%s\t%d\t%d\t%s\n", p.ArxivID, p.SemanticID, p.Year, p.CitationCount, p.Title)
	}
	return nil
}
