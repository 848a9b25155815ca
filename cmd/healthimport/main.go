// healthimport imports Apple Health exports into a local SQLite store
// and answers range and aggregate queries over the imported records.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/healthmon/importer/internal/config"
	"github.com/healthmon/importer/internal/database"
	"github.com/healthmon/importer/internal/logger"
)

var (
	flagConfig  string
	flagDB      string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "healthimport",
	Short: "Import and query Apple Health export data",
	Long: `healthimport converts Apple Health XML exports into a local SQLite
store with duplicate suppression, and answers date-range and aggregate
queries over the imported records.

The XML import path is additive and idempotent: re-importing the same
export never creates duplicate rows. The CSV migration path is
destructive and replaces the store wholesale; see "healthimport
migrate-csv --help".`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "path to the SQLite store (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(migrateCSVCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(runsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration from the config file
// and command-line overrides.
func loadConfig() config.Config {
	cfg := config.Default()
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if flagDB != "" {
		cfg.Database.Path = flagDB
	}
	if flagVerbose {
		cfg.Logging.Level = "debug"
	}
	return cfg
}

func newLogger(cfg config.Config) *zap.Logger {
	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return log
}

func openDB(cfg config.Config) *bun.DB {
	db, err := database.NewDB(cfg.Database.Path, cfg.Database.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open store %s: %v\n", cfg.Database.Path, err)
		os.Exit(1)
	}
	return db
}
