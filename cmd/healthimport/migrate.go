package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/healthmon/importer/internal/importer"
	"github.com/healthmon/importer/internal/validator"
)

var migrateForce bool

var migrateCSVCmd = &cobra.Command{
	Use:   "migrate-csv <legacy.csv>",
	Short: "Replace the store with records from a legacy CSV export",
	Long: `Migrate a legacy CSV export into the store.

WARNING: unlike "import", this path is destructive. The records table
is dropped and rebuilt from the CSV contents, discarding everything
previously imported from XML. The two ingestion paths are not
interchangeable; --force is required to proceed.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if !migrateForce {
			fmt.Fprintln(os.Stderr, "Error: migrate-csv replaces all existing records; re-run with --force to confirm")
			os.Exit(1)
		}

		cfg := loadConfig()
		log := newLogger(cfg)
		defer func() {
			_ = log.Sync()
		}()

		db := openDB(cfg)
		defer func() {
			_ = db.Close()
		}()

		imp := importer.New(db, validator.New(cfg.Validator, log), log)
		migrated, err := imp.ImportCSV(context.Background(), args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Printf("%s store replaced with %d record(s) from %s\n", yellow("!"), migrated, args[0])
	},
}

func init() {
	migrateCSVCmd.Flags().BoolVar(&migrateForce, "force", false, "confirm the destructive replace")
}
