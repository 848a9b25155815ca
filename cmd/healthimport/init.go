package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/healthmon/importer/internal/migrations"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the store schema and query indexes",
	Long: `Initialize the SQLite store: create the records, metadata, and run
tables plus the supporting query indexes. Imports create missing tables
on the fly, so init is optional, but running it up front gives a store
that is immediately queryable.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		db := openDB(cfg)
		defer func() {
			_ = db.Close()
		}()

		if err := migrations.RunMigrations(context.Background(), db); err != nil {
			fmt.Fprintf(os.Stderr, "Error: migration failed: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s store ready at %s\n", green("✓"), cfg.Database.Path)
	},
}
