package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/healthmon/importer/internal/models"
	"github.com/healthmon/importer/internal/repositories"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show import run history",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		log := newLogger(cfg)
		defer func() {
			_ = log.Sync()
		}()

		db := openDB(cfg)
		defer func() {
			_ = db.Close()
		}()

		store := repositories.NewStore(db, log)
		runs, err := store.RecentRuns(context.Background(), runsLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		for _, run := range runs {
			mark := green("✓")
			if run.Status == models.RunFailed {
				mark = red("✗")
			}
			fmt.Printf("%s %s  %-3s %-9s parsed=%d inserted=%d skipped=%d  %s\n",
				mark, run.StartedAt.Format(time.RFC3339), run.Format, run.Status,
				run.RecordsParsed, run.RecordsInserted, run.RecordsSkipped, run.SourceFile)
			if run.ErrorLog != nil {
				fmt.Printf("    %s\n", *run.ErrorLog)
			}
		}
		if len(runs) == 0 {
			fmt.Println("no import runs recorded")
		}
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to show")
}
