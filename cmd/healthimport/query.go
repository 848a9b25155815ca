package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/healthmon/importer/internal/models"
	"github.com/healthmon/importer/internal/repositories"
)

var (
	queryStart string
	queryEnd   string
	queryType  string
	queryLimit int
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "List records in a date range",
	Long: `List imported records whose start date falls in [--start, --end),
optionally filtered by metric type.

Example:
  healthimport query --start 2024-01-01 --end 2024-02-01 --type StepCount`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		log := newLogger(cfg)
		defer func() {
			_ = log.Sync()
		}()

		start, err := models.ParseExportTime(queryStart)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: --start: %v\n", err)
			os.Exit(1)
		}
		end, err := models.ParseExportTime(queryEnd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: --end: %v\n", err)
			os.Exit(1)
		}

		db := openDB(cfg)
		defer func() {
			_ = db.Close()
		}()

		store := repositories.NewStore(db, log)
		records, err := store.RecordsInRange(context.Background(), start, end, queryType)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if queryLimit > 0 && len(records) > queryLimit {
			records = records[:queryLimit]
		}

		for _, r := range records {
			fmt.Printf("%s  %-28s %10.2f %-10s %s\n",
				r.StartDate.Format(time.RFC3339), r.Type, r.Value, r.Unit, r.SourceName)
		}
		fmt.Printf("%d record(s)\n", len(records))
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryStart, "start", "", "range start (ISO-8601, inclusive)")
	queryCmd.Flags().StringVar(&queryEnd, "end", "", "range end (ISO-8601, exclusive)")
	queryCmd.Flags().StringVar(&queryType, "type", "", "metric type filter, e.g. StepCount")
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0, "maximum records to print")
	_ = queryCmd.MarkFlagRequired("start")
	_ = queryCmd.MarkFlagRequired("end")
}
