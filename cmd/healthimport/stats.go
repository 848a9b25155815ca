package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/healthmon/importer/internal/models"
	"github.com/healthmon/importer/internal/repositories"
)

var statsPeriod string

var statsCmd = &cobra.Command{
	Use:   "stats [type]",
	Short: "Show aggregate statistics per period",
	Long: `Aggregate a metric's values into daily, weekly, or monthly buckets
(count, average, min, max, sum). Without a type argument, the available
metric types and the latest import metadata are listed instead.

Example:
  healthimport stats
  healthimport stats StepCount --period monthly`,
	Args: cobra.MaximumNArgs(1),
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
		ctx := context.Background()

		if len(args) == 0 {
			showOverview(ctx, store)
			return
		}

		rows, err := store.Aggregate(ctx, args[0], models.Period(statsPeriod))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%-12s %8s %12s %10s %10s %12s\n", "period", "count", "avg", "min", "max", "sum")
		for _, r := range rows {
			fmt.Printf("%-12s %8d %12.2f %10.2f %10.2f %12.2f\n",
				r.Bucket, r.Count, r.Avg, r.Min, r.Max, r.Sum)
		}
	},
}

func showOverview(ctx context.Context, store *repositories.Store) {
	meta, err := store.LatestMetadata(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(meta) > 0 {
		fmt.Printf("last import: %s (%s records from %s)\n",
			meta[models.MetaImportDate], meta[models.MetaRecordCount], meta[models.MetaSourceFile])
	} else {
		fmt.Println("no imports recorded")
	}

	types, err := store.AvailableTypes(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	for _, t := range types {
		fmt.Printf("  %s\n", t)
	}
}

func init() {
	statsCmd.Flags().StringVar(&statsPeriod, "period", string(models.PeriodDaily), "aggregation period: daily, weekly, or monthly")
}
