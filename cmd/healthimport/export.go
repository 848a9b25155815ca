package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/healthmon/importer/internal/models"
	"github.com/healthmon/importer/internal/report"
	"github.com/healthmon/importer/internal/repositories"
)

var (
	exportPeriod string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export <type>",
	Short: "Write an aggregate report to an Excel workbook",
	Long: `Aggregate a metric per period and write the result to an xlsx file.

Example:
  healthimport export StepCount --period weekly --out steps.xlsx`,
	Args: cobra.ExactArgs(1),
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
		period := models.Period(exportPeriod)

		rows, err := store.Aggregate(context.Background(), args[0], period)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(rows) == 0 {
			fmt.Fprintf(os.Stderr, "Error: no records for type %q\n", args[0])
			os.Exit(1)
		}

		if err := report.WriteAggregateReport(exportOut, args[0], period, rows); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s wrote %d row(s) to %s\n", green("✓"), len(rows), exportOut)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportPeriod, "period", string(models.PeriodDaily), "aggregation period: daily, weekly, or monthly")
	exportCmd.Flags().StringVar(&exportOut, "out", "report.xlsx", "output xlsx path")
}
