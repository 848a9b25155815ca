package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/healthmon/importer/internal/errs"
	"github.com/healthmon/importer/internal/importer"
	"github.com/healthmon/importer/internal/models"
	"github.com/healthmon/importer/internal/queue"
	"github.com/healthmon/importer/internal/validator"
)

var (
	importSkipValidation bool
	importShowProgress   bool
	importPriority       int
)

var importCmd = &cobra.Command{
	Use:   "import <export.xml> [more.xml...]",
	Short: "Import Apple Health XML exports into the store",
	Long: `Import one or more Apple Health XML exports. Each file is validated,
parsed, and inserted in a single transaction with duplicate suppression:
records already present in the store are skipped, so importing the same
export twice is safe.

Multiple files are processed through the import queue one at a time;
--priority lets an urgent file jump ahead of the rest.

Example:
  healthimport import export.xml
  healthimport import --skip-validation trusted-export.xml
  healthimport import --priority 5 latest.xml older-*.xml`,
	Args: cobra.MinimumNArgs(1),
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

		var opts []importer.Option
		if importShowProgress {
			opts = append(opts, importer.WithProgress(func(pct int, msg string) {
				fmt.Printf("  [%3d%%] %s\n", pct, msg)
			}))
		}

		v := validator.New(cfg.Validator, log)
		imp := importer.New(db, v, log, opts...)

		q := queue.New(imp, cfg.Queue, log)
		for i, path := range args {
			priority := 0
			if i == 0 {
				priority = importPriority
			}
			q.Enqueue(queue.Task{
				Path:           path,
				Format:         models.FormatXML,
				Priority:       priority,
				SkipValidation: importSkipValidation,
			})
		}

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		failed := 0
		for result := range q.Run(context.Background()) {
			if result.Err != nil {
				failed++
				var verr *errs.ValidationError
				if errors.As(result.Err, &verr) {
					fmt.Fprintf(os.Stderr, "%s %s\n%s\n", red("✗"), result.Task.Path, verr.Summary)
				} else {
					fmt.Fprintf(os.Stderr, "%s %s: %v\n", red("✗"), result.Task.Path, result.Err)
				}
				continue
			}
			fmt.Printf("%s %s: %d new record(s)\n", green("✓"), result.Task.Path, result.Inserted)
		}

		if failed > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	importCmd.Flags().BoolVar(&importSkipValidation, "skip-validation", false, "skip pre-flight validation (trusted input only)")
	importCmd.Flags().BoolVar(&importShowProgress, "progress", false, "print progress updates")
	importCmd.Flags().IntVar(&importPriority, "priority", 0, "queue priority for the first file")
}
