package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/healthmon/importer/internal/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate <export.xml>",
	Short: "Run pre-flight validation without importing",
	Long: `Check an export file against the field rule table: file readability,
document structure, record count, and a sample of records. Nothing is
written to the store.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		log := newLogger(cfg)
		defer func() {
			_ = log.Sync()
		}()

		v := validator.New(cfg.Validator, log)
		result := v.ValidateFile(args[0])

		fmt.Println(result.Summary())

		if !result.IsValid {
			red := color.New(color.FgRed).SprintFunc()
			fmt.Fprintf(os.Stderr, "%s %s failed validation\n", red("✗"), args[0])
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s %s is importable\n", green("✓"), args[0])
	},
}
