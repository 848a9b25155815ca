package models

import (
	"fmt"
	"strings"
)

// ValidationResult is the transient outcome of pre-flight validation.
// It is never persisted; callers inspect IsValid to decide whether to
// proceed with an import.
type ValidationResult struct {
	IsValid          bool
	Errors           []string
	Warnings         []string
	RecordCount      int
	ValidatedRecords int
}

// AddError records a validation failure and marks the result invalid.
func (vr *ValidationResult) AddError(format string, args ...any) {
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
	vr.IsValid = false
}

// AddWarning records a non-fatal observation.
func (vr *ValidationResult) AddWarning(format string, args ...any) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

const summaryErrorCap = 5

// Summary renders a human-readable report: counts, the first few
// errors, and actionable suggestions derived from the error text.
func (vr *ValidationResult) Summary() string {
	var b strings.Builder

	if vr.IsValid {
		fmt.Fprintf(&b, "Validation passed: %d records, %d sampled", vr.RecordCount, vr.ValidatedRecords)
	} else {
		fmt.Fprintf(&b, "Validation failed: %d error(s), %d warning(s) across %d records",
			len(vr.Errors), len(vr.Warnings), vr.RecordCount)
	}

	shown := vr.Errors
	if len(shown) > summaryErrorCap {
		shown = shown[:summaryErrorCap]
	}
	for _, e := range shown {
		fmt.Fprintf(&b, "\n  error: %s", e)
	}
	if extra := len(vr.Errors) - len(shown); extra > 0 {
		fmt.Fprintf(&b, "\n  ... and %d more error(s)", extra)
	}
	for _, w := range vr.Warnings {
		fmt.Fprintf(&b, "\n  warning: %s", w)
	}

	for _, s := range vr.suggestions() {
		fmt.Fprintf(&b, "\n  suggestion: %s", s)
	}

	return b.String()
}

func (vr *ValidationResult) suggestions() []string {
	var out []string
	seen := map[string]bool{}
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	for _, e := range vr.Errors {
		switch {
		case strings.Contains(e, "Invalid datetime format"):
			add("check that date attributes use ISO-8601 format, e.g. 2024-01-15 08:30:00 +0000")
		case strings.Contains(e, "no records found"):
			add("verify the file is a full Apple Health export, not a partial or filtered copy")
		case strings.Contains(e, "not well-formed") || strings.Contains(e, "XML syntax"):
			add("the export appears truncated or corrupted; re-export the data and retry")
		case strings.Contains(e, "out of range"):
			add("inspect the flagged values; the exporting device may report in unexpected units")
		}
	}
	return out
}
