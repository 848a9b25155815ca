package models

import (
	"fmt"
	"strings"
	"time"
)

// Vendor prefixes namespacing metric identifiers in Apple Health
// exports. Both are stripped on import so queries see bare type names.
const (
	PrefixQuantityType = "HKQuantityTypeIdentifier"
	PrefixCategoryType = "HKCategoryTypeIdentifier"
)

var typePrefixes = []string{PrefixQuantityType, PrefixCategoryType}

// StripTypePrefix removes the vendor namespace from a metric
// identifier. Identifiers without a known prefix pass through unchanged.
func StripTypePrefix(metricType string) string {
	for _, prefix := range typePrefixes {
		if strings.HasPrefix(metricType, prefix) {
			return metricType[len(prefix):]
		}
	}
	return metricType
}

// Common metric identifiers after prefix stripping.
const (
	MetricStepCount     = "StepCount"
	MetricHeartRate     = "HeartRate"
	MetricSleepAnalysis = "SleepAnalysis"
	MetricBodyMass      = "BodyMass"
	MetricActiveEnergy  = "ActiveEnergyBurned"
	MetricDistance      = "DistanceWalkingRunning"
)

// ImportFormat identifies the ingestion path that produced a run.
type ImportFormat string

const (
	FormatXML ImportFormat = "xml"
	FormatCSV ImportFormat = "csv"
)

// RunStatus tracks the lifecycle of an import run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Period selects the aggregation bucket for read-side queries.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// IsValid reports whether the period is one of the supported buckets.
func (p Period) IsValid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return true
	}
	return false
}

// Timestamp layouts accepted from export files. Apple's export writes
// "2006-01-02 15:04:05 -0700"; RFC 3339 and the bare layouts cover
// hand-edited and CSV inputs.
var exportTimeLayouts = []string{
	"2006-01-02 15:04:05 -0700",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseExportTime parses a timestamp attribute from an export file.
// Results are normalized to UTC so the dedup identity of a record does
// not depend on the exporting device's zone formatting.
func ParseExportTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range exportTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
