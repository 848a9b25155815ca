package models

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// DefaultValue is assigned when a record carries a categorical or
// otherwise non-numeric value attribute.
const DefaultValue = 1.0

// HealthRecord is one imported health observation. The tuple
// (type, source_name, start_date, end_date, value) identifies a record:
// re-importing the same export must not create duplicate rows, so the
// store enforces a composite uniqueness constraint over it.
type HealthRecord struct {
	bun.BaseModel `bun:"table:health_records,alias:hr"`

	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	Type          string    `bun:"type,notnull,unique:record_identity" json:"type"`
	SourceName    string    `bun:"source_name,notnull,unique:record_identity" json:"source_name"`
	SourceVersion string    `bun:"source_version" json:"source_version,omitempty"`
	Device        string    `bun:"device" json:"device,omitempty"`
	Unit          string    `bun:"unit" json:"unit,omitempty"`
	CreationDate  time.Time `bun:"creation_date,nullzero" json:"creation_date,omitempty"`
	StartDate     time.Time `bun:"start_date,notnull,unique:record_identity" json:"start_date"`
	EndDate       time.Time `bun:"end_date,notnull,unique:record_identity" json:"end_date"`
	Value         float64   `bun:"value,notnull,unique:record_identity" json:"value"`
}

// Validate checks that required record fields are present.
func (r *HealthRecord) Validate() error {
	if r.Type == "" {
		return errors.New("type is required")
	}
	if r.SourceName == "" {
		return errors.New("source name is required")
	}
	if r.StartDate.IsZero() {
		return errors.New("start date is required")
	}
	if r.EndDate.IsZero() {
		return errors.New("end date is required")
	}
	if r.EndDate.Before(r.StartDate) {
		return errors.New("end date precedes start date")
	}
	return nil
}

// Duration returns the span covered by the observation.
func (r *HealthRecord) Duration() time.Duration {
	return r.EndDate.Sub(r.StartDate)
}

// IsInstantaneous reports whether start and end coincide, as with spot
// measurements like a single heart rate reading.
func (r *HealthRecord) IsInstantaneous() bool {
	return r.StartDate.Equal(r.EndDate)
}

// CoerceValue converts a value attribute to a float, defaulting
// categorical inputs (e.g. "HKCategoryValueSleepAnalysisAsleep") to
// DefaultValue instead of failing the record.
func CoerceValue(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return DefaultValue
	}
	return v
}
