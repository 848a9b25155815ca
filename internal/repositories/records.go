// Package repositories holds the read-side accessors over the imported
// store. Queries are pure reads; consistency comes from the store's
// own guarantees.
package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/healthmon/importer/internal/errs"
	"github.com/healthmon/importer/internal/models"
)

// AggregateRow is one bucket of a daily/weekly/monthly aggregation.
type AggregateRow struct {
	Bucket string  `bun:"bucket"`
	Count  int     `bun:"count"`
	Avg    float64 `bun:"avg"`
	Min    float64 `bun:"min"`
	Max    float64 `bun:"max"`
	Sum    float64 `bun:"sum"`
}

// Store wraps the database handle with a logger for read queries.
type Store struct {
	db  *bun.DB
	log *zap.Logger
}

// NewStore creates a read-side store.
func NewStore(db *bun.DB, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, log: log}
}

// RecordsInRange returns records whose start date falls in
// [start, end), newest first, optionally filtered by metric type.
func (s *Store) RecordsInRange(ctx context.Context, start, end time.Time, metricType string) ([]*models.HealthRecord, error) {
	var records []*models.HealthRecord
	q := s.db.NewSelect().
		Model(&records).
		Where("start_date >= ?", start).
		Where("start_date < ?", end).
		OrderExpr("start_date DESC")
	if metricType != "" {
		q = q.Where("type = ?", metricType)
	}

	if err := q.Scan(ctx); err != nil {
		s.log.Error("range query failed", zap.Error(err))
		return nil, &errs.DatabaseError{Op: "query records", Err: err}
	}
	return records, nil
}

// Bucket expressions per period, applied to the stored start date.
// SQLite's own date truncation does the grouping.
var bucketExprs = map[models.Period]string{
	models.PeriodDaily:   "date(start_date)",
	models.PeriodWeekly:  "strftime('%Y-%W', start_date)",
	models.PeriodMonthly: "strftime('%Y-%m', start_date)",
}

// Aggregate computes count, average, min, max, and sum of a metric's
// values per period bucket. The metric type must be non-empty.
func (s *Store) Aggregate(ctx context.Context, metricType string, period models.Period) ([]AggregateRow, error) {
	if metricType == "" {
		return nil, fmt.Errorf("metric type must not be empty")
	}
	if !period.IsValid() {
		return nil, fmt.Errorf("unsupported period %q", period)
	}

	expr := bucketExprs[period]
	var rows []AggregateRow
	err := s.db.NewSelect().
		Model((*models.HealthRecord)(nil)).
		ColumnExpr("? AS bucket", bun.Safe(expr)).
		ColumnExpr("COUNT(*) AS count").
		ColumnExpr("AVG(value) AS avg").
		ColumnExpr("MIN(value) AS min").
		ColumnExpr("MAX(value) AS max").
		ColumnExpr("SUM(value) AS sum").
		Where("type = ?", metricType).
		GroupExpr("?", bun.Safe(expr)).
		OrderExpr("bucket ASC").
		Scan(ctx, &rows)
	if err != nil {
		s.log.Error("aggregate query failed",
			zap.String("type", metricType),
			zap.String("period", string(period)),
			zap.Error(err))
		return nil, &errs.DatabaseError{Op: "aggregate records", Err: err}
	}
	return rows, nil
}

// AvailableTypes lists the distinct metric types in the store.
func (s *Store) AvailableTypes(ctx context.Context) ([]string, error) {
	var types []string
	err := s.db.NewSelect().
		Model((*models.HealthRecord)(nil)).
		ColumnExpr("DISTINCT type").
		OrderExpr("type ASC").
		Scan(ctx, &types)
	if err != nil {
		s.log.Error("type listing failed", zap.Error(err))
		return nil, &errs.DatabaseError{Op: "list types", Err: err}
	}
	return types, nil
}

// LatestMetadata returns the metadata describing the most recent
// import as a key-value map.
func (s *Store) LatestMetadata(ctx context.Context) (map[string]string, error) {
	var entries []models.MetadataEntry
	if err := s.db.NewSelect().Model(&entries).Scan(ctx); err != nil {
		s.log.Error("metadata query failed", zap.Error(err))
		return nil, &errs.DatabaseError{Op: "query metadata", Err: err}
	}

	meta := make(map[string]string, len(entries))
	for _, e := range entries {
		meta[e.Key] = e.Value
	}
	return meta, nil
}

// RecentRuns returns import runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*models.ImportRun, error) {
	var runs []*models.ImportRun
	q := s.db.NewSelect().
		Model(&runs).
		OrderExpr("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		s.log.Error("run history query failed", zap.Error(err))
		return nil, &errs.DatabaseError{Op: "query runs", Err: err}
	}
	return runs, nil
}
