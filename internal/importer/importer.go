// Package importer converts validated export files into the queryable
// relational store. The XML path is additive and duplicate-safe; the
// CSV migration path replaces the records table wholesale. The two
// paths are not interchangeable.
package importer

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/healthmon/importer/internal/errs"
	"github.com/healthmon/importer/internal/migrations"
	"github.com/healthmon/importer/internal/models"
	"github.com/healthmon/importer/internal/sources/applehealth"
	"github.com/healthmon/importer/internal/sources/csvfile"
	"github.com/healthmon/importer/internal/validator"
)

// ProgressFunc receives coarse progress updates during an import.
type ProgressFunc func(pct int, msg string)

// Importer owns the write side of the store. Imports are serialized:
// the internal mutex covers in-process callers, and BEGIN IMMEDIATE
// covers writers in other processes.
type Importer struct {
	db        *bun.DB
	validator *validator.Validator
	log       *zap.Logger
	progress  ProgressFunc

	mu        sync.Mutex
	rollbacks atomic.Int64

	// countRows runs the post-insert row count inside the transaction.
	// Replaceable in tests to force a mid-transaction failure.
	countRows func(ctx context.Context, conn bun.Conn) (int, error)
}

// Option configures an Importer.
type Option func(*Importer)

// WithProgress installs a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(i *Importer) { i.progress = fn }
}

// New creates an Importer.
func New(db *bun.DB, v *validator.Validator, log *zap.Logger, opts ...Option) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	imp := &Importer{
		db:        db,
		validator: v,
		log:       log,
	}
	imp.countRows = func(ctx context.Context, conn bun.Conn) (int, error) {
		return conn.NewSelect().Model((*models.HealthRecord)(nil)).Count(ctx)
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// ImportXML runs the validated import path: pre-flight validation
// followed by the additive transactional insert. On rule violations it
// returns a ValidationError carrying the formatted summary; the store
// is never touched.
func (i *Importer) ImportXML(ctx context.Context, path string) (int, error) {
	i.report(0, "validating export")

	result := i.validator.ValidateFile(path)
	if !result.IsValid {
		i.log.Warn("validation rejected export",
			zap.String("file", path),
			zap.Int("errors", len(result.Errors)))
		return 0, &errs.ValidationError{
			Path:    path,
			Summary: result.Summary(),
			Errors:  result.Errors,
		}
	}

	return i.ImportXMLBasic(ctx, path)
}

// ImportXMLBasic imports without pre-flight validation, for trusted
// input. Records with unparsable dates are skipped and counted rather
// than failing the import. Returns the number of newly inserted
// (non-duplicate) records.
func (i *Importer) ImportXMLBasic(ctx context.Context, path string) (int, error) {
	if _, err := os.Stat(path); err != nil {
		i.log.Error("import failed", zap.String("file", path), zap.Error(err))
		return 0, &errs.ImportError{Op: "import", Path: path, Err: err}
	}

	i.report(10, "parsing export")
	parsed, err := applehealth.ParseFile(path)
	if err != nil {
		i.log.Error("parse failed", zap.String("file", path), zap.Error(err))
		return 0, &errs.ImportError{Op: "parse", Path: path, Err: err}
	}
	if parsed.Skipped > 0 {
		i.log.Warn("skipped records with unparsable dates",
			zap.String("file", path), zap.Int("skipped", parsed.Skipped))
	}

	run := newRun(path, models.FormatXML)
	run.RecordsParsed = len(parsed.Records)

	inserted, err := i.insertAdditive(ctx, parsed.Records)
	if err != nil {
		i.finishRun(run, 0, 0, err)
		return 0, err
	}

	if err := i.finalize(ctx, path, run, inserted, len(parsed.Records)-inserted); err != nil {
		return inserted, err
	}

	i.report(100, fmt.Sprintf("imported %d new records", inserted))
	i.log.Info("import complete",
		zap.String("file", path),
		zap.Int("parsed", len(parsed.Records)),
		zap.Int("inserted", inserted),
		zap.Int("duplicates", len(parsed.Records)-inserted))
	return inserted, nil
}

// ImportCSV is the legacy migration path. It is destructive: the
// records table is dropped and rebuilt from the CSV contents, so any
// previously imported XML data is lost. Callers must opt in explicitly.
func (i *Importer) ImportCSV(ctx context.Context, path string) (int, error) {
	if _, err := os.Stat(path); err != nil {
		i.log.Error("csv import failed", zap.String("file", path), zap.Error(err))
		return 0, &errs.ImportError{Op: "import", Path: path, Err: err}
	}

	i.report(10, "reading CSV")
	records, err := csvfile.ReadFile(path)
	if err != nil {
		i.log.Error("csv read failed", zap.String("file", path), zap.Error(err))
		return 0, &errs.ImportError{Op: "parse", Path: path, Err: err}
	}

	run := newRun(path, models.FormatCSV)
	run.RecordsParsed = len(records)

	inserted, err := i.insertReplacing(ctx, records)
	if err != nil {
		i.finishRun(run, 0, 0, err)
		return 0, err
	}

	if err := i.finalize(ctx, path, run, inserted, 0); err != nil {
		return inserted, err
	}

	i.report(100, fmt.Sprintf("migrated %d records", inserted))
	i.log.Info("csv migration complete",
		zap.String("file", path), zap.Int("records", inserted))
	return inserted, nil
}

// insertAdditive runs the duplicate-safe transactional insert. Rows
// violating the identity constraint are silently skipped, which makes
// re-importing the same export idempotent.
func (i *Importer) insertAdditive(ctx context.Context, records []*models.HealthRecord) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	conn, err := i.db.Conn(ctx)
	if err != nil {
		return 0, &errs.DatabaseError{Op: "acquire connection", Err: err}
	}
	defer func() {
		_ = conn.Close()
	}()

	// BEGIN IMMEDIATE takes the write lock up front. database/sql
	// cannot select a transaction mode, so the statements run raw on a
	// dedicated connection.
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return 0, &errs.DatabaseError{Op: "begin transaction", Err: err}
	}

	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
			i.rollbacks.Add(1)
			i.log.Warn("import transaction rolled back")
		}
	}()

	if err := createTables(ctx, conn); err != nil {
		return 0, &errs.DatabaseError{Op: "create tables", Err: err}
	}

	i.report(20, "inserting records")
	inserted := 0
	for n, record := range records {
		res, err := conn.NewInsert().
			Model(record).
			On("CONFLICT DO NOTHING").
			Exec(ctx)
		if err != nil {
			return 0, &errs.DatabaseError{Op: "insert record", Err: err}
		}
		if affected, err := res.RowsAffected(); err == nil && affected > 0 {
			inserted++
		}
		if n%5000 == 4999 {
			i.report(20+70*n/len(records), fmt.Sprintf("inserted %d/%d", n+1, len(records)))
			if err := ctx.Err(); err != nil {
				return 0, &errs.DatabaseError{Op: "insert record", Err: err}
			}
		}
	}

	if _, err := i.countRows(ctx, conn); err != nil {
		return 0, &errs.DatabaseError{Op: "verify row count", Err: err}
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return 0, &errs.DatabaseError{Op: "commit transaction", Err: err}
	}
	committed = true

	return inserted, nil
}

// insertReplacing rebuilds the records table from scratch inside one
// transaction. All rows are inserted; there is no dedup because the
// table starts empty.
func (i *Importer) insertReplacing(ctx context.Context, records []*models.HealthRecord) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	conn, err := i.db.Conn(ctx)
	if err != nil {
		return 0, &errs.DatabaseError{Op: "acquire connection", Err: err}
	}
	defer func() {
		_ = conn.Close()
	}()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return 0, &errs.DatabaseError{Op: "begin transaction", Err: err}
	}

	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
			i.rollbacks.Add(1)
			i.log.Warn("csv migration rolled back")
		}
	}()

	if _, err := conn.NewDropTable().
		Model((*models.HealthRecord)(nil)).
		IfExists().
		Exec(ctx); err != nil {
		return 0, &errs.DatabaseError{Op: "drop records table", Err: err}
	}
	if err := createTables(ctx, conn); err != nil {
		return 0, &errs.DatabaseError{Op: "create tables", Err: err}
	}

	i.report(20, "inserting records")
	for n, record := range records {
		if _, err := conn.NewInsert().Model(record).Exec(ctx); err != nil {
			return 0, &errs.DatabaseError{Op: "insert record", Err: err}
		}
		if n%5000 == 4999 {
			i.report(20+70*n/len(records), fmt.Sprintf("inserted %d/%d", n+1, len(records)))
			if err := ctx.Err(); err != nil {
				return 0, &errs.DatabaseError{Op: "insert record", Err: err}
			}
		}
	}

	if _, err := i.countRows(ctx, conn); err != nil {
		return 0, &errs.DatabaseError{Op: "verify row count", Err: err}
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return 0, &errs.DatabaseError{Op: "commit transaction", Err: err}
	}
	committed = true

	return len(records), nil
}

// finalize runs the post-commit bookkeeping: supporting indexes, the
// metadata overwrite, and the run record.
func (i *Importer) finalize(ctx context.Context, path string, run *models.ImportRun, inserted, skipped int) error {
	i.report(92, "building indexes")
	for _, idx := range migrations.RecordIndexes {
		if _, err := i.db.ExecContext(ctx, idx); err != nil {
			i.log.Error("index build failed", zap.Error(err))
			ferr := &errs.DatabaseError{Op: "build indexes", Err: err}
			i.finishRun(run, inserted, skipped, ferr)
			return ferr
		}
	}

	i.report(96, "writing metadata")
	entries := []models.MetadataEntry{
		{Key: models.MetaImportDate, Value: time.Now().UTC().Format(time.RFC3339)},
		{Key: models.MetaRecordCount, Value: strconv.Itoa(run.RecordsParsed)},
		{Key: models.MetaSourceFile, Value: path},
	}
	if _, err := i.db.NewInsert().
		Model(&entries).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx); err != nil {
		i.log.Error("metadata write failed", zap.Error(err))
		ferr := &errs.DatabaseError{Op: "write metadata", Err: err}
		i.finishRun(run, inserted, skipped, ferr)
		return ferr
	}

	i.finishRun(run, inserted, skipped, nil)
	return nil
}

func newRun(path string, format models.ImportFormat) *models.ImportRun {
	return &models.ImportRun{
		RunID:      uuid.NewString(),
		SourceFile: path,
		Format:     format,
		Status:     models.RunRunning,
		StartedAt:  time.Now().UTC(),
	}
}

// finishRun persists the run outcome. Failures here are logged but do
// not mask the import result.
func (i *Importer) finishRun(run *models.ImportRun, inserted, skipped int, importErr error) {
	now := time.Now().UTC()
	run.FinishedAt = &now
	run.RecordsInserted = inserted
	run.RecordsSkipped = skipped
	if importErr != nil {
		run.Status = models.RunFailed
		msg := importErr.Error()
		run.ErrorLog = &msg
	} else {
		run.Status = models.RunCompleted
	}

	if _, err := i.db.NewInsert().Model(run).Exec(context.Background()); err != nil {
		i.log.Warn("failed to record import run", zap.Error(err))
	}
}

func (i *Importer) report(pct int, msg string) {
	if i.progress != nil {
		i.progress(pct, msg)
	}
}

// createTables ensures the full schema exists on the connection's
// transaction so a fresh store works without running migrations first.
func createTables(ctx context.Context, conn bun.Conn) error {
	for _, model := range []interface{}{
		(*models.HealthRecord)(nil),
		(*models.MetadataEntry)(nil),
		(*models.ImportRun)(nil),
	} {
		if _, err := conn.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
