package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/healthmon/importer/internal/config"
	"github.com/healthmon/importer/internal/database"
	"github.com/healthmon/importer/internal/errs"
	"github.com/healthmon/importer/internal/models"
	"github.com/healthmon/importer/internal/validator"
)

const testExport = `<?xml version="1.0" encoding="UTF-8"?>
<HealthData locale="en_US">
 <Record type="HKQuantityTypeIdentifierStepCount" sourceName="iPhone" unit="count"
   startDate="2024-01-15 08:00:00 +0000" endDate="2024-01-15 09:00:00 +0000" value="512"/>
 <Record type="HKQuantityTypeIdentifierStepCount" sourceName="iPhone" unit="count"
   startDate="2024-01-15 09:00:00 +0000" endDate="2024-01-15 10:00:00 +0000" value="264"/>
 <Record type="HKQuantityTypeIdentifierHeartRate" sourceName="Apple Watch" unit="count/min"
   startDate="2024-01-15 08:30:00 +0000" endDate="2024-01-15 08:30:00 +0000" value="72"/>
 <Record type="HKCategoryTypeIdentifierSleepAnalysis" sourceName="Apple Watch"
   startDate="2024-01-15 22:00:00 +0000" endDate="2024-01-16 06:00:00 +0000"
   value="HKCategoryValueSleepAnalysisAsleep"/>
</HealthData>`

func newTestImporter(t *testing.T) (*Importer, *bun.DB) {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	v := validator.New(config.Default().Validator, nil)
	return New(db, v, nil), db
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func countRecords(t *testing.T, db *bun.DB) int {
	t.Helper()
	n, err := db.NewSelect().Model((*models.HealthRecord)(nil)).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestImportXMLIsIdempotent(t *testing.T) {
	imp, db := newTestImporter(t)
	path := writeFile(t, "export.xml", testExport)
	ctx := context.Background()

	inserted, err := imp.ImportXML(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 4, inserted)
	assert.Equal(t, 4, countRecords(t, db))

	inserted, err = imp.ImportXML(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted, "re-import must not insert duplicates")
	assert.Equal(t, 4, countRecords(t, db))
}

func TestImportXMLRejectsInvalidExport(t *testing.T) {
	imp, db := newTestImporter(t)
	path := writeFile(t, "empty.xml", `<?xml version="1.0"?><HealthData></HealthData>`)

	_, err := imp.ImportXML(context.Background(), path)
	var verr *errs.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Summary, "no records found")

	// The store must be untouched: the records table was never created.
	exists, err := db.NewSelect().
		Table("sqlite_master").
		Where("type = 'table' AND name = 'health_records'").
		Exists(context.Background())
	require.NoError(t, err)
	assert.False(t, exists, "validation failure must precede any store mutation")
}

func TestImportXMLMissingFile(t *testing.T) {
	imp, _ := newTestImporter(t)
	_, err := imp.ImportXMLBasic(context.Background(), filepath.Join(t.TempDir(), "nope.xml"))
	var ierr *errs.ImportError
	require.ErrorAs(t, err, &ierr)
}

func TestImportRollsBackOnMidTransactionFailure(t *testing.T) {
	imp, db := newTestImporter(t)
	ctx := context.Background()

	// Seed the store so the failing transaction only carries new rows,
	// not the initial schema.
	seed := writeFile(t, "seed.xml", testExport)
	_, err := imp.ImportXMLBasic(ctx, seed)
	require.NoError(t, err)
	require.Equal(t, 4, countRecords(t, db))

	extra := writeFile(t, "extra.xml", `<?xml version="1.0"?>
<HealthData>
 <Record type="HKQuantityTypeIdentifierBodyMass" sourceName="Scale" unit="kg"
   startDate="2024-01-20 07:00:00 +0000" endDate="2024-01-20 07:00:00 +0000" value="80.4"/>
</HealthData>`)

	boom := errors.New("injected count failure")
	imp.countRows = func(context.Context, bun.Conn) (int, error) { return 0, boom }

	_, err = imp.ImportXMLBasic(ctx, extra)
	var derr *errs.DatabaseError
	require.ErrorAs(t, err, &derr)
	require.ErrorIs(t, err, boom)

	assert.Equal(t, int64(1), imp.rollbacks.Load(), "rollback must run exactly once")
	assert.Equal(t, 4, countRecords(t, db), "no partial import may be committed")

	// The store must remain usable after the rollback.
	imp.countRows = func(ctx context.Context, conn bun.Conn) (int, error) {
		return conn.NewSelect().Model((*models.HealthRecord)(nil)).Count(ctx)
	}
	inserted, err := imp.ImportXMLBasic(ctx, extra)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.Equal(t, 5, countRecords(t, db))
}

func TestImportStripsVendorPrefixes(t *testing.T) {
	imp, db := newTestImporter(t)
	path := writeFile(t, "export.xml", testExport)

	_, err := imp.ImportXML(context.Background(), path)
	require.NoError(t, err)

	prefixed, err := db.NewSelect().
		Model((*models.HealthRecord)(nil)).
		Where("type LIKE 'HK%'").
		Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, prefixed, "no prefixed type may remain queryable")

	asleep, err := db.NewSelect().
		Model((*models.HealthRecord)(nil)).
		Where("type = ?", models.MetricSleepAnalysis).
		Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, asleep)
}

func TestImportCoercesCategoricalValues(t *testing.T) {
	imp, db := newTestImporter(t)
	path := writeFile(t, "export.xml", testExport)

	_, err := imp.ImportXMLBasic(context.Background(), path)
	require.NoError(t, err)

	var record models.HealthRecord
	err = db.NewSelect().
		Model(&record).
		Where("type = ?", models.MetricSleepAnalysis).
		Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultValue, record.Value)
}

func TestImportWritesMetadataAndRun(t *testing.T) {
	imp, db := newTestImporter(t)
	path := writeFile(t, "export.xml", testExport)
	ctx := context.Background()

	_, err := imp.ImportXML(ctx, path)
	require.NoError(t, err)
	_, err = imp.ImportXML(ctx, path)
	require.NoError(t, err)

	// Metadata is overwritten, not appended: one row per key.
	var entries []models.MetadataEntry
	require.NoError(t, db.NewSelect().Model(&entries).Scan(ctx))
	assert.Len(t, entries, 3)

	var sourceFile models.MetadataEntry
	require.NoError(t, db.NewSelect().
		Model(&sourceFile).
		Where("key = ?", models.MetaSourceFile).
		Scan(ctx))
	assert.Equal(t, path, sourceFile.Value)

	runs, err := db.NewSelect().Model((*models.ImportRun)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, runs, "each invocation records a run")
}

func TestFinalizeFailureRecordsFailedRun(t *testing.T) {
	imp, db := newTestImporter(t)
	ctx := context.Background()

	// A metadata table without a unique key makes the post-commit
	// upsert fail while the record insert itself succeeds.
	_, err := db.ExecContext(ctx, "CREATE TABLE metadata (key TEXT, value TEXT)")
	require.NoError(t, err)

	path := writeFile(t, "export.xml", testExport)
	_, err = imp.ImportXMLBasic(ctx, path)
	var derr *errs.DatabaseError
	require.ErrorAs(t, err, &derr)

	assert.Equal(t, 4, countRecords(t, db), "committed records survive a bookkeeping failure")

	// The invocation is still recorded, as failed.
	var run models.ImportRun
	require.NoError(t, db.NewSelect().Model(&run).Scan(ctx))
	assert.Equal(t, models.RunFailed, run.Status)
	require.NotNil(t, run.ErrorLog)
	assert.Contains(t, *run.ErrorLog, "metadata")
}

func TestImportCSVReplacesStore(t *testing.T) {
	imp, db := newTestImporter(t)
	ctx := context.Background()

	xmlPath := writeFile(t, "export.xml", testExport)
	_, err := imp.ImportXML(ctx, xmlPath)
	require.NoError(t, err)
	require.Equal(t, 4, countRecords(t, db))

	csvPath := writeFile(t, "legacy.csv",
		"type,sourceName,startDate,endDate,value\n"+
			"HKQuantityTypeIdentifierBodyMass,Scale,2023-06-01 07:00:00 +0000,2023-06-01 07:00:00 +0000,80.4\n")

	migrated, err := imp.ImportCSV(ctx, csvPath)
	require.NoError(t, err)
	assert.Equal(t, 1, migrated)

	// The CSV path replaces wholesale: prior XML data is gone.
	assert.Equal(t, 1, countRecords(t, db))

	var record models.HealthRecord
	require.NoError(t, db.NewSelect().Model(&record).Scan(ctx))
	assert.Equal(t, models.MetricBodyMass, record.Type)
}

func TestImportReportsProgress(t *testing.T) {
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var messages []string
	imp := New(db, validator.New(config.Default().Validator, nil), nil,
		WithProgress(func(pct int, msg string) {
			messages = append(messages, fmt.Sprintf("%d:%s", pct, msg))
		}))

	path := writeFile(t, "export.xml", testExport)
	_, err = imp.ImportXML(context.Background(), path)
	require.NoError(t, err)

	require.NotEmpty(t, messages)
	assert.Contains(t, messages[0], "validating")
	assert.Contains(t, messages[len(messages)-1], "100:")
}
