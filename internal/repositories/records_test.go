package repositories

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/healthmon/importer/internal/config"
	"github.com/healthmon/importer/internal/database"
	"github.com/healthmon/importer/internal/importer"
	"github.com/healthmon/importer/internal/models"
	"github.com/healthmon/importer/internal/validator"
)

// seedStore imports a small export spanning three days and two types.
func seedStore(t *testing.T) (*Store, *bun.DB) {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	export := `<?xml version="1.0"?>
<HealthData>
 <Record type="HKQuantityTypeIdentifierStepCount" sourceName="iPhone" unit="count"
   startDate="2024-01-15 08:00:00 +0000" endDate="2024-01-15 09:00:00 +0000" value="100"/>
 <Record type="HKQuantityTypeIdentifierStepCount" sourceName="iPhone" unit="count"
   startDate="2024-01-15 18:00:00 +0000" endDate="2024-01-15 19:00:00 +0000" value="300"/>
 <Record type="HKQuantityTypeIdentifierStepCount" sourceName="iPhone" unit="count"
   startDate="2024-01-16 08:00:00 +0000" endDate="2024-01-16 09:00:00 +0000" value="200"/>
 <Record type="HKQuantityTypeIdentifierStepCount" sourceName="iPhone" unit="count"
   startDate="2024-02-02 08:00:00 +0000" endDate="2024-02-02 09:00:00 +0000" value="400"/>
 <Record type="HKQuantityTypeIdentifierHeartRate" sourceName="Apple Watch" unit="count/min"
   startDate="2024-01-15 08:30:00 +0000" endDate="2024-01-15 08:30:00 +0000" value="72"/>
</HealthData>`

	path := filepath.Join(t.TempDir(), "export.xml")
	require.NoError(t, os.WriteFile(path, []byte(export), 0o644))

	imp := importer.New(db, validator.New(config.Default().Validator, nil), nil)
	_, err = imp.ImportXML(context.Background(), path)
	require.NoError(t, err)

	return NewStore(db, nil), db
}

func TestRecordsInRange(t *testing.T) {
	store, _ := seedStore(t)
	ctx := context.Background()

	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC)

	all, err := store.RecordsInRange(ctx, start, end, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	steps, err := store.RecordsInRange(ctx, start, end, models.MetricStepCount)
	require.NoError(t, err)
	assert.Len(t, steps, 3)
	for _, r := range steps {
		assert.Equal(t, models.MetricStepCount, r.Type)
	}
}

func TestAggregateDaily(t *testing.T) {
	store, _ := seedStore(t)

	rows, err := store.Aggregate(context.Background(), models.MetricStepCount, models.PeriodDaily)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	jan15 := rows[0]
	assert.Equal(t, "2024-01-15", jan15.Bucket)
	assert.Equal(t, 2, jan15.Count)
	assert.InDelta(t, 200.0, jan15.Avg, 0.001)
	assert.InDelta(t, 100.0, jan15.Min, 0.001)
	assert.InDelta(t, 300.0, jan15.Max, 0.001)
	assert.InDelta(t, 400.0, jan15.Sum, 0.001)
}

func TestAggregateCountsSumToTotal(t *testing.T) {
	store, db := seedStore(t)
	ctx := context.Background()

	total, err := db.NewSelect().
		Model((*models.HealthRecord)(nil)).
		Where("type = ?", models.MetricStepCount).
		Count(ctx)
	require.NoError(t, err)

	for _, period := range []models.Period{models.PeriodDaily, models.PeriodWeekly, models.PeriodMonthly} {
		rows, err := store.Aggregate(ctx, models.MetricStepCount, period)
		require.NoError(t, err)

		sum := 0
		for _, r := range rows {
			sum += r.Count
		}
		assert.Equal(t, total, sum, "bucket counts must sum to the type total for %s", period)
	}
}

func TestAggregateMonthlyBuckets(t *testing.T) {
	store, _ := seedStore(t)

	rows, err := store.Aggregate(context.Background(), models.MetricStepCount, models.PeriodMonthly)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-01", rows[0].Bucket)
	assert.Equal(t, "2024-02", rows[1].Bucket)
}

func TestAggregateRejectsEmptyType(t *testing.T) {
	store, _ := seedStore(t)

	_, err := store.Aggregate(context.Background(), "", models.PeriodDaily)
	require.Error(t, err)

	_, err = store.Aggregate(context.Background(), models.MetricStepCount, models.Period("hourly"))
	require.Error(t, err)
}

func TestAvailableTypesAndMetadata(t *testing.T) {
	store, _ := seedStore(t)
	ctx := context.Background()

	types, err := store.AvailableTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{models.MetricHeartRate, models.MetricStepCount}, types)

	meta, err := store.LatestMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, "5", meta[models.MetaRecordCount])
	assert.NotEmpty(t, meta[models.MetaImportDate])

	runs, err := store.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunCompleted, runs[0].Status)
}
