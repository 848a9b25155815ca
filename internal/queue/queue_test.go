package queue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/healthmon/importer/internal/config"
	"github.com/healthmon/importer/internal/database"
	"github.com/healthmon/importer/internal/importer"
	"github.com/healthmon/importer/internal/models"
	"github.com/healthmon/importer/internal/validator"
)

func TestCalculateBackoffBounds(t *testing.T) {
	cfg := config.QueueConfig{
		InitialBackoff:    config.Duration(time.Second),
		MaxBackoff:        config.Duration(10 * time.Second),
		BackoffMultiplier: 2,
		MaxRetries:        5,
	}

	for attempt := 1; attempt <= 5; attempt++ {
		d := CalculateBackoff(attempt, cfg)
		if d <= 0 {
			t.Fatalf("backoff should be positive")
		}
		if d > cfg.MaxBackoff.Std() {
			t.Fatalf("backoff should cap at max")
		}
	}

	if d := CalculateBackoff(10, cfg); d != cfg.MaxBackoff.Std() {
		t.Fatalf("expected max backoff when attempts exceed max retries")
	}
}

func TestShouldRetry(t *testing.T) {
	if !ShouldRetry(2, 3) {
		t.Fatalf("expected retry within budget")
	}
	if ShouldRetry(4, 3) {
		t.Fatalf("expected no retry past budget")
	}
}

func TestTaskHeapOrdering(t *testing.T) {
	q := New(nil, config.Default().Queue, nil)
	q.Enqueue(Task{Path: "low-1", Priority: 0})
	q.Enqueue(Task{Path: "low-2", Priority: 0})
	q.Enqueue(Task{Path: "high", Priority: 10})
	q.Enqueue(Task{Path: "low-3", Priority: 0})

	want := []string{"high", "low-1", "low-2", "low-3"}
	for _, expected := range want {
		task, ok := q.pop()
		if !ok {
			t.Fatalf("queue drained early")
		}
		if task.Path != expected {
			t.Fatalf("expected %s, got %s", expected, task.Path)
		}
	}
	if _, ok := q.pop(); ok {
		t.Fatalf("expected empty queue")
	}
}

func newQueueImporter(t *testing.T) *importer.Importer {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "queue.db"), false)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return importer.New(db, validator.New(config.Default().Validator, nil), nil)
}

func writeExport(t *testing.T, dir string, n int) string {
	t.Helper()
	doc := fmt.Sprintf(`<?xml version="1.0"?>
<HealthData>
 <Record type="HKQuantityTypeIdentifierStepCount" sourceName="iPhone"
   startDate="2024-01-%02d 08:00:00 +0000" endDate="2024-01-%02d 09:00:00 +0000" value="%d"/>
</HealthData>`, n, n, n*100)

	path := filepath.Join(dir, fmt.Sprintf("export-%d.xml", n))
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write export: %v", err)
	}
	return path
}

func TestRunDrainsInPriorityOrder(t *testing.T) {
	imp := newQueueImporter(t)
	q := New(imp, config.Default().Queue, nil)

	dir := t.TempDir()
	routine := writeExport(t, dir, 1)
	urgent := writeExport(t, dir, 2)

	q.Enqueue(Task{Path: routine, Format: models.FormatXML})
	q.Enqueue(Task{Path: urgent, Format: models.FormatXML, Priority: 5})

	var order []string
	for result := range q.Run(context.Background()) {
		if result.Err != nil {
			t.Fatalf("unexpected error for %s: %v", result.Task.Path, result.Err)
		}
		if result.Inserted != 1 {
			t.Fatalf("expected 1 inserted record, got %d", result.Inserted)
		}
		order = append(order, result.Task.Path)
	}

	if len(order) != 2 || order[0] != urgent || order[1] != routine {
		t.Fatalf("expected priority order [urgent routine], got %v", order)
	}
}

func TestRunReportsPermanentFailureWithoutRetry(t *testing.T) {
	imp := newQueueImporter(t)
	q := New(imp, config.Default().Queue, nil)

	q.Enqueue(Task{Path: filepath.Join(t.TempDir(), "missing.xml"), Format: models.FormatXML})

	results := q.Run(context.Background())
	result, ok := <-results
	if !ok {
		t.Fatalf("expected a result")
	}
	if result.Err == nil {
		t.Fatalf("expected error for missing file")
	}
	if result.Attempts != 1 {
		t.Fatalf("missing file is a permanent failure; expected 1 attempt, got %d", result.Attempts)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	imp := newQueueImporter(t)
	q := New(imp, config.Default().Queue, nil)

	dir := t.TempDir()
	q.Enqueue(Task{Path: writeExport(t, dir, 3), Format: models.FormatXML})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for result := range q.Run(ctx) {
		if result.Err == nil {
			t.Fatalf("expected context error for queued task")
		}
	}
}
