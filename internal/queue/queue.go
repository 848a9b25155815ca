// Package queue schedules import tasks. Higher-priority tasks jump the
// queue (FIFO within a priority level), transient database failures
// retry with exponential backoff, and execution is serialized because
// no two imports may run against the same store concurrently.
package queue

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/healthmon/importer/internal/config"
	"github.com/healthmon/importer/internal/errs"
	"github.com/healthmon/importer/internal/importer"
	"github.com/healthmon/importer/internal/models"
)

// Task is one queued import.
type Task struct {
	Path           string
	Format         models.ImportFormat
	Priority       int
	SkipValidation bool

	seq int
}

// Result is the outcome of one task, delivered on the results channel.
type Result struct {
	Task     Task
	Inserted int
	Attempts int
	Err      error
}

// Queue orders and executes import tasks.
type Queue struct {
	imp *importer.Importer
	cfg config.QueueConfig
	log *zap.Logger

	mu      sync.Mutex
	pending taskHeap
	nextSeq int
}

// New creates an import queue.
func New(imp *importer.Importer, cfg config.QueueConfig, log *zap.Logger) *Queue {
	if log == nil {
		log = zap.NewNop()
	}
	return &Queue{imp: imp, cfg: cfg, log: log}
}

// Enqueue adds a task. Tasks with higher priority run first; equal
// priorities run in enqueue order.
func (q *Queue) Enqueue(task Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	task.seq = q.nextSeq
	q.nextSeq++
	heap.Push(&q.pending, task)
}

// Len returns the number of pending tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Len()
}

// Run drains the queue and delivers one Result per task, closing the
// channel when done. Execution uses a single worker: imports must not
// run concurrently against one store. Cancelling the context stops the
// drain; remaining tasks are reported with the context error.
func (q *Queue) Run(ctx context.Context) <-chan Result {
	results := make(chan Result)

	go func() {
		defer close(results)
		for {
			task, ok := q.pop()
			if !ok {
				return
			}

			if err := ctx.Err(); err != nil {
				results <- Result{Task: task, Err: err}
				continue
			}

			results <- q.execute(ctx, task)
		}
	}()

	return results
}

func (q *Queue) pop() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending.Len() == 0 {
		return Task{}, false
	}
	return heap.Pop(&q.pending).(Task), true
}

// execute runs one task, retrying transient database failures with
// backoff. Validation and parse failures are permanent and fail fast.
func (q *Queue) execute(ctx context.Context, task Task) Result {
	attempt := 1
	for {
		inserted, err := q.runImport(ctx, task)
		if err == nil {
			return Result{Task: task, Inserted: inserted, Attempts: attempt}
		}

		if !retryable(err) || !ShouldRetry(attempt+1, q.cfg.MaxRetries) {
			return Result{Task: task, Attempts: attempt, Err: err}
		}

		wait := CalculateBackoff(attempt, q.cfg)
		q.log.Warn("import failed, retrying",
			zap.String("file", task.Path),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Result{Task: task, Attempts: attempt, Err: ctx.Err()}
		case <-timer.C:
		}
		attempt++
	}
}

func (q *Queue) runImport(ctx context.Context, task Task) (int, error) {
	switch {
	case task.Format == models.FormatCSV:
		return q.imp.ImportCSV(ctx, task.Path)
	case task.SkipValidation:
		return q.imp.ImportXMLBasic(ctx, task.Path)
	default:
		return q.imp.ImportXML(ctx, task.Path)
	}
}

// retryable reports whether a failure may succeed on retry. Rule
// violations and unreadable files will fail identically every time;
// only transactional failures are worth another attempt.
func retryable(err error) bool {
	var derr *errs.DatabaseError
	return errors.As(err, &derr)
}

// taskHeap orders tasks by priority descending, then enqueue order.
type taskHeap []Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(a, b int) bool {
	if h[a].Priority != h[b].Priority {
		return h[a].Priority > h[b].Priority
	}
	return h[a].seq < h[b].seq
}

func (h taskHeap) Swap(a, b int) { h[a], h[b] = h[b], h[a] }

func (h *taskHeap) Push(x any) { *h = append(*h, x.(Task)) }

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	task := old[n-1]
	*h = old[:n-1]
	return task
}
