// Package taskpool runs a batch of independent tasks on a bounded set of
// workers.
//
// A Pool runs one batch. Cancelling the context passed to Run drains the
// pool cooperatively: workers stop taking new tasks and Run waits for the
// tasks already running. Shutdown is the abrupt path: it cancels the same
// context and makes Run return at once, abandoning whatever has not
// finished.
package taskpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aussiebroadwan/zujuan/internal/zujuan/domain"
	"github.com/aussiebroadwan/zujuan/pkg/idx"
)

var (
	ErrPoolClosed   = errors.New("taskpool: pool already used")
	ErrPoolShutdown = errors.New("taskpool: pool shut down")
)

// TaskFunc executes one task. ctx is cancelled when the pool drains or
// shuts down; long tasks should watch it.
type TaskFunc func(ctx context.Context, task domain.TaskDescriptor) error

// RunReport summarises one Run. Abandoned counts tasks that never finished,
// either because they were never picked up or because Shutdown cut them off.
type RunReport struct {
	RunID      string
	Dispatched int
	Completed  int
	Failed     int
	Abandoned  int
}

type Pool struct {
	fn     TaskFunc
	logger *slog.Logger

	started    atomic.Bool
	terminated chan struct{}
	closeOnce  sync.Once

	mu     sync.Mutex
	cancel context.CancelFunc
	active bool
	frozen bool
	total  int
	counts RunReport
}

// New creates a pool that executes fn for every task.
func New(fn TaskFunc, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		fn:         fn,
		logger:     logger,
		terminated: make(chan struct{}),
	}
}

// Run dispatches tasks in input order to workers goroutines and waits for
// them. Task errors and panics are logged and counted, never returned.
//
// The error is nil when every task finished, ErrPoolShutdown when Shutdown
// ended the run, the context error when ctx was cancelled, and
// ErrPoolClosed when the pool has already run.
func (p *Pool) Run(ctx context.Context, tasks []domain.TaskDescriptor, workers int) (RunReport, error) {
	if !p.started.CompareAndSwap(false, true) {
		return RunReport{}, ErrPoolClosed
	}

	if workers <= 0 {
		p.logger.Warn("invalid worker count specified, using default",
			"specified_count", workers,
			"default_count", 1)
		workers = 1
	}

	runID := idx.New().String()
	logger := p.logger.With("run_id", runID)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	p.cancel = cancel
	p.active = true
	p.total = len(tasks)
	p.counts = RunReport{RunID: runID}
	p.mu.Unlock()

	select {
	case <-p.terminated:
		logger.Warn("pool shut down before run", "tasks", len(tasks))
		return p.finish(), ErrPoolShutdown
	default:
	}

	queue := make(chan domain.TaskDescriptor, len(tasks))
	for _, task := range tasks {
		queue <- task
	}
	close(queue)

	logger.Info("task pool started", "tasks", len(tasks), "workers", workers)

	g, gctx := errgroup.WithContext(runCtx)
	for i := range workers {
		w := &worker{pool: p, logger: logger.With("worker_id", i+1)}
		g.Go(func() error {
			w.loop(gctx, queue)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-p.terminated:
		err = ErrPoolShutdown
	}

	report := p.finish()
	if err == nil && report.Abandoned > 0 {
		err = ctx.Err()
		if err == nil {
			err = ErrPoolShutdown
		}
	}
	logger.Info("task pool finished",
		"dispatched", report.Dispatched,
		"completed", report.Completed,
		"failed", report.Failed,
		"abandoned", report.Abandoned)

	return report, err
}

// Shutdown cancels every running task and makes Run return without waiting
// for them. It may be called any number of times, before, during or after
// Run.
func (p *Pool) Shutdown() {
	p.closeOnce.Do(func() {
		close(p.terminated)

		p.mu.Lock()
		cancel := p.cancel
		p.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		p.logger.Info("task pool shutdown requested")
	})
}

// Outstanding returns the number of tasks of the active run that have not
// finished, queued or in flight. It is zero when no run is active.
func (p *Pool) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.active {
		return 0
	}
	return p.total - p.counts.Completed - p.counts.Failed
}

// finish freezes the counters so late results from abandoned tasks are
// ignored, and returns the final report.
func (p *Pool) finish() RunReport {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.active = false
	p.frozen = true

	report := p.counts
	report.Abandoned = p.total - report.Completed - report.Failed
	return report
}

func (p *Pool) begin() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.frozen {
		return false
	}
	p.counts.Dispatched++
	return true
}

func (p *Pool) end(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.frozen {
		return
	}
	if err != nil {
		p.counts.Failed++
	} else {
		p.counts.Completed++
	}
}

type worker struct {
	pool   *Pool
	logger *slog.Logger
}

func (w *worker) loop(ctx context.Context, queue <-chan domain.TaskDescriptor) {
	for {
		// Prefer stopping over picking up another task once cancelled.
		if ctx.Err() != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case task, ok := <-queue:
			if !ok {
				return
			}
			w.run(ctx, task)
		}
	}
}

func (w *worker) run(ctx context.Context, task domain.TaskDescriptor) {
	if !w.pool.begin() {
		return
	}

	logger := w.logger.With("task_label", task.Label, "task_ref", task.Ref)
	logger.Debug("task started")
	start := time.Now()

	err := w.call(ctx, task)
	w.pool.end(err)

	if err != nil {
		logger.Warn("task failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return
	}
	logger.Info("task completed", "duration_ms", time.Since(start).Milliseconds())
}

func (w *worker) call(ctx context.Context, task domain.TaskDescriptor) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return w.pool.fn(ctx, task)
}
