// Package scheduler runs provider cycles and hook loops as independently
// interleaved tasks under one cancellation scope.
//
// A Scheduler owns two things:
//
//   - a task group: every function started with Go runs in its own goroutine
//     and is cancelled when the scheduler shuts down or the parent context ends
//   - a serial executor: closures handed to Submit, from any goroutine, run one
//     at a time in submission order on the scheduler's single executor goroutine
//
// Submit is the handoff used when work produced on a foreign goroutine must be
// applied by the owning scheduler, for example a message enqueued by a caller
// that is not itself a scheduler task.
//
//	s := scheduler.New(ctx, scheduler.DefaultConfig())
//	defer s.Shutdown(5 * time.Second)
//
//	task := s.Go("ticker", func(ctx context.Context) error {
//	    <-ctx.Done()
//	    return ctx.Err()
//	})
//	task.Cancel()
//	<-task.Done() // task.Err() == nil: cancellation is an orderly stop
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tailored-agentic-units/phf/observability"
	"github.com/tailored-agentic-units/phf/queue"
)

// ErrClosed is returned once a scheduler has been shut down.
var ErrClosed = errors.New("scheduler closed")

type Scheduler struct {
	name            string
	shutdownTimeout time.Duration

	logger   *slog.Logger
	observer observability.Observer

	ctx    context.Context
	cancel context.CancelFunc

	submissions  *queue.Queue[func()]
	executorDone chan struct{}

	mu     sync.Mutex
	closed bool
	tasks  sync.WaitGroup
}

// New creates a Scheduler bound to ctx and starts its executor. Cancelling
// ctx cancels every task started on the scheduler.
func New(ctx context.Context, cfg Config) *Scheduler {
	merged := DefaultConfig()
	merged.Merge(&cfg)

	schedCtx, cancel := context.WithCancel(ctx)

	s := &Scheduler{
		name:            merged.Name,
		shutdownTimeout: merged.ShutdownTimeout,
		logger:          merged.Logger,
		observer:        merged.Observer,
		ctx:             schedCtx,
		cancel:          cancel,
		submissions:     queue.New[func()](),
		executorDone:    make(chan struct{}),
	}

	go s.executor()

	return s
}

func (s *Scheduler) Name() string {
	return s.name
}

// Context returns the scheduler's cancellation scope.
func (s *Scheduler) Context() context.Context {
	return s.ctx
}

// Go starts fn as a new task. It is safe to call from any goroutine. When
// the scheduler is already closed the returned task is finished with
// ErrClosed and fn never runs.
//
// A task that returns its own context's error after being cancelled is
// recorded as a clean finish. Any other error is logged, emitted as
// EventTaskFailed, and left on the task; sibling tasks are unaffected.
func (s *Scheduler) Go(name string, fn func(ctx context.Context) error) *Task {
	taskCtx, cancel := context.WithCancel(s.ctx)
	task := newTask(name, cancel)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		task.finish(ErrClosed)
		return task
	}
	s.tasks.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.tasks.Done()
		s.run(taskCtx, task, fn)
	}()

	return task
}

// Submit hands fn to the scheduler's executor. Closures run one at a time in
// the order they were submitted.
func (s *Scheduler) Submit(fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.submissions.Put(fn)
	return nil
}

// Shutdown cancels every task and waits for them and the executor to
// return. A non-positive timeout uses the configured ShutdownTimeout.
func (s *Scheduler) Shutdown(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = s.shutdownTimeout
	}

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.logger.DebugContext(
		s.ctx,
		"shutting down scheduler",
		slog.String("scheduler", s.name),
	)
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.tasks.Wait()
		<-s.executorDone
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("scheduler %s shutdown timeout after %v", s.name, timeout)
	}
}

func (s *Scheduler) run(ctx context.Context, task *Task, fn func(context.Context) error) {
	observability.Emit(ctx, s.observer, EventTaskStart, observability.LevelVerbose, "scheduler.Go",
		map[string]any{"scheduler": s.name, "task": task.name})

	started := time.Now()
	err := fn(ctx)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		err = nil
	}
	task.finish(err)

	if err != nil {
		s.logger.ErrorContext(
			s.ctx,
			"task failed",
			slog.String("scheduler", s.name),
			slog.String("task", task.name),
			slog.String("error", err.Error()),
		)
		observability.Emit(s.ctx, s.observer, EventTaskFailed, observability.LevelError, "scheduler.Go",
			map[string]any{"scheduler": s.name, "task": task.name, "error": err.Error()})
		return
	}

	data := map[string]any{"scheduler": s.name, "task": task.name}
	data[observability.DurationKey] = time.Since(started)
	observability.Emit(s.ctx, s.observer, EventTaskStop, observability.LevelVerbose, "scheduler.Go", data)
}

func (s *Scheduler) executor() {
	defer close(s.executorDone)

	for {
		fn, err := s.submissions.Get(s.ctx)
		if err != nil {
			return
		}
		fn()
	}
}
