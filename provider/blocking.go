package provider

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/tailored-agentic-units/phf/queue"
	"github.com/tailored-agentic-units/phf/scheduler"
)

// acquired is one handoff from the worker thread to the scheduler side.
type acquired struct {
	item any
	err  error
}

// Blocking acquires content on a dedicated OS thread so the source may make
// blocking calls. Each item is handed to the scheduler, which broadcasts and
// aggregates it; aggregated results travel back and the result callback runs
// on the worker thread too. The worker waits for every cycle to finish before
// acquiring again, with or without a callback.
//
// When acquisition or the callback fails on the worker, the error is handed
// over as well and ends the provider's cycle task with that error.
type Blocking struct {
	base
	source Source
}

// NewBlocking creates a Blocking provider polling source. It aggregates hook
// results only when a result callback is supplied.
func NewBlocking(source Source, opts ...Option) (*Blocking, error) {
	if source == nil {
		return nil, ErrNoSource
	}

	o := newOptions(KindBlocking, opts)
	b := &Blocking{source: source}
	b.init(KindBlocking, o, o.callback != nil)
	return b, nil
}

func (b *Blocking) Start(sched *scheduler.Scheduler) error {
	return b.start(sched, b.run)
}

func (b *Blocking) run(ctx context.Context) error {
	handoff := queue.New[acquired]()
	results := queue.New[[]any]()

	go b.work(ctx, handoff, results)

	for {
		a, err := handoff.Get(ctx)
		if err != nil {
			return err
		}
		// Get hands out queued items even after cancellation.
		if err := ctx.Err(); err != nil {
			return err
		}
		if a.err != nil {
			return fmt.Errorf("worker: %w", a.err)
		}

		aggregated, err := b.process(ctx, a.item)
		if err != nil {
			return err
		}

		// Nil when draining; the worker still waits for it.
		results.Put(aggregated)
	}
}

// work is the worker thread. It returns once ctx is done, after its current
// blocking call returns.
func (b *Blocking) work(ctx context.Context, handoff *queue.Queue[acquired], results *queue.Queue[[]any]) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	b.logger.DebugContext(ctx, "worker thread started", slog.String("provider", b.name))
	defer b.logger.DebugContext(ctx, "worker thread stopped", slog.String("provider", b.name))

	for {
		item, err := b.source.Content(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			handoff.Put(acquired{err: fmt.Errorf("acquire content: %w", err)})
			return
		}
		handoff.Put(acquired{item: item})

		aggregated, err := results.Get(ctx)
		if err != nil || ctx.Err() != nil {
			return
		}
		if !b.aggregate {
			continue
		}
		if err := b.complete(ctx, aggregated); err != nil {
			handoff.Put(acquired{err: err})
			return
		}
	}
}
