// Package provider drives content acquisition and fans each item out to the
// hooks attached to a provider, collecting their results back in
// registration order.
//
// Every provider repeats the same cycle until stopped:
//
//  1. acquire one content item
//  2. broadcast it to the inbound queue of every wired hook
//  3. wait for one result per hook (when aggregating) or discard pending
//     results (when not)
//  4. hand the ordered results to the result callback
//
// Three disciplines differ in step 1. Periodic polls a Source on the
// scheduler with a fixed delay between cycles. Blocking polls a Source from
// a dedicated OS thread. Complex takes requests from a messaging.System and
// posts each answer back under the request's correlation id.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/phf/hook"
	"github.com/tailored-agentic-units/phf/observability"
	"github.com/tailored-agentic-units/phf/queue"
	"github.com/tailored-agentic-units/phf/scheduler"
)

// Kind names a provider discipline.
type Kind string

const (
	KindPeriodic Kind = "periodic"
	KindBlocking Kind = "blocking"
	KindComplex  Kind = "complex"
)

type Provider interface {
	ID() uuid.UUID
	Name() string
	Kind() Kind
	Aliases() []string

	// AddHook attaches h. It is wired immediately when the provider is
	// running, otherwise at Start. Safe to call from any goroutine.
	AddHook(h *hook.Hook)
	Hooks() []*hook.Hook

	// Start launches the provider's cycle task and its hooks' tasks on sched.
	Start(sched *scheduler.Scheduler) error
	// Stop cancels the cycle task, which stops the hooks on its way out.
	Stop() error
	Running() bool
	// Done is closed when the current cycle task finishes. It is nil
	// before the first Start.
	Done() <-chan struct{}
	// Err reports why the last cycle task failed, or nil.
	Err() error
	Cycles() int64
}

type queuePair struct {
	inbound  *queue.Queue[any]
	outbound *queue.Queue[any]
}

type cycleFunc func(ctx context.Context) error

// base holds the state shared by every discipline. hooks[i] always
// corresponds to pairs[i] and hookTasks[i] while the provider is running.
type base struct {
	id        uuid.UUID
	name      string
	kind      Kind
	aliases   []string
	callback  ResultCallback
	aggregate bool

	logger   *slog.Logger
	observer observability.Observer

	mu        sync.Mutex
	active    bool
	sched     *scheduler.Scheduler
	hooks     []*hook.Hook
	pairs     []queuePair
	hookTasks []*scheduler.Task
	cycle     *scheduler.Task

	cycles atomic.Int64
}

func (b *base) init(kind Kind, o options, aggregate bool) {
	b.id = uuid.Must(uuid.NewV7())
	b.name = o.name
	b.kind = kind
	b.aliases = o.aliases
	b.callback = o.callback
	b.aggregate = aggregate
	b.logger = o.logger
	b.observer = o.observer
}

func (b *base) ID() uuid.UUID {
	return b.id
}

func (b *base) Name() string {
	return b.name
}

func (b *base) Kind() Kind {
	return b.kind
}

func (b *base) Aliases() []string {
	return append([]string(nil), b.aliases...)
}

func (b *base) Cycles() int64 {
	return b.cycles.Load()
}

func (b *base) AddHook(h *hook.Hook) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hooks = append(b.hooks, h)
	if b.active {
		b.wire(h)
	}
}

// Hooks returns the attached hooks in registration order.
func (b *base) Hooks() []*hook.Hook {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*hook.Hook(nil), b.hooks...)
}

func (b *base) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

func (b *base) Done() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cycle == nil {
		return nil
	}
	return b.cycle.Done()
}

func (b *base) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cycle == nil {
		return nil
	}
	return b.cycle.Err()
}

func (b *base) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.active {
		return ErrNotRunning
	}
	b.cycle.Cancel()
	return nil
}

// start wires every attached hook and spawns the cycle task on sched.
func (b *base) start(sched *scheduler.Scheduler, run cycleFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// The previous cycle task still owns the hooks until it finishes.
	if b.active || (b.cycle != nil && !finished(b.cycle)) {
		return ErrAlreadyRunning
	}

	b.active = true
	b.sched = sched
	b.pairs = nil
	b.hookTasks = nil
	for _, h := range b.hooks {
		b.wire(h)
	}

	b.cycle = sched.Go(fmt.Sprintf("provider.%s", b.name), func(ctx context.Context) error {
		return b.runCycle(ctx, run)
	})

	// Only a closed scheduler finishes the task while b.mu is still held.
	if err := b.cycle.Err(); err != nil {
		b.active = false
		b.pairs = nil
		b.hookTasks = nil
		return err
	}

	return nil
}

// wire captures h's queue pair and spawns its task. Callers hold b.mu.
func (b *base) wire(h *hook.Hook) {
	b.pairs = append(b.pairs, queuePair{inbound: h.Inbound(), outbound: h.Outbound()})
	b.hookTasks = append(b.hookTasks, b.sched.Go(fmt.Sprintf("hook.%s", h.Name()), h.Run))

	observability.Emit(b.sched.Context(), b.observer, EventHookAttached, observability.LevelVerbose, "provider.AddHook",
		map[string]any{"provider": b.name, "hook": h.Name(), "index": len(b.pairs) - 1})
}

func (b *base) runCycle(ctx context.Context, run cycleFunc) error {
	b.logger.InfoContext(ctx, "provider started",
		slog.String("provider", b.name),
		slog.String("kind", string(b.kind)),
	)
	observability.Emit(ctx, b.observer, EventProviderStart, observability.LevelInfo, "provider.Start",
		map[string]any{"provider": b.name, "kind": string(b.kind)})

	err := run(ctx)
	b.stopHooks()

	if err == nil || (ctx.Err() != nil && errors.Is(err, ctx.Err())) {
		observability.Emit(ctx, b.observer, EventProviderStop, observability.LevelInfo, "provider.Stop",
			map[string]any{"provider": b.name, "cycles": b.cycles.Load()})
		return err
	}

	b.logger.ErrorContext(ctx, "provider failed",
		slog.String("provider", b.name),
		slog.String("error", err.Error()),
	)
	observability.Emit(ctx, b.observer, EventProviderFailed, observability.LevelError, "provider.run",
		map[string]any{"provider": b.name, "error": err.Error()})
	return fmt.Errorf("provider %s: %w", b.name, err)
}

// stopHooks cancels every hook task this run spawned, waits for them to
// exit and discards whatever is left in their queues, so results of this
// run never leak into the next. Hooks stay attached so a later Start wires
// them again.
func (b *base) stopHooks() {
	b.mu.Lock()
	tasks, pairs := b.hookTasks, b.pairs
	for _, task := range tasks {
		task.Cancel()
	}
	b.active = false
	b.pairs = nil
	b.hookTasks = nil
	b.mu.Unlock()

	for _, task := range tasks {
		<-task.Done()
	}
	for _, p := range pairs {
		p.inbound.Drain()
		p.outbound.Drain()
	}
}

func finished(task *scheduler.Task) bool {
	select {
	case <-task.Done():
		return true
	default:
		return false
	}
}

// process runs steps 2 and 3 of a cycle for item and returns the results
// ordered by hook registration index. Without aggregation pending results
// are discarded and the returned slice is nil.
func (b *base) process(ctx context.Context, item any) ([]any, error) {
	started := time.Now()

	pairs := b.broadcast(item)

	var results []any
	if b.aggregate {
		var err error
		if results, err = collect(ctx, pairs); err != nil {
			return nil, err
		}
	} else {
		drain(pairs)
	}

	b.cycles.Add(1)
	data := map[string]any{"provider": b.name, "hooks": len(pairs)}
	data[observability.DurationKey] = time.Since(started)
	observability.Emit(ctx, b.observer, EventProviderCycle, observability.LevelVerbose, "provider.process", data)

	return results, nil
}

// complete runs step 4.
func (b *base) complete(ctx context.Context, results []any) error {
	if b.callback == nil {
		return nil
	}
	if err := b.callback(ctx, results); err != nil {
		return fmt.Errorf("result callback: %w", err)
	}
	return nil
}
