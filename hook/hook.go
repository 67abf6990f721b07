// Package hook implements the pluggable transform attached to a provider.
//
// A Hook owns exactly one inbound and one outbound queue for its lifetime.
// Run consumes the inbound queue in FIFO order, applies the hook's action to
// each item, and puts the result on the outbound queue:
//
//	double, _ := hook.New("double", func(ctx context.Context, item any) (any, error) {
//	    return item.(int) * 2, nil
//	})
//	double.Inbound().Put(5)
//	go double.Run(ctx)
//	result, _ := double.Outbound().Get(ctx) // 10
package hook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/phf/observability"
	"github.com/tailored-agentic-units/phf/queue"
)

// Action transforms one broadcast item into one result. Items are shared
// between every hook of a provider; an action must copy before mutating.
type Action func(ctx context.Context, item any) (any, error)

type Hook struct {
	id      uuid.UUID
	name    string
	aliases []string
	action  Action

	logger   *slog.Logger
	observer observability.Observer

	queues   sync.Once
	inbound  *queue.Queue[any]
	outbound *queue.Queue[any]

	processed atomic.Int64
}

// New creates a Hook named name that applies action to every item it
// receives. A nil action fails with ErrNoAction.
func New(name string, action Action, opts ...Option) (*Hook, error) {
	if action == nil {
		return nil, fmt.Errorf("hook %s: %w", name, ErrNoAction)
	}

	h := &Hook{
		id:       uuid.Must(uuid.NewV7()),
		name:     name,
		action:   action,
		logger:   slog.Default(),
		observer: observability.NoOpObserver{},
	}

	for _, opt := range opts {
		opt(h)
	}

	return h, nil
}

func (h *Hook) ID() uuid.UUID {
	return h.id
}

func (h *Hook) Name() string {
	return h.name
}

// Aliases returns a copy of the hook's registry aliases.
func (h *Hook) Aliases() []string {
	return append([]string(nil), h.aliases...)
}

// Processed reports how many items the hook has emitted.
func (h *Hook) Processed() int64 {
	return h.processed.Load()
}

// Inbound returns the queue of items waiting to be processed. Every call
// returns the same instance.
func (h *Hook) Inbound() *queue.Queue[any] {
	h.queues.Do(h.initQueues)
	return h.inbound
}

// Outbound returns the queue results are emitted on. Every call returns the
// same instance.
func (h *Hook) Outbound() *queue.Queue[any] {
	h.queues.Do(h.initQueues)
	return h.outbound
}

func (h *Hook) initQueues() {
	h.inbound = queue.New[any]()
	h.outbound = queue.New[any]()
}

// Run processes inbound items until ctx is done or the action fails. It
// returns ctx.Err() on cancellation and the wrapped action error otherwise;
// either way only this hook's loop ends.
func (h *Hook) Run(ctx context.Context) error {
	in, out := h.Inbound(), h.Outbound()

	observability.Emit(ctx, h.observer, EventHookStart, observability.LevelVerbose, "hook.Run",
		map[string]any{"hook": h.name, "hook_id": h.id.String()})

	for {
		item, err := in.Get(ctx)
		if err == nil {
			// A backlog must not outlive cancellation.
			err = ctx.Err()
		}
		if err != nil {
			h.stopped(ctx)
			return err
		}

		started := time.Now()
		result, err := h.action(ctx, item)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				h.stopped(ctx)
				return err
			}

			observability.Emit(ctx, h.observer, EventHookFailed, observability.LevelError, "hook.Run",
				map[string]any{"hook": h.name, "hook_id": h.id.String(), "error": err.Error()})
			return fmt.Errorf("hook %s: %w", h.name, err)
		}

		out.Put(result)
		h.processed.Add(1)

		data := map[string]any{"hook": h.name}
		data[observability.DurationKey] = time.Since(started)
		observability.Emit(ctx, h.observer, EventHookProcessed, observability.LevelVerbose, "hook.Run", data)
	}
}

func (h *Hook) stopped(ctx context.Context) {
	h.logger.DebugContext(ctx, "hook stopped",
		slog.String("hook", h.name),
		slog.Int64("processed", h.processed.Load()),
	)
	observability.Emit(ctx, h.observer, EventHookStop, observability.LevelVerbose, "hook.Run",
		map[string]any{"hook": h.name, "hook_id": h.id.String()})
}
