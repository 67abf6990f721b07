package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tailored-agentic-units/phf/observability"
)

// Source produces commands from outside the engine, such as a console or a
// remote queue, and receives each command's result.
type Source interface {
	Name() string

	// Produce blocks until the next command is available or ctx is done.
	// It returns io.EOF once the source has no more commands.
	Produce(ctx context.Context) (*Command, error)

	// Deliver hands back the result of a command the source produced. It is
	// called from the orchestrator's command loop and must not block.
	Deliver(ctx context.Context, result Result)
}

// pump feeds commands from src into the command queue, producing the next
// command only once the previous one has been applied.
func (o *Orchestrator) pump(ctx context.Context, src Source) error {
	observability.Emit(ctx, o.observer, EventSourceStart, observability.LevelVerbose, "orchestrator.pump",
		map[string]any{"source": src.Name()})

	err := o.pumpCommands(ctx, src)
	if err == nil || errors.Is(err, ctx.Err()) {
		observability.Emit(ctx, o.observer, EventSourceStop, observability.LevelVerbose, "orchestrator.pump",
			map[string]any{"source": src.Name()})
		return err
	}

	o.logger.ErrorContext(ctx, "command source failed",
		slog.String("source", src.Name()),
		slog.String("error", err.Error()),
	)
	observability.Emit(ctx, o.observer, EventSourceFailed, observability.LevelError, "orchestrator.pump",
		map[string]any{"source": src.Name(), "error": err.Error()})
	return fmt.Errorf("source %s: %w", src.Name(), err)
}

func (o *Orchestrator) pumpCommands(ctx context.Context, src Source) error {
	for {
		cmd, err := src.Produce(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if cmd == nil {
			continue
		}
		if cmd.Source == nil {
			cmd.Source = src
		}

		o.Dispatch(cmd)

		if _, err := cmd.Wait(ctx); err != nil {
			return err
		}
	}
}
