package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tailored-agentic-units/phf/hook"
	"github.com/tailored-agentic-units/phf/observability"
	"github.com/tailored-agentic-units/phf/provider"
	"github.com/tailored-agentic-units/phf/registry"
)

// registerBuiltins makes the demo hooks and providers creatable by name.
func registerBuiltins(reg *registry.Registry, logger *slog.Logger, obs observability.Observer) error {
	hooks := []struct {
		name    string
		aliases []string
		ctor    func(args registry.Args) (hook.Action, error)
	}{
		{"identity", []string{"echo"}, func(registry.Args) (hook.Action, error) { return handleIdentity, nil }},
		{"double", []string{"x2"}, func(registry.Args) (hook.Action, error) { return handleDouble, nil }},
		{"square", nil, func(registry.Args) (hook.Action, error) { return handleSquare, nil }},
		{"upper", nil, func(registry.Args) (hook.Action, error) { return handleUpper, nil }},
		{"delay", []string{"sleep"}, newDelay},
	}

	for _, h := range hooks {
		ctor := h.ctor
		name, aliases := h.name, h.aliases
		err := reg.RegisterHook(name, aliases, func(args registry.Args) (*hook.Hook, error) {
			action, err := ctor(args)
			if err != nil {
				return nil, err
			}
			return hook.New(name, action,
				hook.WithAliases(aliases...),
				hook.WithLogger(logger),
				hook.WithObserver(obs),
			)
		})
		if err != nil {
			return err
		}
	}

	if err := reg.RegisterProvider("counter", []string{"periodic", "count"}, func(args registry.Args) (provider.Provider, error) {
		start, err := args.IntValue("start", 0)
		if err != nil {
			return nil, err
		}
		period, err := args.Duration("period", time.Second)
		if err != nil {
			return nil, err
		}
		name := args.String("name", "counter")
		return provider.NewPeriodic(counterSource(start),
			provider.WithName(name),
			provider.WithAliases("periodic", "count"),
			provider.WithPeriod(period),
			provider.WithResultCallback(logResults(logger, name)),
			provider.WithLogger(logger),
			provider.WithObserver(obs),
		)
	}); err != nil {
		return err
	}

	if err := reg.RegisterProvider("clock", []string{"blocking"}, func(args registry.Args) (provider.Provider, error) {
		every, err := args.Duration("every", time.Second)
		if err != nil {
			return nil, err
		}
		name := args.String("name", "clock")
		return provider.NewBlocking(clockSource(every),
			provider.WithName(name),
			provider.WithAliases("blocking"),
			provider.WithResultCallback(logResults(logger, name)),
			provider.WithLogger(logger),
			provider.WithObserver(obs),
		)
	}); err != nil {
		return err
	}

	return reg.RegisterProvider("service", []string{"complex"}, func(args registry.Args) (provider.Provider, error) {
		opts := []provider.Option{
			provider.WithName(args.String("name", "service")),
			provider.WithAliases("complex"),
			provider.WithLogger(logger),
			provider.WithObserver(obs),
		}
		if args.String("answer", "all") == "first" {
			opts = append(opts, provider.WithPostprocess(firstResult))
		}
		return provider.NewComplex(opts...)
	})
}

func handleIdentity(ctx context.Context, item any) (any, error) {
	return item, nil
}

func handleDouble(ctx context.Context, item any) (any, error) {
	switch v := item.(type) {
	case int:
		return v * 2, nil
	case float64:
		return v * 2, nil
	case string:
		return v + v, nil
	default:
		return nil, fmt.Errorf("double: unsupported item type %T", item)
	}
}

func handleSquare(ctx context.Context, item any) (any, error) {
	switch v := item.(type) {
	case int:
		return v * v, nil
	case float64:
		return v * v, nil
	default:
		return nil, fmt.Errorf("square: unsupported item type %T", item)
	}
}

func handleUpper(ctx context.Context, item any) (any, error) {
	return strings.ToUpper(fmt.Sprint(item)), nil
}

// newDelay passes items through after waiting "for" (default 100ms).
func newDelay(args registry.Args) (hook.Action, error) {
	d, err := args.Duration("for", 100*time.Millisecond)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, item any) (any, error) {
		select {
		case <-time.After(d):
			return item, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, nil
}

func counterSource(start int) provider.SourceFunc {
	var next atomic.Int64
	next.Store(int64(start))
	return func(ctx context.Context) (any, error) {
		return int(next.Add(1) - 1), nil
	}
}

// clockSource blocks for every and then reports the current time. It runs
// on the Blocking provider's dedicated thread.
func clockSource(every time.Duration) provider.SourceFunc {
	return func(ctx context.Context) (any, error) {
		select {
		case <-time.After(every):
			return time.Now().Format(time.RFC3339), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func firstResult(ctx context.Context, results []any) (any, error) {
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func logResults(logger *slog.Logger, name string) provider.ResultCallback {
	return func(ctx context.Context, results []any) error {
		logger.InfoContext(ctx, "cycle results",
			slog.String("provider", name),
			slog.Any("results", results),
		)
		return nil
	}
}
