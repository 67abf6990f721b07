// Package orchestrator owns the provider set and the one scheduler they all
// run on, and applies commands from any number of sources strictly one at a
// time.
//
// Providers added before Run start together when Run begins; providers added
// while running start immediately. Commands from every source travel through
// one queue drained by a single loop, so applying a command never races with
// another command.
//
//	o, err := orchestrator.New(&cfg, orchestrator.WithRegistry(reg))
//	o.AddSource(console.New(os.Stdin, os.Stdout, o))
//	err = o.Run(ctx)
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tailored-agentic-units/phf/hook"
	"github.com/tailored-agentic-units/phf/observability"
	"github.com/tailored-agentic-units/phf/provider"
	"github.com/tailored-agentic-units/phf/queue"
	"github.com/tailored-agentic-units/phf/registry"
	"github.com/tailored-agentic-units/phf/scheduler"
)

// Option configures an Orchestrator after config-driven initialization.
type Option func(*Orchestrator)

// WithRegistry sets the registry commands create hooks and providers from.
func WithRegistry(r *registry.Registry) Option {
	return func(o *Orchestrator) { o.registry = r }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver overrides the observer named in the config.
func WithObserver(obs observability.Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observer = obs
		}
	}
}

type Orchestrator struct {
	name     string
	registry *registry.Registry
	logger   *slog.Logger
	observer observability.Observer
	schedCfg scheduler.Config

	mu        sync.RWMutex
	running   bool
	sched     *scheduler.Scheduler
	providers []provider.Provider
	sources   []Source

	commands *queue.Queue[*Command]
	applied  atomic.Int64
}

// New creates an Orchestrator from configuration. Providers declared in cfg
// are created through the registry, so WithRegistry must be supplied when
// cfg declares any.
func New(cfg *Config, opts ...Option) (*Orchestrator, error) {
	merged := DefaultConfig()
	merged.Merge(cfg)

	observer, err := observability.GetObserver(merged.Observer)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}

	o := &Orchestrator{
		name:     merged.Name,
		registry: registry.New(),
		logger:   slog.Default(),
		observer: observer,
		schedCfg: merged.Scheduler,
		commands: queue.New[*Command](),
	}

	for _, opt := range opts {
		opt(o)
	}

	if err := o.Build(merged.Providers); err != nil {
		return nil, err
	}

	return o, nil
}

func (o *Orchestrator) Name() string {
	return o.name
}

func (o *Orchestrator) Registry() *registry.Registry {
	return o.registry
}

// Build creates each declared provider and its hooks through the registry
// and adds them in declaration order.
func (o *Orchestrator) Build(specs []ProviderSpec) error {
	for _, spec := range specs {
		p, err := o.CreateProvider(spec.Name, registry.ParseArgs(spec.Args))
		if err != nil {
			return fmt.Errorf("failed to build provider %q: %w", spec.Name, err)
		}

		for _, hs := range spec.Hooks {
			h, err := o.CreateHook(hs.Name, registry.ParseArgs(hs.Args))
			if err != nil {
				return fmt.Errorf("failed to build hook %q for provider %q: %w", hs.Name, spec.Name, err)
			}
			p.AddHook(h)
		}

		if err := o.AddProvider(p); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) CreateProvider(name string, args registry.Args) (provider.Provider, error) {
	return o.registry.CreateProvider(name, args)
}

func (o *Orchestrator) CreateHook(name string, args registry.Args) (*hook.Hook, error) {
	return o.registry.CreateHook(name, args)
}

// AddProvider registers p. While the orchestrator runs, p is started
// immediately on its scheduler.
func (o *Orchestrator) AddProvider(p provider.Provider) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.providers = append(o.providers, p)
	if !o.running {
		return nil
	}
	if err := p.Start(o.sched); err != nil {
		return fmt.Errorf("failed to start provider %s: %w", p.Name(), err)
	}
	return nil
}

// AddSource registers a command source. Sources start when Run begins.
func (o *Orchestrator) AddSource(src Source) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sources = append(o.sources, src)
}

// Providers returns a copy of the provider list in registration order.
func (o *Orchestrator) Providers() []provider.Provider {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]provider.Provider(nil), o.providers...)
}

// Provider returns the provider at index i.
func (o *Orchestrator) Provider(i int) (provider.Provider, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if i < 0 || i >= len(o.providers) {
		return nil, fmt.Errorf("%w: %d", ErrNoProvider, i)
	}
	return o.providers[i], nil
}

func (o *Orchestrator) Running() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.running
}

// Applied reports how many commands have been applied.
func (o *Orchestrator) Applied() int64 {
	return o.applied.Load()
}

// Dispatch queues cmd for application. Safe to call from any goroutine,
// before or during Run.
func (o *Orchestrator) Dispatch(cmd *Command) {
	o.commands.Put(cmd)
}

// Run creates the scheduler, starts every source and provider on it and
// applies queued commands in arrival order until ctx is done. It returns nil
// after an orderly shutdown. An error from applying a command ends the loop
// and is returned.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrAlreadyRunning
	}

	cfg := o.schedCfg
	cfg.Logger = o.logger
	cfg.Observer = o.observer
	sched := scheduler.New(ctx, cfg)

	o.running = true
	o.sched = sched
	sources := append([]Source(nil), o.sources...)
	providers := append([]provider.Provider(nil), o.providers...)
	o.mu.Unlock()

	defer o.shutdown(sched)

	o.logger.InfoContext(ctx, "orchestrator started",
		slog.String("orchestrator", o.name),
		slog.Int("providers", len(providers)),
		slog.Int("sources", len(sources)),
	)
	observability.Emit(ctx, o.observer, EventOrchestratorStart, observability.LevelInfo, "orchestrator.Run",
		map[string]any{"orchestrator": o.name, "providers": len(providers), "sources": len(sources)})

	for _, src := range sources {
		sched.Go(fmt.Sprintf("source.%s", src.Name()), func(ctx context.Context) error {
			return o.pump(ctx, src)
		})
	}

	for _, p := range providers {
		if err := p.Start(sched); err != nil {
			o.logger.ErrorContext(ctx, "failed to start provider",
				slog.String("provider", p.Name()),
				slog.String("error", err.Error()),
			)
		}
	}

	for {
		cmd, err := o.commands.Get(sched.Context())
		if err != nil {
			observability.Emit(ctx, o.observer, EventOrchestratorStop, observability.LevelInfo, "orchestrator.Run",
				map[string]any{"orchestrator": o.name, "applied": o.applied.Load()})
			return nil
		}

		if err := o.apply(sched.Context(), cmd); err != nil {
			o.logger.ErrorContext(ctx, "command failed, stopping orchestrator",
				slog.String("command", cmd.ID.String()),
				slog.String("error", err.Error()),
			)
			observability.Emit(ctx, o.observer, EventOrchestratorFailed, observability.LevelError, "orchestrator.Run",
				map[string]any{"orchestrator": o.name, "command": cmd.ID.String(), "error": err.Error()})
			return fmt.Errorf("apply command %s: %w", cmd.ID, err)
		}
	}
}

func (o *Orchestrator) apply(ctx context.Context, cmd *Command) error {
	started := time.Now()

	_, err := cmd.Execute(ctx, o)
	o.applied.Add(1)

	if cmd.Source != nil {
		result, _ := cmd.Wait(ctx)
		cmd.Source.Deliver(ctx, result)
	}

	data := map[string]any{"command": cmd.ID.String(), "operation": fmt.Sprintf("%T", cmd.Operation())}
	data[observability.DurationKey] = time.Since(started)
	observability.Emit(ctx, o.observer, EventCommandApplied, observability.LevelVerbose, "orchestrator.apply", data)

	return err
}

func (o *Orchestrator) shutdown(sched *scheduler.Scheduler) {
	if err := sched.Shutdown(0); err != nil {
		o.logger.Warn("orchestrator shutdown incomplete",
			slog.String("orchestrator", o.name),
			slog.String("error", err.Error()),
		)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.running = false
	o.sched = nil
}
