package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/tailored-agentic-units/phf/scheduler"
)

// Periodic acquires content on the scheduler itself and waits a fixed period
// after every full cycle. The source should not block.
type Periodic struct {
	base
	source Source
	period time.Duration
}

// NewPeriodic creates a Periodic provider polling source. It aggregates hook
// results only when a result callback is supplied.
func NewPeriodic(source Source, opts ...Option) (*Periodic, error) {
	if source == nil {
		return nil, ErrNoSource
	}

	o := newOptions(KindPeriodic, opts)
	p := &Periodic{
		source: source,
		period: o.period,
	}
	p.init(KindPeriodic, o, o.callback != nil)
	return p, nil
}

func (p *Periodic) Period() time.Duration {
	return p.period
}

func (p *Periodic) Start(sched *scheduler.Scheduler) error {
	return p.start(sched, p.run)
}

func (p *Periodic) run(ctx context.Context) error {
	for {
		item, err := p.source.Content(ctx)
		if err != nil {
			return fmt.Errorf("acquire content: %w", err)
		}

		results, err := p.process(ctx, item)
		if err != nil {
			return err
		}

		if err := p.complete(ctx, results); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.period):
		}
	}
}
