package provider

import (
	"context"
	"fmt"

	"github.com/tailored-agentic-units/phf/messaging"
	"github.com/tailored-agentic-units/phf/scheduler"
)

// Complex takes its content from a foreign caller through a message system
// and answers every request under the request's correlation id. It always
// aggregates.
//
//	p, _ := provider.NewComplex(provider.WithPostprocess(first))
//	p.AddHook(square)
//	p.Start(sched)
//	answer, _ := p.MessageSystem().SendWaitAnswer(ctx, 7) // 49
type Complex struct {
	base
	system      *messaging.System
	preprocess  Preprocess
	postprocess Postprocess
}

// NewComplex creates a Complex provider together with its message system.
// Without a postprocess step the answer is the ordered result list itself.
func NewComplex(opts ...Option) (*Complex, error) {
	o := newOptions(KindComplex, opts)
	c := &Complex{
		system: messaging.New(
			messaging.WithLogger(o.logger),
			messaging.WithObserver(o.observer),
		),
		preprocess:  o.preprocess,
		postprocess: o.postprocess,
	}
	c.init(KindComplex, o, true)
	return c, nil
}

// MessageSystem returns the system foreign callers send requests through.
// Requests sent before Start are buffered.
func (c *Complex) MessageSystem() *messaging.System {
	return c.system
}

// Start initializes the message system on sched and starts the cycle. The
// system is stopped again when the cycle ends, waking any waiting caller.
func (c *Complex) Start(sched *scheduler.Scheduler) error {
	return c.start(sched, func(ctx context.Context) error {
		requests, responses, err := c.system.Initialize(sched)
		if err != nil {
			return err
		}
		defer c.system.Stop()

		for {
			msg, err := requests.Get(ctx)
			if err != nil {
				return err
			}

			result, err := c.answer(ctx, msg.Data)
			if err != nil {
				return fmt.Errorf("message %d: %w", msg.ID, err)
			}
			responses.Put(messaging.Response{ID: msg.ID, Result: result})
		}
	})
}

func (c *Complex) answer(ctx context.Context, data any) (any, error) {
	if c.preprocess != nil {
		var err error
		if data, err = c.preprocess(ctx, data); err != nil {
			return nil, fmt.Errorf("preprocess: %w", err)
		}
	}

	results, err := c.process(ctx, data)
	if err != nil {
		return nil, err
	}

	if err := c.complete(ctx, results); err != nil {
		return nil, err
	}

	if c.postprocess == nil {
		return results, nil
	}
	result, err := c.postprocess(ctx, results)
	if err != nil {
		return nil, fmt.Errorf("postprocess: %w", err)
	}
	return result, nil
}
