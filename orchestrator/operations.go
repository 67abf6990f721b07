package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/tailored-agentic-units/phf/messaging"
	"github.com/tailored-agentic-units/phf/provider"
	"github.com/tailored-agentic-units/phf/registry"
)

// ListProviders returns a copy of the provider list.
type ListProviders struct{}

func (ListProviders) Apply(ctx context.Context, o *Orchestrator) (any, error) {
	return o.Providers(), nil
}

// ListHooks returns a copy of the hooks attached to the provider at index
// Provider.
type ListHooks struct {
	Provider int
}

func (op ListHooks) Apply(ctx context.Context, o *Orchestrator) (any, error) {
	p, err := o.Provider(op.Provider)
	if err != nil {
		return nil, err
	}
	return p.Hooks(), nil
}

// NewProvider creates a provider through the registry and adds it, starting
// it when the orchestrator is running.
type NewProvider struct {
	Name string
	Args registry.Args
}

func (op NewProvider) Apply(ctx context.Context, o *Orchestrator) (any, error) {
	p, err := o.CreateProvider(op.Name, op.Args)
	if err != nil {
		return nil, err
	}
	if err := o.AddProvider(p); err != nil {
		return nil, err
	}
	return p, nil
}

// NewHook creates a hook through the registry and attaches it to the
// provider at index Provider.
type NewHook struct {
	Name     string
	Provider int
	Args     registry.Args
}

func (op NewHook) Apply(ctx context.Context, o *Orchestrator) (any, error) {
	p, err := o.Provider(op.Provider)
	if err != nil {
		return nil, err
	}

	h, err := o.CreateHook(op.Name, op.Args)
	if err != nil {
		return nil, err
	}
	p.AddHook(h)
	return h, nil
}

// StopProvider stops the provider at index Provider. Stopping a provider
// that is not running is not an error. The provider stays in the list.
type StopProvider struct {
	Provider int
}

func (op StopProvider) Apply(ctx context.Context, o *Orchestrator) (any, error) {
	p, err := o.Provider(op.Provider)
	if err != nil {
		return nil, err
	}
	if err := p.Stop(); err != nil && !errors.Is(err, provider.ErrNotRunning) {
		return nil, fmt.Errorf("stop provider %s: %w", p.Name(), err)
	}
	return p, nil
}

// messenger is a provider fed through a message system, such as
// *provider.Complex.
type messenger interface {
	MessageSystem() *messaging.System
}

func messageSystem(o *Orchestrator, idx int) (provider.Provider, *messaging.System, error) {
	p, err := o.Provider(idx)
	if err != nil {
		return nil, nil, err
	}
	m, ok := p.(messenger)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s is %s", ErrNoMessaging, p.Name(), p.Kind())
	}
	return p, m.MessageSystem(), nil
}

// Ticket identifies a message handed to a provider's message system.
type Ticket struct {
	Provider string
	ID       int64
}

// SendMessage hands Data to the message system of the provider at index
// Provider and returns its Ticket without waiting for the answer.
type SendMessage struct {
	Provider int
	Data     any
}

func (op SendMessage) Apply(ctx context.Context, o *Orchestrator) (any, error) {
	p, sys, err := messageSystem(o, op.Provider)
	if err != nil {
		return nil, err
	}
	return Ticket{Provider: p.Name(), ID: sys.Send(op.Data)}, nil
}

// Answer is the state of one message's answer. Value is set only when Ready.
type Answer struct {
	ID    int64
	Ready bool
	Value any
}

// FetchAnswer looks up the answer for message ID on the provider at index
// Provider. It never waits; an unanswered message reports Ready false.
type FetchAnswer struct {
	Provider int
	ID       int64
}

func (op FetchAnswer) Apply(ctx context.Context, o *Orchestrator) (any, error) {
	_, sys, err := messageSystem(o, op.Provider)
	if err != nil {
		return nil, err
	}
	value, ok := sys.Result(op.ID)
	return Answer{ID: op.ID, Ready: ok, Value: value}, nil
}
