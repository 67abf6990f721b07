package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Operation is what a command does to the orchestrator when applied.
type Operation interface {
	Apply(ctx context.Context, o *Orchestrator) (any, error)
}

// OperationFunc adapts an ordinary function to the Operation interface.
type OperationFunc func(ctx context.Context, o *Orchestrator) (any, error)

func (f OperationFunc) Apply(ctx context.Context, o *Orchestrator) (any, error) {
	return f(ctx, o)
}

// Result is the outcome of applying a command, delivered back to the
// source that produced it.
type Result struct {
	CommandID uuid.UUID
	Value     any
	Err       error
}

// Command is a self-contained request to change or inspect the
// orchestrator. It can be executed exactly once.
type Command struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Source    Source

	op Operation

	mu       sync.Mutex
	executed bool
	done     chan struct{}
	result   Result
}

// NewCommand creates a command applying op. src may be nil when no one
// waits for the result.
func NewCommand(op Operation, src Source) *Command {
	id := uuid.Must(uuid.NewV7())
	return &Command{
		ID:        id,
		CreatedAt: time.Now(),
		Source:    src,
		op:        op,
		done:      make(chan struct{}),
		result:    Result{CommandID: id},
	}
}

func (c *Command) Operation() Operation {
	return c.op
}

func (c *Command) Executed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.executed
}

// Execute applies the command to o. A second call fails with
// ErrAlreadyExecuted without applying anything.
func (c *Command) Execute(ctx context.Context, o *Orchestrator) (any, error) {
	c.mu.Lock()
	if c.executed {
		c.mu.Unlock()
		return nil, ErrAlreadyExecuted
	}
	c.executed = true
	c.mu.Unlock()

	var (
		value any
		err   error
	)
	if c.op == nil {
		err = ErrNotImplemented
	} else {
		value, err = c.op.Apply(ctx, o)
	}

	c.result.Value = value
	c.result.Err = err
	close(c.done)

	return value, err
}

// Wait blocks until the command has been executed or ctx is done.
func (c *Command) Wait(ctx context.Context) (Result, error) {
	select {
	case <-c.done:
		return c.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
