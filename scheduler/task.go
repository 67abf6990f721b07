package scheduler

import "context"

// Task is one unit of work running on a Scheduler. It finishes when its
// function returns; cancellation is an orderly finish and leaves Err nil.
type Task struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func newTask(name string, cancel context.CancelFunc) *Task {
	return &Task{
		name:   name,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

func (t *Task) Name() string {
	return t.name
}

// Cancel requests the task to stop. It does not wait; use Done or Wait.
func (t *Task) Cancel() {
	t.cancel()
}

func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns the error the task finished with, or nil while it is still
// running or when it finished cleanly.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the task finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Task) finish(err error) {
	t.err = err
	t.cancel()
	close(t.done)
}
