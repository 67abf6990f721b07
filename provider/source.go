package provider

import "context"

// Source supplies content items to Periodic and Blocking providers. A
// Blocking provider calls Content from its dedicated worker thread, so the
// call may block; it should still return once ctx is done.
type Source interface {
	Content(ctx context.Context) (any, error)
}

// SourceFunc adapts an ordinary function to the Source interface.
type SourceFunc func(ctx context.Context) (any, error)

func (f SourceFunc) Content(ctx context.Context) (any, error) {
	return f(ctx)
}

// ResultCallback receives the aggregated results of one cycle, ordered by
// hook registration index. Supplying one at construction is what makes a
// Periodic or Blocking provider wait for hook results.
type ResultCallback func(ctx context.Context, results []any) error

// Preprocess transforms a Complex provider's request before broadcast.
type Preprocess func(ctx context.Context, data any) (any, error)

// Postprocess turns a Complex provider's aggregated results into the answer
// posted back to the caller.
type Postprocess func(ctx context.Context, results []any) (any, error)
