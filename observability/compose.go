package observability

import "context"

// NoOpObserver discards all events with zero overhead.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(ctx context.Context, event Event) {}

// MultiObserver fans out events to multiple observers in registration order.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver creates a MultiObserver that forwards events to all
// non-nil observers.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	return (&MultiObserver{}).With(observers...)
}

// With returns a new MultiObserver that forwards to m's observers followed by
// the given non-nil observers. m itself is not modified.
func (m *MultiObserver) With(observers ...Observer) *MultiObserver {
	combined := make([]Observer, 0, len(m.observers)+len(observers))
	combined = append(combined, m.observers...)
	for _, obs := range observers {
		if obs != nil {
			combined = append(combined, obs)
		}
	}
	return &MultiObserver{observers: combined}
}

func (m *MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m.observers {
		obs.OnEvent(ctx, event)
	}
}

// Combine returns the cheapest Observer equivalent to the non-nil inputs:
// NoOpObserver for none, the observer itself for one, a MultiObserver otherwise.
func Combine(observers ...Observer) Observer {
	multi := NewMultiObserver(observers...)
	switch len(multi.observers) {
	case 0:
		return NoOpObserver{}
	case 1:
		return multi.observers[0]
	default:
		return multi
	}
}
