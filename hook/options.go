package hook

import (
	"log/slog"

	"github.com/tailored-agentic-units/phf/observability"
)

// Option configures a Hook at construction.
type Option func(*Hook)

// WithAliases sets the names a registry knows this hook by.
func WithAliases(aliases ...string) Option {
	return func(h *Hook) {
		h.aliases = append([]string(nil), aliases...)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(h *Hook) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func WithObserver(observer observability.Observer) Option {
	return func(h *Hook) {
		if observer != nil {
			h.observer = observer
		}
	}
}
