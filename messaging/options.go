package messaging

import (
	"log/slog"

	"github.com/tailored-agentic-units/phf/observability"
)

type Option func(*System)

func WithLogger(logger *slog.Logger) Option {
	return func(s *System) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithObserver(observer observability.Observer) Option {
	return func(s *System) {
		if observer != nil {
			s.observer = observer
		}
	}
}
