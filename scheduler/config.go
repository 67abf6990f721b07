package scheduler

import (
	"log/slog"
	"time"

	"github.com/tailored-agentic-units/phf/observability"
)

// Config defines configuration for a Scheduler instance.
type Config struct {
	// Scheduler identity, used in logs and events
	Name string `yaml:"name"`

	// Upper bound on how long Shutdown waits for tasks to return
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Observability
	Logger   *slog.Logger           `yaml:"-"`
	Observer observability.Observer `yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Name:            "default",
		ShutdownTimeout: 5 * time.Second,
		Logger:          slog.Default(),
		Observer:        observability.NoOpObserver{},
	}
}

func (c *Config) Merge(source *Config) {
	if source.Name != "" {
		c.Name = source.Name
	}

	if source.ShutdownTimeout > 0 {
		c.ShutdownTimeout = source.ShutdownTimeout
	}

	if source.Logger != nil {
		c.Logger = source.Logger
	}

	if source.Observer != nil {
		c.Observer = source.Observer
	}
}
