package provider

import (
	"log/slog"
	"time"

	"github.com/tailored-agentic-units/phf/observability"
)

// DefaultPeriod is the delay a Periodic provider waits after each cycle.
const DefaultPeriod = 5 * time.Second

type options struct {
	name        string
	aliases     []string
	period      time.Duration
	callback    ResultCallback
	preprocess  Preprocess
	postprocess Postprocess
	logger      *slog.Logger
	observer    observability.Observer
}

// Option configures a provider at construction.
type Option func(*options)

func newOptions(kind Kind, opts []Option) options {
	o := options{
		name:     string(kind),
		period:   DefaultPeriod,
		logger:   slog.Default(),
		observer: observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithAliases sets the names a registry knows this provider by.
func WithAliases(aliases ...string) Option {
	return func(o *options) {
		o.aliases = append([]string(nil), aliases...)
	}
}

// WithPeriod sets the delay after every Periodic cycle. Other kinds ignore
// it.
func WithPeriod(period time.Duration) Option {
	return func(o *options) {
		if period > 0 {
			o.period = period
		}
	}
}

// WithResultCallback enables aggregation and hands every cycle's ordered
// results to cb.
func WithResultCallback(cb ResultCallback) Option {
	return func(o *options) {
		o.callback = cb
	}
}

// WithPreprocess is applied by Complex providers to each request.
func WithPreprocess(fn Preprocess) Option {
	return func(o *options) {
		o.preprocess = fn
	}
}

// WithPostprocess is applied by Complex providers to each aggregated result.
func WithPostprocess(fn Postprocess) Option {
	return func(o *options) {
		o.postprocess = fn
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithObserver(observer observability.Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}
