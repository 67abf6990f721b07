package observability

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Lifecycle suffixes recognised by MetricsObserver. An event whose type ends
// in SuffixStart increments the running gauge of its subject; SuffixStop and
// SuffixFailed decrement it.
const (
	SuffixStart  = ".start"
	SuffixStop   = ".stop"
	SuffixFailed = ".failed"
)

// DurationKey is the Data key carrying a time.Duration that MetricsObserver
// records into the duration histogram for the event type.
const DurationKey = "duration"

// MetricsObserver translates events into Prometheus metrics on a private
// registry:
//
//	phf_events_total{type,level}     every event observed
//	phf_running{subject}             live tasks per subject ("provider", "hook", ...)
//	phf_duration_seconds{type}       events carrying Data["duration"]
type MetricsObserver struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
	running  *prometheus.GaugeVec
	duration *prometheus.HistogramVec
}

// NewMetricsObserver creates a MetricsObserver whose metric names are
// prefixed with namespace ("phf" when empty). Go runtime and process
// collectors are registered alongside.
func NewMetricsObserver(namespace string) *MetricsObserver {
	if namespace == "" {
		namespace = "phf"
	}

	m := &MetricsObserver{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Total number of observability events by type and level",
			},
			[]string{"type", "level"},
		),
		running: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "running",
				Help:      "Number of running tasks by subject",
			},
			[]string{"subject"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "duration_seconds",
				Help:      "Duration reported by events, in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"type"},
		),
	}

	m.registry.MustRegister(
		m.events,
		m.running,
		m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *MetricsObserver) OnEvent(ctx context.Context, event Event) {
	typ := string(event.Type)
	m.events.WithLabelValues(typ, event.Level.String()).Inc()

	subject, _, _ := strings.Cut(typ, ".")
	switch {
	case strings.HasSuffix(typ, SuffixStart):
		m.running.WithLabelValues(subject).Inc()
	case strings.HasSuffix(typ, SuffixStop), strings.HasSuffix(typ, SuffixFailed):
		m.running.WithLabelValues(subject).Dec()
	}

	if d, ok := event.Data[DurationKey].(time.Duration); ok {
		m.duration.WithLabelValues(typ).Observe(d.Seconds())
	}
}

// Registry returns the underlying Prometheus registry.
func (m *MetricsObserver) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *MetricsObserver) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry: m.registry,
	})
}
