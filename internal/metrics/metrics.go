// Package metrics records Prometheus metrics for bundle builds.
//
// Each Metrics owns a registry so that repeated builds in one process (as in
// watch mode) never collide on registration. The collected values can be
// exported for the node exporter textfile collector with WriteTextfile.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures Metrics.
type Config struct {
	// Namespace is the metrics namespace (default: "vbundle").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for task duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: a new registry.
	Registry *prometheus.Registry
}

// Option configures Metrics.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// Metrics holds the build metrics. A nil *Metrics discards observations.
type Metrics struct {
	registry *prometheus.Registry

	filesTotal    *prometheus.CounterVec
	taskDuration  *prometheus.HistogramVec
	bytesBefore   *prometheus.CounterVec
	bytesAfter    *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	buildsTotal   *prometheus.CounterVec
	buildDuration prometheus.Gauge
	lastSuccess   prometheus.Gauge
}

// New creates and registers the build metrics.
func New(opts ...Option) *Metrics {
	config := Config{
		Namespace: "vbundle",
		Buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}

	factory := promauto.With(config.Registry)
	return &Metrics{
		registry: config.Registry,

		filesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "files_total",
			Help:        "Files processed per phase and outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"phase", "status"}),

		taskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "task_duration_seconds",
			Help:        "Transform task duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"phase"}),

		bytesBefore: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "input_bytes_total",
			Help:        "Bytes read by each phase",
			ConstLabels: config.ConstLabels,
		}, []string{"phase"}),

		bytesAfter: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "output_bytes_total",
			Help:        "Bytes written by each phase",
			ConstLabels: config.ConstLabels,
		}, []string{"phase"}),

		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "cache_lookups_total",
			Help:        "Build cache lookups by result",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		buildsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "builds_total",
			Help:        "Completed builds by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		buildDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "last_build_duration_seconds",
			Help:        "Duration of the most recent build",
			ConstLabels: config.ConstLabels,
		}),

		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "last_success_timestamp_seconds",
			Help:        "Unix time of the most recent successful build",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveTask records one finished task.
func (m *Metrics) ObserveTask(phase string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "failed"
	}
	m.filesTotal.WithLabelValues(phase, status).Inc()
	m.taskDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// ObserveBytes records the bytes a phase consumed and produced.
func (m *Metrics) ObserveBytes(phase string, before, after int64) {
	if m == nil {
		return
	}
	m.bytesBefore.WithLabelValues(phase).Add(float64(before))
	m.bytesAfter.WithLabelValues(phase).Add(float64(after))
}

// ObserveCache records cache counters at the end of a build.
func (m *Metrics) ObserveCache(hits, misses, remoteHits int64) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues("hit").Add(float64(hits))
	m.cacheLookups.WithLabelValues("miss").Add(float64(misses))
	m.cacheLookups.WithLabelValues("remote_hit").Add(float64(remoteHits))
}

// ObserveBuild records a finished build.
func (m *Metrics) ObserveBuild(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.buildDuration.Set(d.Seconds())
	if err != nil {
		m.buildsTotal.WithLabelValues("failed").Inc()
		return
	}
	m.buildsTotal.WithLabelValues("ok").Inc()
	m.lastSuccess.SetToCurrentTime()
}

// WriteTextfile writes the metrics in the text exposition format for the
// node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
