// Package metrics provides Prometheus metrics collection for molder.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for molder. It implements
// molder.Recorder.
type Collector struct {
	// Compilation metrics
	Compilations    *prometheus.CounterVec
	CompileDuration *prometheus.HistogramVec

	// Validation metrics
	Validations        *prometheus.CounterVec
	ValidationDuration *prometheus.HistogramVec
	Violations         *prometheus.CounterVec

	// HTTP metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Reload metrics
	Reloads      prometheus.Counter
	ReloadErrors prometheus.Counter
	LastReload   prometheus.Gauge
	Models       prometheus.Gauge
}

// New creates a collector registered on the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		Compilations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "molder",
				Name:      "compilations_total",
				Help:      "Total number of schema compilations",
			},
			[]string{"model", "source"},
		),
		CompileDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "molder",
				Name:      "compile_duration_seconds",
				Help:      "Schema compilation duration in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
			},
			[]string{"model"},
		),

		Validations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "molder",
				Name:      "validations_total",
				Help:      "Total number of validations",
			},
			[]string{"model", "result"},
		),
		ValidationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "molder",
				Name:      "validation_duration_seconds",
				Help:      "Validation duration in seconds",
				Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
			},
			[]string{"model"},
		),
		Violations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "molder",
				Name:      "violations_total",
				Help:      "Total number of reported violations",
			},
			[]string{"model"},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "molder",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "molder",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "molder",
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being processed",
			},
		),

		Reloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "molder",
				Name:      "reloads_total",
				Help:      "Total number of model reloads",
			},
		),
		ReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "molder",
				Name:      "reload_errors_total",
				Help:      "Total number of failed model reloads",
			},
		),
		LastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "molder",
				Name:      "last_reload_timestamp_seconds",
				Help:      "Unix timestamp of the last successful reload",
			},
		),
		Models: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "molder",
				Name:      "models",
				Help:      "Number of models currently served",
			},
		),
	}
}

// ObserveCompile records one compilation. Cached loads count with source
// "cache" and are not timed.
func (c *Collector) ObserveCompile(model string, d time.Duration, cached bool) {
	if cached {
		c.Compilations.WithLabelValues(model, "cache").Inc()
		return
	}
	c.Compilations.WithLabelValues(model, "compiler").Inc()
	c.CompileDuration.WithLabelValues(model).Observe(d.Seconds())
}

// ObserveValidation records one validation.
func (c *Collector) ObserveValidation(model string, d time.Duration, violations int) {
	result := "valid"
	if violations > 0 {
		result = "invalid"
		c.Violations.WithLabelValues(model).Add(float64(violations))
	}
	c.Validations.WithLabelValues(model, result).Inc()
	c.ValidationDuration.WithLabelValues(model).Observe(d.Seconds())
}

// ObserveRequest records one HTTP request.
func (c *Collector) ObserveRequest(method, route, status string, d time.Duration) {
	c.RequestsTotal.WithLabelValues(method, route, status).Inc()
	c.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordReload records the outcome of a model reload.
func (c *Collector) RecordReload(models int, err error) {
	if err != nil {
		c.ReloadErrors.Inc()
		return
	}
	c.Reloads.Inc()
	c.Models.Set(float64(models))
	c.LastReload.SetToCurrentTime()
}
