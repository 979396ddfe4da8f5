// Package metrics exposes the sync engines' counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tuyabridge"

// Collector implements syncengine.Metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	deltas         *prometheus.CounterVec
	updates        *prometheus.CounterVec
	suppressed     *prometheus.CounterVec
	writes         *prometheus.CounterVec
	enginesStarted prometheus.Gauge
}

// New creates a collector and registers it, with a build info gauge, on a
// fresh registry.
func New(version string) *Collector {
	labels := []string{"device_id"}
	c := &Collector{
		registry: prometheus.NewRegistry(),
		deltas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deltas_total",
			Help:      "DP deltas applied per device",
		}, labels),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "property_updates_total",
			Help:      "Property updates pushed to listeners per device",
		}, labels),
		suppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suppressed_updates_total",
			Help:      "Affected properties not pushed because the value was unchanged",
		}, labels),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writes_total",
			Help:      "Property writes per device by result (ok, noop, error)",
		}, []string{"device_id", "result"}),
		enginesStarted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "engines_started",
			Help:      "Sync engines currently started",
		}),
	}

	c.registry.MustRegister(c.deltas, c.updates, c.suppressed, c.writes, c.enginesStarted)
	c.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "build_info",
		Help:        "Build information",
		ConstLabels: prometheus.Labels{"version": version},
	}, func() float64 { return 1 }))

	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// EngineStarted implements syncengine.Metrics.
func (c *Collector) EngineStarted(string) {
	c.enginesStarted.Inc()
}

// EngineStopped implements syncengine.Metrics.
func (c *Collector) EngineStopped(string) {
	c.enginesStarted.Dec()
}

// DeltaApplied implements syncengine.Metrics.
func (c *Collector) DeltaApplied(deviceID string, pushed, suppressed int) {
	c.deltas.WithLabelValues(deviceID).Inc()
	if pushed > 0 {
		c.updates.WithLabelValues(deviceID).Add(float64(pushed))
	}
	if suppressed > 0 {
		c.suppressed.WithLabelValues(deviceID).Add(float64(suppressed))
	}
}

// WriteFinished implements syncengine.Metrics.
func (c *Collector) WriteFinished(deviceID, result string) {
	c.writes.WithLabelValues(deviceID, result).Inc()
}
