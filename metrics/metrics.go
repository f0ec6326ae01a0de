// Package metrics records request pipeline activity with Prometheus collectors.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/habedi/paydash/auth"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "paydash"

// Collector implements auth.Metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	refresh  *prometheus.CounterVec
	signOuts *prometheus.CounterVec
}

var _ auth.Metrics = (*Collector)(nil)

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "API calls made through the request pipeline, by method and outcome.",
		}, []string{"method", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Wall time of pipeline calls, including any refresh and retry.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		refresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refresh_total",
			Help:      "Access credential refresh attempts, by result.",
		}, []string{"result"}),
		signOuts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forced_signouts_total",
			Help:      "Sessions cleared by the pipeline, by reason.",
		}, []string{"reason"}),
	}
	c.registry.MustRegister(c.requests, c.duration, c.refresh, c.signOuts)
	return c
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) ObserveRequest(method, outcome string, elapsed time.Duration) {
	if method == "" {
		method = "GET"
	}
	c.requests.WithLabelValues(method, outcome).Inc()
	c.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (c *Collector) ObserveRefresh(result string) {
	c.refresh.WithLabelValues(result).Inc()
}

func (c *Collector) ObserveSignOut(reason string) {
	c.signOuts.WithLabelValues(reason).Inc()
}

// WriteFile writes the registry in the text exposition format, for the node
// exporter's textfile collector.
func (c *Collector) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics file: %w", err)
	}
	return nil
}
