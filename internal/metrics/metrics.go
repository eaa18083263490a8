// Registers:
//
//	#airdemand_generation_total{source,outcome}
//	#airdemand_generation_seconds{source}
//	#go_* and process_* runtime metrics
//
// on a private registry served by the dashboard at /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"airdemand/logger"
)

// Data sources and outcomes reported for each market data request.
const (
	SourceModel = "model"
	SourceMock  = "mock"

	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeCanceled = "canceled"
)

// Collector owns the Prometheus instruments for market data generation.
type Collector struct {
	registry   *prometheus.Registry
	generation *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	log        *logger.Log
}

// NewCollector builds a collector on its own registry so that several
// instances (one per test, for example) never collide.
func NewCollector(log *logger.Log) *Collector {
	if log == nil {
		log = logger.GetLogger()
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		generation: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "airdemand_generation_total",
				Help: "Market data requests by data source and outcome",
			},
			[]string{"source", "outcome"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "airdemand_generation_seconds",
				Help:    "Time spent producing market data",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 20, 30},
			},
			[]string{"source"},
		),
		log: log,
	}

	c.registry.MustRegister(c.generation, c.latency)
	c.registry.MustRegister(collectors.NewGoCollector())
	c.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return c
}

// ObserveGeneration records one finished request and emits it as a metric
// event for any registered handlers.
func (c *Collector) ObserveGeneration(source, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.generation.WithLabelValues(source, outcome).Inc()
	c.latency.WithLabelValues(source).Observe(d.Seconds())

	EmitMetric(c.log, "provider", "generation_duration_ms", float64(d.Milliseconds()), "gauge", logger.Fields{
		"source":  source,
		"outcome": outcome,
	})
}

// Handler exposes the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry gives tests access to the gathered families.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
