package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application.
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Graph loader metrics
	GraphLoads        *prometheus.CounterVec
	GraphLoadDuration prometheus.Histogram
	GraphNodes        prometheus.Histogram
	PartialFailures   *prometheus.CounterVec

	// Layout metrics
	LayoutsActive    prometheus.Gauge
	LayoutRuns       *prometheus.CounterVec
	LayoutTicks      prometheus.Histogram
	LayoutsDestroyed prometheus.Counter

	// Account metrics
	AccountOps *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry, so tests can build
// as many as they like.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		GraphLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_loads_total",
				Help:      "Connection graph loads by outcome",
			},
			[]string{"outcome"},
		),
		GraphLoadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "graph_load_duration_seconds",
				Help:      "Time spent assembling a connection graph",
				Buckets:   prometheus.DefBuckets,
			},
		),
		GraphNodes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "graph_nodes",
				Help:      "Nodes per loaded graph",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		PartialFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_partial_failures_total",
				Help:      "Graph sub-queries that failed and were replaced by empty results",
			},
			[]string{"query"},
		),
		LayoutsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "layouts_active",
				Help:      "Layout loops currently alive",
			},
		),
		LayoutRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "layout_runs_total",
				Help:      "Finished layout runs by how they ended",
			},
			[]string{"end"},
		),
		LayoutTicks: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "layout_ticks",
				Help:      "Ticks taken by a layout run",
				Buckets:   []float64{10, 25, 50, 100, 150, 200, 250, 300},
			},
		),
		LayoutsDestroyed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "layouts_destroyed_total",
				Help:      "Layout handles torn down",
			},
		),
		AccountOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "account_operations_total",
				Help:      "Account operations by name and status",
			},
			[]string{"operation", "status"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.GraphLoads,
		c.GraphLoadDuration,
		c.GraphNodes,
		c.PartialFailures,
		c.LayoutsActive,
		c.LayoutRuns,
		c.LayoutTicks,
		c.LayoutsDestroyed,
		c.AccountOps,
	)
	return c
}

// GraphLoaded records one Loader.Load call.
func (c *Collector) GraphLoaded(outcome string, nodes, edges int, elapsed time.Duration) {
	c.GraphLoads.WithLabelValues(outcome).Inc()
	c.GraphLoadDuration.Observe(elapsed.Seconds())
	c.GraphNodes.Observe(float64(nodes))
}

// PartialFailure counts a failed sub-query.
func (c *Collector) PartialFailure(query string) {
	c.PartialFailures.WithLabelValues(query).Inc()
}

// LayoutStarted tracks a new layout loop.
func (c *Collector) LayoutStarted() {
	c.LayoutsActive.Inc()
}

// LayoutSettled records the end of a layout run.
func (c *Collector) LayoutSettled(ticks int, hitCeiling bool) {
	end := "converged"
	if hitCeiling {
		end = "ceiling"
	}
	c.LayoutRuns.WithLabelValues(end).Inc()
	c.LayoutTicks.Observe(float64(ticks))
}

// LayoutDestroyed tracks a torn down layout loop.
func (c *Collector) LayoutDestroyed() {
	c.LayoutsActive.Dec()
	c.LayoutsDestroyed.Inc()
}

// AccountOperation counts an account operation outcome.
func (c *Collector) AccountOperation(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.AccountOps.WithLabelValues(op, status).Inc()
}

// GetRegistry returns the Prometheus registry for this collector.
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func statusLabel(status int) string {
	return strconv.Itoa(status)
}
