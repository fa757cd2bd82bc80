// Package metrics exposes Prometheus collectors for the inspector: queries
// and their render time, output cache hits, string heuristic matches,
// document deliveries and the dashboard's HTTP traffic.
//
// Each Collector owns its registry so several inspectors (and tests) can
// live in one process. A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "refscope"

type Collector struct {
	registry *prometheus.Registry

	// Queries counts rendered queries. Labels: format
	Queries *prometheus.CounterVec
	// RenderSeconds measures query duration. Labels: format
	RenderSeconds *prometheus.HistogramVec
	// CacheLookups counts output cache lookups. Labels: result (hit, miss)
	CacheLookups *prometheus.CounterVec
	// HeuristicMatches counts string annotations. Labels: kind
	HeuristicMatches *prometheus.CounterVec
	// Deliveries counts documents handed to sinks. Labels: sink, status
	Deliveries *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Rendered queries by output format",
		}, []string{"format"}),
		RenderSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_seconds",
			Help:      "Time spent rendering a query",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"format"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Output cache lookups by result",
		}, []string{"result"}),
		HeuristicMatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heuristic_matches_total",
			Help:      "String heuristic matches by kind",
		}, []string{"kind"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Documents delivered to sinks by status",
		}, []string{"sink", "status"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Dashboard HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_seconds",
			Help:      "Dashboard HTTP request duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		HTTPInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Dashboard HTTP requests being served",
		}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		c.Queries,
		c.RenderSeconds,
		c.CacheLookups,
		c.HeuristicMatches,
		c.Deliveries,
		c.HTTPRequests,
		c.HTTPDuration,
		c.HTTPInFlight,
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) ObserveQuery(format string, d time.Duration) {
	if c == nil {
		return
	}
	c.Queries.WithLabelValues(format).Inc()
	c.RenderSeconds.WithLabelValues(format).Observe(d.Seconds())
}

func (c *Collector) ObserveCache(hits, misses int) {
	if c == nil {
		return
	}
	if hits > 0 {
		c.CacheLookups.WithLabelValues("hit").Add(float64(hits))
	}
	if misses > 0 {
		c.CacheLookups.WithLabelValues("miss").Add(float64(misses))
	}
}

func (c *Collector) ObserveMatch(kind string) {
	if c == nil {
		return
	}
	c.HeuristicMatches.WithLabelValues(kind).Inc()
}

func (c *Collector) ObserveDelivery(sink string, err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.Deliveries.WithLabelValues(sink, status).Inc()
}
