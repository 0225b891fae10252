// Package metrics holds the Prometheus collectors for the HTTP layer and the posting paths.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "branchpos"

// Metrics owns a private registry so tests and multiple servers never collide on
// the global default registerer.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	salesPosted   *prometheus.CounterVec
	salesTotal    *prometheus.CounterVec
	purchases     prometheus.Counter
	stockRejected *prometheus.CounterVec
	reversals     *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		salesPosted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_posted_total",
			Help:      "Sales committed, by kind (sale or pos).",
		}, []string{"kind"}),
		salesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_amount_total",
			Help:      "Sum of committed sale totals, by kind.",
		}, []string{"kind"}),
		purchases: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchases_posted_total",
			Help:      "Purchases committed.",
		}),
		stockRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_rejections_total",
			Help:      "Postings or reversals refused because stock would go negative.",
		}, []string{"operation"}),
		reversals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_reversed_total",
			Help:      "Sales and purchases deleted with their stock effect reversed.",
		}, []string{"document"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer exposes the registry to exposition tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// SalePosted records a committed sale. total is the sale total in major currency units.
func (m *Metrics) SalePosted(kind string, total float64) {
	if m == nil {
		return
	}
	m.salesPosted.WithLabelValues(kind).Inc()
	m.salesTotal.WithLabelValues(kind).Add(total)
}

func (m *Metrics) PurchasePosted() {
	if m == nil {
		return
	}
	m.purchases.Inc()
}

// StockRejected records a refused operation: "sale", "pos" or "purchase_reversal".
func (m *Metrics) StockRejected(operation string) {
	if m == nil {
		return
	}
	m.stockRejected.WithLabelValues(operation).Inc()
}

// Reversed records a deleted document: "sale" or "purchase".
func (m *Metrics) Reversed(document string) {
	if m == nil {
		return
	}
	m.reversals.WithLabelValues(document).Inc()
}
