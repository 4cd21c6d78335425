package obs

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Metrics groups the service's Prometheus collectors behind a private registry.
type Metrics struct {
	reg *prometheus.Registry

	Requests       *prometheus.CounterVec
	LatencyMS      *prometheus.HistogramVec
	OrdersCreated  *prometheus.CounterVec
	StatusUpdates  *prometheus.CounterVec
	AuthAttempts   *prometheus.CounterVec
	InventoryQueue prometheus.Gauge

	inventoryOnce sync.Once
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		OrdersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders placed, by checkout kind.",
		}, []string{"checkout"}),
		StatusUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_status_updates_total",
			Help:      "Admin order status changes, by target status.",
		}, []string{"status"}),
		AuthAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Register and login attempts, by outcome.",
		}, []string{"endpoint", "result"}),
		InventoryQueue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inventory_queue_depth",
			Help:      "Stock adjustments waiting to be applied.",
		}),
	}
	m.reg.MustRegister(
		m.Requests, m.LatencyMS, m.OrdersCreated, m.StatusUpdates, m.AuthAttempts, m.InventoryQueue,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// InventoryStats reports cumulative inventory queue counters: adjustments
// handed to workers, adjustments applied and adjustments merged into a
// pending one before reaching a worker.
type InventoryStats func() (emitted, applied, merged uint64)

// ObserveInventory exposes stats as counters. Only the first call registers.
func (m *Metrics) ObserveInventory(stats InventoryStats) {
	m.inventoryOnce.Do(func() {
		counter := func(name, help string, pick func(e, a, c uint64) uint64) prometheus.CounterFunc {
			return prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      name,
				Help:      help,
			}, func() float64 { return float64(pick(stats())) })
		}
		m.reg.MustRegister(
			counter("inventory_adjustments_emitted_total", "Stock adjustments handed to workers.",
				func(e, _, _ uint64) uint64 { return e }),
			counter("inventory_adjustments_applied_total", "Stock adjustments processed by workers.",
				func(_, a, _ uint64) uint64 { return a }),
			counter("inventory_adjustments_merged_total", "Stock adjustments folded into a pending one.",
				func(_, _, c uint64) uint64 { return c }),
		)
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
