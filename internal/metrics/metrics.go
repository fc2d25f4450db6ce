// Package metrics exposes Prometheus counters/histograms/gauges for the
// matching and positions engines. Grounded on the pack's
// metrics/prometheus.go (one package-level Collector registered once,
// namespaced counter/gauge/histogram vecs, a Handler() for /metrics),
// trimmed from the full perp-dex metric surface down to what the two
// engines in this repo actually emit.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	collector     *Collector
	collectorOnce sync.Once
)

// Collector holds every metric exchangesim exports.
type Collector struct {
	TickDuration   *prometheus.HistogramVec
	OrdersTotal    *prometheus.CounterVec
	FillsTotal     *prometheus.CounterVec
	Liquidations   *prometheus.CounterVec
	OpenPositions  prometheus.Gauge
}

// GetCollector returns the process-wide Collector, constructing and
// registering it on first use.
func GetCollector() *Collector {
	collectorOnce.Do(func() {
		collector = newCollector()
	})
	return collector
}

func newCollector() *Collector {
	c := &Collector{
		TickDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "exchangesim",
				Subsystem: "engine",
				Name:      "tick_duration_ms",
				Help:      "Duration of one engine tick in milliseconds",
				Buckets:   []float64{0.5, 1, 5, 10, 25, 50, 100, 250, 500},
			},
			[]string{"engine"},
		),
		OrdersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "exchangesim",
				Subsystem: "orders",
				Name:      "total",
				Help:      "Total orders admitted, by market and side",
			},
			[]string{"market", "side", "type"},
		),
		FillsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "exchangesim",
				Subsystem: "orders",
				Name:      "fills_total",
				Help:      "Total orders filled, by market",
			},
			[]string{"market"},
		),
		Liquidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "exchangesim",
				Subsystem: "positions",
				Name:      "liquidations_total",
				Help:      "Total positions liquidated, by market",
			},
			[]string{"market"},
		),
		OpenPositions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "exchangesim",
				Subsystem: "positions",
				Name:      "open",
				Help:      "Number of currently open positions",
			},
		),
	}

	prometheus.MustRegister(c.TickDuration, c.OrdersTotal, c.FillsTotal, c.Liquidations, c.OpenPositions)
	return c
}

// RecordTick records one engine tick's wall-clock duration.
func (c *Collector) RecordTick(engine string, d time.Duration) {
	c.TickDuration.WithLabelValues(engine).Observe(float64(d.Microseconds()) / 1000.0)
}

// Handler returns the Prometheus scrape handler for mounting at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures elapsed wall-clock time for a single tick.
type Timer struct {
	start time.Time
}

// NewTimer starts a Timer.
func NewTimer() *Timer { return &Timer{start: time.Now()} }

// Elapsed returns the time since the Timer was created.
func (t *Timer) Elapsed() time.Duration { return time.Since(t.start) }
