package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const (
	OutcomeFilled   = "filled"
	OutcomePartial  = "partial"
	OutcomeRejected = "rejected"

	ResultOK = "ok"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	// result is "ok" or the error kind name, e.g. "CrossedBook"
	SnapshotsTotal *prometheus.CounterVec
	OrdersTotal    *prometheus.CounterVec
	// filled / requested for every executed order
	FillRatio        prometheus.Histogram
	LevelsConsumed   prometheus.Histogram
	RequestLatencyMs *prometheus.HistogramVec
	InFlight         prometheus.Gauge
}

func New(logger zerolog.Logger) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		SnapshotsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "orderbook_snapshots_total", Help: "Snapshots parsed by result"},
			[]string{"result"},
		),
		OrdersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "market_orders_total", Help: "Market orders by side and outcome"},
			[]string{"side", "outcome"},
		),
		FillRatio: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "market_order_fill_ratio", Help: "Filled quantity over requested quantity",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		LevelsConsumed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "market_order_levels_consumed", Help: "Price levels touched per market order",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		}),
		RequestLatencyMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "http_request_latency_ms", Help: "HTTP request latency by route",
			Buckets: prometheus.LinearBuckets(1, 5, 40),
		}, []string{"method", "route", "status"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{Name: "http_requests_in_flight", Help: "Requests currently being served"}),
	}

	toRegister := []prometheus.Collector{
		m.SnapshotsTotal, m.OrdersTotal, m.FillRatio, m.LevelsConsumed,
		m.RequestLatencyMs, m.InFlight,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		m.Registry.MustRegister(c)
	}
	logger.Debug().Msg("Prometheus metrics initialized")
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
}
