package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CyclesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_cycles_total",
		Help: "Completed decision cycles.",
	})

	SignalsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_signals_total",
		Help: "Fused signals by market and direction.",
	}, []string{"market", "signal"})

	OrdersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_orders_total",
		Help: "Orders placed by market and side.",
	}, []string{"market", "side"})

	OrderFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_order_failures_total",
		Help: "Rejected or failed orders by market.",
	}, []string{"market"})

	RiskActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_risk_actions_total",
		Help: "Risk engine exits by reason.",
	}, []string{"reason"})

	CycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bot_cycle_duration_seconds",
		Help:    "Wall time of a full decision cycle.",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		CyclesTotal,
		SignalsTotal,
		OrdersTotal,
		OrderFailuresTotal,
		RiskActionsTotal,
		CycleDuration,
	)
}

// Serve exposes /metrics on addr. Blocks until the listener fails.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
