// Package metrics exposes Prometheus instruments for the strategy pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "events_total", Help: "Market-by-order and trade events ingested"},
		[]string{"type"},
	)
	EventsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "events_rejected_total", Help: "Events dropped as protocol violations"},
		[]string{"reason"},
	)
	RecomputeTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "recompute_passes_total", Help: "Debounced window statistics passes"},
	)
	IndicatorValue = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "indicator_value", Help: "Last published indicator values"},
		[]string{"name"},
	)
	PositionState = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "position_state", Help: "Signal state: -1 short, 0 flat, 1 long"},
	)
	IntentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "intents_total", Help: "Order intents submitted"},
		[]string{"direction", "action"},
	)
)

func init() {
	prometheus.MustRegister(EventsTotal, EventsRejected, RecomputeTotal, IndicatorValue, PositionState, IntentsTotal)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
