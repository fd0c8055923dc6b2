package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "analyst_signals_total", Help: "Signals emitted by analysts"},
		[]string{"analyst", "stance"},
	)
	AnalystFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "analyst_failures_total", Help: "Analyst evaluations that errored or timed out"},
		[]string{"analyst"},
	)
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "decisions_total", Help: "Decisions applied to the ledger"},
		[]string{"ticker", "action"},
	)
	DataRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "data_requests_total", Help: "Market data requests by provider and kind"},
		[]string{"provider", "kind"},
	)
	PortfolioEquity = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "portfolio_equity", Help: "End-of-day portfolio equity"},
	)
)

func init() {
	prometheus.MustRegister(SignalsTotal, AnalystFailuresTotal, DecisionsTotal, DataRequestsTotal, PortfolioEquity)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
