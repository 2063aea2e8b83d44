package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "scan_cycles_total", Help: "Completed market scan cycles"},
	)
	APICallsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "market_api_calls_total", Help: "Requests issued against the market data API"},
	)
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sim_trades_total", Help: "Simulated trades executed"},
		[]string{"symbol", "side"},
	)
	PositionsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "sim_positions_open", Help: "Currently open simulated positions"},
	)
	Equity = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "sim_equity", Help: "Portfolio equity including unrealized PnL"},
	)
)

func init() {
	prometheus.MustRegister(CyclesTotal, APICallsTotal, TradesTotal, PositionsOpen, Equity)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}

// Handler exposes the registry for servers that mount /metrics themselves.
func Handler() http.Handler {
	return promhttp.Handler()
}
