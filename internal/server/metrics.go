package server

import "github.com/prometheus/client_golang/prometheus"

// metrics counts request outcomes, modeled on the request/cache-hit/
// nodata-fallback fields of a pmtiles HTTP server's metrics struct.
type metrics struct {
	requests       *prometheus.CounterVec
	nodataFallback prometheus.Counter
	errors         *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rastertiles_requests_total",
			Help: "Tile requests served, by resolve status.",
		}, []string{"status"}),
		nodataFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rastertiles_nodata_fallback_total",
			Help: "Requests that resolved to a nodata tile.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rastertiles_errors_total",
			Help: "Requests that failed, by error kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.requests, m.nodataFallback, m.errors)
	return m
}
