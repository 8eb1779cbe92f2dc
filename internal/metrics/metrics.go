// Package metrics exposes Prometheus instrumentation for the lookup server.
//
// Each Metrics value owns its registry, so servers built in tests do not
// collide on the global default registerer.
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "verbum"

// Metrics holds the server's collectors.
type Metrics struct {
	registry *prometheus.Registry

	// RequestsTotal counts HTTP requests. Labels: endpoint, status.
	RequestsTotal *prometheus.CounterVec
	// RequestDuration observes handler latency. Labels: endpoint.
	RequestDuration *prometheus.HistogramVec
	// ResolutionsTotal counts book resolutions. Labels: match
	// (exact, alias, fuzzy, none).
	ResolutionsTotal *prometheus.CounterVec
	// NavigationsTotal counts next/prev steps. Labels: direction, result
	// (ok, at_start, at_end, no_history).
	NavigationsTotal *prometheus.CounterVec
	// SearchResults observes the number of matches per search.
	SearchResults prometheus.Histogram
	// SearchCacheHits counts searches answered from the cache.
	SearchCacheHits prometheus.Counter
	// WebSocketSessions tracks open reader sessions.
	WebSocketSessions prometheus.Gauge
	// CorpusVerses is the number of verses in the loaded corpus.
	CorpusVerses prometheus.Gauge
}

// New creates Metrics registered on a fresh registry that also carries the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		}, []string{"endpoint", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP handler latency.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"endpoint"}),
		ResolutionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "book_resolutions_total",
			Help:      "Book name resolutions by match kind.",
		}, []string{"match"}),
		NavigationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "navigations_total",
			Help:      "Next/prev navigation steps by direction and result.",
		}, []string{"direction", "result"}),
		SearchResults: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "results",
			Help:      "Matches returned per keyword search.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		SearchCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "cache_hits_total",
			Help:      "Searches answered from the result cache.",
		}),
		WebSocketSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "sessions",
			Help:      "Open websocket reader sessions.",
		}),
		CorpusVerses: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "corpus_verses",
			Help:      "Verses in the loaded corpus.",
		}),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(endpoint string, status int, d time.Duration) {
	m.RequestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// Middleware records request counts and latency for next under endpoint.
func (m *Metrics) Middleware(endpoint string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		m.ObserveRequest(endpoint, sw.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Hijack lets websocket upgrades pass through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
