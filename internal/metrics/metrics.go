// Package metrics exposes Prometheus metrics for the refresh loop and the
// HTTP host.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cycle outcomes
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
	OutcomeRegistry    = "registry_error"
	OutcomePanic       = "panic"
)

var (
	refreshCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ivao_tracker_refresh_cycles_total",
			Help: "Total number of refresh cycles by outcome.",
		},
		[]string{"outcome"},
	)

	refreshDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ivao_tracker_refresh_duration_seconds",
			Help:    "Refresh cycle duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	trackedFlights = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ivao_tracker_tracked_flights",
			Help: "Rows in the latest published board.",
		},
		[]string{"direction"},
	)

	feedPilots = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ivao_tracker_feed_pilots",
			Help: "Pilots in the latest whazzup snapshot.",
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ivao_tracker_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"route", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ivao_tracker_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)

func init() {
	prometheus.MustRegister(refreshCyclesTotal)
	prometheus.MustRegister(refreshDurationSeconds)
	prometheus.MustRegister(trackedFlights)
	prometheus.MustRegister(feedPilots)
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordCycle records one refresh cycle.
func RecordCycle(outcome string, duration time.Duration) {
	refreshCyclesTotal.WithLabelValues(outcome).Inc()
	refreshDurationSeconds.Observe(duration.Seconds())
}

// SetBoardSize records the size of the latest published board.
func SetBoardSize(departures, arrivals int) {
	trackedFlights.WithLabelValues("departures").Set(float64(departures))
	trackedFlights.WithLabelValues("arrivals").Set(float64(arrivals))
}

// SetFeedPilots records the pilot count of the latest snapshot.
func SetFeedPilots(n int) {
	feedPilots.Set(float64(n))
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request. The chi
// route pattern is used as label so path parameters do not explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
