// Package metrics exposes HTTP and domain counters in the Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns a private registry so several servers can coexist in one
// process. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry       *prometheus.Registry
	requestCounter *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	recipeEvents   *prometheus.CounterVec
	voteEvents     *prometheus.CounterVec
	rateLimited    prometheus.Counter
}

// New builds a Recorder with Go runtime and process collectors attached.
func New() *Recorder {
	registry := prometheus.NewRegistry()

	requestCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vapex_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	requestLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vapex_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	recipeEvents := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vapex_recipe_events_total",
			Help: "Recipe lifecycle events",
		},
		[]string{"event"},
	)

	voteEvents := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vapex_vote_events_total",
			Help: "Vote ledger changes",
		},
		[]string{"action"},
	)

	rateLimited := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vapex_rate_limited_requests_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		requestCounter,
		requestLatency,
		recipeEvents,
		voteEvents,
		rateLimited,
	)

	return &Recorder{
		registry:       registry,
		requestCounter: requestCounter,
		requestLatency: requestLatency,
		recipeEvents:   recipeEvents,
		voteEvents:     voteEvents,
		rateLimited:    rateLimited,
	}
}

// Handler serves the registry.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Middleware records count and latency for requests served by next under
// the given endpoint label.
func (r *Recorder) Middleware(endpoint string, next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, req)

		r.requestLatency.WithLabelValues(req.Method, endpoint).Observe(time.Since(start).Seconds())
		r.requestCounter.WithLabelValues(req.Method, endpoint, strconv.Itoa(rw.statusCode)).Inc()
	})
}

// RecipeEvent counts a recipe lifecycle event such as "created" or "viewed".
func (r *Recorder) RecipeEvent(event string) {
	if r == nil {
		return
	}
	r.recipeEvents.WithLabelValues(event).Inc()
}

// VoteEvent counts a ledger change such as "like" or "rating".
func (r *Recorder) VoteEvent(action string) {
	if r == nil {
		return
	}
	r.voteEvents.WithLabelValues(action).Inc()
}

// RateLimited counts a rejected request.
func (r *Recorder) RateLimited() {
	if r == nil {
		return
	}
	r.rateLimited.Inc()
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}
