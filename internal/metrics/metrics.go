// Package metrics exposes Prometheus collectors for votes and cleanup sweeps.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/studentride/rideshare/backend/internal/domain"
)

const namespace = "rideshare"

// Metrics implements service.Observer and scheduler.SkipRecorder.
type Metrics struct {
	votesCast      *prometheus.CounterVec
	votesWithdrawn prometheus.Counter
	sweepRuns      *prometheus.CounterVec
	sweepMoved     *prometheus.CounterVec
	sweepDuration  prometheus.Histogram
	sweepSkipped   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	gatherer       prometheus.Gatherer
}

// New registers every collector on reg. Pass prometheus.NewRegistry() in
// tests and prometheus.DefaultRegisterer in production.
func New(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		votesCast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_cast_total",
			Help:      "Votes recorded, by decision.",
		}, []string{"decision"}),
		votesWithdrawn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_withdrawn_total",
			Help:      "Votes withdrawn by their voter.",
		}),
		sweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_runs_total",
			Help:      "Expiry sweep passes, by result.",
		}, []string{"result"}),
		sweepMoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_requests_total",
			Help:      "Requests moved by the expiry sweep, by target status.",
		}, []string{"status"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Wall time of successful sweep passes.",
			Buckets:   prometheus.DefBuckets,
		}),
		sweepSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_skipped_total",
			Help:      "Sweep firings dropped because a pass was running here or held the lease elsewhere.",
		}, []string{"reason"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by method, chi route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		gatherer: gatherer,
	}
	reg.MustRegister(m.votesCast, m.votesWithdrawn, m.sweepRuns, m.sweepMoved, m.sweepDuration, m.sweepSkipped, m.httpDuration)
	return m
}

// VoteCast counts a recorded vote under its decision label.
func (m *Metrics) VoteCast(d domain.VoteDecision) {
	m.votesCast.WithLabelValues(string(d)).Inc()
}

// VoteWithdrawn counts a withdrawn vote.
func (m *Metrics) VoteWithdrawn() {
	m.votesWithdrawn.Inc()
}

// SweepFinished counts a successful pass, adds the requests it moved per
// target status, and observes its duration.
func (m *Metrics) SweepFinished(res domain.SweepResult, took time.Duration) {
	m.sweepRuns.WithLabelValues("ok").Inc()
	m.sweepMoved.WithLabelValues(string(domain.StatusExpired)).Add(float64(res.Expired))
	m.sweepMoved.WithLabelValues(string(domain.StatusCompleted)).Add(float64(res.Completed))
	m.sweepDuration.Observe(took.Seconds())
}

// SweepFailed counts a pass that returned an error.
func (m *Metrics) SweepFailed() {
	m.sweepRuns.WithLabelValues("error").Inc()
}

// SweepSkipped counts a dropped firing. reason is one of the scheduler.Skip*
// constants.
func (m *Metrics) SweepSkipped(reason string) {
	m.sweepSkipped.WithLabelValues(reason).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request latency labelled by the matched chi route
// pattern. Requests no route matched share the "unmatched" label.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		m.httpDuration.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Observe(time.Since(start).Seconds())
	})
}
