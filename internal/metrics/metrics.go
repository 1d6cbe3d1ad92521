package metrics

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ErlanBelekov/task-tracker/internal/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tracker"

var (
	// Auth metrics

	AuthEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_events_total",
		Help:      "Credential lifecycle events, by event and outcome.",
	}, []string{"event", "outcome"})

	// Reminder metrics

	ReminderSweepsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reminder_sweeps_total",
		Help:      "Reminder sweeps, by outcome (completed, failed, skipped_overlap).",
	}, []string{"outcome"})

	ReminderSweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "reminder_sweep_duration_seconds",
		Help:      "Time taken for one reminder sweep.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	RemindersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reminders_total",
		Help:      "Per-task reminder outcomes (sent, failed, skipped, stale).",
	}, []string{"outcome"})

	ReminderLastSweep = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "reminder_last_sweep_timestamp_seconds",
		Help:      "Unix timestamp of the last completed reminder sweep.",
	})

	// Notification metrics

	EmailsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "emails_total",
		Help:      "Outgoing emails, by kind and outcome.",
	}, []string{"kind", "outcome"})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		AuthEventsTotal,
		ReminderSweepsTotal,
		ReminderSweepDuration,
		RemindersTotal,
		ReminderLastSweep,
		EmailsTotal,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// Outcome maps an error onto the "outcome" label.
func Outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// NewServer serves /metrics plus liveness and readiness on a port that is
// kept off the public API.
func NewServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", healthHandler(checker.Liveness))
	mux.HandleFunc("/readyz", healthHandler(checker.Readiness))
	return &http.Server{Addr: addr, Handler: mux}
}

func healthHandler(check func(context.Context) health.HealthResult) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := check(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if result.Status != "up" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(result)
	}
}
