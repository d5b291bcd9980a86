// Package observability wires structured logging, metrics, and error
// tracking for the ingestion engine. Grounded on the teacher's plain `log`
// usage in cmd/server/main.go, generalized to the corpus's structured
// stack: zerolog for logs (as other pack repos do), prometheus/
// client_golang for metrics, and sentry-go for error tracking.
package observability

import (
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// NewLogger returns a console-friendly zerolog.Logger for the ingestion
// daemon; JSON in production would swap ConsoleWriter for os.Stdout.
func NewLogger(component string) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

// Metrics is the set of Prometheus collectors the Orchestrator publishes
// to. JobsCompleted and JobsFailed are registered, but nothing in this
// module increments them.
type Metrics struct {
	JobsCompleted   *prometheus.CounterVec
	JobsFailed      *prometheus.CounterVec
	GrantsInserted  prometheus.Counter
	GrantsUpdated   prometheus.Counter
	GrantsSkipped   prometheus.Counter
	ScrapeDuration  *prometheus.HistogramVec
	ErrorsByCategory *prometheus.CounterVec
}

// NewMetrics registers all collectors against the given registerer (pass
// prometheus.DefaultRegisterer in production, a fresh prometheus.NewRegistry()
// in tests).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		JobsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_jobs_completed_total",
			Help: "Jobs that reached the completed state, by source.",
		}, []string{"source_id"}),
		JobsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_jobs_failed_total",
			Help: "Jobs that reached the failed state, by source.",
		}, []string{"source_id"}),
		GrantsInserted: factory.NewCounter(prometheus.CounterOpts{
			Name: "ingest_grants_inserted_total",
			Help: "Grants newly inserted into the store.",
		}),
		GrantsUpdated: factory.NewCounter(prometheus.CounterOpts{
			Name: "ingest_grants_updated_total",
			Help: "Grants updated in the store after change detection.",
		}),
		GrantsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "ingest_grants_skipped_total",
			Help: "Grants skipped as unchanged duplicates.",
		}),
		ScrapeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ingest_scrape_duration_seconds",
			Help:    "Wall-clock duration of a single source scrape.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source_id", "engine"}),
		ErrorsByCategory: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_errors_total",
			Help: "Errors observed during ingestion, by category.",
		}, []string{"category"}),
	}
}

// ErrorTracker forwards job-fatal errors to Sentry. A nil *sentry.Client
// (e.g. when SENTRY_DSN is unset) degrades to a no-op.
type ErrorTracker struct {
	hub *sentry.Hub
}

// NewErrorTracker initializes Sentry from SENTRY_DSN and returns a tracker
// bound to the current hub. Call sentry.Init error is surfaced so startup
// can decide whether to continue without error tracking.
func NewErrorTracker(dsn, environment string) (*ErrorTracker, error) {
	if dsn == "" {
		return &ErrorTracker{}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, Environment: environment}); err != nil {
		return nil, err
	}
	return &ErrorTracker{hub: sentry.CurrentHub()}, nil
}

// Capture reports err with structured tags (category, source) to Sentry.
func (t *ErrorTracker) Capture(err error, category, sourceID string) {
	if t == nil || t.hub == nil || err == nil {
		return
	}
	t.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("category", category)
		scope.SetTag("source_id", sourceID)
		t.hub.CaptureException(err)
	})
}

// Flush blocks up to timeout waiting for buffered Sentry events to send.
func (t *ErrorTracker) Flush(timeout time.Duration) {
	if t == nil || t.hub == nil {
		return
	}
	if client := t.hub.Client(); client != nil {
		client.Flush(timeout)
	}
}
