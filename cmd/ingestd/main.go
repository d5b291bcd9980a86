// Command ingestd is the long-running grant-ingestion daemon: it loads
// the source registry, starts the Scheduler's recurring schedules, and
// runs a worker pool that loops nextReadyJob → Orchestrator.Execute →
// updateStatus (spec.md §5). Grounded on the teacher's cmd/server/main.go
// wiring style (env-driven config, a single Fatal-on-startup-error path),
// adapted from an HTTP server bootstrap to a background worker bootstrap.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/david/grant-ingest/internal/classifier"
	"github.com/david/grant-ingest/internal/engines"
	"github.com/david/grant-ingest/internal/model"
	"github.com/david/grant-ingest/internal/observability"
	"github.com/david/grant-ingest/internal/orchestrator"
	"github.com/david/grant-ingest/internal/ports"
	"github.com/david/grant-ingest/internal/processor"
	"github.com/david/grant-ingest/internal/ratelimit"
	"github.com/david/grant-ingest/internal/scheduler"
	"github.com/david/grant-ingest/internal/sourcemgr"
	"github.com/david/grant-ingest/internal/validator"
)

func main() {
	log := observability.NewLogger("ingestd")

	registryPath := getenv("SOURCE_REGISTRY_PATH", "sources.yaml")
	sources, err := sourcemgr.LoadRegistryFile(registryPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", registryPath).Msg("failed to load source registry")
	}

	sourceMgr := sourcemgr.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for _, s := range sources {
		if _, err := sourceMgr.Create(ctx, s); err != nil {
			log.Warn().Err(err).Str("source_id", s.ID).Msg("source rejected: invalid config, not registered")
		}
	}

	limiter := ratelimit.New()
	engineSet := map[model.EngineKind]engines.Engine{
		model.EngineStatic:  engines.NewStaticEngine(limiter),
		model.EngineBrowser: engines.NewBrowserEngine(limiter),
		model.EngineAPI:     engines.NewAPIEngine(limiter),
		model.EnginePDF:     engines.NewPDFEngine(limiter),
	}

	store := ports.NewMemoryGrantStore()
	alerter := ports.NewLogAlerter(log)
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	tracker, err := observability.NewErrorTracker(os.Getenv("SENTRY_DSN"), getenv("ENVIRONMENT", "development"))
	if err != nil {
		log.Warn().Err(err).Msg("error tracker init failed, continuing without it")
		tracker = nil
	}
	defer tracker.Flush(2 * time.Second)

	orch := orchestrator.New(
		orchestrator.Config{
			MaxConcurrentSources: getenvInt("MAX_CONCURRENT_SOURCES", 5),
			EnableClassifier:     true,
			EnableCrossBatch:     true,
		},
		sourceMgr,
		engineSet,
		processor.New(),
		validator.New(),
		classifier.New(),
		store,
		alerter,
		metrics,
		tracker,
		ports.SystemClock{},
	)

	sched := scheduler.New(scheduler.Config{
		MaxConcurrentJobs: getenvInt("MAX_CONCURRENT_JOBS", 5),
		RetryAttempts:     getenvInt("RETRY_ATTEMPTS", 3),
		StuckTimeout:      time.Duration(getenvInt("STUCK_TIMEOUT_SEC", 1800)) * time.Second,
	}, ports.SystemClock{})
	sched.Start()
	defer sched.Stop()

	for _, s := range sources {
		if _, err := sched.ScheduleRecurring(s.ID, s.Frequency, 5); err != nil {
			log.Warn().Err(err).Str("source_id", s.ID).Msg("failed to register recurring schedule")
		}
	}

	numWorkers := getenvInt("MAX_CONCURRENT_JOBS", 5)
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, sched, orch, log)
	}

	healthInterval := time.Duration(getenvInt("HEALTH_CHECK_INTERVAL_SEC", 60)) * time.Second
	retention := time.Duration(getenvInt("JOB_RETENTION_SEC", 86400)) * time.Second
	go runMaintenanceLoop(ctx, sched, sourceMgr, healthInterval, retention, log)

	log.Info().Int("sources", len(sources)).Int("workers", numWorkers).Msg("ingestd started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutdown signal received")
	cancel()
}

func runWorker(ctx context.Context, sched *scheduler.Scheduler, orch *orchestrator.Orchestrator, log zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job := sched.NextReadyJob()
		if job == nil {
			time.Sleep(200 * time.Millisecond)
			continue
		}

		result := orch.Execute(ctx, job)
		log.Info().
			Str("source_id", job.SourceID).
			Int("found", result.TotalFound).
			Int("inserted", result.TotalInserted).
			Int("updated", result.TotalUpdated).
			Int("skipped", result.TotalSkipped).
			Int("errors", len(result.Errors)).
			Dur("duration", result.Duration).
			Msg("job finished")

		switch {
		case job.Metadata.CancelRequested:
			sched.UpdateStatus(job.ID, model.JobCancelled, nil)
		case len(result.Errors) > 0 && result.TotalFound == 0 && result.TotalInserted == 0 && result.TotalUpdated == 0:
			sched.UpdateStatus(job.ID, model.JobFailed, firstErr(result.Errors))
		default:
			sched.UpdateStatus(job.ID, model.JobCompleted, nil)
		}
	}
}

func firstErr(errs []orchestrator.JobError) error {
	if len(errs) == 0 {
		return nil
	}
	return &jobErrWrapper{errs[0]}
}

type jobErrWrapper struct{ e orchestrator.JobError }

func (w *jobErrWrapper) Error() string { return string(w.e.Category) + ": " + w.e.Message }

func runMaintenanceLoop(ctx context.Context, sched *scheduler.Scheduler, sourceMgr *sourcemgr.Manager, healthInterval, retention time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stuck := sched.HealthCheck()
			if len(stuck) > 0 {
				log.Warn().Int("count", len(stuck)).Msg("force-failed stuck jobs")
			}
			sched.CleanupOldJobs(retention)
			for _, s := range sourceMgr.DueForHealthCheck(time.Now()) {
				result := sourceMgr.CheckHealth(ctx, s)
				sourceMgr.UpdateMetrics(s.ID, sourcemgr.MetricsDelta{Success: result.Healthy, ErrorMsg: result.Error}, time.Now())
			}
		}
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
