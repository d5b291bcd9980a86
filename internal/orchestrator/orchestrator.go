// Package orchestrator drives the per-job pipeline described in
// spec.md §4.9: SourceManager → Engine → Processor → Validator →
// Classifier → Deduplicator → GrantStore, gated by a semaphore sized to
// maxConcurrentSources so a burst of jobs against one source cannot
// overwhelm it. Grounded on the teacher's end-to-end run loop in
// internal/ingest/pipeline.go (Fetch → Normalize → Validate → Save),
// generalized to the spec's richer multi-stage pipeline and explicit
// error taxonomy.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/david/grant-ingest/internal/classifier"
	"github.com/david/grant-ingest/internal/dedup"
	"github.com/david/grant-ingest/internal/engines"
	"github.com/david/grant-ingest/internal/model"
	"github.com/david/grant-ingest/internal/observability"
	"github.com/david/grant-ingest/internal/ports"
	"github.com/david/grant-ingest/internal/processor"
	"github.com/david/grant-ingest/internal/sourcemgr"
	"github.com/david/grant-ingest/internal/validator"
)

// ScrapingResult is the Orchestrator's per-job verdict (spec.md §4.9).
type ScrapingResult struct {
	SourceID      string
	TotalFound    int
	TotalInserted int
	TotalUpdated  int
	TotalSkipped  int
	Errors        []JobError
	Duration      time.Duration
	Metadata      map[string]any
}

// Config wires an Orchestrator's collaborators. EnableClassifier and
// EnableCrossBatch are feature flags per spec.md §4.9 steps 5 and 6 ("optional").
type Config struct {
	MaxConcurrentSources int
	EnableClassifier     bool
	EnableCrossBatch     bool
}

// Orchestrator executes Jobs against its wired Source, Engine, Processor,
// Validator, Classifier, Deduplicator and GrantStore. Each Execute call
// runs one Job; up to MaxConcurrentSources calls proceed at once.
type Orchestrator struct {
	sources    *sourcemgr.Manager
	engines    map[model.EngineKind]engines.Engine
	processor  *processor.Processor
	validator  *validator.Validator
	classifier *classifier.Classifier
	store      ports.GrantStore
	alerter    ports.Alerter
	metrics    *observability.Metrics
	tracker    *observability.ErrorTracker
	clock      ports.Clock
	sem        *semaphore.Weighted
	cfg        Config
}

// New constructs an Orchestrator. engineSet maps each EngineKind the
// deployment supports to its concrete Engine.
func New(
	cfg Config,
	sources *sourcemgr.Manager,
	engineSet map[model.EngineKind]engines.Engine,
	proc *processor.Processor,
	val *validator.Validator,
	cls *classifier.Classifier,
	store ports.GrantStore,
	alerter ports.Alerter,
	metrics *observability.Metrics,
	tracker *observability.ErrorTracker,
	clock ports.Clock,
) *Orchestrator {
	if cfg.MaxConcurrentSources <= 0 {
		cfg.MaxConcurrentSources = 5
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Orchestrator{
		sources:    sources,
		engines:    engineSet,
		processor:  proc,
		validator:  val,
		classifier: cls,
		store:      store,
		alerter:    alerter,
		metrics:    metrics,
		tracker:    tracker,
		clock:      clock,
		sem:        semaphore.NewWeighted(int64(cfg.MaxConcurrentSources)),
		cfg:        cfg,
	}
}

// Execute runs the full pipeline for one Job and returns its result. It
// never returns an error itself — all failures are captured as JobErrors
// on the result, which the caller (a Scheduler worker) inspects to decide
// completed vs. failed.
func (o *Orchestrator) Execute(ctx context.Context, job *model.Job) ScrapingResult {
	start := o.clock.Now()
	result := ScrapingResult{SourceID: job.SourceID, Metadata: map[string]any{}}

	if err := o.sem.Acquire(ctx, 1); err != nil {
		result.Errors = append(result.Errors, o.recordError(job.SourceID, err))
		result.Duration = o.clock.Now().Sub(start)
		return result
	}
	defer o.sem.Release(1)

	source, ok := o.sources.GetActive(job.SourceID)
	if !ok || job.Metadata.CancelRequested {
		result.Errors = append(result.Errors, JobError{
			Category:   ErrorValidation,
			Message:    "source missing, inactive, or job cancelled",
			OccurredAt: o.clock.Now(),
		})
		result.Duration = o.clock.Now().Sub(start)
		return result
	}

	engine, ok := o.engines[source.Engine]
	if !ok {
		result.Errors = append(result.Errors, o.recordError(job.SourceID, fmt.Errorf("no engine registered for kind %q", source.Engine)))
		result.Duration = o.clock.Now().Sub(start)
		return result
	}

	fetchStart := o.clock.Now()
	raws, err := engine.Fetch(ctx, source)
	if o.metrics != nil {
		o.metrics.ScrapeDuration.WithLabelValues(source.ID, string(source.Engine)).Observe(o.clock.Now().Sub(fetchStart).Seconds())
	}
	if err != nil {
		result.Errors = append(result.Errors, o.recordError(job.SourceID, err))
		o.updateSourceMetrics(source.ID, false, err.Error(), 0)
		result.Duration = o.clock.Now().Sub(start)
		return result
	}
	result.TotalFound = len(raws)

	if job.Metadata.CancelRequested {
		result.Duration = o.clock.Now().Sub(start)
		return result
	}

	survivors := o.process(raws, &result)

	if job.Metadata.CancelRequested {
		result.Duration = o.clock.Now().Sub(start)
		return result
	}

	validated := o.validate(survivors, &result)

	if job.Metadata.CancelRequested {
		result.Duration = o.clock.Now().Sub(start)
		return result
	}

	if o.cfg.EnableClassifier && o.classifier != nil {
		for i := range validated {
			res := o.classifier.Classify(validated[i])
			validated[i].Category = res.Category
			validated[i].Tags = res.Tags
		}
	}

	if job.Metadata.CancelRequested {
		result.Duration = o.clock.Now().Sub(start)
		return result
	}

	deduped := dedup.WithinBatch(validated)
	if o.cfg.EnableCrossBatch {
		deduped = o.crossBatchMerge(ctx, deduped, &result)
	}

	o.persist(ctx, deduped, &result)
	o.updateSourceMetrics(source.ID, true, "", float64(o.clock.Now().Sub(fetchStart).Milliseconds()))

	result.Duration = o.clock.Now().Sub(start)
	return result
}

// process runs every RawGrant through the Processor, logging per-item
// warnings without aborting the job (spec.md §4.9 step 3).
func (o *Orchestrator) process(raws []model.RawGrant, result *ScrapingResult) []model.Grant {
	var out []model.Grant
	var warnings []string
	for _, raw := range raws {
		grant, report := o.processor.Process(raw)
		if len(report.Warnings) > 0 {
			warnings = append(warnings, report.Warnings...)
		}
		out = append(out, grant)
	}
	if len(warnings) > 0 {
		result.Metadata["processing_warnings"] = warnings
	}
	return out
}

// validate drops Grants whose ValidationReport is invalid (spec.md §4.9
// step 4), counting them as skipped.
func (o *Orchestrator) validate(grants []model.Grant, result *ScrapingResult) []model.Grant {
	var out []model.Grant
	for _, g := range grants {
		report := o.validator.Validate(g)
		if !report.Valid {
			result.TotalSkipped++
			continue
		}
		out = append(out, g)
	}
	return out
}

// crossBatchMerge matches each survivor against known candidates for its
// funder and merges it into the best match, if any above threshold
// (spec.md §4.9 step 6).
func (o *Orchestrator) crossBatchMerge(ctx context.Context, grants []model.Grant, result *ScrapingResult) []model.Grant {
	out := make([]model.Grant, 0, len(grants))
	for _, g := range grants {
		candidates, err := o.store.ListCandidatesForFunder(ctx, g.Funder.Name, 10)
		if err != nil {
			result.Errors = append(result.Errors, o.recordError(result.SourceID, err))
			out = append(out, g)
			continue
		}
		matches := dedup.CrossBatchMatch(g, candidates)
		if len(matches) > 0 {
			g = dedup.Merge(g, matches[0].Candidate)
		}
		out = append(out, g)
	}
	return out
}

// persist upserts every survivor, accumulating inserted/updated/skipped
// counts (spec.md §4.9 step 7).
func (o *Orchestrator) persist(ctx context.Context, grants []model.Grant, result *ScrapingResult) {
	for _, g := range grants {
		res, err := o.store.Upsert(ctx, g)
		if err != nil {
			result.Errors = append(result.Errors, o.recordError(result.SourceID, err))
			continue
		}
		switch res.Action {
		case ports.ActionInserted:
			result.TotalInserted++
			if o.metrics != nil {
				o.metrics.GrantsInserted.Inc()
			}
		case ports.ActionUpdated:
			result.TotalUpdated++
			if o.metrics != nil {
				o.metrics.GrantsUpdated.Inc()
			}
		case ports.ActionSkipped:
			result.TotalSkipped++
			if o.metrics != nil {
				o.metrics.GrantsSkipped.Inc()
			}
		}
	}
}

func (o *Orchestrator) updateSourceMetrics(sourceID string, success bool, errMsg string, parseMS float64) {
	if o.sources == nil {
		return
	}
	o.sources.UpdateMetrics(sourceID, sourcemgr.MetricsDelta{
		Success:  success,
		ParseMS:  parseMS,
		ErrorMsg: errMsg,
	}, o.clock.Now())
}

// recordError classifies err, forwards it to metrics/error-tracking, and
// fires a critical alert for authentication/database errors only
// (spec.md §7).
func (o *Orchestrator) recordError(sourceID string, err error) JobError {
	cat := classify(err)
	je := JobError{Category: cat, Message: err.Error(), OccurredAt: o.clock.Now()}

	if o.metrics != nil {
		o.metrics.ErrorsByCategory.WithLabelValues(string(cat)).Inc()
	}
	if o.tracker != nil {
		o.tracker.Capture(err, string(cat), sourceID)
	}
	if o.alerter != nil && (cat == ErrorAuthentication || cat == ErrorDatabase) {
		o.alerter.Notify(context.Background(), ports.SeverityCritical, "ingestion error", map[string]any{
			"source_id": sourceID,
			"category":  string(cat),
			"error":     err.Error(),
		})
	}
	return je
}
