// Package ports declares the narrow external collaborators this engine
// depends on but does not own: persistence, alerting, and time. Spec scope
// stops at these interfaces (spec.md §1) — concrete adapters here are
// reference implementations only (in-memory store, log-based alerter),
// grounded on the teacher's narrow db.Connect/Alert boundary rather than
// its full Postgres+echo stack.
package ports

import (
	"context"
	"time"

	"github.com/david/grant-ingest/internal/model"
)

// UpsertAction is the closed outcome of a GrantStore.Upsert call.
type UpsertAction string

const (
	ActionInserted UpsertAction = "inserted"
	ActionUpdated  UpsertAction = "updated"
	ActionSkipped  UpsertAction = "skipped"
)

// UpsertResult reports what Upsert did and, for updates, the detected change.
type UpsertResult struct {
	Action UpsertAction
	Change *model.ChangeRecord
}

// GrantStore is the persistence port the Orchestrator writes survivors
// through. Implementations decide identity (by DuplicateHash, typically).
type GrantStore interface {
	Upsert(ctx context.Context, grant model.Grant) (UpsertResult, error)
	FindByDuplicateHash(ctx context.Context, hash string) (model.Grant, bool, error)
	ListCandidatesForFunder(ctx context.Context, funderName string, limit int) ([]model.Grant, error)
	ListAll(ctx context.Context) ([]model.Grant, error)
	// UpdateDeadline and UpdateStatus apply an out-of-band correction to an
	// already-stored Grant (the admin CLI's enrich/recompute-status tools,
	// spec.md §6) without going through Upsert's content-hash change
	// detection, which is scoped to what a fresh scrape found, not a
	// later enrichment pass.
	UpdateDeadline(ctx context.Context, duplicateHash string, deadline time.Time) error
	UpdateStatus(ctx context.Context, duplicateHash string, status model.GrantStatus) error
}

// AlertSeverity is the closed set of Alerter severities.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// Alerter is the notification fan-out port.
type Alerter interface {
	Notify(ctx context.Context, severity AlertSeverity, subject string, details map[string]any)
}

// Clock is the injectable time port; tests supply a fake for deterministic
// scheduling and retry-backoff assertions.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// SystemClock is the production Clock backed by the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time                  { return time.Now() }
func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
