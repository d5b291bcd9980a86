package processor

import (
	"time"

	"github.com/david/grant-ingest/internal/model"
)

// closingSoonWindow is how close to its deadline a Grant is considered
// "closing_soon" rather than plain "open".
const closingSoonWindow = 14 * 24 * time.Hour

// DeriveGrantStatus computes a Grant's lifecycle status from its deadline
// relative to now (spec.md §6 recompute-status). Grounded on the teacher's
// ComputeStatusDecision in internal/ingest/status_engine.go, narrowed to
// its deadline-threshold branch only — this pipeline stores no
// results-page or source-status-raw signal for the rest of that decision
// tree to run against.
func DeriveGrantStatus(deadline *time.Time, now time.Time) model.GrantStatus {
	if deadline == nil {
		return model.GrantStatusUnknown
	}
	remaining := deadline.Sub(now)
	switch {
	case remaining < 0:
		return model.GrantStatusClosed
	case remaining <= closingSoonWindow:
		return model.GrantStatusClosingSoon
	default:
		return model.GrantStatusOpen
	}
}
