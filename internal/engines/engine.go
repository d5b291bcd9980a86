// Package engines implements the four interchangeable scraping engines
// (static HTML, headless browser, HTTP API, PDF+OCR) that all satisfy the
// same Engine.Fetch contract (spec.md §4.2). Each is grounded on a
// distinct fetcher in the teacher's internal/ingest package, generalized
// from opportunity-specific extraction to the source-selector-driven
// extraction the spec calls for.
package engines

import (
	"context"

	"github.com/david/grant-ingest/internal/model"
)

// Engine fetches and extracts RawGrants from one Source. Implementations
// may suspend on I/O and must honor the source's rate limit and timeout —
// enforcement lives in internal/ratelimit and the caller-supplied context.
type Engine interface {
	Fetch(ctx context.Context, source model.Source) ([]model.RawGrant, error)
}

// FatalError wraps an engine failure that should abort the whole scrape
// (auth failure, malformed config, exhausted retries) as opposed to a
// per-item failure that is merely logged and skipped (spec.md §4.2).
type FatalError struct {
	Reason string
	Err    error
}

func (e *FatalError) Error() string { return e.Reason + ": " + e.Err.Error() }
func (e *FatalError) Unwrap() error  { return e.Err }

// userAgents is the rotation pool the static engine cycles through.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
}

func userAgentFor(attempt int) string {
	return userAgents[attempt%len(userAgents)]
}
