package scheduler

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// computeRetryDelay returns base × multiplier^(attempts-1) capped at max,
// per spec.md §4.8/§8's retry-backoff scenario (1s, 2s, 4s for a base of
// 1s and multiplier of 2). It is built on cenkalti/backoff/v4's
// ExponentialBackOff with randomization disabled so the result is exactly
// deterministic rather than jittered — the teacher's own hand-rolled
// retry loop in internal/ingest/fetcher_http.go computes
// 500ms*2^(attempt-1) plus jitter; this pipeline owns retry at the
// Scheduler layer instead (spec.md §4.8), so the jitter is dropped in
// favor of exactness against the fixed-delay test scenario in spec.md §8.
func computeRetryDelay(attempts int, base time.Duration, multiplier float64, max time.Duration) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.Multiplier = multiplier
	b.MaxInterval = max
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	var delay time.Duration
	for i := 0; i < attempts; i++ {
		delay = b.NextBackOff()
	}
	return delay
}
