// Package ratelimit provides a per-source token-bucket limiter plus a
// mandatory inter-request delay, matching spec.md §5's rate-limiter
// contract. Grounded on the teacher's RateLimitedFetcher in
// internal/ingest/fetcher_http.go, which keeps a per-domain limiter map
// under a mutex; here generalized to golang.org/x/time/rate, which the
// teacher's corpus-mate jonesrussell-gocrawl manifest also depends on.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/david/grant-ingest/internal/model"
)

// Limiter gates requests per source: a token bucket sized to
// requestsPerMinute, plus a minimum spacing between consecutive acquires.
// Wait sleeps only for whatever part of that spacing has not already
// elapsed since the previous acquire; the first acquire is not delayed.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
}

type entry struct {
	bucket   *rate.Limiter
	minDelay time.Duration
	lastUsed time.Time
}

// New returns an empty per-source Limiter registry.
func New() *Limiter {
	return &Limiter{limiters: make(map[string]*entry)}
}

func (l *Limiter) forSource(s model.Source) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.limiters[s.ID]
	if !ok {
		rpm := s.RateLimit.RequestsPerMinute
		if rpm <= 0 {
			rpm = 60
		}
		perSecond := rate.Limit(float64(rpm) / 60.0)
		e = &entry{
			bucket:   rate.NewLimiter(perSecond, maxBurst(rpm)),
			minDelay: time.Duration(s.RateLimit.MinDelayMS) * time.Millisecond,
		}
		l.limiters[s.ID] = e
	}
	return e
}

func maxBurst(rpm int) int {
	if rpm < 1 {
		return 1
	}
	return rpm
}

// Wait blocks (without busy-waiting) until a token bucket slot is
// available for s, then enforces s's minimum inter-request delay.
func (l *Limiter) Wait(ctx context.Context, s model.Source) error {
	e := l.forSource(s)
	if err := e.bucket.Wait(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	since := time.Since(e.lastUsed)
	e.lastUsed = time.Now()
	l.mu.Unlock()

	if e.minDelay > 0 && since < e.minDelay {
		select {
		case <-time.After(e.minDelay - since):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
