package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/david/grant-ingest/internal/model"
)

func TestWaitAllowsBurstThenBlocks(t *testing.T) {
	l := New()
	s := model.Source{ID: "s1", RateLimit: model.RateLimit{RequestsPerMinute: 60}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx, s); err != nil {
		t.Fatalf("first wait should succeed immediately: %v", err)
	}
	for i := 1; i < 60; i++ {
		if err := l.Wait(ctx, s); err != nil {
			t.Fatalf("wait %d within the burst should succeed: %v", i+1, err)
		}
	}
	if err := l.Wait(ctx, s); err == nil {
		t.Fatal("expected the wait past the burst to block beyond the deadline")
	}
}

func TestWaitEnforcesMinDelay(t *testing.T) {
	l := New()
	s := model.Source{ID: "s2", RateLimit: model.RateLimit{RequestsPerMinute: 6000, MinDelayMS: 20}}

	ctx := context.Background()
	if err := l.Wait(ctx, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	start := time.Now()
	if err := l.Wait(ctx, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Fatalf("expected the min-delay to be enforced, elapsed %v", elapsed)
	}
}
