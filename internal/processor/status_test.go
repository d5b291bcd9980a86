package processor

import (
	"testing"
	"time"

	"github.com/david/grant-ingest/internal/model"
)

func TestDeriveGrantStatusUnknownWithoutDeadline(t *testing.T) {
	if got := DeriveGrantStatus(nil, time.Now()); got != model.GrantStatusUnknown {
		t.Errorf("got %s, want unknown", got)
	}
}

func TestDeriveGrantStatusClosed(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	if got := DeriveGrantStatus(&past, now); got != model.GrantStatusClosed {
		t.Errorf("got %s, want closed", got)
	}
}

func TestDeriveGrantStatusClosingSoon(t *testing.T) {
	now := time.Now()
	soon := now.Add(5 * 24 * time.Hour)
	if got := DeriveGrantStatus(&soon, now); got != model.GrantStatusClosingSoon {
		t.Errorf("got %s, want closing_soon", got)
	}
}

func TestDeriveGrantStatusOpen(t *testing.T) {
	now := time.Now()
	far := now.Add(60 * 24 * time.Hour)
	if got := DeriveGrantStatus(&far, now); got != model.GrantStatusOpen {
		t.Errorf("got %s, want open", got)
	}
}
