package dedup

import (
	"testing"
	"time"

	"github.com/david/grant-ingest/internal/model"
)

func TestWithinBatchKeepsFirstOccurrence(t *testing.T) {
	grants := []model.Grant{
		{Title: "A", DuplicateHash: "h1"},
		{Title: "B", DuplicateHash: "h1"},
		{Title: "C", DuplicateHash: "h2"},
	}
	out := WithinBatch(grants)
	if len(out) != 2 {
		t.Fatalf("expected 2 survivors, got %d", len(out))
	}
	if out[0].Title != "A" {
		t.Fatalf("expected first occurrence kept, got %q", out[0].Title)
	}
}

func TestCrossBatchMatchAboveThreshold(t *testing.T) {
	amt := int64(50000)
	deadline := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	candidate := model.Grant{
		Title:    "Community Health Innovation Grant",
		Funder:   model.FunderInfo{Name: "Acme Foundation"},
		Deadline: &deadline,
		AmountMax: &amt,
	}
	known := model.Grant{
		Title:    "Community Health Innovation Grant!!!",
		Funder:   model.FunderInfo{Name: "Acme Foundation"},
		Deadline: &deadline,
		AmountMax: &amt,
	}
	matches := CrossBatchMatch(candidate, []model.Grant{known})
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d: scores would help debug", len(matches))
	}
	if matches[0].Score < matchThreshold {
		t.Fatalf("expected score >= %v, got %v", matchThreshold, matches[0].Score)
	}
}

func TestDetectChangeIdempotentOnIdenticalHashes(t *testing.T) {
	g := model.Grant{Title: "Same"}
	record := DetectChange("h1", "h1", g, g)
	if len(record.ChangedFields) != 0 {
		t.Fatalf("expected no changed fields, got %v", record.ChangedFields)
	}
}

func TestDetectChangeDeadlineIsCritical(t *testing.T) {
	d1 := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	prev := model.Grant{Title: "Same", Deadline: &d1}
	curr := model.Grant{Title: "Same", Deadline: &d2}
	record := DetectChange("h1", "h2", prev, curr)
	if record.ChangeType != model.ChangeCritical {
		t.Fatalf("expected critical, got %v", record.ChangeType)
	}
}

func TestDetectChangeDescriptionIsMinor(t *testing.T) {
	prev := model.Grant{Title: "Same", Description: "Old description text."}
	curr := model.Grant{Title: "Same", Description: "New description text."}
	record := DetectChange("h1", "h2", prev, curr)
	if record.ChangeType != model.ChangeMinor {
		t.Fatalf("expected minor, got %v", record.ChangeType)
	}
}

func TestDetectChangeTitleIsMajor(t *testing.T) {
	prev := model.Grant{Title: "Old Title"}
	curr := model.Grant{Title: "New Title"}
	record := DetectChange("h1", "h2", prev, curr)
	if record.ChangeType != model.ChangeMajor {
		t.Fatalf("expected major, got %v", record.ChangeType)
	}
}

func TestMergePrefersLongerTitleAndLaterDeadline(t *testing.T) {
	d1 := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	a := model.Grant{Title: "Short", Deadline: &d1}
	b := model.Grant{Title: "A Much Longer Title", Deadline: &d2}
	merged := Merge(a, b)
	if merged.Title != "A Much Longer Title" {
		t.Fatalf("expected longer title, got %q", merged.Title)
	}
	if merged.Deadline == nil || !merged.Deadline.Equal(d2) {
		t.Fatalf("expected later deadline, got %v", merged.Deadline)
	}
	if merged.ContentHash == "" {
		t.Fatal("expected content hash to be regenerated")
	}
}

func TestMergePrefersGovernmentURL(t *testing.T) {
	a := model.Grant{
		ApplicationURL: "https://foundation.org/apply",
		Funder:         model.FunderInfo{Type: model.SourceTypeFoundation},
	}
	b := model.Grant{
		ApplicationURL: "https://agency.gov/apply",
		Funder:         model.FunderInfo{Type: model.SourceTypeGovernment},
	}
	merged := Merge(a, b)
	if merged.ApplicationURL != "https://agency.gov/apply" {
		t.Fatalf("expected government URL preferred, got %q", merged.ApplicationURL)
	}
}
