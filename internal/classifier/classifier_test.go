package classifier

import (
	"testing"
	"time"

	"github.com/david/grant-ingest/internal/model"
)

func TestClassifySizeTag(t *testing.T) {
	amount := int64(25_000)
	g := model.Grant{
		Title:       "Small Community Grant",
		Description: "Supports small community projects.",
		AmountMax:   &amount,
		Category:    model.CategoryCommunityDev,
	}
	result := New().Classify(g)
	if !contains(result.Tags, "small-grant") {
		t.Fatalf("expected small-grant tag, got %v", result.Tags)
	}
}

func TestClassifyUrgencyTag(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	deadline := now.AddDate(0, 0, 10)
	g := model.Grant{
		Title:       "Urgent Grant",
		Description: "A time sensitive opportunity.",
		Deadline:    &deadline,
		Category:    model.CategoryCommunityDev,
	}
	result := New().WithClock(func() time.Time { return now }).Classify(g)
	if !contains(result.Tags, "urgent-deadline") {
		t.Fatalf("expected urgent-deadline tag, got %v", result.Tags)
	}
}

func TestClassifyCapsTagsAt15(t *testing.T) {
	g := model.Grant{
		Title:               "Global Nonprofit University Research Workforce Emergency Grant",
		Description:         "Supports nonprofit university research workforce emergency capacity building worldwide international africa asia latin america disaster relief crisis response technical assistance vocational training.",
		EligibilityCriteria: "Open to nonprofit, university, individual, and government applicants.",
		LocationEligibility: []string{"California", "New York", "Texas", "Florida", "Washington"},
		Category:            model.CategoryCommunityDev,
	}
	result := New().Classify(g)
	if len(result.Tags) > 15 {
		t.Fatalf("expected at most 15 tags, got %d: %v", len(result.Tags), result.Tags)
	}
}

func TestClassifyLowConfidenceRecordedNotRejected(t *testing.T) {
	g := model.Grant{Title: "x", Description: "y", ConfidenceScore: 10}
	result := New().Classify(g)
	if result.Confidence >= 0.5 {
		t.Fatalf("expected low confidence, got %v", result.Confidence)
	}
	found := false
	for _, r := range result.Reasoning {
		if r == "low confidence: recorded for operator triage, not rejected" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected low-confidence reasoning entry")
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
