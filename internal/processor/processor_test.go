package processor

import (
	"testing"
	"time"

	"github.com/david/grant-ingest/internal/model"
)

func TestProcessHappyPath(t *testing.T) {
	raw := model.RawGrant{
		Title:          "<b>Community Health Innovation Grant</b>",
		Description:    "Supports clinical research into community health outcomes.",
		Deadline:       "Deadline: 2025-12-31",
		FundingAmount:  "$10,000 - $50,000",
		Eligibility:    "Open to nonprofit organizations in California.",
		ApplicationURL: "example.org/apply",
		FunderName:     "Department of Health",
		SourceURL:      "https://health.gov/grants",
		ScrapedAt:      time.Time{},
	}

	grant, report := New().Process(raw)

	if grant.Title != "Community Health Innovation Grant" {
		t.Fatalf("expected stripped title, got %q", grant.Title)
	}
	if grant.Deadline == nil || grant.Deadline.Year() != 2025 {
		t.Fatalf("expected parsed deadline, got %v", grant.Deadline)
	}
	if grant.AmountMin == nil || *grant.AmountMin != 10000 {
		t.Fatalf("expected min 10000, got %v", grant.AmountMin)
	}
	if grant.ApplicationURL != "https://example.org/apply" {
		t.Fatalf("expected scheme-prefixed URL, got %q", grant.ApplicationURL)
	}
	if grant.Funder.Type != model.SourceTypeGovernment {
		t.Fatalf("expected government funder, got %v", grant.Funder.Type)
	}
	if grant.Category != model.CategoryHealthcare {
		t.Fatalf("expected healthcare category, got %v", grant.Category)
	}
	if grant.ContentHash == "" || grant.DuplicateHash == "" {
		t.Fatal("expected both hashes to be populated")
	}
	if grant.ConfidenceScore <= 0 {
		t.Fatalf("expected a positive confidence score, got %d", grant.ConfidenceScore)
	}
	if len(report.Warnings) != 0 {
		t.Fatalf("expected no warnings for a clean input, got %v", report.Warnings)
	}
}

func TestProcessMissingDeadlineWarns(t *testing.T) {
	raw := model.RawGrant{
		Title:         "Open Grant",
		FundingAmount: "$5,000",
		Deadline:      "rolling basis",
	}
	_, report := New().Process(raw)
	if len(report.Warnings) == 0 {
		t.Fatal("expected a warning for an unparseable deadline")
	}
}
