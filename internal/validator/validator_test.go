package validator

import (
	"testing"
	"time"

	"github.com/david/grant-ingest/internal/model"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func validGrant() model.Grant {
	return model.Grant{
		Title:               "Community Health Innovation Grant",
		Description:         "This grant supports nonprofit organizations delivering community health services statewide.",
		EligibilityCriteria: "Nonprofits only",
		ApplicationURL:      "https://example.org/apply",
	}
}

func TestValidateHappyPath(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	v := New().WithClock(fixedClock(now))
	report := v.Validate(validGrant())
	if !report.Valid {
		t.Fatalf("expected valid, got errors: %v", report.Errors)
	}
	if len(report.Errors) != 0 {
		t.Fatalf("expected no errors, got %v", report.Errors)
	}
}

func TestValidateAmountRangeInverted(t *testing.T) {
	g := validGrant()
	min := int64(100)
	max := int64(50)
	g.AmountMin = &min
	g.AmountMax = &max
	v := New().WithClock(fixedClock(time.Now()))
	report := v.Validate(g)
	if report.Valid {
		t.Fatal("expected invalid for min > max")
	}
}

func TestValidateDeadlineInPastWarns(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	past := now.AddDate(0, -1, 0)
	g := validGrant()
	g.Deadline = &past
	v := New().WithClock(fixedClock(now))
	report := v.Validate(g)
	if len(report.Warnings) == 0 {
		t.Fatal("expected a warning for a past deadline")
	}
}

func TestValidatePlaceholderDescription(t *testing.T) {
	g := validGrant()
	g.Description = "Lorem ipsum dolor sit amet, consectetur adipiscing elit sed do eiusmod."
	v := New().WithClock(fixedClock(time.Now()))
	report := v.Validate(g)
	found := false
	for _, w := range report.Warnings {
		if w.Message == "looks like placeholder text" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a placeholder warning, got %v", report.Warnings)
	}
}

func TestValidateShortTitleFails(t *testing.T) {
	g := validGrant()
	g.Title = "Abc"
	v := New().WithClock(fixedClock(time.Now()))
	report := v.Validate(g)
	if report.Valid {
		t.Fatal("expected invalid for too-short title")
	}
}

func TestSummarize(t *testing.T) {
	now := time.Now()
	v := New().WithClock(fixedClock(now))
	g1 := validGrant()
	g2 := validGrant()
	g2.Title = "x"
	reports := []model.ValidationReport{v.Validate(g1), v.Validate(g2)}
	summary := Summarize(reports, 5)
	if summary.Total != 2 || summary.Valid != 1 || summary.Invalid != 1 {
		t.Fatalf("got %+v", summary)
	}
}
