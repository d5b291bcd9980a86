// Package validator checks a canonical Grant against schema rules (via
// go-playground/validator) and the business rules spec.md §4.4 calls out
// by hand. Grounded on the teacher's field-by-field checks scattered
// through normalizer.go, generalized into one declarative pass.
package validator

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/david/grant-ingest/internal/model"
)

// schemaGrant mirrors model.Grant with struct tags go-playground/validator
// understands; kept separate so model stays free of validation-library
// annotations.
type schemaGrant struct {
	Title               string `validate:"required,min=5,max=300"`
	Description         string `validate:"required,min=20,max=5000"`
	ApplicationURL      string `validate:"omitempty,url"`
	EligibilityCriteria string `validate:"max=5000"`
}

var placeholderRe = regexp.MustCompile(`(?i)lorem ipsum`)

// Validator validates canonical Grants.
type Validator struct {
	v   *validator.Validate
	now func() time.Time
}

// New returns a Validator using the real wall clock.
func New() *Validator {
	return &Validator{v: validator.New(), now: time.Now}
}

// WithClock overrides the time source (tests use a fixed instant so
// "deadline in the past" assertions are reproducible).
func (val *Validator) WithClock(now func() time.Time) *Validator {
	val.now = now
	return val
}

// Validate runs schema validation then the hand-coded business rules,
// producing a single ValidationReport (spec.md §4.4).
func (val *Validator) Validate(g model.Grant) model.ValidationReport {
	report := model.ValidationReport{Valid: true}

	schema := schemaGrant{
		Title:               g.Title,
		Description:         g.Description,
		ApplicationURL:      g.ApplicationURL,
		EligibilityCriteria: g.EligibilityCriteria,
	}
	if err := val.v.Struct(schema); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				report.Errors = append(report.Errors, model.ValidationError{
					Field:   fe.Field(),
					Message: schemaMessage(fe),
				})
			}
		}
	}

	if g.AmountMin != nil && g.AmountMax != nil && *g.AmountMin > *g.AmountMax {
		report.Errors = append(report.Errors, model.ValidationError{
			Field:   "AmountMin",
			Message: "amount-min must be <= amount-max",
		})
	}

	if g.Deadline != nil {
		now := val.now()
		if g.Deadline.Before(now) {
			report.Warnings = append(report.Warnings, model.ValidationWarning{
				Field:   "Deadline",
				Message: "deadline is in the past",
			})
		}
		if g.Deadline.After(now.AddDate(1, 0, 0)) {
			report.Warnings = append(report.Warnings, model.ValidationWarning{
				Field:   "Deadline",
				Message: "deadline is more than a year away",
			})
		}
	}

	if g.AmountMin != nil && g.AmountMax != nil && *g.AmountMin > 0 {
		ratio := float64(*g.AmountMax) / float64(*g.AmountMin)
		if ratio > 10 {
			report.Warnings = append(report.Warnings, model.ValidationWarning{
				Field:      "AmountMax",
				Message:    "amount range spans more than 10x",
				Suggestion: "confirm the funding range was parsed correctly",
			})
		}
	}

	if wordCount(g.Description) < 10 {
		report.Warnings = append(report.Warnings, model.ValidationWarning{
			Field:   "Description",
			Message: "description is fewer than 10 words",
		})
	}

	if placeholderRe.MatchString(g.Description) || placeholderRe.MatchString(g.Title) {
		report.Warnings = append(report.Warnings, model.ValidationWarning{
			Field:   "Description",
			Message: "looks like placeholder text",
		})
	}

	report.Valid = len(report.Errors) == 0

	report.QualityScore = g.ConfidenceScore
	if !report.Valid && report.QualityScore > 50 {
		report.QualityScore = 50
	}
	if g.ConfidenceScore >= 90 && len(report.Errors) > 0 {
		report.Warnings = append(report.Warnings, model.ValidationWarning{
			Field:   "ConfidenceScore",
			Message: "high confidence score despite validation errors",
		})
	}

	return report
}

func schemaMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s is shorter than the minimum length", fe.Field())
	case "max":
		return fmt.Sprintf("%s exceeds the maximum length", fe.Field())
	case "url":
		return fmt.Sprintf("%s is not a valid URL", fe.Field())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// Summary aggregates validation totals across a batch of reports, for
// dashboards (spec.md §4.4 `summary(reports)`).
type Summary struct {
	Total       int
	Valid       int
	Invalid     int
	TopErrors   []string
	TopWarnings []string
}

// Summarize aggregates reports and returns the top-N most frequent error
// and warning messages.
func Summarize(reports []model.ValidationReport, topN int) Summary {
	s := Summary{Total: len(reports)}
	errCounts := map[string]int{}
	warnCounts := map[string]int{}

	for _, r := range reports {
		if r.Valid {
			s.Valid++
		} else {
			s.Invalid++
		}
		for _, e := range r.Errors {
			errCounts[e.Message]++
		}
		for _, w := range r.Warnings {
			warnCounts[w.Message]++
		}
	}

	s.TopErrors = topMessages(errCounts, topN)
	s.TopWarnings = topMessages(warnCounts, topN)
	return s
}

func topMessages(counts map[string]int, topN int) []string {
	type kv struct {
		msg   string
		count int
	}
	var list []kv
	for m, c := range counts {
		list = append(list, kv{m, c})
	}
	for i := 0; i < len(list); i++ {
		for j := i + 1; j < len(list); j++ {
			if list[j].count > list[i].count {
				list[i], list[j] = list[j], list[i]
			}
		}
	}
	if topN > len(list) {
		topN = len(list)
	}
	out := make([]string, topN)
	for i := 0; i < topN; i++ {
		out[i] = list[i].msg
	}
	return out
}
