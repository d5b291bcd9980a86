// Package classifier assigns a final category, a tag set, a confidence
// score, and a reasoning trail to a processed Grant (spec.md §4.5).
// Grounded on the teacher's keyword-weighted normalization helpers in
// internal/ingest/helpers.go, generalized to emit an explainable decision.
package classifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/david/grant-ingest/internal/model"
	"github.com/david/grant-ingest/internal/processor"
)

const maxTags = 15

// Result is the Classifier's verdict for one Grant.
type Result struct {
	Category   model.Category
	Tags       []string
	Confidence float64
	Reasoning  []string
}

// Classifier assigns category/tags/confidence to Grants. It is stateless
// beyond its injected clock, used to compute urgency tags reproducibly.
type Classifier struct {
	now func() time.Time
}

// New returns a Classifier using the real wall clock.
func New() *Classifier {
	return &Classifier{now: time.Now}
}

// WithClock overrides the time source for deterministic urgency tagging in
// tests.
func (c *Classifier) WithClock(now func() time.Time) *Classifier {
	c.now = now
	return c
}

// Classify produces a Result for g, combining the Processor's preliminary
// category with a second keyword pass and appending size/urgency/audience/
// region/thematic tags, capped at 15.
func (c *Classifier) Classify(g model.Grant) Result {
	var reasoning []string
	combined := strings.Join([]string{g.Title, g.Description, g.EligibilityCriteria}, " ")

	category := g.Category
	reasoning = append(reasoning, fmt.Sprintf("processor inferred category %q from source text", category))

	reinferred := processor.InferCategory(combined)
	if reinferred != category {
		reasoning = append(reasoning, fmt.Sprintf("classifier re-scored text and prefers %q", reinferred))
		category = reinferred
	}

	var tags []string
	tags = append(tags, sizeTag(g))
	if urgent := urgencyTag(g, c.now()); urgent != "" {
		tags = append(tags, urgent)
	}
	tags = append(tags, audienceTags(combined)...)
	tags = append(tags, regionTags(g.LocationEligibility)...)
	tags = append(tags, thematicTags(combined)...)

	tags = dedupeOrdered(tags)
	if len(tags) > maxTags {
		reasoning = append(reasoning, fmt.Sprintf("capped %d candidate tags to %d", len(tags), maxTags))
		tags = tags[:maxTags]
	}

	confidence := confidenceFor(g, len(tags))
	if confidence < 0.5 {
		reasoning = append(reasoning, "low confidence: recorded for operator triage, not rejected")
	}

	return Result{Category: category, Tags: tags, Confidence: confidence, Reasoning: reasoning}
}

func sizeTag(g model.Grant) string {
	amount := g.AmountMax
	if amount == nil {
		amount = g.AmountMin
	}
	if amount == nil {
		return "medium-grant"
	}
	switch {
	case *amount <= 50_000:
		return "small-grant"
	case *amount <= 1_000_000:
		return "medium-grant"
	default:
		return "large-grant"
	}
}

func urgencyTag(g model.Grant, now time.Time) string {
	if g.Deadline == nil {
		return ""
	}
	if g.Deadline.After(now) && g.Deadline.Before(now.AddDate(0, 0, 30)) {
		return "urgent-deadline"
	}
	return ""
}

var audienceKeywords = map[string][]string{
	"nonprofit":  {"nonprofit", "non-profit", "501(c)(3)", "charitable organization"},
	"university": {"university", "college", "academic institution", "higher education"},
	"individual": {"individual applicant", "sole proprietor", "independent artist"},
	"government": {"municipal", "local government", "state agency", "tribal government"},
}

func audienceTags(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, tag := range []string{"nonprofit", "university", "individual", "government"} {
		for _, kw := range audienceKeywords[tag] {
			if strings.Contains(lower, kw) {
				out = append(out, tag)
				break
			}
		}
	}
	return out
}

var regionKeywords = map[string][]string{
	"africa":        {"africa", "kenya", "nigeria", "ghana"},
	"asia":          {"asia", "india", "japan", "southeast asia"},
	"latin-america": {"latin america", "brazil", "mexico", "colombia"},
	"global":        {"global", "worldwide", "international"},
}

var usStateTags = map[string]bool{
	"alabama": true, "alaska": true, "arizona": true, "arkansas": true, "california": true,
	"colorado": true, "connecticut": true, "delaware": true, "florida": true, "georgia": true,
	"hawaii": true, "idaho": true, "illinois": true, "indiana": true, "iowa": true, "kansas": true,
	"kentucky": true, "louisiana": true, "maine": true, "maryland": true, "massachusetts": true,
	"michigan": true, "minnesota": true, "mississippi": true, "missouri": true, "montana": true,
	"nebraska": true, "nevada": true, "new-hampshire": true, "new-jersey": true, "new-mexico": true,
	"new-york": true, "north-carolina": true, "north-dakota": true, "ohio": true, "oklahoma": true,
	"oregon": true, "pennsylvania": true, "rhode-island": true, "south-carolina": true,
	"south-dakota": true, "tennessee": true, "texas": true, "utah": true, "vermont": true,
	"virginia": true, "washington": true, "west-virginia": true, "wisconsin": true, "wyoming": true,
}

func regionTags(locations []string) []string {
	var out []string
	joined := strings.ToLower(strings.Join(locations, " "))
	for _, tag := range []string{"africa", "asia", "latin-america", "global"} {
		for _, kw := range regionKeywords[tag] {
			if strings.Contains(joined, kw) {
				out = append(out, tag)
				break
			}
		}
	}
	for _, loc := range locations {
		slug := strings.ToLower(strings.ReplaceAll(loc, " ", "-"))
		if usStateTags[slug] {
			out = append(out, slug)
		}
	}
	return out
}

var thematicKeywords = map[string][]string{
	"emergency-relief":   {"emergency", "disaster relief", "crisis response"},
	"capacity-building":  {"capacity building", "organizational development", "technical assistance"},
	"research-funding":   {"research grant", "scientific study"},
	"workforce-training": {"workforce", "job training", "vocational"},
}

func thematicTags(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, tag := range []string{"emergency-relief", "capacity-building", "research-funding", "workforce-training"} {
		for _, kw := range thematicKeywords[tag] {
			if strings.Contains(lower, kw) {
				out = append(out, tag)
				break
			}
		}
	}
	return out
}

func confidenceFor(g model.Grant, tagCount int) float64 {
	score := float64(g.ConfidenceScore) / 100.0
	if tagCount > 0 {
		score += 0.05
	}
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

func dedupeOrdered(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
