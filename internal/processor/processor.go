// Package processor turns a RawGrant scraped by an engine into a canonical
// Grant: text normalization, money/date/URL parsing, funder/location/
// category inference, and the two hashes used downstream by the
// deduplicator. Grounded on the teacher's internal/ingest normalizer.go
// (FromRaw/NormalizeOpportunity) and amount_parser.go/date_parser.go.
package processor

import (
	"strings"

	"github.com/david/grant-ingest/internal/model"
)

// Report records what Process had to guess or could not determine, so
// callers can surface low-confidence conversions to the validator/operator.
type Report struct {
	Warnings     []string
	QualityScore int
}

// Processor converts RawGrant records into Grants. It holds no state beyond
// its currency table, so a zero-value Processor is unusable — use New.
type Processor struct {
	rates CurrencyRates
}

// New builds a Processor with the spec's default currency table.
func New() *Processor {
	return &Processor{rates: DefaultCurrencyRates()}
}

// WithRates overrides the currency conversion table (for tests or locale
// configuration).
func (p *Processor) WithRates(rates CurrencyRates) *Processor {
	p.rates = rates
	return p
}

// Process normalizes raw to a canonical Grant plus a Report describing any
// fields it could not confidently resolve.
func (p *Processor) Process(raw model.RawGrant) (model.Grant, Report) {
	report := Report{}

	title := NormalizeText(raw.Title, true)
	description := NormalizeText(raw.Description, false)
	eligibility := NormalizeText(raw.Eligibility, false)

	grant := model.Grant{
		Title:               title,
		Description:         description,
		EligibilityCriteria: eligibility,
		SourceURL:           raw.SourceURL,
	}

	if t, ok := ParseDate(raw.Deadline); ok {
		end := EndOfDay(t)
		grant.Deadline = &end
	} else if strings.TrimSpace(raw.Deadline) != "" {
		report.Warnings = append(report.Warnings, "could not parse deadline: "+raw.Deadline)
	}

	money := ParseMoney(raw.FundingAmount, p.rates)
	grant.AmountMin = money.Min
	grant.AmountMax = money.Max
	if money.Warning != "" {
		report.Warnings = append(report.Warnings, money.Warning)
	}

	if appURL, ok := ValidateURL(raw.ApplicationURL); ok {
		grant.ApplicationURL = appURL
	} else if strings.TrimSpace(raw.ApplicationURL) != "" {
		report.Warnings = append(report.Warnings, "invalid application URL: "+raw.ApplicationURL)
	}

	funderWebsite, _ := ValidateURL(raw.SourceURL)
	grant.Funder = model.FunderInfo{
		Name:    strings.TrimSpace(raw.FunderName),
		Website: funderWebsite,
		Type:    InferFunderType(raw.FunderName, raw.SourceURL),
	}

	combinedText := strings.Join([]string{title, description, eligibility}, " ")
	grant.LocationEligibility = InferLocations(combinedText)
	grant.Category = InferCategory(combinedText)

	deadlineKey := ""
	if grant.Deadline != nil {
		deadlineKey = grant.Deadline.Format("2006-01-02")
	}
	grant.ContentHash = ContentHash(title, description, deadlineKey, grant.Funder.Name, grant.ApplicationURL)
	grant.DuplicateHash = DuplicateHash(title, grant.Funder.Name)

	grant.ConfidenceScore = confidenceScore(grant, report)
	report.QualityScore = grant.ConfidenceScore

	return grant, report
}

// confidenceScore is a coarse 0-100 estimate: each populated core field adds
// weight, each warning subtracts a fixed penalty.
func confidenceScore(g model.Grant, r Report) int {
	score := 0
	if g.Title != "" {
		score += 25
	}
	if g.Description != "" {
		score += 20
	}
	if g.Deadline != nil {
		score += 20
	}
	if g.AmountMin != nil || g.AmountMax != nil {
		score += 15
	}
	if g.ApplicationURL != "" {
		score += 10
	}
	if g.Funder.Name != "" {
		score += 10
	}
	score -= len(r.Warnings) * 5
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}
