// Package dedup groups duplicate grants within a batch, scores candidate
// matches against previously stored grants, classifies content changes
// between scrape cycles, and merges confirmed matches (spec.md §4.6).
// Grounded on the teacher's hash-driven identity scheme in
// internal/ingest/pipeline.go (SaveOpportunity's upsert-by-hash logic),
// generalized into a standalone, store-agnostic component.
package dedup

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/david/grant-ingest/internal/model"
	"github.com/david/grant-ingest/internal/processor"
)

// WithinBatch groups grants by DuplicateHash, keeping the first occurrence
// of each and dropping the rest. Order of survivors matches first-seen order.
func WithinBatch(grants []model.Grant) []model.Grant {
	seen := map[string]bool{}
	var out []model.Grant
	for _, g := range grants {
		if seen[g.DuplicateHash] {
			continue
		}
		seen[g.DuplicateHash] = true
		out = append(out, g)
	}
	return out
}

// Match is a scored candidate match against a previously known Grant.
type Match struct {
	Candidate model.Grant
	Score     float64
	Reasons   []string
}

const matchThreshold = 0.8

// CrossBatchMatch scores g against every entry in known, returning those
// scoring >= 0.8, highest score first.
func CrossBatchMatch(g model.Grant, known []model.Grant) []Match {
	var matches []Match
	for _, k := range known {
		score, reasons := scorePair(g, k)
		if score >= matchThreshold {
			matches = append(matches, Match{Candidate: k, Score: score, Reasons: reasons})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	return matches
}

func scorePair(a, b model.Grant) (float64, []string) {
	var reasons []string

	titleSim := titleSimilarity(strings.ToLower(a.Title), strings.ToLower(b.Title))
	reasons = append(reasons, percentReason("title similarity", titleSim))

	funderMatch := 0.0
	if strings.EqualFold(strings.TrimSpace(a.Funder.Name), strings.TrimSpace(b.Funder.Name)) && a.Funder.Name != "" {
		funderMatch = 1
		reasons = append(reasons, "funder name matches exactly")
	}

	deadlineMatch := 0.0
	if a.Deadline != nil && b.Deadline != nil {
		diff := a.Deadline.Sub(*b.Deadline)
		if diff < 0 {
			diff = -diff
		}
		if diff <= 7*24*time.Hour {
			deadlineMatch = 1
			reasons = append(reasons, "deadlines within 7 days")
		}
	} else if a.Deadline == nil && b.Deadline == nil {
		deadlineMatch = 1
	}

	amountRatio := amountSimilarity(a, b)
	reasons = append(reasons, percentReason("amount similarity", amountRatio))

	score := titleSim*0.4 + funderMatch*0.3 + deadlineMatch*0.2 + amountRatio*0.1
	return score, reasons
}

func percentReason(label string, v float64) string {
	return fmt.Sprintf("%s: %d%%", label, int(math.Round(v*100)))
}

func amountSimilarity(a, b model.Grant) float64 {
	aAmt := representativeAmount(a)
	bAmt := representativeAmount(b)
	if aAmt == nil && bAmt == nil {
		return 1
	}
	if aAmt == nil || bAmt == nil {
		return 0
	}
	if *aAmt == 0 && *bAmt == 0 {
		return 1
	}
	lo, hi := float64(*aAmt), float64(*bAmt)
	if lo > hi {
		lo, hi = hi, lo
	}
	if hi == 0 {
		return 1
	}
	return lo / hi
}

func representativeAmount(g model.Grant) *int64 {
	if g.AmountMax != nil {
		return g.AmountMax
	}
	return g.AmountMin
}

// DetectChange compares previous and current content hashes; when they
// differ it diffs the two Grants field-by-field and classifies the
// severity per spec.md §4.6. Identical hashes always yield an empty,
// non-changed record (idempotence, spec.md §8).
func DetectChange(previousHash, currentHash string, previous, current model.Grant) model.ChangeRecord {
	record := model.ChangeRecord{
		GrantID:      current.DuplicateHash,
		PreviousHash: previousHash,
		CurrentHash:  currentHash,
	}
	if previousHash == currentHash {
		return record
	}

	changed := diffFields(previous, current)
	record.ChangedFields = changed
	record.ChangeType = classifyChange(changed)
	return record
}

var criticalFields = map[string]bool{
	"deadline": true, "amountMin": true, "amountMax": true, "applicationURL": true,
}
var majorFields = map[string]bool{
	"title": true, "eligibilityCriteria": true, "category": true, "funder": true,
}

func classifyChange(changed []string) model.ChangeType {
	for _, f := range changed {
		if criticalFields[f] {
			return model.ChangeCritical
		}
	}
	for _, f := range changed {
		if majorFields[f] {
			return model.ChangeMajor
		}
	}
	return model.ChangeMinor
}

func diffFields(a, b model.Grant) []string {
	var changed []string
	if a.Title != b.Title {
		changed = append(changed, "title")
	}
	if a.Description != b.Description {
		changed = append(changed, "description")
	}
	if !timeEqual(a.Deadline, b.Deadline) {
		changed = append(changed, "deadline")
	}
	if !int64PtrEqual(a.AmountMin, b.AmountMin) {
		changed = append(changed, "amountMin")
	}
	if !int64PtrEqual(a.AmountMax, b.AmountMax) {
		changed = append(changed, "amountMax")
	}
	if a.EligibilityCriteria != b.EligibilityCriteria {
		changed = append(changed, "eligibilityCriteria")
	}
	if a.ApplicationURL != b.ApplicationURL {
		changed = append(changed, "applicationURL")
	}
	if a.Category != b.Category {
		changed = append(changed, "category")
	}
	if a.Funder != b.Funder {
		changed = append(changed, "funder")
	}
	if !stringSetEqual(a.LocationEligibility, b.LocationEligibility) {
		changed = append(changed, "locationEligibility")
	}
	return changed
}

func timeEqual(a, b *time.Time) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.Equal(*b)
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

func stringSetEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// Merge combines two matched Grants into one, per spec.md §4.6's
// tie-break rules, and regenerates the content hash.
func Merge(a, b model.Grant) model.Grant {
	merged := a

	if len(b.Title) > len(merged.Title) {
		merged.Title = b.Title
	}
	if len(b.Description) > len(merged.Description) {
		merged.Description = b.Description
	}
	if laterDeadline(b.Deadline, merged.Deadline) {
		merged.Deadline = b.Deadline
	}
	merged.AmountMax = largerPtr(merged.AmountMax, b.AmountMax)
	if merged.AmountMin == nil {
		merged.AmountMin = b.AmountMin
	}
	merged.LocationEligibility = unionSorted(merged.LocationEligibility, b.LocationEligibility)
	if b.ConfidenceScore > merged.ConfidenceScore {
		merged.ConfidenceScore = b.ConfidenceScore
	}

	merged.ApplicationURL = preferApplicationURL(merged, b)

	merged.ContentHash = processor.ContentHash(merged.Title, merged.Description, deadlineKey(merged.Deadline), merged.Funder.Name, merged.ApplicationURL)
	return merged
}

func laterDeadline(candidate, current *time.Time) bool {
	if candidate == nil {
		return false
	}
	if current == nil {
		return true
	}
	return candidate.After(*current)
}

func largerPtr(a, b *int64) *int64 {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if *b > *a {
		return b
	}
	return a
}

func unionSorted(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range append(append([]string(nil), a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func preferApplicationURL(a, b model.Grant) string {
	if a.Funder.Type == model.SourceTypeGovernment && b.Funder.Type != model.SourceTypeGovernment {
		return a.ApplicationURL
	}
	if b.Funder.Type == model.SourceTypeGovernment && a.Funder.Type != model.SourceTypeGovernment {
		return b.ApplicationURL
	}
	if a.ApplicationURL == "" {
		return b.ApplicationURL
	}
	if b.ApplicationURL == "" {
		return a.ApplicationURL
	}
	if len(b.ApplicationURL) < len(a.ApplicationURL) {
		return b.ApplicationURL
	}
	return a.ApplicationURL
}

func deadlineKey(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
