// Package textanalyze is a stateless pattern library for pulling
// structured signal (title, deadline, amount, eligibility, urls) out of
// free text. It does no I/O and is safe to call from any goroutine.
//
// The pattern libraries here are grounded on the teacher's regex-based
// amount_parser.go / date_parser.go, generalized to the ranked-match
// shape spec.md §4.1 asks for.
package textanalyze

import (
	"regexp"
	"sort"
	"strings"
)

// Match is one candidate extraction with a confidence in [0,1] and the
// name of the pattern that produced it.
type Match struct {
	Value      string
	Confidence float64
	Pattern    string
}

type patternRule struct {
	name       string
	re         *regexp.Regexp
	confidence float64
}

var titlePatterns = []patternRule{
	{"labeled-title", regexp.MustCompile(`(?i)title\s*:\s*(.+)`), 0.9},
	{"heading-quotes", regexp.MustCompile(`"([^"]{5,200})"`), 0.6},
	{"leading-line", regexp.MustCompile(`^([^\n]{5,200})`), 0.4},
}

var deadlinePatterns = []patternRule{
	{"labeled-deadline", regexp.MustCompile(`(?i)(?:deadline|due date|closing date|applications? close)\s*[:\-]?\s*(?:on\s+)?(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4}|(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}|\d{1,2}\s+(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{4})`), 0.9},
	{"iso-date", regexp.MustCompile(`\b(20\d{2}-\d{2}-\d{2})\b`), 0.85},
	{"us-date", regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/20\d{2})\b`), 0.7},
	{"month-name-date", regexp.MustCompile(`(?i)\b((?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+20\d{2})\b`), 0.75},
	{"day-month-name-date", regexp.MustCompile(`(?i)\b(\d{1,2}\s+(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+20\d{2})\b`), 0.75},
}

var fundingPatterns = []patternRule{
	{"up-to-amount", regexp.MustCompile(`(?i)up to\s*\$?([\d,]+(?:\.\d+)?\s*(?:million|k)?)`), 0.9},
	{"minimum-amount", regexp.MustCompile(`(?i)minimum\s*\$?([\d,]+(?:\.\d+)?\s*(?:million|k)?)`), 0.85},
	{"range-amount", regexp.MustCompile(`\$([\d,]+(?:\.\d+)?\s*(?:million|k)?)\s*[-–to]+\s*\$?([\d,]+(?:\.\d+)?\s*(?:million|k)?)`), 0.9},
	{"single-dollar-amount", regexp.MustCompile(`\$([\d,]+(?:\.\d+)?\s*(?:million|k)?)`), 0.7},
	{"currency-symbol-amount", regexp.MustCompile(`[€£¥]\s*([\d,]+(?:\.\d+)?\s*(?:million|k)?)`), 0.65},
}

var eligibilityPatterns = []patternRule{
	{"labeled-eligibility", regexp.MustCompile(`(?i)eligibilit(?:y|ies)\s*[:\-]?\s*([^\n]{10,300})`), 0.85},
	{"who-can-apply", regexp.MustCompile(`(?i)who (?:can|may) apply\s*[:\-]?\s*([^\n]{10,300})`), 0.8},
	{"open-to", regexp.MustCompile(`(?i)open to\s+([^\n]{10,300})`), 0.6},
}

var urlPatterns = []patternRule{
	{"absolute-url", regexp.MustCompile(`https?://[^\s<>"')]+`), 0.9},
	{"bare-host", regexp.MustCompile(`\b[a-zA-Z0-9.\-]+\.(?:gov|org|com|edu|int)(?:/[^\s<>"')]*)?\b`), 0.5},
}

func rank(text string, rules []patternRule) []Match {
	seen := map[string]bool{}
	var out []Match
	for _, rule := range rules {
		for _, m := range rule.re.FindAllStringSubmatch(text, -1) {
			var value string
			if len(m) > 1 {
				value = strings.TrimSpace(m[1])
			} else {
				value = strings.TrimSpace(m[0])
			}
			if value == "" {
				continue
			}
			key := strings.ToLower(value)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, Match{Value: value, Confidence: rule.confidence, Pattern: rule.name})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

// ExtractTitle returns ranked title candidates.
func ExtractTitle(text string) []Match { return rank(text, titlePatterns) }

// ExtractDeadline returns ranked deadline-string candidates.
func ExtractDeadline(text string) []Match { return rank(text, deadlinePatterns) }

// ExtractFunding returns ranked funding-amount-string candidates.
func ExtractFunding(text string) []Match { return rank(text, fundingPatterns) }

// ExtractEligibility returns ranked eligibility-string candidates.
func ExtractEligibility(text string) []Match { return rank(text, eligibilityPatterns) }

// ExtractURL returns ranked URL candidates.
func ExtractURL(text string) []Match { return rank(text, urlPatterns) }

// ExtractDescription treats the longest blank-line-separated paragraph as
// the description candidate; there is only one useful pattern for this
// field, so its confidence is always 1.
func ExtractDescription(text string) []Match {
	paras := strings.Split(text, "\n\n")
	best := ""
	for _, p := range paras {
		p = strings.TrimSpace(p)
		if len(p) > len(best) {
			best = p
		}
	}
	if best == "" {
		return nil
	}
	return []Match{{Value: best, Confidence: 1, Pattern: "longest-paragraph"}}
}

// BestMatch returns the highest-confidence entry, or false if empty.
func BestMatch(matches []Match) (Match, bool) {
	if len(matches) == 0 {
		return Match{}, false
	}
	return matches[0], true
}

var grantTypeKeywords = map[string][]string{
	"research":     {"research", "study", "investigat", "scientific"},
	"education":    {"education", "school", "student", "scholarship", "training"},
	"health":       {"health", "medical", "clinical", "disease", "hospital"},
	"community":    {"community", "neighborhood", "local", "civic"},
	"environment":  {"environment", "climate", "sustainab", "conservation"},
	"arts":         {"arts", "culture", "museum", "artist", "creative"},
	"technology":   {"technology", "innovation", "software", "digital", "tech"},
}

// DetectGrantType returns the subset of domain types whose keywords appear
// in text, ordered deterministically.
func DetectGrantType(text string) []string {
	lower := strings.ToLower(text)
	order := []string{"research", "education", "health", "community", "environment", "arts", "technology"}
	var out []string
	for _, kind := range order {
		for _, kw := range grantTypeKeywords[kind] {
			if strings.Contains(lower, kw) {
				out = append(out, kind)
				break
			}
		}
	}
	return out
}

var emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
var phoneRe = regexp.MustCompile(`\+?\d[\d\-. ()]{7,}\d`)

// ContactInfo is extracted contact-method candidates.
type ContactInfo struct {
	Emails   []string
	Phones   []string
	Websites []string
}

// ExtractContactInfo pulls emails, phone numbers, and websites out of text.
func ExtractContactInfo(text string) ContactInfo {
	info := ContactInfo{}
	info.Emails = dedupeStrings(emailRe.FindAllString(text, -1))
	info.Phones = dedupeStrings(phoneRe.FindAllString(text, -1))
	for _, m := range ExtractURL(text) {
		if m.Pattern == "bare-host" {
			covered := false
			for _, s := range append(append([]string{}, info.Emails...), info.Websites...) {
				if strings.Contains(strings.ToLower(s), strings.ToLower(m.Value)) {
					covered = true
					break
				}
			}
			if covered {
				continue
			}
		}
		info.Websites = append(info.Websites, m.Value)
	}
	info.Websites = dedupeStrings(info.Websites)
	return info
}

func dedupeStrings(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

var grantKeywords = []string{
	"grant", "funding", "award", "eligib", "deadline", "applicant",
	"proposal", "fellowship", "scholarship", "sponsor",
}

var specialCharRe = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
var sentenceEndRe = regexp.MustCompile(`[.!?]`)

// TextQuality scores text in [0,1] from length band, sentence count,
// grant-keyword density, and special-character ratio.
func TextQuality(text string) float64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}

	length := len(trimmed)
	lengthScore := 0.0
	switch {
	case length < 20:
		lengthScore = 0.1
	case length < 100:
		lengthScore = 0.5
	case length <= 3000:
		lengthScore = 1.0
	default:
		lengthScore = 0.7
	}

	sentences := len(sentenceEndRe.FindAllString(trimmed, -1))
	sentenceScore := float64(sentences) / 10.0
	if sentenceScore > 1 {
		sentenceScore = 1
	}

	lower := strings.ToLower(trimmed)
	hits := 0
	for _, kw := range grantKeywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	keywordScore := float64(hits) / float64(len(grantKeywords))

	specialChars := len(specialCharRe.FindAllString(trimmed, -1))
	specialRatio := float64(specialChars) / float64(length)
	specialScore := 1 - specialRatio
	if specialScore < 0 {
		specialScore = 0
	}

	return clamp01((lengthScore + sentenceScore + keywordScore + specialScore) / 4)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"to": true, "in": true, "for": true, "on": true, "is": true, "are": true,
	"with": true, "by": true, "at": true, "be": true, "this": true, "that": true,
	"from": true, "as": true, "it": true, "its": true, "will": true, "can": true,
}

var wordRe = regexp.MustCompile(`[a-zA-Z][a-zA-Z\-]{2,}`)

// KeyPhrases returns the top-k frequency-ranked, stop-worded terms, with a
// 2x boost for grant-domain terms.
func KeyPhrases(text string, k int) []string {
	words := wordRe.FindAllString(strings.ToLower(text), -1)
	counts := map[string]float64{}
	for _, w := range words {
		if stopWords[w] {
			continue
		}
		weight := 1.0
		for _, kw := range grantKeywords {
			if strings.Contains(w, kw) {
				weight = 2.0
				break
			}
		}
		counts[w] += weight
	}

	type kv struct {
		word  string
		count float64
	}
	var list []kv
	for w, c := range counts {
		list = append(list, kv{w, c})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].count != list[j].count {
			return list[i].count > list[j].count
		}
		return list[i].word < list[j].word
	})

	if k > len(list) {
		k = len(list)
	}
	out := make([]string, k)
	for i := 0; i < k; i++ {
		out[i] = list[i].word
	}
	return out
}
