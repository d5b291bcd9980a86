package processor

import (
	"regexp"
	"strconv"
	"strings"
)

// CurrencyRates is a per-Processor-instance conversion table to USD.
// Defaults to the spec's published static rates (spec.md §4.3) — currency
// conversion is static configuration, not a live service, so test outcomes
// stay reproducible.
type CurrencyRates map[string]float64

// DefaultCurrencyRates returns the spec's default conversion table.
func DefaultCurrencyRates() CurrencyRates {
	return CurrencyRates{
		"EUR": 1.10,
		"GBP": 1.27,
		"CAD": 0.73,
		"AUD": 0.65,
		"JPY": 0.0067,
		"CHF": 1.14,
		"USD": 1.0,
	}
}

var numberRe = regexp.MustCompile(`[\d,]+(?:\.\d+)?`)
var millionRe = regexp.MustCompile(`(?i)([\d,]+(?:\.\d+)?)\s*million\b`)
var kSuffixRe = regexp.MustCompile(`(?i)([\d,]+(?:\.\d+)?)\s*k\b`)

func detectCurrencyPrefix(text string) string {
	switch {
	case strings.Contains(text, "€") || strings.Contains(strings.ToLower(text), "eur"):
		return "EUR"
	case strings.Contains(text, "£") || strings.Contains(strings.ToLower(text), "gbp"):
		return "GBP"
	case strings.Contains(text, "¥") || strings.Contains(strings.ToLower(text), "jpy"):
		return "JPY"
	case strings.Contains(strings.ToLower(text), "cad"):
		return "CAD"
	case strings.Contains(strings.ToLower(text), "aud"):
		return "AUD"
	case strings.Contains(strings.ToLower(text), "chf"):
		return "CHF"
	default:
		return "USD"
	}
}

// MoneyResult is the outcome of parsing a free-text funding amount.
type MoneyResult struct {
	Min     *int64
	Max     *int64
	Warning string
}

// ParseMoney recognizes "$X", "$X - $Y", "up to $X" (min=0), "minimum $X"
// (max=absent), "X to Y", and a trailing million/k multiplier, converting
// non-USD currency via rates (spec.md §4.3, scenarios #1-#3).
func ParseMoney(text string, rates CurrencyRates) MoneyResult {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return MoneyResult{Warning: "no funding amount text provided"}
	}

	currency := detectCurrencyPrefix(trimmed)
	rate := rates[currency]
	if rate == 0 {
		rate = 1.0
	}

	// Expand "X million" / "Xk" before extracting numbers so the
	// multiplier applies per-match.
	expanded := expandMultipliers(trimmed)

	numbers := extractNumbers(expanded)
	if len(numbers) == 0 {
		return MoneyResult{Warning: "no numeric amount found in funding text"}
	}

	lower := strings.ToLower(trimmed)
	upTo := strings.Contains(lower, "up to")
	minimum := strings.Contains(lower, "minimum") || strings.Contains(lower, "at least")

	var minVal, maxVal *int64
	switch {
	case len(numbers) >= 2 && (strings.Contains(lower, "-") || strings.Contains(lower, " to ") || strings.Contains(lower, "–")):
		lo, hi := numbers[0], numbers[1]
		if lo > hi {
			lo, hi = hi, lo
		}
		minVal = toUSDPtr(lo, rate)
		maxVal = toUSDPtr(hi, rate)
	case upTo:
		zero := int64(0)
		minVal = &zero
		maxVal = toUSDPtr(numbers[0], rate)
	case minimum:
		minVal = toUSDPtr(numbers[0], rate)
	default:
		minVal = toUSDPtr(numbers[0], rate)
		maxVal = toUSDPtr(numbers[0], rate)
	}

	return MoneyResult{Min: minVal, Max: maxVal}
}

// expandMultipliers rewrites "X million" and "Xk" into their scaled plain
// numeric form (e.g. "2 million" -> "2000000", "50k" -> "50000") so
// extractNumbers never has to special-case a multiplier after the fact.
func expandMultipliers(text string) string {
	text = millionRe.ReplaceAllStringFunc(text, func(m string) string { return scaleMatch(millionRe, m, 1_000_000) })
	text = kSuffixRe.ReplaceAllStringFunc(text, func(m string) string { return scaleMatch(kSuffixRe, m, 1_000) })
	return text
}

// scaleMatch parses the captured number out of a multiplier match and
// returns it scaled by factor, formatted as a plain decimal string. It
// returns the original match unchanged if the captured group fails to parse.
func scaleMatch(re *regexp.Regexp, match string, factor float64) string {
	sub := re.FindStringSubmatch(match)
	if len(sub) < 2 {
		return match
	}
	clean := strings.ReplaceAll(sub[1], ",", "")
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return match
	}
	return strconv.FormatFloat(v*factor, 'f', -1, 64)
}

func extractNumbers(text string) []float64 {
	matches := numberRe.FindAllString(text, -1)
	var out []float64
	for _, m := range matches {
		clean := strings.ReplaceAll(m, ",", "")
		v, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func toUSDPtr(amount float64, rate float64) *int64 {
	v := int64(amount * rate)
	return &v
}
