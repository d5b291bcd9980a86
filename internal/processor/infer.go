package processor

import (
	"net/url"
	"strings"

	"github.com/david/grant-ingest/internal/model"
)

// ValidateURL prepends https:// to a bare host+path, rejects anything that
// still fails to parse as an absolute URL afterwards, and canonicalizes
// what remains (spec.md §6 content-type aware canonicalization).
func ValidateURL(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return "", false
	}
	return CanonicalizeURL(u), true
}

var trackingParamPrefixes = []string{"utm_"}
var trackingParamNames = []string{"fbclid", "gclid", "mc_cid", "mc_eid", "mkt_tok", "ref", "session", "s_cid"}

// CanonicalizeURL lowercases the host, drops the fragment, and strips known
// tracking query parameters so the same application page always produces
// the same URL regardless of which marketing link surfaced it.
func CanonicalizeURL(u *url.URL) string {
	canon := *u
	canon.Host = strings.ToLower(canon.Host)
	canon.Fragment = ""

	q := canon.Query()
	for k := range q {
		for _, prefix := range trackingParamPrefixes {
			if strings.HasPrefix(k, prefix) {
				q.Del(k)
			}
		}
	}
	for _, p := range trackingParamNames {
		q.Del(p)
	}
	canon.RawQuery = q.Encode()

	return canon.String()
}

var governmentMarkers = []string{".gov", "department of", "ministry of", "agency", "federal", "national institute"}
var ngoMarkers = []string{"who.int", "world bank", "unicef", "un.org", ".ngo", "foundation for", "alliance", "coalition"}
var businessSuffixes = []string{"inc.", "inc", "corp", "corporation", "llc", "ltd", "co.", "company", "plc"}

// InferFunderType classifies a funder by name/website heuristics, defaulting
// to "foundation" when no marker matches (spec.md §4.3).
func InferFunderType(name, website string) model.SourceType {
	lower := strings.ToLower(name + " " + website)
	for _, m := range governmentMarkers {
		if strings.Contains(lower, m) {
			return model.SourceTypeGovernment
		}
	}
	for _, m := range ngoMarkers {
		if strings.Contains(lower, m) {
			return model.SourceTypeNGO
		}
	}
	for _, suf := range businessSuffixes {
		if strings.HasSuffix(strings.TrimSpace(lower), suf) {
			return model.SourceTypeBusiness
		}
	}
	return model.SourceTypeFoundation
}

var usStates = []string{
	"alabama", "alaska", "arizona", "arkansas", "california", "colorado", "connecticut",
	"delaware", "florida", "georgia", "hawaii", "idaho", "illinois", "indiana", "iowa",
	"kansas", "kentucky", "louisiana", "maine", "maryland", "massachusetts", "michigan",
	"minnesota", "mississippi", "missouri", "montana", "nebraska", "nevada",
	"new hampshire", "new jersey", "new mexico", "new york", "north carolina",
	"north dakota", "ohio", "oklahoma", "oregon", "pennsylvania", "rhode island",
	"south carolina", "south dakota", "tennessee", "texas", "utah", "vermont",
	"virginia", "washington", "west virginia", "wisconsin", "wyoming",
}

var countryMarkers = []string{
	"united states", "canada", "united kingdom", "australia", "mexico",
	"germany", "france", "india", "brazil", "japan", "nigeria", "kenya",
}

var regionMarkers = []string{
	"nationwide", "national", "worldwide", "global", "international",
	"northeast", "southeast", "midwest", "southwest", "pacific northwest",
}

// InferLocations returns the distinct location-eligibility terms that appear
// in text: US states, country names, and broad region markers, each
// title-cased. Order is deterministic (states, then countries, then
// regions) so repeated calls produce stable output for hashing/tests.
func InferLocations(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	seen := map[string]bool{}
	add := func(term string) {
		if !seen[term] {
			seen[term] = true
			out = append(out, titleCase(term))
		}
	}
	for _, s := range usStates {
		if strings.Contains(lower, s) {
			add(s)
		}
	}
	for _, c := range countryMarkers {
		if strings.Contains(lower, c) {
			add(c)
		}
	}
	for _, r := range regionMarkers {
		if strings.Contains(lower, r) {
			add(r)
		}
	}
	return out
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

var categoryKeywords = map[model.Category][]string{
	model.CategoryHealthcare:     {"health", "medical", "clinical", "hospital", "disease", "wellness"},
	model.CategoryEducation:      {"education", "school", "student", "scholarship", "training", "curriculum"},
	model.CategoryEnvironment:    {"environment", "climate", "sustainab", "conservation", "renewable"},
	model.CategorySocialServices: {"social service", "housing", "poverty", "welfare", "homeless", "food insecurity"},
	model.CategoryArtsCulture:    {"arts", "culture", "museum", "artist", "music", "theater"},
	model.CategoryTechnology:     {"technology", "innovation", "software", "digital", "startup", "tech"},
	model.CategoryResearch:       {"research", "scientific", "laboratory", "study", "investigat"},
	model.CategoryCommunityDev:   {"community", "neighborhood", "civic", "grassroots", "local development"},
}

var categoryOrder = []model.Category{
	model.CategoryHealthcare, model.CategoryEducation, model.CategoryEnvironment,
	model.CategorySocialServices, model.CategoryArtsCulture, model.CategoryTechnology,
	model.CategoryResearch, model.CategoryCommunityDev,
}

// InferCategory picks the category with the most keyword hits, defaulting
// to community development when nothing matches (spec.md §4.3).
func InferCategory(text string) model.Category {
	lower := strings.ToLower(text)
	best := model.CategoryCommunityDev
	bestHits := 0
	for _, cat := range categoryOrder {
		hits := 0
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			best = cat
		}
	}
	return best
}
