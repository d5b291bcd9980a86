package processor

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

var whitespaceRe = regexp.MustCompile(`\s+`)
var bangsRe = regexp.MustCompile(`!{2,}`)
var questionsRe = regexp.MustCompile(`\?{2,}`)
var ellipsisRe = regexp.MustCompile(`\.{3,}`)

var sanitizePolicy = bluemonday.StrictPolicy()

// NormalizeText strips HTML tags, decodes entities, and collapses
// whitespace. In aggressive mode it also collapses repeated punctuation
// runs (spec.md §4.3). Grounded on the teacher's HTMLToText/cleanText.
func NormalizeText(s string, aggressive bool) string {
	stripped := StripHTML(s)
	decoded := html.UnescapeString(stripped)
	collapsed := whitespaceRe.ReplaceAllString(decoded, " ")
	collapsed = strings.TrimSpace(collapsed)

	if aggressive {
		collapsed = bangsRe.ReplaceAllString(collapsed, "!")
		collapsed = questionsRe.ReplaceAllString(collapsed, "?")
		collapsed = ellipsisRe.ReplaceAllString(collapsed, "…")
	}
	return collapsed
}

// StripHTML converts HTML to plain text using goquery, falling back to the
// raw string if it fails to parse.
func StripHTML(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return doc.Text()
}

// SanitizeHTML removes every HTML tag and attribute (bluemonday's strict
// policy), keeping only the text content.
func SanitizeHTML(s string) string {
	return sanitizePolicy.Sanitize(s)
}
