package engines

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/otiai10/gosseract/v2"
	"rsc.io/pdf"

	"github.com/david/grant-ingest/internal/model"
	"github.com/david/grant-ingest/internal/processor"
	"github.com/david/grant-ingest/internal/ratelimit"
)

// PDFEngine downloads a PDF, extracts text with rsc.io/pdf, and falls back
// to OCR via otiai10/gosseract/v2 when the extracted text is too short or
// too noisy (spec.md §4.2). Grounded on the spec's own description of this
// engine; the teacher repo has no PDF ingestion path, so the shape here is
// built fresh in the corpus's idiom from rsc.io/pdf (a teacher dependency)
// plus gosseract (the only OCR binding anywhere in the retrieved pack).
type PDFEngine struct {
	client  *http.Client
	limiter *ratelimit.Limiter
}

// NewPDFEngine returns a PDFEngine sharing limiter across sources.
func NewPDFEngine(limiter *ratelimit.Limiter) *PDFEngine {
	return &PDFEngine{client: &http.Client{Timeout: 60 * time.Second}, limiter: limiter}
}

var headerRe = regexp.MustCompile(`(?m)^[A-Z][A-Z\s]{4,60}$`)
var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

var dateSnippetRe = regexp.MustCompile(`(?i)\b(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4}|(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}|\d{1,2}\s+(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{4})\b`)
var deadlineLabelHints = []string{"deadline", "due date", "closing date", "closes", "applications close", "submission deadline"}

func (e *PDFEngine) Fetch(ctx context.Context, source model.Source) ([]model.RawGrant, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, source); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &FatalError{Reason: "pdf engine download failed", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, &FatalError{Reason: "pdf engine download failed", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FatalError{Reason: "pdf engine read failed", Err: err}
	}

	extracted, pageConfidence, err := extractPDFText(raw)
	if err != nil {
		return nil, &FatalError{Reason: "pdf engine parse failed", Err: err}
	}

	finalText := extracted
	usedOCR := false
	if needsOCR(extracted) {
		ocrText, ocrErr := runOCR(raw, source.OCRLanguage)
		if ocrErr == nil && ocrText != "" {
			usedOCR = true
			if similarLength(extracted, ocrText) {
				finalText = extracted + "\n---OCR---\n" + ocrText
			} else if len(ocrText) > len(extracted) {
				finalText = ocrText
			}
		}
	}

	sections := splitSections(finalText)
	var grants []model.RawGrant
	for i, section := range sections {
		evidence := extractDeadlineEvidence(section)
		grant := model.RawGrant{
			Title:            firstLine(section),
			Description:      section,
			SourceURL:        source.URL,
			ScrapedAt:        time.Now(),
			DeadlineEvidence: evidence,
			RawContent: map[string]any{
				"section_index":   i,
				"used_ocr":        usedOCR,
				"page_confidence": pageConfidence,
				"tables":          extractTables(section),
			},
		}
		if len(evidence) > 0 {
			grant.Deadline = strings.SplitN(evidence[0].ParsedISO, "T", 2)[0]
		}
		grants = append(grants, grant)
	}
	return grants, nil
}

// ExtractDeadlineEvidence exposes extractDeadlineEvidence for callers
// outside this package (the admin CLI's enrich tool re-runs it against
// text already in the GrantStore, per spec.md §6).
func ExtractDeadlineEvidence(text string) []model.DeadlineEvidence {
	return extractDeadlineEvidence(text)
}

// extractDeadlineEvidence scans a section for date-like substrings and
// ranks them into DeadlineEvidence, favoring matches near a deadline-style
// label (spec.md §6 evidence-based deadline enrichment). Grounded on the
// teacher's parseDeadlineEvidenceFromText in pdf_deadline_extractor.go,
// adapted to use this pipeline's own processor.ParseDate instead of the
// teacher's locale-aware parseDateRobust (this pipeline is US-first only,
// per internal/processor/date.go).
func extractDeadlineEvidence(section string) []model.DeadlineEvidence {
	locs := dateSnippetRe.FindAllStringIndex(section, -1)
	if len(locs) == 0 {
		return nil
	}

	seen := map[string]bool{}
	var out []model.DeadlineEvidence
	for _, loc := range locs {
		token := strings.TrimSpace(section[loc[0]:loc[1]])
		parsed, ok := processor.ParseDate(token)
		if !ok {
			continue
		}
		iso := parsed.UTC().Format(time.RFC3339)
		if seen[iso] {
			continue
		}
		seen[iso] = true

		start := loc[0] - 80
		if start < 0 {
			start = 0
		}
		end := loc[1] + 80
		if end > len(section) {
			end = len(section)
		}
		snippet := multiSpaceRe.ReplaceAllString(strings.ReplaceAll(section[start:end], "\n", " "), " ")
		snippet = strings.TrimSpace(snippet)

		label := ""
		confidence := 0.5
		snippetLower := strings.ToLower(snippet)
		for _, hint := range deadlineLabelHints {
			if strings.Contains(snippetLower, hint) {
				label = hint
				confidence = 0.85
				break
			}
		}

		out = append(out, model.DeadlineEvidence{
			Source:     "pdf_text",
			Label:      label,
			Snippet:    snippet,
			ParsedISO:  iso,
			Confidence: confidence,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].ParsedISO < out[j].ParsedISO
	})
	return out
}

func extractPDFText(raw []byte) (string, float64, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", 0, err
	}

	var sb strings.Builder
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content := page.Content()
		for _, txt := range content.Text {
			sb.WriteString(txt.S)
		}
		sb.WriteString("\n")
	}
	confidence := 1.0
	if pages == 0 {
		confidence = 0
	}
	return sb.String(), confidence, nil
}

func needsOCR(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 100 {
		return true
	}
	return nonAlphaNumericRatio(trimmed) > 0.3
}

func nonAlphaNumericRatio(s string) float64 {
	if s == "" {
		return 0
	}
	count := 0
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			count++
		}
	}
	return float64(count) / float64(len([]rune(s)))
}

func similarLength(a, b string) bool {
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return false
	}
	ratio := float64(la) / float64(lb)
	return ratio > 0.7 && ratio < 1.3
}

func runOCR(raw []byte, language string) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()
	if language != "" {
		if err := client.SetLanguage(language); err != nil {
			return "", err
		}
	}
	if err := client.SetImageFromBytes(raw); err != nil {
		return "", err
	}
	return client.Text()
}

func splitSections(text string) []string {
	matches := headerRe.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return []string{text}
	}
	var sections []string
	for i, m := range matches {
		start := m[0]
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		sections = append(sections, strings.TrimSpace(text[start:end]))
	}
	return sections
}

func firstLine(s string) string {
	lines := strings.SplitN(s, "\n", 2)
	return strings.TrimSpace(lines[0])
}

// extractTables splits lines with 2+ consecutive spaces into column rows —
// a heuristic table detector for text-extracted PDFs (spec.md §4.2).
func extractTables(section string) [][]string {
	var tables [][]string
	for _, line := range strings.Split(section, "\n") {
		if multiSpaceRe.MatchString(line) {
			cols := multiSpaceRe.Split(strings.TrimSpace(line), -1)
			tables = append(tables, cols)
		}
	}
	return tables
}
