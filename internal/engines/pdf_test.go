package engines

import (
	"strings"
	"testing"
)

func TestNeedsOCRShortText(t *testing.T) {
	if !needsOCR("too short") {
		t.Error("expected short text to need OCR")
	}
}

func TestNeedsOCRNoisyText(t *testing.T) {
	long := strings.Repeat("grant ### $$$ %%% ", 10)
	if !needsOCR(long) {
		t.Error("expected symbol-heavy text to need OCR")
	}
}

func TestNeedsOCRCleanText(t *testing.T) {
	clean := "This grant funds community health clinics across the region with an emphasis on preventive care and outreach programs for underserved populations."
	if needsOCR(clean) {
		t.Error("did not expect clean text to need OCR")
	}
}

func TestSimilarLength(t *testing.T) {
	if !similarLength("abcdefghij", "abcdefghi") {
		t.Error("expected near-equal lengths to be similar")
	}
	if similarLength("short", "a much much much longer string than short") {
		t.Error("expected very different lengths to not be similar")
	}
	if similarLength("", "anything") {
		t.Error("expected empty string to never be similar")
	}
}

func TestSplitSectionsNoHeaders(t *testing.T) {
	sections := splitSections("just a single paragraph with no headers at all")
	if len(sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(sections))
	}
}

func TestSplitSectionsWithHeaders(t *testing.T) {
	text := "ELIGIBILITY REQUIREMENTS\nMust be a nonprofit.\n\nFUNDING AMOUNTS\nUp to $50,000."
	sections := splitSections(text)
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
}

func TestExtractTablesFindsMultiSpaceRows(t *testing.T) {
	section := "Category    Amount    Deadline\nHealth      $10,000   2026-12-01"
	tables := extractTables(section)
	if len(tables) != 2 {
		t.Fatalf("expected 2 table rows, got %d", len(tables))
	}
	if len(tables[0]) != 3 {
		t.Errorf("expected 3 columns in header row, got %d", len(tables[0]))
	}
}

func TestFirstLine(t *testing.T) {
	if got := firstLine("Title Line\nRest of the body"); got != "Title Line" {
		t.Errorf("unexpected first line: %q", got)
	}
}

func TestExtractDeadlineEvidenceRanksLabeledDateFirst(t *testing.T) {
	section := "Letters of interest are welcome any time. Application deadline: December 1, 2026. " +
		"A separate informational webinar is tentatively planned for 11/03/2026."
	evidence := extractDeadlineEvidence(section)
	if len(evidence) != 2 {
		t.Fatalf("expected 2 evidence candidates, got %d: %+v", len(evidence), evidence)
	}
	if evidence[0].Label != "deadline" {
		t.Errorf("expected the labeled date to rank first, got label %q", evidence[0].Label)
	}
	if evidence[0].Confidence <= evidence[1].Confidence {
		t.Errorf("expected the labeled match to have higher confidence than the unlabeled one")
	}
}

func TestExtractDeadlineEvidenceNoneFound(t *testing.T) {
	if got := extractDeadlineEvidence("no dates anywhere in this text"); got != nil {
		t.Errorf("expected nil evidence, got %+v", got)
	}
}
