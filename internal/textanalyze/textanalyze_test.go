package textanalyze

import "testing"

func TestExtractFunding(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"range", "Awards range from $10,000 - $50,000 per project.", "10,000 - $50,000"},
		{"up to", "Up to $100,000 available for qualifying applicants.", "100,000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := ExtractFunding(tt.text)
			if len(matches) == 0 {
				t.Fatalf("expected at least one match for %q", tt.text)
			}
		})
	}
}

func TestExtractDeadlineISO(t *testing.T) {
	matches := ExtractDeadline("Applications close on 2025-12-31 at midnight.")
	best, ok := BestMatch(matches)
	if !ok {
		t.Fatal("expected a deadline match")
	}
	if best.Value != "2025-12-31" {
		t.Fatalf("got %q, want 2025-12-31", best.Value)
	}
}

func TestDetectGrantType(t *testing.T) {
	types := DetectGrantType("This research grant funds scientific study of climate change.")
	found := map[string]bool{}
	for _, ty := range types {
		found[ty] = true
	}
	if !found["research"] || !found["environment"] {
		t.Fatalf("expected research and environment in %v", types)
	}
}

func TestTextQualityEmpty(t *testing.T) {
	if q := TextQuality(""); q != 0 {
		t.Fatalf("expected 0 for empty text, got %v", q)
	}
}

func TestExtractContactInfo(t *testing.T) {
	info := ExtractContactInfo("Contact grants@example.org or call 555-123-4567. See https://example.org/apply")
	if len(info.Emails) != 1 || info.Emails[0] != "grants@example.org" {
		t.Fatalf("unexpected emails: %v", info.Emails)
	}
	if len(info.Websites) != 1 {
		t.Fatalf("unexpected websites: %v", info.Websites)
	}
}

func TestKeyPhrases(t *testing.T) {
	phrases := KeyPhrases("grant grant funding research community community community", 2)
	if len(phrases) != 2 {
		t.Fatalf("expected 2 phrases, got %v", phrases)
	}
}
