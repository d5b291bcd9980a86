package processor

import "testing"

func TestContentHashStableAndSensitive(t *testing.T) {
	h1 := ContentHash("Grant Title", "desc", "2025-12-31", "Acme Foundation", "https://example.org/apply")
	h2 := ContentHash("Grant Title", "desc", "2025-12-31", "Acme Foundation", "https://example.org/apply")
	if h1 != h2 {
		t.Fatal("expected identical inputs to hash identically")
	}
	h3 := ContentHash("Grant Title", "desc changed", "2025-12-31", "Acme Foundation", "https://example.org/apply")
	if h1 == h3 {
		t.Fatal("expected a changed description to change the content hash")
	}
}

func TestDuplicateHashIgnoresYearDigits(t *testing.T) {
	h1 := DuplicateHash("2025 Community Grant Program", "Acme Foundation")
	h2 := DuplicateHash("2026 Community Grant Program", "Acme Foundation")
	if h1 != h2 {
		t.Fatal("expected the duplicate hash to fold out digits so year-over-year postings collide")
	}
}

func TestDuplicateHashDiffersByFunder(t *testing.T) {
	h1 := DuplicateHash("Community Grant Program", "Acme Foundation")
	h2 := DuplicateHash("Community Grant Program", "Other Foundation")
	if h1 == h2 {
		t.Fatal("expected distinct funders to produce distinct duplicate hashes")
	}
}
