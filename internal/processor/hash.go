package processor

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var hashWhitespaceRe = regexp.MustCompile(`\s+`)
var hashPunctuationRe = regexp.MustCompile(`[^\w\s]`)

// canonicalStrict lowercases, strips punctuation, and collapses whitespace.
// Used for the content hash.
func canonicalStrict(fields ...string) string {
	joined := strings.Join(fields, "|")
	joined = strings.ToLower(joined)
	joined = hashPunctuationRe.ReplaceAllString(joined, "")
	joined = hashWhitespaceRe.ReplaceAllString(joined, " ")
	return strings.TrimSpace(joined)
}

// canonicalRelaxed keeps only title and funder, further folding digits out
// of the title so cosmetic re-scrapes (a changed application-cycle year,
// changed punctuation or casing) still collide on the duplicate hash. Word
// order is kept, so re-ordered titles do not collide.
func canonicalRelaxed(title, funder string) string {
	t := strings.ToLower(title)
	t = hashPunctuationRe.ReplaceAllString(t, "")
	t = regexp.MustCompile(`\d+`).ReplaceAllString(t, "")
	t = hashWhitespaceRe.ReplaceAllString(t, " ")
	f := strings.ToLower(strings.TrimSpace(funder))
	return strings.TrimSpace(t) + "|" + f
}

// ContentHash returns the SHA-256 hex digest of the canonical form of a
// grant's title, description, deadline, funder name and application URL —
// used to detect whether those fields changed between scrapes. Amounts,
// category, locations and eligibility are not hashed, so a change confined
// to them leaves the content hash unchanged.
func ContentHash(title, description, deadline, funder, applicationURL string) string {
	canon := canonicalStrict(title, description, deadline, funder, applicationURL)
	sum := sha256.Sum256([]byte(canon))
	return hex.EncodeToString(sum[:])
}

// DuplicateHash returns the MD5 hex digest of a relaxed canonical form —
// used to group near-identical postings of the same opportunity across
// sources that is less strict than ContentHash.
func DuplicateHash(title, funder string) string {
	canon := canonicalRelaxed(title, funder)
	sum := md5.Sum([]byte(canon))
	return hex.EncodeToString(sum[:])
}
