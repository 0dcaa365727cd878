// Package fingerprint canonicalises search queries into short dedup keys.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"unicode"
)

// Fingerprint returns a 16-hex-char key that is stable across token
// order, casing and punctuation. Queries that normalise to the same
// token set share a key, which is what the generation queue dedups on.
func Fingerprint(query string) string {
	normalized := Normalize(query)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:16]
}

// Normalize lowercases, strips everything that is neither alphanumeric
// nor whitespace, sorts the remaining tokens and joins them with single
// spaces.
func Normalize(query string) string {
	var b strings.Builder
	b.Grow(len(query))
	for _, r := range strings.ToLower(query) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	tokens := strings.Fields(b.String())
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
