package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint returns a deterministic hash of the normalized input text,
// used as the embedding-cache key. Two texts that differ only in case or
// whitespace share a fingerprint.
func Fingerprint(text string) string {
	normalized := NormalizeText(text)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// NormalizeText lowercases the text and collapses all whitespace runs to a
// single space.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
