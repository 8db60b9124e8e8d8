package index

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CanonicalText returns the canonical text a model row is embedded from.
// The text is NFC-normalized so hashes stay stable regardless of how the
// source card encoded its accents.
func CanonicalText(name, description string) string {
	parts := []string{
		"name: " + strings.TrimSpace(name),
		"description: " + strings.TrimSpace(description),
	}
	return norm.NFC.String(strings.Join(parts, "\n"))
}

// TextHash returns a sha256 hash (hex) of the canonical text.
func TextHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
