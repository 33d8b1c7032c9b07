package deck

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Normalize cleans and joins the identity-bearing fields of a deck entry.
// Word and translation are trimmed, lowercased and line-ending normalized
// before joining; example and category are deliberately excluded so that
// editing them in a deck file does not create a new item.
func Normalize(word, translation string) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	// Joined with a newline so adjacent fields can never run together,
	// e.g. "geh" + "en" colliding with "gehen" + "".
	return strings.Join([]string{normalizePart(word), normalizePart(translation)}, "\n")
}

// Fingerprint returns the SHA-256 of the normalized word/translation pair as
// a hex string. It is the dedup key used during source reconciliation.
func Fingerprint(word, translation string) string {
	normalized := Normalize(word, translation)
	hashBytes := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", hashBytes)
}
