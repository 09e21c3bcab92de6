package syntax

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Fingerprint returns a short content hash used to key documents and
// findings across generations.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])[:16]
}

// TextKey hashes source text after collapsing whitespace, so the same
// construct keys identically after unrelated reformatting.
func TextKey(text string) string {
	return Fingerprint([]byte(Canonical(text)))
}

// Canonical collapses all whitespace runs to a single space.
func Canonical(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// Compact removes all whitespace, e.g. for comparing type references.
func Compact(text string) string {
	return whitespaceRe.ReplaceAllString(text, "")
}
