package biometric

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// CleanLabel trims surrounding whitespace and collapses inner runs of spaces.
func CleanLabel(label string) string {
	return strings.Join(strings.Fields(label), " ")
}

// NormalizeLabel returns the comparison key of an identity label
// (clean, lowercase, no diacritics), so "Jiří Novák" and "jiri  novak" collide.
func NormalizeLabel(label string) string {
	return strings.ToLower(RemoveDiacritics(CleanLabel(label)))
}
