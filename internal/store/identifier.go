package store

import (
	"path/filepath"
	"strings"
)

// SanitizeIdentifier reduces a candidate table name to a safe SQL
// identifier: word characters only, starting with a letter or underscore.
// Returns empty string when nothing usable remains.
func SanitizeIdentifier(name string) string {
	var b strings.Builder
	for _, r := range name {
		if isWordRune(r) {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		return ""
	}
	first := out[0]
	if first != '_' && (first < 'a' || first > 'z') && (first < 'A' || first > 'Z') {
		return ""
	}
	return out
}

// TableNameFromFilename derives a sanitized table name from an uploaded
// filename: extension stripped, lowercased, every non-word run replaced
// with an underscore. "Billing Data.CSV" -> "billing_data".
func TableNameFromFilename(filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ToLower(base)

	var b strings.Builder
	for _, r := range base {
		if isWordRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
