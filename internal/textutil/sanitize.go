package textutil

import (
	"strings"
	"unicode"
)

// SanitizeFileName makes name safe to use as an output file base name.
// Path separators, colons, and asterisks become dashes. Other characters
// that Windows or Samba shares reject, and control characters, are dropped.
// Surrounding spaces and dots are trimmed so the result can never name a
// parent directory.
func SanitizeFileName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*':
			return '-'
		case '?', '"', '<', '>', '|':
			return -1
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	return strings.Trim(name, ". ")
}
