package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize returns s in NFC with every whitespace run collapsed to a single
// space and no leading or trailing space.
func Normalize(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// IsCJK reports whether r belongs to a script written without spaces
// between words.
func IsCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul, unicode.Bopomofo)
}

// IsBreak reports whether text may be broken between prev and next: after
// whitespace, after punctuation, or between two CJK characters.
func IsBreak(prev, next rune) bool {
	switch {
	case unicode.IsSpace(prev):
		return true
	case unicode.IsPunct(prev):
		return true
	case IsCJK(prev) && IsCJK(next):
		return true
	default:
		return false
	}
}

// Join concatenates two normalized fragments, inserting a space unless the
// seam falls between two CJK characters or before closing punctuation.
func Join(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	last := lastRune(a)
	first := firstRune(b)
	if IsCJK(last) && (IsCJK(first) || unicode.IsPunct(first)) {
		return a + b
	}
	if unicode.Is(unicode.Pe, first) || unicode.Is(unicode.Pf, first) || strings.ContainsRune(",.!?;:，。！？；：、", first) {
		return a + b
	}
	return a + " " + b
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

func lastRune(s string) rune {
	rs := []rune(s)
	if len(rs) == 0 {
		return 0
	}
	return rs[len(rs)-1]
}
