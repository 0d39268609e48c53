package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Slugify lower-cases s, strips accents from Latin letters, and joins word
// runs with hyphens. Letters of other scripts (Sinhala, Tamil) are kept with
// their vowel signs.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	prevASCII := false
	for _, r := range norm.NFKD.String(s) {
		switch {
		case unicode.Is(unicode.Mn, r) && prevASCII:
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r):
			b.WriteRune(unicode.ToLower(r))
			dash = false
			prevASCII = r < unicode.MaxASCII
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
			prevASCII = false
		}
	}
	return norm.NFC.String(strings.TrimSuffix(b.String(), "-"))
}
