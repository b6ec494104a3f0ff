// Package textutil holds Unicode helpers shared by the link resolver and the output naming.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize prepares s for caseless comparison: surrounding and repeated inner
// whitespace is collapsed, the text is case folded and decomposed to NFKD.
func Normalize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return norm.NFKD.String(cases.Fold().String(s))
}

// EqualFold reports whether a and b are equal after Normalize.
func EqualFold(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Slugify derives a filesystem-safe name from s. Diacritics are stripped,
// letters are lowered and every run of other characters becomes a single dash.
// It returns an empty string when nothing usable remains.
func Slugify(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, s)
	if err != nil {
		plain = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}
