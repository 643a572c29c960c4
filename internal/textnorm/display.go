package textnorm

import (
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Display widens half-width katakana for storage and display, composing voiced
// marks with the preceding kana (ｶﾞ → ガ). Other characters, including ASCII,
// are left unchanged.
func Display(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s) * 2)
	for _, r := range s {
		if p := width.LookupRune(r); p.Kind() == width.EastAsianHalfwidth && r >= 0xFF61 && r <= 0xFF9F {
			if w := p.Wide(); w != 0 {
				r = w
			}
		}
		b.WriteRune(r)
	}
	return spacingMarks.Replace(norm.NFC.String(b.String()))
}

// spacingMarks turns voiced marks left uncombined by NFC back into their
// spacing forms.
var spacingMarks = strings.NewReplacer("\u3099", "\u309b", "\u309a", "\u309c")
