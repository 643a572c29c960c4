// Package textnorm canonicalizes Japanese ledger text.
//
// Normalize is for equality comparison only; its output is never stored or
// displayed. Display produces the stored form of account names.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// halfwidthKana maps the half-width katakana block (U+FF65–U+FF9F) to full-width.
// Voiced marks map to the combining forms so NFC attaches them to the
// preceding kana.
var halfwidthKana = map[rune]rune{
	'･': '・', 'ｦ': 'ヲ', 'ｧ': 'ァ', 'ｨ': 'ィ', 'ｩ': 'ゥ', 'ｪ': 'ェ', 'ｫ': 'ォ', 'ｬ': 'ャ',
	'ｭ': 'ュ', 'ｮ': 'ョ', 'ｯ': 'ッ', 'ｰ': 'ー', 'ｱ': 'ア', 'ｲ': 'イ', 'ｳ': 'ウ', 'ｴ': 'エ',
	'ｵ': 'オ', 'ｶ': 'カ', 'ｷ': 'キ', 'ｸ': 'ク', 'ｹ': 'ケ', 'ｺ': 'コ', 'ｻ': 'サ', 'ｼ': 'シ',
	'ｽ': 'ス', 'ｾ': 'セ', 'ｿ': 'ソ', 'ﾀ': 'タ', 'ﾁ': 'チ', 'ﾂ': 'ツ', 'ﾃ': 'テ', 'ﾄ': 'ト',
	'ﾅ': 'ナ', 'ﾆ': 'ニ', 'ﾇ': 'ヌ', 'ﾈ': 'ネ', 'ﾉ': 'ノ', 'ﾊ': 'ハ', 'ﾋ': 'ヒ', 'ﾌ': 'フ',
	'ﾍ': 'ヘ', 'ﾎ': 'ホ', 'ﾏ': 'マ', 'ﾐ': 'ミ', 'ﾑ': 'ム', 'ﾒ': 'メ', 'ﾓ': 'モ', 'ﾔ': 'ヤ',
	'ﾕ': 'ユ', 'ﾖ': 'ヨ', 'ﾗ': 'ラ', 'ﾘ': 'リ', 'ﾙ': 'ル', 'ﾚ': 'レ', 'ﾛ': 'ロ', 'ﾜ': 'ワ',
	'ﾝ': 'ン', 'ﾞ': '\u3099', 'ﾟ': '\u309a',
}

// dashes are dropped before comparison: account names vary in hyphenation.
func isDash(r rune) bool {
	switch r {
	case '-', '‐', '‑', '‒', '–', '—', '―', '−', '－', '﹣', 'ー':
		return true
	}
	return false
}

// Normalize folds width, case, whitespace and dashes so that two strings
// compare equal iff they differ only in formatting. It is idempotent.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		b.WriteRune(foldRune(r))
	}
	composed := spacingMarks.Replace(norm.NFC.String(b.String()))

	b.Reset()
	for _, r := range composed {
		if !isDash(r) {
			b.WriteRune(r)
		}
	}
	return strings.ToLower(strings.Join(strings.Fields(b.String()), " "))
}

func foldRune(r rune) rune {
	// Full-width ASCII variants and U+3000 are the only EastAsianFullwidth
	// runes with a narrow counterpart we care about.
	if p := width.LookupRune(r); p.Kind() == width.EastAsianFullwidth {
		if n := p.Narrow(); n != 0 {
			r = n
		}
	}
	if w, ok := halfwidthKana[r]; ok {
		return w
	}
	if r != ' ' && unicode.IsSpace(r) {
		return ' '
	}
	return r
}

// Equal reports whether a and b are equal after normalization.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
