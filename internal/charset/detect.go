// Package charset decodes ledger exports whose text encoding is not declared.
package charset

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/jask/glrecon/internal/apperr"
)

const (
	ShiftJIS  = "shift_jis"
	EUCJP     = "euc-jp"
	UTF8      = "utf-8"
	ISO2022JP = "iso-2022-jp"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type candidate struct {
	name string
	enc  encoding.Encoding
}

// candidates are tried in this order; earlier entries win ties.
var candidates = []candidate{
	{ShiftJIS, japanese.ShiftJIS},
	{EUCJP, japanese.EUCJP},
	{UTF8, unicode.UTF8},
	{ISO2022JP, japanese.ISO2022JP},
}

// aliases accepted in addition to the WHATWG labels known to htmlindex.
var aliases = map[string]string{
	"cp932": ShiftJIS,
	"sjis":  ShiftJIS,
	"eucjp": EUCJP,
	"utf8":  UTF8,
	"jis":   ISO2022JP,
}

// Decoded is decoded text together with the encoding that produced it.
type Decoded struct {
	Text     string
	Encoding string
}

// Decode decodes data with hint when one is given, failing with an encoding
// error if the bytes are not valid in that encoding. Without a hint the
// encoding is detected.
func Decode(data []byte, hint string) (Decoded, error) {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint == "" || hint == "auto" {
		return Detect(data), nil
	}
	if a, ok := aliases[hint]; ok {
		hint = a
	}
	enc, err := htmlindex.Get(hint)
	if err != nil {
		return Decoded{}, apperr.Encoding("unsupported encoding %q", hint)
	}
	name, _ := htmlindex.Name(enc)
	if name == UTF8 {
		data = bytes.TrimPrefix(data, utf8BOM)
		if !utf8.Valid(data) {
			return Decoded{}, apperr.Encoding("input is not valid %s", name)
		}
		return Decoded{Text: string(data), Encoding: UTF8}, nil
	}
	text, bad, err := decodeWith(enc, data)
	if err != nil {
		return Decoded{}, apperr.Encoding("decode as %s", name).WithDetail(err.Error())
	}
	if bad > 0 {
		return Decoded{}, apperr.Encoding("input is not valid %s: %d undecodable sequences", name, bad)
	}
	return Decoded{Text: text, Encoding: name}, nil
}

// Detect picks the candidate encoding whose decoding scores highest, where the
// score is the number of CJK characters minus ten per replacement character.
// A UTF-8 byte order mark or well-formed multi-byte UTF-8 is taken as declared.
// When no candidate scores above zero the input is treated as UTF-8.
func Detect(data []byte) Decoded {
	if bytes.HasPrefix(data, utf8BOM) {
		return Decoded{Text: toValidUTF8(data[len(utf8BOM):]), Encoding: UTF8}
	}
	if utf8.Valid(data) && !isASCII(data) {
		return Decoded{Text: string(data), Encoding: UTF8}
	}

	best := Decoded{Text: toValidUTF8(data), Encoding: UTF8}
	bestScore := 0
	for _, c := range candidates {
		text, _, err := decodeWith(c.enc, data)
		if err != nil {
			continue
		}
		if s := Score(text); s > bestScore {
			best = Decoded{Text: text, Encoding: c.name}
			bestScore = s
		}
	}
	return best
}

// Score rates how plausible text is as decoded Japanese.
func Score(text string) int {
	cjk, bad := 0, 0
	for _, r := range text {
		switch {
		case r == utf8.RuneError:
			bad++
		case isCJK(r):
			cjk++
		}
	}
	return cjk - 10*bad
}

func decodeWith(enc encoding.Encoding, data []byte) (string, int, error) {
	if enc == unicode.UTF8 {
		bad := 0
		for i := 0; i < len(data); {
			r, size := utf8.DecodeRune(data[i:])
			if r == utf8.RuneError && size <= 1 {
				bad++
			}
			i += size
		}
		return toValidUTF8(data), bad, nil
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", 0, err
	}
	text := string(out)
	return text, strings.Count(text, string(utf8.RuneError)), nil
}

func isCJK(r rune) bool {
	switch {
	case r >= 0x3040 && r <= 0x30FF: // hiragana, katakana
		return true
	case r >= 0x3400 && r <= 0x4DBF:
		return true
	case r >= 0x4E00 && r <= 0x9FFF:
		return true
	case r >= 0xF900 && r <= 0xFAFF:
		return true
	}
	return false
}

func isASCII(data []byte) bool {
	for _, c := range data {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func toValidUTF8(data []byte) string {
	return strings.ToValidUTF8(string(data), string(utf8.RuneError))
}
