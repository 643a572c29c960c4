package textnorm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"full width latin and digits", "ＡＢＣ１２３", "abc123"},
		{"half width katakana", "ﾎｼｭ", "ホシュ"},
		{"ideographic space", "保守　売上", "保守 売上"},
		{"collapse and trim", "  保守   契約料 ", "保守 契約料"},
		{"ascii hyphen", "A-1", "a1"},
		{"full width hyphen", "Ａ－１", "a1"},
		{"long vowel mark", "サーバー", "サバ"},
		{"half width long vowel", "ｻｰﾊﾞｰ", "サバ"},
		{"half width voiced kana", "ｶﾞｽ代", "ガス代"},
		{"half width semi voiced kana", "ﾊﾟｿｺﾝ", "パソコン"},
		{"stray voiced mark", "ﾞa", "゛a"},
		{"em dash", "保守—契約", "保守契約"},
		{"tabs and newlines", "a\tb\nc", "a b c"},
		{"mixed", " Ｓａｌｅｓ　ﾎｼｭ-売上 ", "sales ホシュ売上"},
		{"unmapped pass through", "漢字ひらがな", "漢字ひらがな"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()
	inputs := []string{
		"",
		"ＡＢＣ　ＤＥＦ",
		"ｱｲｳｴｵ ｶﾞｷﾞ",
		"ﾞ-ﾟ ｶ-ﾞ",
		"plain ascii - text",
		"保守売上（１０月分）",
		"  ﾎｼｭ   ｹｲﾔｸ－ﾘｮｳ  ",
		"İstanbul ＫＥＬＶＩＮ",
		"　　",
	}
	for _, in := range inputs {
		once := Normalize(in)
		require.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestEqual(t *testing.T) {
	t.Parallel()
	require.True(t, Equal("保守売上", "保守売上"))
	require.True(t, Equal("ＨＯＳＨＵ　ｳﾘｱｹﾞ", "hoshu ウリアゲ"))
	require.True(t, Equal("ｶﾞｽ代", "ガス代"))
	require.False(t, Equal("保守売上", "保守費用"))
	require.True(t, Equal("", "   "))
}

func TestDisplay(t *testing.T) {
	t.Parallel()
	require.Equal(t, "", Display(""))
	require.Equal(t, "カタカナ", Display("ｶﾀｶﾅ"))
	require.Equal(t, "ガギグ", Display("ｶﾞｷﾞｸﾞ"))
	require.Equal(t, "パン", Display("ﾊﾟﾝ"))
	require.Equal(t, "売上 ABC 123", Display("売上 ABC 123"))
	require.Equal(t, "サーバー", Display("ｻｰﾊﾞｰ"))
}
