package normalizer

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// numeric/unit rewrites applied after dictionary replacement, in order.
// Longer unit forms (連勝/連敗, 場所) come before their shorter suffixes.
var numberRewrites = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(\d+)連勝`), "${1}れんしょう"},
	{regexp.MustCompile(`(\d+)連敗`), "${1}れんぱい"},
	{regexp.MustCompile(`(\d+)勝`), "${1}しょう"},
	{regexp.MustCompile(`(\d+)敗`), "${1}はい"},
	{regexp.MustCompile(`(\d+)番`), "${1}ばん"},
	{regexp.MustCompile(`([1-9]|[12][0-9]|3[01])日`), "${1}にち"},
	{regexp.MustCompile(`(\d+)歳`), "${1}さい"},
	{regexp.MustCompile(`(\d+)年`), "${1}ねん"},
	{regexp.MustCompile(`([1-9]|1[0-2])月`), "${1}がつ"},
	{regexp.MustCompile(`(\d+)時`), "${1}じ"},
	{regexp.MustCompile(`(\d+)分`), "${1}ふん"},
	{regexp.MustCompile(`(\d+)人`), "${1}にん"},
	{regexp.MustCompile(`(\d+)回`), "${1}かい"},
	{regexp.MustCompile(`(\d+)場所`), "${1}ばしょ"},
	{regexp.MustCompile(`(\d+)位`), "${1}い"},
	// parenthesized age shorthand: 「（21＝...」 -> 「（21さい、...」
	{regexp.MustCompile(`（(\d+)＝`), "（${1}さい、"},
}

// normalizeNumbers converts numeral+unit patterns into a phonetic-friendly
// spelled form so the speech engine reads counters correctly.
func normalizeNumbers(text string) string {
	result := foldDigits(text)
	for _, rw := range numberRewrites {
		result = rw.re.ReplaceAllString(result, rw.repl)
	}
	return result
}

// foldDigits narrows full-width decimal digits to ASCII so one digit class
// matches both widths. Other characters (punctuation included) stay as-is.
func foldDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r > 127 && unicode.IsDigit(r) {
			b.WriteString(width.Fold.String(string(r)))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
