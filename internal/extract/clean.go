package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Clean normalizes extracted text: invalid UTF-8 is replaced, line endings become "\n",
// control characters other than newline and tab are dropped, and the result is trimmed.
func Clean(text string) string {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		// control characters other than these three are dropped
		switch {
		case r == '\r':
			b.WriteRune('\n')
		case r == '\n' || r == '\t' || !unicode.IsControl(r):
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
