package search

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// snippetStopWords are question words too common to anchor a snippet.
var snippetStopWords = map[string]bool{
	"the": true, "and": true, "for": true, "was": true, "are": true, "did": true,
	"does": true, "what": true, "who": true, "how": true, "why": true, "when": true,
	"where": true, "which": true, "with": true, "that": true, "this": true, "from": true,
}

// Highlight collapses whitespace in content and cuts a window of at most maxLen
// characters around the first occurrence of a question term, marking cut ends
// with "...". Without a matching term the window starts at the beginning. A
// non-positive maxLen returns the collapsed content.
func Highlight(content, question string, maxLen int) string {
	content = strings.Join(strings.Fields(content), " ")
	runes := []rune(content)
	if maxLen <= 0 || len(runes) <= maxLen {
		return content
	}
	start := 0
	if pos := firstTerm(runes, question); pos > 0 {
		start = min(max(pos-maxLen/4, 0), len(runes)-maxLen)
	}
	end := start + maxLen
	out := strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		out = "..." + out
	}
	if end < len(runes) {
		out += "..."
	}
	return out
}

// firstTerm returns the rune offset of the earliest question term in text, matched
// case-insensitively, or -1.
func firstTerm(text []rune, question string) int {
	lower := make([]rune, len(text))
	for i, r := range text {
		lower[i] = unicode.ToLower(r)
	}
	best := -1
	for _, term := range strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if utf8.RuneCountInString(term) < 3 || snippetStopWords[term] {
			continue
		}
		if pos := indexRunes(lower, []rune(term)); pos >= 0 && (best < 0 || pos < best) {
			best = pos
		}
	}
	return best
}

func indexRunes(s, sub []rune) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		match := true
		for j := range sub {
			if s[i+j] != sub[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
