package embedding

import (
	"hash/fnv"
	"strings"
	"unicode"
)

// SplitWords lowercases text and splits it into runs of letters and digits.
func SplitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// HashString returns a deterministic 32-bit FNV-1a hash of s.
func HashString(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
