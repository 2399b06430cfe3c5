// Package indexer turns uploaded documents into stored, embedded chunks.
package indexer

import (
	"fmt"
	"unicode"

	"github.com/hyperjump/docqa/internal/apperr"
)

// Chunker splits text into overlapping character windows, preferring to cut at
// paragraph, line, sentence or word boundaries near the end of each window.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	lookback     int
}

// NewChunker creates a chunker with the given size and overlap (in characters).
// It requires chunkSize > 0 and 0 <= chunkOverlap < chunkSize.
func NewChunker(chunkSize, chunkOverlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, apperr.New(apperr.Validation, "chunker", fmt.Sprintf("chunk size must be positive, got %d", chunkSize))
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, apperr.New(apperr.Validation, "chunker",
			fmt.Sprintf("chunk overlap must be in [0, %d), got %d", chunkSize, chunkOverlap))
	}
	// A cut must leave the chunk longer than the overlap so the next window advances.
	lookback := min(chunkSize/4, chunkSize-chunkOverlap-1)
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		lookback:     lookback,
	}, nil
}

// Chunks splits text into ordered chunks of at most chunkSize characters. Each chunk after
// the first begins with the last chunkOverlap characters of its predecessor.
func (c *Chunker) Chunks(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	var chunks []string
	start := 0
	for {
		if len(runes)-start <= c.chunkSize {
			return append(chunks, string(runes[start:]))
		}
		end := start + c.chunkSize
		if cut, ok := c.boundary(runes, start, end); ok {
			end = cut
		}
		chunks = append(chunks, string(runes[start:end]))
		start = end - c.chunkOverlap
	}
}

type boundaryFunc func(runes []rune, start, cut int) bool

// Boundaries in order of preference. Each reports whether cutting before index cut
// places the cut right after a boundary.
var boundaries = []boundaryFunc{
	func(r []rune, start, cut int) bool { return cut-2 >= start && r[cut-2] == '\n' && r[cut-1] == '\n' },
	func(r []rune, start, cut int) bool { return r[cut-1] == '\n' },
	func(r []rune, start, cut int) bool {
		return cut-2 >= start && r[cut-1] == ' ' && (r[cut-2] == '.' || r[cut-2] == '!' || r[cut-2] == '?')
	},
	func(r []rune, start, cut int) bool { return unicode.IsSpace(r[cut-1]) },
}

func (c *Chunker) boundary(runes []rune, start, end int) (int, bool) {
	if c.lookback <= 0 {
		return 0, false
	}
	floor := end - c.lookback
	for _, match := range boundaries {
		for cut := end; cut >= floor; cut-- {
			if match(runes, start, cut) {
				return cut, true
			}
		}
	}
	return 0, false
}
