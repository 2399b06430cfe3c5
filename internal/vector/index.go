// Package vector provides the chunk vector index and similarity search.
package vector

import (
	"context"

	"github.com/hyperjump/docqa/internal/models"
)

// Filter reports whether a chunk is eligible for a search. A nil Filter admits every chunk.
type Filter func(c *models.Chunk) bool

// VectorIndex stores chunk embeddings with their chunk payloads.
type VectorIndex interface {
	Add(ctx context.Context, chunks []*models.Chunk, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int, filter Filter) ([]*VectorResult, error)
	RemoveDocument(ctx context.Context, docID string) (int, error)
	DocumentIDs() []string
	Save(path string) error
	Load(path string) error
	Size() int
	Dimensions() int
	Close() error
}

// VectorResult is a single search hit.
type VectorResult struct {
	Chunk *models.Chunk
	Score float64 // cosine similarity in [-1, 1]
}

// DocumentFilter admits only chunks of the given document.
func DocumentFilter(docID string) Filter {
	return func(c *models.Chunk) bool { return c.DocumentID == docID }
}
