// Package embedding provides text embedding via external providers, a deterministic
// offline embedder, and caching.
package embedding

import "context"

// Embedder produces vector embeddings for text.
// EmbedBatch returns exactly one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
