package embedding

import (
	"context"
	"sync/atomic"

	"github.com/hyperjump/docqa/pkg/utils"
)

// MockEmbedder is a deterministic embedder for tests and offline use. Each word is
// hashed into one of the vector's buckets, so texts sharing words have a positive
// cosine similarity and the same text always gets the same embedding.
type MockEmbedder struct {
	dimensions int
	calls      atomic.Int64
	queries    atomic.Int64
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns the unit-length bag-of-words vector of text, or a zero vector when
// text has no words.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.queries.Add(1)
	return e.embed(ctx, text)
}

func (e *MockEmbedder) embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emb := make([]float32, e.dimensions)
	for _, word := range SplitWords(text) {
		h := HashString(word)
		emb[h%uint32(e.dimensions)] += 1
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// BatchCalls returns how many times EmbedBatch has been called.
func (e *MockEmbedder) BatchCalls() int {
	return int(e.calls.Load())
}

// Calls returns how many times Embed has been called directly.
func (e *MockEmbedder) Calls() int {
	return int(e.queries.Load())
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
