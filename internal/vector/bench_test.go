package vector

import (
	"context"
	"fmt"
	"testing"

	"github.com/hyperjump/docqa/internal/models"
)

func benchIndex(b *testing.B, docs, perDoc, dims int) *MemoryIndex {
	b.Helper()
	idx, err := NewMemoryIndex(dims)
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	for d := 0; d < docs; d++ {
		id := fmt.Sprintf("doc-%d", d)
		chunks := make([]*models.Chunk, perDoc)
		vecs := make([][]float32, perDoc)
		for i := 0; i < perDoc; i++ {
			chunks[i] = chunk(id, i, "benchmark")
			vecs[i] = make([]float32, dims)
			vecs[i][(d+i)%dims] = 1
			vecs[i][0] += float32(i) / float32(perDoc)
		}
		if err := idx.Add(ctx, chunks, vecs); err != nil {
			b.Fatal(err)
		}
	}
	return idx
}

func BenchmarkMemoryIndexSearch(b *testing.B) {
	idx := benchIndex(b, 50, 20, 384)
	query := make([]float32, 384)
	query[0] = 1
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(ctx, query, 10, nil)
	}
}

func BenchmarkMemoryIndexSearch_documentFilter(b *testing.B) {
	idx := benchIndex(b, 50, 20, 384)
	query := make([]float32, 384)
	query[0] = 1
	filter := DocumentFilter("doc-7")
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(ctx, query, 10, filter)
	}
}
