package server

import (
	"context"

	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/corpus"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/storage"
)

// BuildStatus reports corpus counts, on-disk size and a summary of cfg.
func BuildStatus(ctx context.Context, c *corpus.Corpus, cfg *config.Config) (*models.Status, error) {
	stats, err := c.Stats(ctx)
	if err != nil {
		return nil, err
	}
	status := &models.Status{
		Documents:       stats.Documents,
		Chunks:          stats.Chunks,
		VectorIndexSize: stats.Chunks,
		Dimensions:      stats.Dimensions,
		Ingestions:      make(map[string]int64, len(stats.Journal)),
	}
	for s, n := range stats.Journal {
		status.Ingestions[string(s)] = n
	}

	paths := c.Paths()
	if diskBytes, err := storage.DiskUsageBytes(paths.Index, paths.Registry, paths.Journal); err == nil {
		status.DiskUsageBytes = &diskBytes
	}
	status.Config = &models.StatusConfig{
		EmbeddingProvider:   cfg.Embedding.Provider,
		EmbeddingModel:      cfg.Embedding.Model,
		EmbeddingDimensions: cfg.Embedding.Dimensions,
		GenerationProvider:  cfg.Generation.Provider,
		GenerationModel:     cfg.Generation.Model,
		ChunkSize:           cfg.Chunking.ChunkSize,
		ChunkOverlap:        cfg.Chunking.ChunkOverlap,
		TopK:                cfg.Retrieval.TopK,
		ScopedTopK:          cfg.Retrieval.ScopedTopK,
		ScopeMode:           cfg.Retrieval.ScopeMode,
		IndexPath:           paths.Index,
		RegistryPath:        paths.Registry,
		JournalPath:         paths.Journal,
		InboxDir:            cfg.Inbox.Dir,
	}
	return status, nil
}
