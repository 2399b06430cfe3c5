package embedding

import (
	"fmt"

	"github.com/hyperjump/docqa/internal/config"
)

// New returns the embedder selected by cfg.Provider. Ingestion uses it directly.
func New(cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIEmbedder(cfg), nil
	case config.ProviderMock:
		return NewMockEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// ForQueries wraps e in an LRU cache of cacheSize question embeddings.
// A non-positive cacheSize returns e unchanged.
func ForQueries(e Embedder, cacheSize int) Embedder {
	if cacheSize <= 0 {
		return e
	}
	return NewCachedEmbedder(e, cacheSize)
}
