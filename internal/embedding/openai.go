package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/docqa/internal/apperr"
	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/openaiclient"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentBatches bounds in-flight embedding requests for one EmbedBatch call.
const maxConcurrentBatches = 4

// OpenAIEmbedder embeds text with the OpenAI embeddings API (or any compatible endpoint).
type OpenAIEmbedder struct {
	client     openai.Client
	model      string
	dimensions int
	batchSize  int
}

// NewOpenAIEmbedder creates an embedder from cfg. Extra options are applied after the
// ones derived from cfg.
func NewOpenAIEmbedder(cfg config.EmbeddingConfig, extra ...option.RequestOption) *OpenAIEmbedder {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 256
	}
	return &OpenAIEmbedder{
		client: openaiclient.New(openaiclient.Settings{
			APIKeyEnv:  cfg.APIKeyEnv,
			BaseURL:    cfg.BaseURL,
			MaxRetries: cfg.MaxRetries,
			Timeout:    cfg.Timeout(),
		}, extra...),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		batchSize:  batchSize,
	}
}

// Embed returns the embedding of a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in requests of at most batchSize inputs, issued concurrently.
// Results keep input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentBatches)
	for start := 0; start < len(texts); start += e.batchSize {
		start, end := start, min(start+e.batchSize, len(texts))
		g.Go(func() error {
			return e.embedRange(gctx, texts[start:end], out[start:end])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperr.E(apperr.EmbeddingService, "embed", err)
	}
	return out, nil
}

func (e *OpenAIEmbedder) embedRange(ctx context.Context, texts []string, out [][]float32) error {
	params := openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:          openai.EmbeddingModel(e.model),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	// Only the text-embedding-3 family accepts a requested dimension.
	if e.dimensions > 0 && strings.HasPrefix(e.model, "text-embedding-3") {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}
	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return err
	}
	if len(resp.Data) != len(texts) {
		return fmt.Errorf("provider returned %d embeddings for %d inputs", len(resp.Data), len(texts))
	}
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return fmt.Errorf("embedding index %d out of range", d.Index)
		}
		if e.dimensions > 0 && len(d.Embedding) != e.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, want %d", len(d.Embedding), e.dimensions)
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		out[d.Index] = vec
	}
	for i, v := range out {
		if v == nil {
			return fmt.Errorf("missing embedding for input %d", i)
		}
	}
	return nil
}

// Dimensions returns the configured embedding dimension, or 0 when the provider decides.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the HTTP client holds no per-embedder resources.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
