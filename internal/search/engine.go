// Package search answers questions by retrieving similar chunks and generating from them.
package search

import (
	"context"
	"strings"
	"time"

	"github.com/hyperjump/docqa/internal/apperr"
	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/embedding"
	"github.com/hyperjump/docqa/internal/generation"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/vector"
	"github.com/hyperjump/docqa/pkg/utils"
	"go.uber.org/zap"
)

const (
	contextSeparator = "\n\n"
	snippetLength    = 160
)

// Corpus is the read side of the document collection.
type Corpus interface {
	Search(ctx context.Context, query []float32, k int, filter vector.Filter) ([]*vector.VectorResult, error)
	Has(docID string) bool
}

// Engine retrieves context for questions and answers them.
type Engine struct {
	corpus    Corpus
	embedder  embedding.Embedder
	generator generation.Generator
	config    config.RetrievalConfig
	logger    *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for retrieval events.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(
	corpus Corpus,
	embedder embedding.Embedder,
	generator generation.Generator,
	cfg config.RetrievalConfig,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		corpus:    corpus,
		embedder:  embedder,
		generator: generator,
		config:    cfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = utils.OrNop(e.logger)
	return e
}

// Retrieve finds the chunks most similar to question. A docID naming a registered
// document scopes the search to it; any other docID is ignored.
func (e *Engine) Retrieve(ctx context.Context, question, docID string) (*models.Retrieval, error) {
	req := &models.AskRequest{Question: question, DocID: docID}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	query, err := e.embedder.Embed(ctx, req.Question)
	if err != nil {
		if apperr.KindOf(err) == apperr.Internal {
			err = apperr.E(apperr.EmbeddingService, "embed question", err)
		}
		return nil, err
	}

	scoped := req.DocID != "" && e.corpus.Has(req.DocID)
	if req.DocID != "" && !scoped {
		e.logger.Debug("unknown doc_id, searching all documents", zap.String("doc_id", req.DocID))
	}

	var results []*vector.VectorResult
	switch {
	case scoped && e.config.ScopeMode == config.ScopeFilter:
		results, err = e.corpus.Search(ctx, query, e.config.ScopedTopK, vector.DocumentFilter(req.DocID))
	case scoped:
		results, err = e.corpus.Search(ctx, query, e.config.ScopedTopK, nil)
		results = keepDocument(results, req.DocID)
	default:
		results, err = e.corpus.Search(ctx, query, e.config.TopK, nil)
	}
	if err != nil {
		return nil, apperr.E(apperr.Internal, "similarity search", err)
	}

	r := &models.Retrieval{
		Question: req.Question,
		Scoped:   scoped,
		Hits:     make([]*models.Hit, 0, len(results)),
	}
	if scoped {
		r.DocID = req.DocID
	}
	texts := make([]string, 0, len(results))
	for _, res := range results {
		r.Hits = append(r.Hits, &models.Hit{Chunk: *res.Chunk, Score: res.Score})
		texts = append(texts, res.Chunk.Content)
	}
	r.Context = strings.Join(texts, contextSeparator)
	return r, nil
}

func keepDocument(results []*vector.VectorResult, docID string) []*vector.VectorResult {
	kept := results[:0]
	for _, r := range results {
		if r.Chunk.DocumentID == docID {
			kept = append(kept, r)
		}
	}
	return kept
}

// Ask answers question from the retrieved context. When nothing relevant was retrieved
// it returns models.NoAnswerMessage without calling the generator.
func (e *Engine) Ask(ctx context.Context, question, docID string) (*models.Answer, error) {
	started := time.Now()
	r, err := e.Retrieve(ctx, question, docID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(r.Context) == "" {
		e.logger.Debug("no context retrieved", zap.String("question", utils.Truncate(r.Question, 80)))
		return &models.Answer{Text: models.NoAnswerMessage, Found: false}, nil
	}

	text, err := e.generator.Generate(ctx, generation.BuildPrompt(r.Context, r.Question))
	if err != nil {
		if apperr.KindOf(err) == apperr.Internal {
			err = apperr.E(apperr.GenerationService, "generate answer", err)
		}
		return nil, err
	}

	answer := &models.Answer{Text: strings.TrimSpace(text), Found: true}
	for _, h := range r.Hits {
		answer.Sources = append(answer.Sources, &models.Source{
			DocID:    h.Chunk.DocumentID,
			Filename: h.Chunk.Filename,
			Chunk:    h.Chunk.Index,
			Score:    h.Score,
			Snippet:  Highlight(h.Chunk.Content, r.Question, snippetLength),
		})
	}
	e.logger.Debug("question answered",
		zap.String("doc_id", r.DocID),
		zap.Bool("scoped", r.Scoped),
		zap.Int("chunks", len(r.Hits)),
		zap.Duration("duration", time.Since(started)))
	return answer, nil
}
