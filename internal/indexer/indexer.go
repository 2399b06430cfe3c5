package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/docqa/internal/apperr"
	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/embedding"
	"github.com/hyperjump/docqa/internal/extract"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/pkg/utils"
	"go.uber.org/zap"
)

// Store persists an ingested document with its chunks and their vectors.
type Store interface {
	Commit(ctx context.Context, doc *models.Document, chunks []*models.Chunk, vectors [][]float32) error
}

// Indexer runs the ingestion pipeline: extract, chunk, embed, commit.
type Indexer struct {
	store     Store
	embedder  embedding.Embedder
	chunker   *Chunker
	extractor *extract.Extractor
	timeout   time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for pipeline events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithTimeout bounds extraction, chunking and embedding of one document. The commit
// that follows is not subject to it.
func WithTimeout(d time.Duration) IndexerOption {
	return func(idx *Indexer) { idx.timeout = d }
}

// NewIndexer creates an indexer with the given dependencies.
// extractor may be nil, in which case a default Extractor is used.
func NewIndexer(
	store Store,
	embedder embedding.Embedder,
	cfg config.ChunkingConfig,
	extractor *extract.Extractor,
	opts ...IndexerOption,
) (*Indexer, error) {
	chunker, err := NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	idx := &Indexer{
		store:     store,
		embedder:  embedder,
		chunker:   chunker,
		extractor: extractor,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.logger = utils.OrNop(idx.logger)
	return idx, nil
}

// Ingest indexes the document content uploaded as filename and returns its new doc_id.
// Ingesting the same content twice yields two independent documents.
func (idx *Indexer) Ingest(ctx context.Context, content []byte, filename string) (string, error) {
	started := idx.now()
	if err := extract.CheckFormat(filename); err != nil {
		return "", err
	}

	prepCtx := ctx
	if idx.timeout > 0 {
		var cancel context.CancelFunc
		prepCtx, cancel = context.WithTimeout(ctx, idx.timeout)
		defer cancel()
	}

	text, err := idx.extractor.ExtractBytes(content, filepath.Ext(filename))
	if err != nil {
		return "", err
	}
	idx.logger.Debug("text extracted", zap.String("filename", filename), zap.Int("chars", len(text)))

	pieces := idx.chunker.Chunks(text)
	if len(pieces) == 0 {
		return "", apperr.New(apperr.Extraction, "ingest", "no text extracted from document")
	}

	docID := uuid.New().String()
	chunks := make([]*models.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = &models.Chunk{
			ID:         models.ChunkID(docID, i),
			DocumentID: docID,
			Filename:   filename,
			Index:      i,
			Content:    p,
		}
	}
	idx.logger.Debug("text chunked", zap.String("doc_id", docID), zap.Int("chunks", len(chunks)))

	vectors, err := idx.embedder.EmbedBatch(prepCtx, pieces)
	if err != nil {
		if apperr.KindOf(err) == apperr.Internal {
			err = apperr.E(apperr.EmbeddingService, "embed chunks", err)
		}
		return "", err
	}
	if len(vectors) != len(chunks) {
		return "", apperr.E(apperr.EmbeddingService, "embed chunks",
			fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks)))
	}
	idx.logger.Debug("chunks embedded", zap.String("doc_id", docID))

	doc := &models.Document{
		ID:        docID,
		Filename:  filename,
		Chunks:    len(chunks),
		CreatedAt: idx.now().UTC(),
	}
	if err := idx.store.Commit(ctx, doc, chunks, vectors); err != nil {
		return "", err
	}

	idx.logger.Info("document ingested",
		zap.String("doc_id", docID),
		zap.String("filename", filename),
		zap.Int("chunks", len(chunks)),
		zap.Duration("duration", idx.now().Sub(started)))
	return docID, nil
}

// IngestFile reads the file at path and ingests it. filename defaults to the base name of path.
// The extension is checked before the file is read.
func (idx *Indexer) IngestFile(ctx context.Context, path, filename string) (string, error) {
	if filename == "" {
		filename = filepath.Base(path)
	}
	if err := extract.CheckFormat(filename); err != nil {
		return "", err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", apperr.E(apperr.Extraction, "text extraction failed", fmt.Errorf("read file: %w", err))
	}
	return idx.Ingest(ctx, content, filename)
}
