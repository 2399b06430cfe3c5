// Package corpus owns the persisted document collection: the vector index, the document
// registry and the ingestion journal that keeps the two consistent.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hyperjump/docqa/internal/apperr"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/registry"
	"github.com/hyperjump/docqa/internal/storage"
	"github.com/hyperjump/docqa/internal/vector"
	"github.com/hyperjump/docqa/pkg/utils"
	"go.uber.org/zap"
)

// Paths locates the persisted state of a corpus.
type Paths struct {
	Index    string
	Registry string
	Journal  string
}

// Stats summarizes the corpus.
type Stats struct {
	Documents  int
	Chunks     int
	Dimensions int
	Journal    map[storage.Status]int64
}

// Corpus is the handle to an opened document collection. Commits are serialized;
// searches run concurrently with them and only see registered documents.
type Corpus struct {
	mu       sync.Mutex // held for a whole commit
	paths    Paths
	index    vector.VectorIndex
	registry *registry.Registry
	journal  storage.Journal
	logger   *zap.Logger
}

// Option configures a Corpus.
type Option func(*Corpus)

// WithLogger sets the logger for recovery and commit events.
func WithLogger(l *zap.Logger) Option {
	return func(c *Corpus) { c.logger = l }
}

// WithJournal replaces the SQLite journal at Paths.Journal.
func WithJournal(j storage.Journal) Option {
	return func(c *Corpus) { c.journal = j }
}

// Open loads the index and registry snapshots, opens the journal and repairs any
// ingestion left unfinished by a previous process. Missing snapshot files start an
// empty corpus. dims is the embedding dimension, or 0 to take it from the first insert.
func Open(ctx context.Context, paths Paths, dims int, opts ...Option) (*Corpus, error) {
	c := &Corpus{paths: paths, registry: registry.New()}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = utils.OrNop(c.logger)

	idx, err := vector.NewMemoryIndex(dims)
	if err != nil {
		return nil, apperr.E(apperr.Internal, "open corpus", err)
	}
	if err := idx.Load(paths.Index); err != nil {
		return nil, apperr.E(apperr.IndexPersistence, "load index", err)
	}
	c.index = idx

	if err := c.registry.Load(paths.Registry); err != nil {
		return nil, apperr.E(apperr.IndexPersistence, "load registry", err)
	}

	if c.journal == nil {
		j, err := storage.NewSQLiteJournal(paths.Journal)
		if err != nil {
			return nil, apperr.E(apperr.IndexPersistence, "open journal", err)
		}
		c.journal = j
	}

	if err := c.recover(ctx); err != nil {
		_ = c.journal.Close()
		return nil, err
	}
	c.logger.Info("corpus opened",
		zap.Int("documents", c.registry.Len()),
		zap.Int("chunks", c.index.Size()),
		zap.Int("dimensions", c.index.Dimensions()))
	return c, nil
}

// recover resolves pending journal entries and removes index entries of documents that
// were never registered, then persists the repaired index.
func (c *Corpus) recover(ctx context.Context) error {
	pending, err := c.journal.Pending(ctx)
	if err != nil {
		return apperr.E(apperr.IndexPersistence, "read journal", err)
	}
	dirty := false
	for _, e := range pending {
		if c.registry.Has(e.DocID) {
			if err := c.journal.MarkCommitted(ctx, e.DocID); err != nil {
				return apperr.E(apperr.IndexPersistence, "recover journal", err)
			}
			c.logger.Info("recovered committed ingestion", zap.String("doc_id", e.DocID))
			continue
		}
		n, err := c.index.RemoveDocument(ctx, e.DocID)
		if err != nil {
			return apperr.E(apperr.IndexPersistence, "recover index", err)
		}
		dirty = dirty || n > 0
		if err := c.journal.MarkAborted(ctx, e.DocID, "interrupted ingestion rolled back at startup"); err != nil {
			return apperr.E(apperr.IndexPersistence, "recover journal", err)
		}
		c.logger.Warn("rolled back interrupted ingestion",
			zap.String("doc_id", e.DocID), zap.String("filename", e.Filename), zap.Int("chunks", n))
	}

	for _, docID := range c.index.DocumentIDs() {
		if c.registry.Has(docID) {
			continue
		}
		n, err := c.index.RemoveDocument(ctx, docID)
		if err != nil {
			return apperr.E(apperr.IndexPersistence, "sweep index", err)
		}
		dirty = dirty || n > 0
		c.logger.Warn("removed unregistered chunks", zap.String("doc_id", docID), zap.Int("chunks", n))
	}

	if dirty {
		if err := c.index.Save(c.paths.Index); err != nil {
			return apperr.E(apperr.IndexPersistence, "save index", err)
		}
	}
	return nil
}

// Commit makes doc and its chunks durable and visible. The journal entry is written
// first; the index is appended and saved, then the registry. Any failure before the
// registry is saved is rolled back and the entry marked aborted. Commit is not
// interrupted by cancellation of ctx once started.
func (c *Corpus) Commit(ctx context.Context, doc *models.Document, chunks []*models.Chunk, vectors [][]float32) error {
	ctx = context.WithoutCancel(ctx)
	if len(chunks) != len(vectors) {
		return apperr.E(apperr.Internal, "commit",
			fmt.Errorf("%d chunks but %d vectors", len(chunks), len(vectors)))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.registry.Has(doc.ID) {
		return apperr.E(apperr.Internal, "commit", fmt.Errorf("document %s already exists", doc.ID))
	}
	if err := c.journal.Begin(ctx, doc.ID, doc.Filename, len(chunks)); err != nil {
		return apperr.E(apperr.IndexPersistence, "journal ingestion", err)
	}

	if err := c.index.Add(ctx, chunks, vectors); err != nil {
		c.abort(ctx, doc.ID, false, err)
		return apperr.E(apperr.IndexPersistence, "add to index", err)
	}
	if err := c.index.Save(c.paths.Index); err != nil {
		c.abort(ctx, doc.ID, false, err)
		return apperr.E(apperr.IndexPersistence, "save index", err)
	}

	c.registry.Put(doc)
	if err := c.registry.Save(c.paths.Registry); err != nil {
		c.registry.Delete(doc.ID)
		c.abort(ctx, doc.ID, true, err)
		return apperr.E(apperr.IndexPersistence, "save registry", err)
	}

	if err := c.journal.MarkCommitted(ctx, doc.ID); err != nil {
		// Both snapshots are durable; recovery will mark the entry committed.
		c.logger.Warn("journal commit failed", zap.String("doc_id", doc.ID), zap.Error(err))
	}
	return nil
}

// abort removes docID from the in-memory index, rewrites the snapshot when it already
// contains the document, and marks the journal entry aborted. If the snapshot cannot be
// rewritten the entry stays pending for recovery on the next Open.
func (c *Corpus) abort(ctx context.Context, docID string, indexSaved bool, cause error) {
	if _, err := c.index.RemoveDocument(ctx, docID); err != nil {
		c.logger.Error("rollback failed", zap.String("doc_id", docID), zap.Error(err))
		return
	}
	if indexSaved {
		if err := c.index.Save(c.paths.Index); err != nil {
			c.logger.Error("rollback failed; left pending for recovery",
				zap.String("doc_id", docID), zap.Error(err))
			return
		}
	}
	if err := c.journal.MarkAborted(ctx, docID, cause.Error()); err != nil {
		c.logger.Warn("journal abort failed", zap.String("doc_id", docID), zap.Error(err))
	}
	c.logger.Warn("ingestion rolled back", zap.String("doc_id", docID), zap.Error(cause))
}

// Search returns the top-k chunks of registered documents admitted by filter.
func (c *Corpus) Search(ctx context.Context, query []float32, k int, filter vector.Filter) ([]*vector.VectorResult, error) {
	eligible := func(ch *models.Chunk) bool {
		return c.registry.Has(ch.DocumentID) && (filter == nil || filter(ch))
	}
	return c.index.Search(ctx, query, k, eligible)
}

// Document returns the registered document docID.
func (c *Corpus) Document(docID string) (*models.Document, bool) {
	return c.registry.Get(docID)
}

// Has reports whether docID is registered.
func (c *Corpus) Has(docID string) bool {
	return c.registry.Has(docID)
}

// Documents lists registered documents, oldest first.
func (c *Corpus) Documents() []*models.Document {
	return c.registry.List()
}

// Stats returns document, chunk and journal counts.
func (c *Corpus) Stats(ctx context.Context) (*Stats, error) {
	counts, err := c.journal.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("journal counts: %w", err)
	}
	return &Stats{
		Documents:  c.registry.Len(),
		Chunks:     c.index.Size(),
		Dimensions: c.index.Dimensions(),
		Journal:    counts,
	}, nil
}

// Paths returns the locations of the persisted state.
func (c *Corpus) Paths() Paths {
	return c.paths
}

// Close releases the journal and the index. It waits for an in-flight commit.
func (c *Corpus) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return errors.Join(c.journal.Close(), c.index.Close())
}
