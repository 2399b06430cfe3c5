package corpus

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/docqa/internal/apperr"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/registry"
	"github.com/hyperjump/docqa/internal/storage"
	"github.com/hyperjump/docqa/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPaths(t *testing.T) Paths {
	t.Helper()
	dir := t.TempDir()
	return Paths{
		Index:    filepath.Join(dir, "data", "index.vec"),
		Registry: filepath.Join(dir, "data", "registry.json"),
		Journal:  filepath.Join(dir, "data", "journal.db"),
	}
}

func openCorpus(t *testing.T, paths Paths) *Corpus {
	t.Helper()
	c, err := Open(context.Background(), paths, 2)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func document(id, filename string, n int) (*models.Document, []*models.Chunk, [][]float32) {
	doc := &models.Document{ID: id, Filename: filename, Chunks: n, CreatedAt: time.Now().UTC()}
	chunks := make([]*models.Chunk, n)
	vectors := make([][]float32, n)
	for i := range chunks {
		chunks[i] = &models.Chunk{
			ID: models.ChunkID(id, i), DocumentID: id, Filename: filename, Index: i,
			Content: filename + " chunk",
		}
		vectors[i] = []float32{1, float32(i)}
	}
	return doc, chunks, vectors
}

// block replaces the parent directory of path with a regular file so writes beneath it fail.
func block(t *testing.T, path string) {
	t.Helper()
	dir := filepath.Dir(path)
	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.MkdirAll(filepath.Dir(dir), 0755))
	require.NoError(t, os.WriteFile(dir, []byte("blocked"), 0600))
}

func journalStatus(t *testing.T, c *Corpus, docID string) storage.Status {
	t.Helper()
	e, err := c.journal.Get(context.Background(), docID)
	require.NoError(t, err)
	return e.Status
}

func TestOpen_emptyCorpus(t *testing.T) {
	c := openCorpus(t, testPaths(t))
	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Documents)
	assert.Equal(t, 0, stats.Chunks)
	assert.Empty(t, c.Documents())
}

func TestCommit_persistsAndReloads(t *testing.T) {
	paths := testPaths(t)
	c := openCorpus(t, paths)
	ctx := context.Background()

	doc, chunks, vecs := document("d1", "a.pdf", 3)
	require.NoError(t, c.Commit(ctx, doc, chunks, vecs))
	assert.True(t, c.Has("d1"))
	assert.Equal(t, storage.StatusCommitted, journalStatus(t, c, "d1"))

	results, err := c.Search(ctx, []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	require.NoError(t, c.Close())

	reopened := openCorpus(t, paths)
	got, ok := reopened.Document("d1")
	require.True(t, ok)
	assert.Equal(t, "a.pdf", got.Filename)
	assert.Equal(t, 3, got.Chunks)
	stats, err := reopened.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Chunks)
	assert.Equal(t, 2, stats.Dimensions)
	assert.Equal(t, int64(1), stats.Journal[storage.StatusCommitted])
}

func TestCommit_duplicateContentGetsIndependentDocuments(t *testing.T) {
	c := openCorpus(t, testPaths(t))
	ctx := context.Background()
	d1, c1, v1 := document("d1", "same.pdf", 2)
	d2, c2, v2 := document("d2", "same.pdf", 2)
	require.NoError(t, c.Commit(ctx, d1, c1, v1))
	require.NoError(t, c.Commit(ctx, d2, c2, v2))
	assert.Len(t, c.Documents(), 2)
	stats, _ := c.Stats(ctx)
	assert.Equal(t, 4, stats.Chunks)
}

func TestCommit_indexSaveFailureRollsBack(t *testing.T) {
	paths := testPaths(t)
	dir := t.TempDir()
	paths.Index = filepath.Join(dir, "idx", "index.vec")
	c := openCorpus(t, paths)
	ctx := context.Background()
	block(t, paths.Index)

	doc, chunks, vecs := document("d1", "a.pdf", 2)
	err := c.Commit(ctx, doc, chunks, vecs)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrIndexPersistence)

	assert.False(t, c.Has("d1"))
	assert.Equal(t, 0, c.index.Size())
	assert.Equal(t, storage.StatusAborted, journalStatus(t, c, "d1"))
	results, _ := c.Search(ctx, []float32{1, 0}, 10, nil)
	assert.Empty(t, results)
}

func TestCommit_registrySaveFailureRewritesIndex(t *testing.T) {
	paths := testPaths(t)
	dir := t.TempDir()
	paths.Registry = filepath.Join(dir, "reg", "registry.json")
	c := openCorpus(t, paths)
	ctx := context.Background()

	first, fc, fv := document("d0", "kept.pdf", 1)
	require.NoError(t, c.Commit(ctx, first, fc, fv))
	block(t, paths.Registry)

	doc, chunks, vecs := document("d1", "a.pdf", 2)
	err := c.Commit(ctx, doc, chunks, vecs)
	assert.ErrorIs(t, err, apperr.ErrIndexPersistence)
	assert.False(t, c.Has("d1"))
	assert.Equal(t, storage.StatusAborted, journalStatus(t, c, "d1"))

	onDisk, err := vector.NewMemoryIndex(2)
	require.NoError(t, err)
	require.NoError(t, onDisk.Load(paths.Index))
	assert.Equal(t, []string{"d0"}, onDisk.DocumentIDs())
}

func TestCommit_dimensionMismatchLeavesNoTrace(t *testing.T) {
	c := openCorpus(t, testPaths(t))
	ctx := context.Background()
	doc, chunks, _ := document("d1", "a.pdf", 1)
	err := c.Commit(ctx, doc, chunks, [][]float32{{1, 2, 3}})
	assert.ErrorIs(t, err, apperr.ErrIndexPersistence)
	assert.False(t, c.Has("d1"))
	assert.Equal(t, 0, c.index.Size())
	assert.Equal(t, storage.StatusAborted, journalStatus(t, c, "d1"))
}

func TestCommit_cancelledContextStillCommits(t *testing.T) {
	c := openCorpus(t, testPaths(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	doc, chunks, vecs := document("d1", "a.pdf", 1)
	require.NoError(t, c.Commit(ctx, doc, chunks, vecs))
	assert.True(t, c.Has("d1"))
}

func TestOpen_recoversPendingIngestion(t *testing.T) {
	paths := testPaths(t)
	ctx := context.Background()

	c, err := Open(ctx, paths, 2)
	require.NoError(t, err)
	kept, kc, kv := document("kept", "kept.pdf", 1)
	require.NoError(t, c.Commit(ctx, kept, kc, kv))

	// Simulate a crash after the index snapshot but before the registry was written.
	doc, chunks, vecs := document("lost", "lost.pdf", 2)
	require.NoError(t, c.journal.Begin(ctx, doc.ID, doc.Filename, 2))
	require.NoError(t, c.index.Add(ctx, chunks, vecs))
	require.NoError(t, c.index.Save(paths.Index))
	require.NoError(t, c.Close())

	recovered := openCorpus(t, paths)
	assert.False(t, recovered.Has("lost"))
	assert.Equal(t, []string{"kept"}, recovered.index.DocumentIDs())
	assert.Equal(t, storage.StatusAborted, journalStatus(t, recovered, "lost"))

	onDisk, _ := vector.NewMemoryIndex(2)
	require.NoError(t, onDisk.Load(paths.Index))
	assert.Equal(t, 1, onDisk.Size(), "repaired snapshot should be persisted")
}

func TestOpen_pendingButRegisteredIsCommitted(t *testing.T) {
	paths := testPaths(t)
	ctx := context.Background()

	c, err := Open(ctx, paths, 2)
	require.NoError(t, err)
	doc, chunks, vecs := document("d1", "a.pdf", 1)
	// Simulate a crash after the registry was written but before the journal commit.
	require.NoError(t, c.journal.Begin(ctx, doc.ID, doc.Filename, 1))
	require.NoError(t, c.index.Add(ctx, chunks, vecs))
	require.NoError(t, c.index.Save(paths.Index))
	c.registry.Put(doc)
	require.NoError(t, c.registry.Save(paths.Registry))
	require.NoError(t, c.Close())

	recovered := openCorpus(t, paths)
	assert.True(t, recovered.Has("d1"))
	assert.Equal(t, storage.StatusCommitted, journalStatus(t, recovered, "d1"))
	assert.Equal(t, 1, recovered.index.Size())
}

func TestOpen_sweepsUnregisteredChunks(t *testing.T) {
	paths := testPaths(t)
	idx, _ := vector.NewMemoryIndex(2)
	_, chunks, vecs := document("orphan", "o.pdf", 2)
	require.NoError(t, idx.Add(context.Background(), chunks, vecs))
	require.NoError(t, idx.Save(paths.Index))

	c := openCorpus(t, paths)
	assert.Equal(t, 0, c.index.Size())
}

func TestOpen_corruptRegistry(t *testing.T) {
	paths := testPaths(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(paths.Registry), 0755))
	require.NoError(t, os.WriteFile(paths.Registry, []byte("{"), 0600))
	_, err := Open(context.Background(), paths, 2)
	assert.ErrorIs(t, err, apperr.ErrIndexPersistence)
}

func TestOpen_truncatedIndexSnapshot(t *testing.T) {
	paths := testPaths(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(paths.Index), 0755))
	// valid header: magic, version 1, dimension 2, then a count no file could hold
	header := []byte{'D', 'Q', 'V', 'I', 1, 0, 0, 0, 2, 0, 0, 0, 0xF0, 0xFF, 0xFF, 0xFF}
	require.NoError(t, os.WriteFile(paths.Index, header, 0600))
	_, err := Open(context.Background(), paths, 2)
	assert.ErrorIs(t, err, apperr.ErrIndexPersistence)
	assert.ErrorIs(t, err, vector.ErrCorruptSnapshot)
}

func TestSearch_hidesUnregisteredDocuments(t *testing.T) {
	c := openCorpus(t, testPaths(t))
	ctx := context.Background()
	doc, chunks, vecs := document("visible", "v.pdf", 1)
	require.NoError(t, c.Commit(ctx, doc, chunks, vecs))

	// Entries appended but not yet registered, as seen mid-commit.
	_, hidden, hv := document("inflight", "i.pdf", 1)
	require.NoError(t, c.index.Add(ctx, hidden, hv))

	results, err := c.Search(ctx, []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "visible", results[0].Chunk.DocumentID)
}

func TestCommit_concurrentWritersAndReaders(t *testing.T) {
	c := openCorpus(t, testPaths(t))
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(2)
		go func() {
			defer wg.Done()
			id := string(rune('a' + i))
			doc, chunks, vecs := document(id, id+".pdf", 3)
			assert.NoError(t, c.Commit(ctx, doc, chunks, vecs))
		}()
		go func() {
			defer wg.Done()
			_, err := c.Search(ctx, []float32{1, 1}, 5, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, c.Documents(), 8)

	reg := registry.New()
	require.NoError(t, reg.Load(c.Paths().Registry))
	assert.Equal(t, 8, reg.Len())
}
