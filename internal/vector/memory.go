package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hyperjump/docqa/internal/models"
)

var snapshotMagic = [4]byte{'D', 'Q', 'V', 'I'}

const (
	snapshotVersion uint32 = 1
	// magic, version, dimension, count
	snapshotHeaderSize = 16
	// three string lengths, chunk index, content length
	minEntrySize = 20
)

var (
	// ErrDimensionMismatch is returned when a vector does not match the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrCorruptSnapshot is returned by Load when the snapshot is truncated or its
	// header declares more data than the file holds.
	ErrCorruptSnapshot = errors.New("corrupt vector index snapshot")
)

type entry struct {
	chunk  models.Chunk
	vector []float32
}

// MemoryIndex is an in-memory vector index using exact cosine search. Entries keep
// insertion order, which breaks score ties.
type MemoryIndex struct {
	dimensions int
	entries    []entry
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
// A dimension of 0 is fixed by the first Add or Load.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions < 0 {
		return nil, fmt.Errorf("dimensions must not be negative")
	}
	return &MemoryIndex{dimensions: dimensions}, nil
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string {
	return "memory"
}

// Add appends chunks with their vectors. Either all entries are added or none.
func (m *MemoryIndex) Add(ctx context.Context, chunks []*models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	dims := m.dimensions
	if dims == 0 {
		dims = len(vectors[0])
	}
	for i, vec := range vectors {
		if len(vec) != dims || dims == 0 {
			return fmt.Errorf("%w: vector %d has %d, index expects %d", ErrDimensionMismatch, i, len(vec), dims)
		}
		if chunks[i] == nil {
			return fmt.Errorf("chunk %d is nil", i)
		}
	}
	m.dimensions = dims
	for i, ch := range chunks {
		vec := make([]float32, dims)
		copy(vec, vectors[i])
		m.entries = append(m.entries, entry{chunk: *ch, vector: vec})
	}
	return nil
}

// Search returns the top-k chunks admitted by filter, by descending cosine similarity.
// Equal scores keep insertion order.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int, filter Filter) ([]*VectorResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.entries) == 0 {
		return nil, nil
	}
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("%w: query has %d, index expects %d", ErrDimensionMismatch, len(query), m.dimensions)
	}
	type scored struct {
		pos   int
		score float64
	}
	scores := make([]scored, 0, len(m.entries))
	for i := range m.entries {
		if filter != nil && !filter(&m.entries[i].chunk) {
			continue
		}
		scores = append(scores, scored{pos: i, score: CosineSimilarity(query, m.entries[i].vector)})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if k > len(scores) {
		k = len(scores)
	}
	result := make([]*VectorResult, k)
	for i := 0; i < k; i++ {
		ch := m.entries[scores[i].pos].chunk
		result[i] = &VectorResult{Chunk: &ch, Score: scores[i].score}
	}
	return result, nil
}

// RemoveDocument removes every entry of docID and returns how many were removed.
func (m *MemoryIndex) RemoveDocument(ctx context.Context, docID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	removed := 0
	for _, e := range m.entries {
		if e.chunk.DocumentID == docID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	clear(m.entries[len(kept):])
	m.entries = kept
	return removed, nil
}

// DocumentIDs returns the distinct document IDs in the index, in first-insertion order.
func (m *MemoryIndex) DocumentIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]bool)
	var ids []string
	for _, e := range m.entries {
		if !seen[e.chunk.DocumentID] {
			seen[e.chunk.DocumentID] = true
			ids = append(ids, e.chunk.DocumentID)
		}
	}
	return ids
}

// Save persists the index to path, atomically replacing any previous snapshot.
// The directory is created if needed. Format (little endian): magic "DQVI", version,
// dimension, count, then per entry the chunk id, document id, filename, chunk index,
// content and vector.
func (m *MemoryIndex) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	if err := m.writeSnapshot(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync index file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace index file: %w", err)
	}
	return nil
}

func (m *MemoryIndex) writeSnapshot(f io.Writer) error {
	w := bufio.NewWriter(f)
	if _, err := w.Write(snapshotMagic[:]); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, v := range []uint32{snapshotVersion, uint32(m.dimensions), uint32(len(m.entries))} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for _, e := range m.entries {
		for _, s := range []string{e.chunk.ID, e.chunk.DocumentID, e.chunk.Filename} {
			if err := writeString(w, s); err != nil {
				return fmt.Errorf("write chunk %s: %w", e.chunk.ID, err)
			}
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(e.chunk.Index)); err != nil {
			return fmt.Errorf("write chunk %s: %w", e.chunk.ID, err)
		}
		if err := writeString(w, e.chunk.Content); err != nil {
			return fmt.Errorf("write chunk %s: %w", e.chunk.ID, err)
		}
		if _, err := w.Write(float32SliceToBytes(e.vector)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush index file: %w", err)
	}
	return nil
}

// Load reads the index from path and replaces the in-memory contents. The snapshot
// dimension must match unless the index dimension is still 0.
// If the file does not exist, no error is returned and the index is unchanged.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat index file: %w", err)
	}
	if info.Size() < snapshotHeaderSize {
		return fmt.Errorf("%w: %s is %d bytes", ErrCorruptSnapshot, path, info.Size())
	}
	r := &io.LimitedReader{R: bufio.NewReader(f), N: info.Size()}

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if magic != snapshotMagic {
		return fmt.Errorf("not a vector index snapshot: %s", path)
	}
	var version, dim, n uint32
	for _, p := range []*uint32{&version, &dim, &n} {
		if err := binary.Read(r, binary.LittleEndian, p); err != nil {
			return fmt.Errorf("read header: %w", err)
		}
	}
	if version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", version)
	}
	if entrySize := uint64(dim)*4 + minEntrySize; n > 0 && uint64(n) > uint64(r.N)/entrySize {
		return fmt.Errorf("%w: header declares %d entries of dimension %d, %d bytes remain",
			ErrCorruptSnapshot, n, dim, r.N)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dimensions != 0 && int(dim) != m.dimensions && n > 0 {
		return fmt.Errorf("%w: file has %d, index expects %d", ErrDimensionMismatch, dim, m.dimensions)
	}
	var entries []entry
	var buf []byte
	if n > 0 {
		buf = make([]byte, int(dim)*4)
	}
	for i := uint32(0); i < n; i++ {
		var e entry
		for _, s := range []*string{&e.chunk.ID, &e.chunk.DocumentID, &e.chunk.Filename} {
			if *s, err = readString(r); err != nil {
				return fmt.Errorf("read entry %d: %w", i, err)
			}
		}
		var index uint32
		if err := binary.Read(r, binary.LittleEndian, &index); err != nil {
			return fmt.Errorf("read entry %d: %w", i, err)
		}
		e.chunk.Index = int(index)
		if e.chunk.Content, err = readString(r); err != nil {
			return fmt.Errorf("read entry %d: %w", i, err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("read vector %d: %w", i, err)
		}
		e.vector = bytesToFloat32Slice(buf)
		entries = append(entries, e)
	}
	if m.dimensions == 0 {
		m.dimensions = int(dim)
	}
	m.entries = entries
	return nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// readString reads a length-prefixed string, rejecting lengths beyond what r has left.
func readString(r *io.LimitedReader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if int64(n) > r.N {
		return "", fmt.Errorf("%w: string of %d bytes, %d remain", ErrCorruptSnapshot, n, r.N)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Dimensions returns the vector dimension, or 0 while it is not yet fixed.
func (m *MemoryIndex) Dimensions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dimensions
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
