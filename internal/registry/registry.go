// Package registry maps document IDs to their original filenames and ingestion metadata.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/hyperjump/docqa/internal/models"
)

// Entry is the persisted record of one document.
type Entry struct {
	Filename  string    `json:"filename"`
	Chunks    int       `json:"chunks"`
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalJSON accepts both the object form and a bare filename string.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var filename string
	if err := json.Unmarshal(data, &filename); err == nil {
		*e = Entry{Filename: filename}
		return nil
	}
	type plain Entry
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = Entry(p)
	return nil
}

// Registry is a concurrency-safe doc_id → Entry map with a JSON snapshot.
type Registry struct {
	entries map[string]Entry
	mu      sync.RWMutex
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Load replaces the contents with the snapshot at path. A missing file leaves the registry empty.
func (r *Registry) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read registry: %w", err)
	}
	entries := make(map[string]Entry)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("parse registry: %w", err)
		}
	}
	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()
	return nil
}

// Save writes the registry as indented JSON to path, atomically replacing the previous file.
func (r *Registry) Save(path string) error {
	r.mu.RLock()
	data, err := json.MarshalIndent(r.entries, "", "  ")
	r.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create registry dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write registry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace registry: %w", err)
	}
	return nil
}

// Put records doc. Existing entries are never overwritten; Put reports whether doc was added.
func (r *Registry) Put(doc *models.Document) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[doc.ID]; ok {
		return false
	}
	r.entries[doc.ID] = Entry{Filename: doc.Filename, Chunks: doc.Chunks, CreatedAt: doc.CreatedAt}
	return true
}

// Delete removes docID. It is used only to roll back a failed ingestion.
func (r *Registry) Delete(docID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, docID)
}

// Get returns the document recorded under docID.
func (r *Registry) Get(docID string) (*models.Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[docID]
	if !ok {
		return nil, false
	}
	return toDocument(docID, e), true
}

// Has reports whether docID is registered.
func (r *Registry) Has(docID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[docID]
	return ok
}

// List returns all documents, oldest first. Documents with equal timestamps are ordered by ID.
func (r *Registry) List() []*models.Document {
	r.mu.RLock()
	docs := make([]*models.Document, 0, len(r.entries))
	for id, e := range r.entries {
		docs = append(docs, toDocument(id, e))
	}
	r.mu.RUnlock()
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	return docs
}

// Len returns the number of registered documents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func toDocument(id string, e Entry) *models.Document {
	return &models.Document{ID: id, Filename: e.Filename, Chunks: e.Chunks, CreatedAt: e.CreatedAt}
}
