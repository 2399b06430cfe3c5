// Package storage provides the ingestion journal and disk usage helpers for the persisted corpus.
package storage

import (
	"context"
	"errors"
	"time"
)

// Status is the state of one ingestion in the journal.
type Status string

const (
	// StatusPending marks an ingestion whose index and registry writes have started but not finished.
	StatusPending Status = "pending"
	// StatusCommitted marks an ingestion that is fully persisted in both index and registry.
	StatusCommitted Status = "committed"
	// StatusAborted marks an ingestion that was rolled back.
	StatusAborted Status = "aborted"
)

// ErrEntryNotFound is returned when a journal entry does not exist.
var ErrEntryNotFound = errors.New("journal entry not found")

// JournalEntry records one ingestion attempt.
type JournalEntry struct {
	DocID     string
	Filename  string
	Chunks    int
	Status    Status
	Reason    string
	StartedAt time.Time
	UpdatedAt time.Time
}

// Journal is a write-ahead log of ingestions. An entry is begun before the vector index
// or registry is touched and resolved once both are persisted or rolled back, so a
// crash in between leaves a pending entry to repair on the next start.
type Journal interface {
	Begin(ctx context.Context, docID, filename string, chunks int) error
	MarkCommitted(ctx context.Context, docID string) error
	MarkAborted(ctx context.Context, docID, reason string) error
	Get(ctx context.Context, docID string) (*JournalEntry, error)
	Pending(ctx context.Context) ([]*JournalEntry, error)
	Counts(ctx context.Context) (map[Status]int64, error)
	Close() error
}
