package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteJournal implements Journal using SQLite.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal opens or creates a SQLite journal at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteJournal{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS ingestions (
		doc_id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		chunks INTEGER NOT NULL,
		status TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ingestions_status ON ingestions(status);
	`
	_, err := db.Exec(schema)
	return err
}

// Begin records a pending ingestion of docID.
func (j *SQLiteJournal) Begin(ctx context.Context, docID, filename string, chunks int) error {
	now := time.Now().UTC()
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO ingestions (doc_id, filename, chunks, status, started_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		docID, filename, chunks, string(StatusPending), now, now,
	)
	if err != nil {
		return fmt.Errorf("journal begin %s: %w", docID, err)
	}
	return nil
}

// MarkCommitted resolves docID as committed.
func (j *SQLiteJournal) MarkCommitted(ctx context.Context, docID string) error {
	return j.setStatus(ctx, docID, StatusCommitted, "")
}

// MarkAborted resolves docID as aborted with the failure reason.
func (j *SQLiteJournal) MarkAborted(ctx context.Context, docID, reason string) error {
	return j.setStatus(ctx, docID, StatusAborted, reason)
}

func (j *SQLiteJournal) setStatus(ctx context.Context, docID string, status Status, reason string) error {
	result, err := j.db.ExecContext(ctx,
		`UPDATE ingestions SET status = ?, reason = ?, updated_at = ? WHERE doc_id = ?`,
		string(status), reason, time.Now().UTC(), docID,
	)
	if err != nil {
		return fmt.Errorf("journal mark %s %s: %w", docID, status, err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, docID)
	}
	return nil
}

// Get returns the journal entry of docID.
func (j *SQLiteJournal) Get(ctx context.Context, docID string) (*JournalEntry, error) {
	row := j.db.QueryRowContext(ctx,
		`SELECT doc_id, filename, chunks, status, reason, started_at, updated_at
		 FROM ingestions WHERE doc_id = ?`, docID,
	)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, docID)
	}
	return e, err
}

// Pending returns unresolved entries, oldest first.
func (j *SQLiteJournal) Pending(ctx context.Context) ([]*JournalEntry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT doc_id, filename, chunks, status, reason, started_at, updated_at
		 FROM ingestions WHERE status = ? ORDER BY started_at, rowid`,
		string(StatusPending),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Counts returns the number of entries per status.
func (j *SQLiteJournal) Counts(ctx context.Context) (map[Status]int64, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM ingestions GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[Status]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[Status(status)] = n
	}
	return counts, rows.Err()
}

// Close closes the database connection.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*JournalEntry, error) {
	var e JournalEntry
	var status string
	if err := s.Scan(&e.DocID, &e.Filename, &e.Chunks, &status, &e.Reason, &e.StartedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Status = Status(status)
	return &e, nil
}
