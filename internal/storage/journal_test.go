package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openJournal(t *testing.T) *SQLiteJournal {
	t.Helper()
	j, err := NewSQLiteJournal(filepath.Join(t.TempDir(), "db", "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestSQLiteJournal_Lifecycle(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()

	if err := j.Begin(ctx, "d1", "a.pdf", 3); err != nil {
		t.Fatal(err)
	}
	if err := j.Begin(ctx, "d2", "b.pdf", 1); err != nil {
		t.Fatal(err)
	}
	pending, err := j.Pending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 || pending[0].DocID != "d1" {
		t.Fatalf("pending = %+v", pending)
	}
	if pending[0].Filename != "a.pdf" || pending[0].Chunks != 3 || pending[0].StartedAt.IsZero() {
		t.Errorf("entry = %+v", pending[0])
	}

	if err := j.MarkCommitted(ctx, "d1"); err != nil {
		t.Fatal(err)
	}
	if err := j.MarkAborted(ctx, "d2", "disk full"); err != nil {
		t.Fatal(err)
	}
	pending, _ = j.Pending(ctx)
	if len(pending) != 0 {
		t.Errorf("expected no pending entries, got %d", len(pending))
	}

	e, err := j.Get(ctx, "d2")
	if err != nil {
		t.Fatal(err)
	}
	if e.Status != StatusAborted || e.Reason != "disk full" {
		t.Errorf("entry = %+v", e)
	}

	counts, err := j.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts[StatusCommitted] != 1 || counts[StatusAborted] != 1 || counts[StatusPending] != 0 {
		t.Errorf("counts = %v", counts)
	}
}

func TestSQLiteJournal_duplicateBegin(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()
	if err := j.Begin(ctx, "d1", "a.pdf", 1); err != nil {
		t.Fatal(err)
	}
	if err := j.Begin(ctx, "d1", "a.pdf", 1); err == nil {
		t.Error("expected error for duplicate doc_id")
	}
}

func TestSQLiteJournal_unknownEntry(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()
	if err := j.MarkCommitted(ctx, "missing"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("MarkCommitted: %v", err)
	}
	if _, err := j.Get(ctx, "missing"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Get: %v", err)
	}
}

func TestSQLiteJournal_persistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()
	j, err := NewSQLiteJournal(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := j.Begin(ctx, "d1", "a.pdf", 2); err != nil {
		t.Fatal(err)
	}
	_ = j.Close()

	j, err = NewSQLiteJournal(path)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	pending, err := j.Pending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].DocID != "d1" {
		t.Errorf("pending after reopen = %+v", pending)
	}
}
