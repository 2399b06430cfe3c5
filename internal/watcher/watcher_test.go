package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}

// recorder collects onFile callbacks.
type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) onFile(path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWatcher_DebounceAndExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := NewWatcher(dir, rec.onFile, WithDebounce(100*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	pdf := filepath.Join(dir, "report.pdf")
	for i := 0; i < 3; i++ {
		if err := writeFile(pdf, strings.Repeat("x", i+1)); err != nil {
			t.Fatal(err)
		}
	}
	if err := writeFile(filepath.Join(dir, "notes.txt"), "ignored"); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return len(rec.snapshot()) >= 1 })
	time.Sleep(300 * time.Millisecond)
	got := rec.snapshot()
	if len(got) != 1 || got[0] != pdf {
		t.Errorf("expected one callback for %s, got %v", pdf, got)
	}
}

func TestWatcher_ignoresSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, ProcessedDir)
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	w := NewWatcher(dir, rec.onFile, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := writeFile(filepath.Join(sub, "done.pdf"), "x"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 0 {
		t.Errorf("files in subdirectories should be ignored, got %v", got)
	}
}

func TestWatcher_SyncExistingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := writeFile(filepath.Join(dir, "a.pdf"), "x"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, "ignore.txt"), "x"); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	w := NewWatcher(dir, rec.onFile)
	w.SyncExistingFiles()
	got := rec.snapshot()
	if len(got) != 1 || filepath.Base(got[0]) != "a.pdf" {
		t.Errorf("expected a.pdf only, got %v", got)
	}
}

func TestWatcher_Start_createsMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "inbox", "new")
	w := NewWatcher(dir, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("directory should exist after Start: %v", err)
	}
	if w.Dir() != dir {
		t.Errorf("Dir() = %s", w.Dir())
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w := NewWatcher(t.TempDir(), nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
}

type fakeIngester struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeIngester) IngestFile(_ context.Context, path, filename string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, filename)
	if f.err != nil {
		return "", f.err
	}
	return "doc-" + filename, nil
}

func TestInbox_HandleMovesIngestedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.pdf")
	if err := writeFile(path, "x"); err != nil {
		t.Fatal(err)
	}
	ing := &fakeIngester{}
	in := NewInbox(dir, ing, nil)

	docID, err := in.Handle(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if docID != "doc-a.pdf" {
		t.Errorf("doc_id: got %s", docID)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("ingested file should leave the inbox")
	}
	if _, err := os.Stat(filepath.Join(dir, ProcessedDir, "doc-a.pdf-a.pdf")); err != nil {
		t.Errorf("processed file missing: %v", err)
	}

	if _, err := in.Handle(context.Background(), path); err == nil {
		t.Error("handling a file twice should fail the second time")
	}
	if len(ing.calls) != 1 {
		t.Errorf("ingester calls: got %v", ing.calls)
	}
}

func TestInbox_HandleMovesFailedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.pdf")
	if err := writeFile(path, "x"); err != nil {
		t.Fatal(err)
	}
	cause := errors.New("text extraction failed")
	in := NewInbox(dir, &fakeIngester{err: cause}, nil)
	in.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	if _, err := in.Handle(context.Background(), path); !errors.Is(err, cause) {
		t.Fatalf("expected ingest error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, FailedDir, "20240501T120000-broken.pdf")); err != nil {
		t.Errorf("failed file missing: %v", err)
	}
}

func TestInbox_Watch(t *testing.T) {
	dir := t.TempDir()
	if err := writeFile(filepath.Join(dir, "early.pdf"), "x"); err != nil {
		t.Fatal(err)
	}
	ing := &fakeIngester{}
	in := NewInbox(dir, ing, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w, err := in.Watch(ctx, 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := writeFile(filepath.Join(dir, "late.pdf"), "x"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		entries, _ := os.ReadDir(filepath.Join(dir, ProcessedDir))
		return len(entries) == 2
	})
}
