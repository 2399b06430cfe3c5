package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hyperjump/docqa/pkg/utils"
	"go.uber.org/zap"
)

// Subdirectories of the inbox that receive handled files.
const (
	ProcessedDir = "processed"
	FailedDir    = "failed"
)

// Ingester ingests the file at path under the given display filename.
type Ingester interface {
	IngestFile(ctx context.Context, path, filename string) (string, error)
}

// Inbox ingests files dropped into a directory and moves each one out of the way
// afterwards, so a file is ingested at most once.
type Inbox struct {
	dir      string
	ingester Ingester
	logger   *zap.Logger
	now      func() time.Time
	mu       sync.Mutex // one file at a time
}

// NewInbox returns an inbox rooted at dir.
func NewInbox(dir string, ingester Ingester, logger *zap.Logger) *Inbox {
	return &Inbox{
		dir:      filepath.Clean(dir),
		ingester: ingester,
		logger:   utils.OrNop(logger),
		now:      time.Now,
	}
}

// Handle ingests path. On success the file moves to processed/<doc_id>-<name>; on
// failure it moves to failed/<timestamp>-<name>. It returns the new doc_id.
func (in *Inbox) Handle(ctx context.Context, path string) (string, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		// Already handled by an earlier event or removed by the user.
		return "", err
	}
	name := filepath.Base(path)
	docID, err := in.ingester.IngestFile(ctx, path, name)
	if err != nil {
		in.logger.Warn("inbox ingestion failed", zap.String("filename", name), zap.Error(err))
		dest := filepath.Join(in.dir, FailedDir, in.now().UTC().Format("20060102T150405")+"-"+name)
		if mvErr := move(path, dest); mvErr != nil {
			in.logger.Error("inbox move failed", zap.String("path", path), zap.Error(mvErr))
		}
		return "", err
	}
	dest := filepath.Join(in.dir, ProcessedDir, docID+"-"+name)
	if err := move(path, dest); err != nil {
		in.logger.Error("inbox move failed", zap.String("path", path), zap.Error(err))
		return docID, fmt.Errorf("move ingested file: %w", err)
	}
	in.logger.Info("inbox file ingested", zap.String("doc_id", docID), zap.String("filename", name))
	return docID, nil
}

func move(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	return os.Rename(src, dest)
}

// Watch starts a watcher on the inbox directory that hands files to Handle, and
// ingests files already present. It stops when ctx is cancelled.
func (in *Inbox) Watch(ctx context.Context, debounce time.Duration) (*Watcher, error) {
	w := NewWatcher(in.dir, func(path string) {
		_, _ = in.Handle(ctx, path)
	}, WithLogger(in.logger), WithDebounce(debounce))
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	go w.SyncExistingFiles()
	return w, nil
}
