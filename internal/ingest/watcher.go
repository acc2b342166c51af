// Package ingest feeds audio files dropped into a watched directory through
// the same submission path as HTTP uploads.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"clearminutes/internal/models"
	"clearminutes/internal/orchestrator"
)

// Submitter accepts a validated file and creates the job for it.
type Submitter interface {
	Submit(ctx context.Context, filename string, sizeBytes int64, r io.Reader) (models.Job, error)
}

// Watcher monitors a directory and submits every audio file created in it.
// The file is copied into the upload store by Submit; the original is
// removed from the watch directory afterwards.
type Watcher struct {
	dir     string
	submit  Submitter
	logger  *slog.Logger
	watcher *fsnotify.Watcher

	// settle is how long to wait after a create event before reading, so
	// slow writers finish first.
	settle time.Duration
}

func New(dir string, submit Submitter, logger *slog.Logger) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create watch dir: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	return &Watcher{
		dir:     dir,
		submit:  submit,
		logger:  logger,
		watcher: fsw,
		settle:  500 * time.Millisecond,
	}, nil
}

// Run processes events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watch-folder intake started", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				w.handleCreate(ctx, event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) handleCreate(ctx context.Context, path string) {
	select {
	case <-time.After(w.settle):
	case <-ctx.Done():
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		w.logger.Error("open watched file failed", "path", path, "error", err)
		return
	}
	defer f.Close()

	job, err := w.submit.Submit(ctx, filepath.Base(path), info.Size(), f)
	if err != nil {
		var verr *orchestrator.ValidationError
		if errors.As(err, &verr) {
			w.logger.Debug("ignoring non-audio file", "path", path, "reason", verr.Reason)
			return
		}
		w.logger.Error("submit watched file failed", "path", path, "error", err)
		return
	}

	w.logger.Info("watched file submitted", "path", path, "job_id", job.ID)
	if err := os.Remove(path); err != nil {
		w.logger.Warn("remove watched file failed", "path", path, "error", err)
	}
}
