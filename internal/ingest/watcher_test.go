package ingest

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"clearminutes/internal/models"
	"clearminutes/internal/orchestrator"
	"clearminutes/internal/transcribe"
)

type recordingSubmitter struct {
	mu   sync.Mutex
	seen []string
}

func (r *recordingSubmitter) Submit(ctx context.Context, filename string, sizeBytes int64, body io.Reader) (models.Job, error) {
	if ok, reason := transcribe.Validate(filename, sizeBytes); !ok {
		return models.Job{}, &orchestrator.ValidationError{Reason: reason}
	}
	r.mu.Lock()
	r.seen = append(r.seen, filename)
	r.mu.Unlock()
	return models.Job{ID: "job-" + filename, Status: models.StatusPending, Filename: filename}, nil
}

func (r *recordingSubmitter) submitted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func TestWatcherSubmitsAudioFiles(t *testing.T) {
	dir := t.TempDir()
	sub := &recordingSubmitter{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	w, err := New(dir, sub, logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.settle = 50 * time.Millisecond
	t.Cleanup(func() { w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	audio := filepath.Join(dir, "standup.mp3")
	if err := os.WriteFile(audio, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	other := filepath.Join(dir, "agenda.txt")
	if err := os.WriteFile(other, []byte("text"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if len(sub.submitted()) > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	seen := sub.submitted()
	if len(seen) != 1 || seen[0] != "standup.mp3" {
		t.Fatalf("submitted = %v, want just standup.mp3", seen)
	}

	// The audio file is removed after submission; the ignored one stays.
	if _, err := os.Stat(audio); !os.IsNotExist(err) {
		t.Errorf("audio file should be removed, stat err = %v", err)
	}
	if _, err := os.Stat(other); err != nil {
		t.Errorf("non-audio file should remain, stat err = %v", err)
	}
}
