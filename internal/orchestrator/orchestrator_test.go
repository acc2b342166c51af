package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"clearminutes/internal/blob"
	"clearminutes/internal/models"
	"clearminutes/internal/store"
)

type stubTranscriber struct {
	text string
	err  error
}

func (s stubTranscriber) Transcribe(ctx context.Context, filePath string) (string, error) {
	return s.text, s.err
}

type stubSummarizer struct {
	summary    models.Summary
	summaryErr error
	items      []models.ActionItem
	itemsErr   error
}

func (s stubSummarizer) Summarize(ctx context.Context, transcript string) (models.Summary, error) {
	return s.summary, s.summaryErr
}

func (s stubSummarizer) ExtractActionItems(ctx context.Context, transcript string) ([]models.ActionItem, error) {
	return s.items, s.itemsErr
}

type fixture struct {
	orch  *Orchestrator
	store *store.Store
	dir   string
}

func newFixture(t *testing.T, tr Transcriber, sm Summarizer) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "jobs.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	dir := t.TempDir()
	blobs := blob.NewStore(dir, logger)

	cfg := Config{Workers: 2, JobTimeout: 10 * time.Second}
	return &fixture{
		orch:  New(st, blobs, tr, sm, cfg, logger),
		store: st,
		dir:   dir,
	}
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	if err := f.orch.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		f.orch.Stop()
	})
}

func waitForTerminal(t *testing.T, st *store.Store, id string) models.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := st.GetJob(context.Background(), id)
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return models.Job{}
}

func TestSubmitAndComplete(t *testing.T) {
	sm := stubSummarizer{
		summary: models.Summary{Overview: "Sync.", KeyPoints: []string{"A"}, OpenQuestions: []string{"Q?"}},
		items:   []models.ActionItem{},
	}
	f := newFixture(t, stubTranscriber{text: "Hello world"}, sm)

	var mu sync.Mutex
	var seen []models.JobStatus
	f.orch.OnJobUpdate(func(j models.Job) {
		mu.Lock()
		seen = append(seen, j.Status)
		mu.Unlock()
	})

	f.start(t)

	job, err := f.orch.Submit(context.Background(), "meeting.mp3", 5<<20, strings.NewReader("audio"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Status != models.StatusPending {
		t.Errorf("submitted status = %s, want pending", job.Status)
	}
	if job.ID == "" {
		t.Error("job id must be assigned at creation")
	}

	done := waitForTerminal(t, f.store, job.ID)
	if done.Status != models.StatusCompleted {
		t.Fatalf("status = %s (%s), want completed", done.Status, done.ErrorMsg)
	}
	if done.ErrorMsg != "" {
		t.Errorf("completed job has error_msg %q", done.ErrorMsg)
	}

	res, err := f.store.GetResult(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if res.Transcript != "Hello world" || res.Overview != "Sync." {
		t.Errorf("result = %+v", res)
	}
	if len(res.Decisions) != 0 {
		t.Errorf("Decisions = %v, want empty", res.Decisions)
	}

	// Upload file is cleaned up after success.
	if _, err := os.Stat(job.FilePath); !os.IsNotExist(err) {
		t.Errorf("upload should be deleted, stat err = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []models.JobStatus{models.StatusPending, models.StatusProcessing, models.StatusCompleted}
	if len(seen) != len(want) {
		t.Fatalf("transitions = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", seen, want)
		}
	}
}

func TestTranscriptionFailure(t *testing.T) {
	f := newFixture(t, stubTranscriber{err: errors.New("groq status 401: invalid key")}, stubSummarizer{})
	f.start(t)

	job, err := f.orch.Submit(context.Background(), "meeting.mp3", 1024, strings.NewReader("audio"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	done := waitForTerminal(t, f.store, job.ID)
	if done.Status != models.StatusFailed {
		t.Fatalf("status = %s, want failed", done.Status)
	}
	if !strings.Contains(done.ErrorMsg, "401") {
		t.Errorf("error_msg = %q, should carry the adapter message", done.ErrorMsg)
	}

	// No partial result on failure.
	if _, err := f.store.GetResult(context.Background(), job.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetResult err = %v, want ErrNotFound", err)
	}
}

func TestSummarizationFailure(t *testing.T) {
	sm := stubSummarizer{summaryErr: errors.New("parse summary reply: invalid character 'S'")}
	f := newFixture(t, stubTranscriber{text: "t"}, sm)
	f.start(t)

	job, err := f.orch.Submit(context.Background(), "a.wav", 10, strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}

	done := waitForTerminal(t, f.store, job.ID)
	if done.Status != models.StatusFailed || done.ErrorMsg == "" {
		t.Fatalf("status = %s, error_msg = %q", done.Status, done.ErrorMsg)
	}
}

func TestExtractionFailure(t *testing.T) {
	sm := stubSummarizer{
		summary:  models.Summary{Overview: "ok"},
		itemsErr: errors.New("action item extraction failed: groq status 500"),
	}
	f := newFixture(t, stubTranscriber{text: "t"}, sm)
	f.start(t)

	job, err := f.orch.Submit(context.Background(), "a.wav", 10, strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}

	done := waitForTerminal(t, f.store, job.ID)
	if done.Status != models.StatusFailed {
		t.Fatalf("status = %s, want failed", done.Status)
	}
}

func TestSubmitRejectsInvalidUpload(t *testing.T) {
	f := newFixture(t, stubTranscriber{}, stubSummarizer{})
	f.start(t)

	_, err := f.orch.Submit(context.Background(), "notes.pdf", 1024, strings.NewReader("x"))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}

	// Rejection happens before anything is stored.
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("upload dir not empty after rejection: %v", entries)
	}
}

func TestRecoverySweepRequeuesStuckJobs(t *testing.T) {
	sm := stubSummarizer{summary: models.Summary{Overview: "ok"}}
	f := newFixture(t, stubTranscriber{text: "t"}, sm)

	// Simulate a job left behind by a crash mid-processing.
	path := filepath.Join(f.dir, "stuck_meeting.mp3")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	now := time.Now().UTC()
	stuck := models.Job{
		ID:        "stuck-1",
		Status:    models.StatusProcessing,
		Filename:  "meeting.mp3",
		FilePath:  path,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := f.store.InsertJob(context.Background(), stuck); err != nil {
		t.Fatal(err)
	}

	f.start(t)

	done := waitForTerminal(t, f.store, "stuck-1")
	if done.Status != models.StatusCompleted {
		t.Fatalf("status = %s (%s), want completed after requeue", done.Status, done.ErrorMsg)
	}
}
