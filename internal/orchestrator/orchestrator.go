// Package orchestrator owns the job lifecycle: it turns accepted uploads into
// pending job rows and drives each one through transcription, summarization,
// and result persistence on a bounded worker pool.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"clearminutes/internal/models"
	"clearminutes/internal/store"
	"clearminutes/internal/transcribe"
)

// Transcriber converts a stored audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, filePath string) (string, error)
}

// Summarizer produces the structured summary and the action items.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (models.Summary, error)
	ExtractActionItems(ctx context.Context, transcript string) ([]models.ActionItem, error)
}

// BlobStore persists and removes uploaded files.
type BlobStore interface {
	Save(r io.Reader, originalName string) (string, error)
	Delete(path string) error
}

// ValidationError rejects an upload before any job is created. The HTTP
// layer maps it to a 400 response.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Config bounds the worker pool.
type Config struct {
	Workers    int
	JobTimeout time.Duration
}

// Orchestrator schedules and runs background processing for jobs. Workers
// consume a queue of job ids; the queue is repopulated from the store at
// startup so jobs survive a restart.
type Orchestrator struct {
	store       *store.Store
	blobs       BlobStore
	transcriber Transcriber
	summarizer  Summarizer
	cfg         Config
	logger      *slog.Logger

	queue chan string
	wg    sync.WaitGroup

	mu     sync.RWMutex
	notify func(models.Job)
}

func New(st *store.Store, blobs BlobStore, tr Transcriber, sm Summarizer, cfg Config, logger *slog.Logger) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Minute
	}
	return &Orchestrator{
		store:       st,
		blobs:       blobs,
		transcriber: tr,
		summarizer:  sm,
		cfg:         cfg,
		logger:      logger,
		queue:       make(chan string, cfg.Workers*16),
	}
}

// OnJobUpdate registers a hook invoked after every persisted status
// transition. Used by the HTTP layer to push websocket events.
func (o *Orchestrator) OnJobUpdate(fn func(models.Job)) {
	o.mu.Lock()
	o.notify = fn
	o.mu.Unlock()
}

// Start requeues unfinished jobs and launches the worker pool. Workers run
// until ctx is cancelled; Stop waits for in-flight runs to settle.
func (o *Orchestrator) Start(ctx context.Context) error {
	ids, err := o.store.ListUnfinished(ctx)
	if err != nil {
		return fmt.Errorf("recovery sweep: %w", err)
	}
	for _, id := range ids {
		o.enqueue(id)
	}
	if len(ids) > 0 {
		o.logger.Info("requeued unfinished jobs", "count", len(ids))
	}

	for i := 0; i < o.cfg.Workers; i++ {
		o.wg.Add(1)
		go o.worker(ctx)
	}
	o.logger.Info("orchestrator started", "workers", o.cfg.Workers)
	return nil
}

// Stop blocks until all workers have exited. Callers cancel the Start
// context first.
func (o *Orchestrator) Stop() {
	o.wg.Wait()
}

// Submit validates the upload, stores the file, creates the pending job row,
// and enqueues it for processing. It returns as soon as the row exists; the
// caller never waits on transcription.
func (o *Orchestrator) Submit(ctx context.Context, filename string, sizeBytes int64, r io.Reader) (models.Job, error) {
	if ok, reason := transcribe.Validate(filename, sizeBytes); !ok {
		return models.Job{}, &ValidationError{Reason: reason}
	}

	path, err := o.blobs.Save(r, filename)
	if err != nil {
		return models.Job{}, fmt.Errorf("store upload: %w", err)
	}

	now := time.Now().UTC()
	job := models.Job{
		ID:        uuid.New().String(),
		Status:    models.StatusPending,
		Filename:  filename,
		FilePath:  path,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.store.InsertJob(ctx, job); err != nil {
		if derr := o.blobs.Delete(path); derr != nil {
			o.logger.Warn("orphaned upload after failed insert", "path", path, "error", derr)
		}
		return models.Job{}, err
	}

	o.logger.Info("job created", "job_id", job.ID, "filename", filename, "size", sizeBytes)
	o.publish(job)
	o.enqueue(job.ID)
	return job, nil
}

// enqueue never blocks the submitting request: if the buffered queue is
// momentarily full the handoff moves to a goroutine.
func (o *Orchestrator) enqueue(id string) {
	select {
	case o.queue <- id:
	default:
		go func() { o.queue <- id }()
	}
}

func (o *Orchestrator) worker(ctx context.Context) {
	defer o.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-o.queue:
			o.process(ctx, id)
		}
	}
}

// process drives one job to a terminal state. Every failure path funnels
// through fail(), so the row never stays in processing unless the process
// itself dies mid-run; the startup sweep picks those up.
func (o *Orchestrator) process(ctx context.Context, jobID string) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.JobTimeout)
	defer cancel()

	job, err := o.store.GetJob(ctx, jobID)
	if errors.Is(err, store.ErrNotFound) {
		// Invariant violation: an enqueued id must have a row. Abort, no
		// user-facing signal to produce.
		o.logger.Error("job row missing, aborting run", "job_id", jobID)
		return
	}
	if err != nil {
		o.logger.Error("load job failed", "job_id", jobID, "error", err)
		return
	}
	if job.Status.Terminal() {
		o.logger.Debug("skipping terminal job", "job_id", jobID, "status", job.Status)
		return
	}

	if err := o.setStatus(&job, models.StatusProcessing, ""); err != nil {
		o.logger.Error("mark processing failed", "job_id", jobID, "error", err)
		return
	}

	transcript, err := o.transcriber.Transcribe(ctx, job.FilePath)
	if err != nil {
		o.fail(&job, err)
		return
	}

	summary, err := o.summarizer.Summarize(ctx, transcript)
	if err != nil {
		o.fail(&job, err)
		return
	}

	items, err := o.summarizer.ExtractActionItems(ctx, transcript)
	if err != nil {
		o.fail(&job, err)
		return
	}

	result := models.Result{
		JobID:         job.ID,
		Transcript:    transcript,
		Overview:      summary.Overview,
		KeyPoints:     summary.KeyPoints,
		Decisions:     summary.Decisions,
		OpenQuestions: summary.OpenQuestions,
		ActionItems:   items,
		CreatedAt:     time.Now().UTC(),
	}
	if err := o.store.InsertResult(ctx, result); err != nil {
		o.fail(&job, err)
		return
	}

	if err := o.setStatus(&job, models.StatusCompleted, ""); err != nil {
		o.logger.Error("mark completed failed", "job_id", job.ID, "error", err)
		return
	}

	// Cleanup is best-effort: the job is completed regardless.
	if err := o.blobs.Delete(job.FilePath); err != nil {
		o.logger.Warn("upload cleanup failed", "job_id", job.ID, "path", job.FilePath, "error", err)
	}

	o.logger.Info("job completed", "job_id", job.ID)
}

func (o *Orchestrator) fail(job *models.Job, cause error) {
	o.logger.Error("job failed", "job_id", job.ID, "error", cause)
	if err := o.setStatus(job, models.StatusFailed, cause.Error()); err != nil {
		o.logger.Error("mark failed failed", "job_id", job.ID, "error", err)
	}
}

// setStatus persists the transition on its own short context, so a terminal
// state still lands when the run context is what expired.
func (o *Orchestrator) setStatus(job *models.Job, status models.JobStatus, errMsg string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := o.store.SetStatus(ctx, job.ID, status, errMsg); err != nil {
		return err
	}
	job.Status = status
	job.ErrorMsg = errMsg
	job.UpdatedAt = time.Now().UTC()
	o.publish(*job)
	return nil
}

func (o *Orchestrator) publish(job models.Job) {
	o.mu.RLock()
	fn := o.notify
	o.mu.RUnlock()
	if fn != nil {
		fn(job)
	}
}
