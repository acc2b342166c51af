package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"clearminutes/internal/models"
	"clearminutes/internal/orchestrator"
	"clearminutes/internal/store"
	"clearminutes/internal/transcribe"
)

// jobResponse is the polling payload. Result stays null until the job
// completes.
type jobResponse struct {
	JobID     string           `json:"job_id"`
	Status    models.JobStatus `json:"status"`
	Filename  string           `json:"filename"`
	CreatedAt time.Time        `json:"created_at"`
	ErrorMsg  string           `json:"error_msg"`
	Result    *models.Result   `json:"result"`
}

func (a *App) upload(w http.ResponseWriter, r *http.Request) {
	// Generous slack over the validation cap so the limit error users see is
	// the adapter's, not a truncated multipart read.
	r.Body = http.MaxBytesReader(w, r.Body, transcribe.MaxFileSize+(1<<20))

	file, header, err := r.FormFile("file")
	if err != nil {
		a.respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	job, err := a.orch.Submit(r.Context(), header.Filename, header.Size, file)
	if err != nil {
		var verr *orchestrator.ValidationError
		if errors.As(err, &verr) {
			a.respondError(w, http.StatusBadRequest, verr.Reason)
			return
		}
		a.logger.Error("upload failed", "filename", header.Filename, "error", err)
		a.respondError(w, http.StatusInternalServerError, "failed to accept upload")
		return
	}

	a.respondJSON(w, http.StatusOK, map[string]any{
		"job_id": job.ID,
		"status": job.Status,
	})
}

func (a *App) getJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	job, err := a.store.GetJob(r.Context(), jobID)
	if errors.Is(err, store.ErrNotFound) {
		a.respondError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		a.logger.Error("get job failed", "job_id", jobID, "error", err)
		a.respondError(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	resp := jobResponse{
		JobID:     job.ID,
		Status:    job.Status,
		Filename:  job.Filename,
		CreatedAt: job.CreatedAt,
		ErrorMsg:  job.ErrorMsg,
	}

	if job.Status == models.StatusCompleted {
		result, err := a.store.GetResult(r.Context(), jobID)
		if err == nil {
			resp.Result = &result
		} else if !errors.Is(err, store.ErrNotFound) {
			a.logger.Error("get result failed", "job_id", jobID, "error", err)
			a.respondError(w, http.StatusInternalServerError, "failed to load result")
			return
		}
	}

	a.respondJSON(w, http.StatusOK, resp)
}

func (a *App) exportJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	job, err := a.store.GetJob(r.Context(), jobID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && job.Status != models.StatusCompleted) {
		a.respondError(w, http.StatusNotFound, "Job not found or not completed")
		return
	}
	if err != nil {
		a.logger.Error("get job failed", "job_id", jobID, "error", err)
		a.respondError(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	result, err := a.store.GetResult(r.Context(), jobID)
	if err != nil {
		a.logger.Error("get result failed", "job_id", jobID, "error", err)
		a.respondError(w, http.StatusInternalServerError, "failed to load result")
		return
	}

	doc := renderMinutes(job.Filename, result)

	short := jobID
	if len(short) > 8 {
		short = short[:8]
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=minutes_"+short+".md")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

func (a *App) deleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	job, err := a.store.GetJob(r.Context(), jobID)
	if errors.Is(err, store.ErrNotFound) {
		a.respondError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		a.logger.Error("get job failed", "job_id", jobID, "error", err)
		a.respondError(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	if err := a.store.DeleteJob(r.Context(), jobID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.respondError(w, http.StatusNotFound, "Job not found")
			return
		}
		a.logger.Error("delete job failed", "job_id", jobID, "error", err)
		a.respondError(w, http.StatusInternalServerError, "failed to delete job")
		return
	}

	// The upload file only survives for jobs that never completed.
	if job.FilePath != "" {
		if err := a.blobs.Delete(job.FilePath); err != nil {
			a.logger.Warn("upload cleanup on delete failed", "job_id", jobID, "error", err)
		}
	}

	a.respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jobEvents upgrades to a websocket, sends the current status snapshot, then
// one event per subsequent transition. Polling GET /api/jobs/{id} remains the
// canonical way to observe a job; this stream is a convenience.
func (a *App) jobEvents(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	job, err := a.store.GetJob(r.Context(), jobID)
	if errors.Is(err, store.ErrNotFound) {
		a.respondError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		a.logger.Error("get job failed", "job_id", jobID, "error", err)
		a.respondError(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("websocket upgrade failed", "job_id", jobID, "error", err)
		return
	}

	a.mu.Lock()
	if a.subs[jobID] == nil {
		a.subs[jobID] = make(map[*websocket.Conn]struct{})
	}
	a.subs[jobID][conn] = struct{}{}
	a.mu.Unlock()

	_ = conn.WriteJSON(models.StatusEvent{
		JobID:    job.ID,
		Status:   job.Status,
		Filename: job.Filename,
		Error:    job.ErrorMsg,
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	a.mu.Lock()
	delete(a.subs[jobID], conn)
	a.mu.Unlock()
	_ = conn.Close()
}
