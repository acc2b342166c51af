package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"clearminutes/internal/models"
)

// InsertJob persists a new job row.
func (s *Store) InsertJob(ctx context.Context, job models.Job) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, status, filename, file_path, error_msg, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Status, job.Filename, job.FilePath, job.ErrorMsg, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		s.logger.Error("insert job failed", "job_id", job.ID, "error", err)
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetJob fetches one job by id, ErrNotFound when absent.
func (s *Store) GetJob(ctx context.Context, id string) (models.Job, error) {
	var job models.Job
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, filename, file_path, error_msg, created_at, updated_at
		 FROM jobs WHERE id = ?`, id,
	).Scan(&job.ID, &job.Status, &job.Filename, &job.FilePath, &job.ErrorMsg, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Job{}, ErrNotFound
	}
	if err != nil {
		return models.Job{}, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// SetStatus updates a job's status (and error message) and bumps updated_at.
func (s *Store) SetStatus(ctx context.Context, id string, status models.JobStatus, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error_msg = ?, updated_at = ? WHERE id = ?`,
		status, errMsg, time.Now().UTC(), id,
	)
	if err != nil {
		s.logger.Error("update job status failed", "job_id", id, "status", status, "error", err)
		return fmt.Errorf("update job status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUnfinished returns ids of jobs that are not in a terminal state,
// oldest first. Used by the startup recovery sweep.
func (s *Store) ListUnfinished(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM jobs WHERE status IN (?, ?) ORDER BY created_at`,
		models.StatusPending, models.StatusProcessing,
	)
	if err != nil {
		return nil, fmt.Errorf("list unfinished jobs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan job id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteJob removes a job and its result, if any, in one transaction.
// The original service left result rows orphaned; deleting both keeps the
// at-most-one-result invariant trivially true.
func (s *Store) DeleteJob(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM results WHERE job_id = ?`, id); err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// InsertResult persists the result of a completed job. Called exactly once
// per job, by the orchestrator, before the completed transition.
func (s *Store) InsertResult(ctx context.Context, r models.Result) error {
	keyPoints, err := json.Marshal(emptyIfNil(r.KeyPoints))
	if err != nil {
		return fmt.Errorf("encode key_points: %w", err)
	}
	decisions, err := json.Marshal(emptyIfNil(r.Decisions))
	if err != nil {
		return fmt.Errorf("encode decisions: %w", err)
	}
	openQuestions, err := json.Marshal(emptyIfNil(r.OpenQuestions))
	if err != nil {
		return fmt.Errorf("encode open_questions: %w", err)
	}
	items := r.ActionItems
	if items == nil {
		items = []models.ActionItem{}
	}
	actionItems, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode action_items: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO results (job_id, transcript, overview, key_points, decisions, open_questions, action_items, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.JobID, r.Transcript, r.Overview, keyPoints, decisions, openQuestions, actionItems, r.CreatedAt,
	)
	if err != nil {
		s.logger.Error("insert result failed", "job_id", r.JobID, "error", err)
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// GetResult fetches the result for a job id, ErrNotFound when absent.
func (s *Store) GetResult(ctx context.Context, jobID string) (models.Result, error) {
	var r models.Result
	var keyPoints, decisions, openQuestions, actionItems []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT job_id, transcript, overview, key_points, decisions, open_questions, action_items, created_at
		 FROM results WHERE job_id = ?`, jobID,
	).Scan(&r.JobID, &r.Transcript, &r.Overview, &keyPoints, &decisions, &openQuestions, &actionItems, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Result{}, ErrNotFound
	}
	if err != nil {
		return models.Result{}, fmt.Errorf("get result: %w", err)
	}

	if err := json.Unmarshal(keyPoints, &r.KeyPoints); err != nil {
		return models.Result{}, fmt.Errorf("decode key_points: %w", err)
	}
	if err := json.Unmarshal(decisions, &r.Decisions); err != nil {
		return models.Result{}, fmt.Errorf("decode decisions: %w", err)
	}
	if err := json.Unmarshal(openQuestions, &r.OpenQuestions); err != nil {
		return models.Result{}, fmt.Errorf("decode open_questions: %w", err)
	}
	if err := json.Unmarshal(actionItems, &r.ActionItems); err != nil {
		return models.Result{}, fmt.Errorf("decode action_items: %w", err)
	}
	return r, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
