package models

import "time"

// JobStatus represents the lifecycle state of a processing job.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether a status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one upload-to-minutes processing attempt.
type Job struct {
	ID        string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Filename  string    `json:"filename"`
	FilePath  string    `json:"-"`
	ErrorMsg  string    `json:"error_msg,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Confidence grades how explicitly a task was assigned in the transcript.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ActionItem is a single extracted task.
type ActionItem struct {
	Task       string     `json:"task"`
	Assignee   string     `json:"assignee,omitempty"`
	Deadline   string     `json:"deadline,omitempty"`
	Confidence Confidence `json:"confidence"`
	Evidence   string     `json:"evidence"`
}

// Summary is the structured reply of the summarization call.
type Summary struct {
	Overview      string   `json:"overview"`
	KeyPoints     []string `json:"key_points"`
	Decisions     []string `json:"decisions"`
	OpenQuestions []string `json:"open_questions"`
}

// Result holds the output of a completed job. A job has at most one Result,
// written exactly once on successful completion and never mutated.
type Result struct {
	JobID         string       `json:"-"`
	Transcript    string       `json:"transcript"`
	Overview      string       `json:"overview"`
	KeyPoints     []string     `json:"key_points"`
	Decisions     []string     `json:"decisions"`
	OpenQuestions []string     `json:"open_questions"`
	ActionItems   []ActionItem `json:"action_items"`
	CreatedAt     time.Time    `json:"-"`
}

// StatusEvent is sent to websocket subscribers on each status transition.
type StatusEvent struct {
	JobID    string    `json:"job_id"`
	Status   JobStatus `json:"status"`
	Filename string    `json:"filename"`
	Error    string    `json:"error,omitempty"`
}
