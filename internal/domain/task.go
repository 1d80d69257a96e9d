package domain

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// TaskStatus represents the processing state of an extraction task
type TaskStatus string

// Possible task status values, in pipeline order
const (
	TaskStatusReceived       TaskStatus = "received"
	TaskStatusTranscribing   TaskStatus = "transcribing"
	TaskStatusWaitingForSlot TaskStatus = "waiting_for_slot"
	TaskStatusGenerating     TaskStatus = "generating"
	TaskStatusSaving         TaskStatus = "saving"
	TaskStatusCompleted      TaskStatus = "completed"
	TaskStatusFailed         TaskStatus = "failed"
)

// Common validation errors for Task
var (
	ErrEmptyTaskURL       = errors.New("task URL cannot be empty")
	ErrInvalidTaskStatus  = errors.New("invalid task status")
	ErrBackwardTransition = errors.New("task status cannot move backward")
	ErrTerminalTransition = errors.New("task status is terminal")
	ErrMissingTaskContext = errors.New("task context is missing")
	ErrMissingTaskPrompt  = errors.New("task prompt is missing")
)

// statusRank orders the forward-only pipeline states. Terminal failure is
// handled separately via Fail and is reachable from any non-terminal state.
var statusRank = map[TaskStatus]int{
	TaskStatusReceived:       0,
	TaskStatusTranscribing:   1,
	TaskStatusWaitingForSlot: 2,
	TaskStatusGenerating:     3,
	TaskStatusSaving:         4,
	TaskStatusCompleted:      5,
}

// taskIDCounter disambiguates tasks created within the same millisecond.
var taskIDCounter atomic.Int64

// TaskContext is the immutable bundle of upstream extraction results a task
// needs before LLM generation can start.
type TaskContext struct {
	Caption       string `json:"caption"`
	Transcription string `json:"transcription"`
	ThumbnailURL  string `json:"thumbnail_url,omitempty"`
	Prompt        string `json:"prompt"`
}

// Task represents one queued recipe-extraction job and its mutable state.
// It is owned by the submitter before enqueue and by the scheduler's worker
// afterwards; status readers only ever see value-copied snapshots.
type Task struct {
	ID              int64        `json:"id"`
	URL             string       `json:"url"`
	Status          TaskStatus   `json:"status"`
	QueuePosition   int          `json:"queue_position"`
	Context         *TaskContext `json:"context,omitempty"`
	RecipeSlug      string       `json:"recipe_slug,omitempty"`
	OriginalCaption string       `json:"original_caption,omitempty"`
	StartedAt       *time.Time   `json:"started_at,omitempty"`
	FinishedAt      *time.Time   `json:"finished_at,omitempty"`
	Err             string       `json:"error,omitempty"`
}

// NewTask creates a new Task for the given source URL in the initial
// received state. IDs are time-derived and strictly increasing within the
// process; they are never reused.
func NewTask(url string) (*Task, error) {
	if url == "" {
		return nil, ErrEmptyTaskURL
	}

	return &Task{
		ID:     time.Now().UnixMilli()*1000 + taskIDCounter.Add(1)%1000,
		URL:    url,
		Status: TaskStatusReceived,
	}, nil
}

// Advance moves the task to the given status, enforcing the forward-only
// state machine. Returns an error on backward transitions, transitions out
// of a terminal state, or unknown states.
func (t *Task) Advance(status TaskStatus) error {
	if t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed {
		return fmt.Errorf("%w: cannot leave %q", ErrTerminalTransition, t.Status)
	}

	next, ok := statusRank[status]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidTaskStatus, status)
	}

	if next < statusRank[t.Status] {
		return fmt.Errorf("%w: %q -> %q", ErrBackwardTransition, t.Status, status)
	}

	t.Status = status
	return nil
}

// Fail transitions the task to the terminal failed state from any
// non-terminal state, recording the failure reason and finish time.
func (t *Task) Fail(reason string) {
	if t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed {
		return
	}

	now := time.Now().UTC()
	t.Status = TaskStatusFailed
	t.Err = reason
	t.FinishedAt = &now
}

// Terminal reports whether the task has reached a terminal state.
func (t *Task) Terminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// ValidateForGeneration checks that the task carries everything the LLM
// stage needs. A task that reaches generation without a context or prompt
// fails immediately, without an LLM call ever being attempted.
func (t *Task) ValidateForGeneration() error {
	if t.Context == nil {
		return ErrMissingTaskContext
	}
	if t.Context.Prompt == "" {
		return ErrMissingTaskPrompt
	}
	return nil
}

// Snapshot returns a read-only value copy of the task for status reporting.
func (t *Task) Snapshot() TaskSnapshot {
	return TaskSnapshot{
		ID:            t.ID,
		URL:           t.URL,
		Status:        t.Status,
		QueuePosition: t.QueuePosition,
		RecipeSlug:    t.RecipeSlug,
		StartedAt:     t.StartedAt,
		FinishedAt:    t.FinishedAt,
		Err:           t.Err,
	}
}

// TaskSnapshot is the immutable view of a task exposed to status readers.
type TaskSnapshot struct {
	ID            int64      `json:"id"`
	URL           string     `json:"url"`
	Status        TaskStatus `json:"status"`
	QueuePosition int        `json:"queue_position"`
	RecipeSlug    string     `json:"recipe_slug,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	Err           string     `json:"error,omitempty"`
}
