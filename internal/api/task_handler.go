package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/reelchef/reelchef/internal/api/shared"
	"github.com/reelchef/reelchef/internal/domain"
	"github.com/reelchef/reelchef/internal/scheduler"
)

// defaultRecipeName is used for the eagerly created store record when the
// caller does not supply a display name.
const defaultRecipeName = "Recipe from Social Media video"

// TaskScheduler is the slice of the scheduler the handlers need.
type TaskScheduler interface {
	Submit(task *domain.Task) (int, error)
	Status() scheduler.Status
}

// RecipeCreator creates the bare remote recipe record at submission time so
// the caller has a reference before processing finishes.
type RecipeCreator interface {
	Create(ctx context.Context, name string) (string, error)
}

// SubmitTaskRequest represents the request body for submitting a video URL
type SubmitTaskRequest struct {
	URL  string `json:"url"  validate:"required,url"`
	Name string `json:"name" validate:"omitempty,max=200"`
}

// SubmitTaskResponse represents the response data for an accepted task
type SubmitTaskResponse struct {
	TaskID        int64  `json:"task_id"`
	QueuePosition int    `json:"queue_position"`
	RecipeSlug    string `json:"recipe_slug,omitempty"`
}

// TaskHandler handles task submission and status HTTP requests
type TaskHandler struct {
	scheduler TaskScheduler
	creator   RecipeCreator
	logger    *slog.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(sched TaskScheduler, creator RecipeCreator, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		scheduler: sched,
		creator:   creator,
		logger:    logger,
	}
}

// SubmitTask handles POST /api/submit requests. Submission is decoupled
// from processing: the task is enqueued and a 202 returned immediately,
// never blocking on the worker.
func (h *TaskHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	var req SubmitTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	task, err := domain.NewTask(req.URL)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	// Eagerly create the remote record so the caller gets a reference now.
	name := req.Name
	if name == "" {
		name = defaultRecipeName
	}
	slug, err := h.creator.Create(r.Context(), name)
	if err != nil {
		h.logger.Error("failed to create recipe record", "error", err, "url", req.URL)
		shared.RespondWithError(w, r, http.StatusBadGateway, "Failed to create recipe record")
		return
	}
	task.RecipeSlug = slug

	position, err := h.scheduler.Submit(task)
	if err != nil {
		h.logger.Error("failed to enqueue task", "error", err, "url", req.URL)
		shared.RespondWithError(w, r, http.StatusServiceUnavailable, "Queue unavailable: "+err.Error())
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitTaskResponse{
		TaskID:        task.ID,
		QueuePosition: position,
		RecipeSlug:    slug,
	})
}

// GetStatus handles GET /api/status requests. It returns a consistent
// snapshot of the queue and current task without blocking the worker.
func (h *TaskHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.scheduler.Status())
}

// Health handles GET /health requests.
func (h *TaskHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.scheduler.Status()
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]any{
		"status":      "ok",
		"queue_count": status.QueueCount,
		"processing":  status.CurrentlyProcessing != nil,
	})
}
