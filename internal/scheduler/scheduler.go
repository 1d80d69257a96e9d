// Package scheduler owns the task processing core: a FIFO queue and a
// single worker that drives each extraction task through the pipeline of
// transcript resolution, LLM generation, parsing, and persistence.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/reelchef/reelchef/internal/domain"
	"github.com/reelchef/reelchef/internal/generation"
	"github.com/reelchef/reelchef/internal/mealie"
	"github.com/reelchef/reelchef/internal/parser"
	"github.com/reelchef/reelchef/internal/prompt"
	"github.com/reelchef/reelchef/internal/redact"
)

// Common errors returned by the Scheduler
var (
	ErrQueueClosed = errors.New("task queue is closed")
	ErrQueueFull   = errors.New("task queue is full")
)

// transcriptionStatusMarker is appended to the interim description while a
// pre-created recipe record waits for the LLM result.
const transcriptionStatusMarker = "[Status: Transcription successful - Processing with LLM...]"

// RecipeStore is the narrow interface to the external recipe store consumed
// by the worker. Failures during saving fail the active task; the core
// never retries them.
type RecipeStore interface {
	Create(ctx context.Context, name string) (string, error)
	Update(ctx context.Context, slug string, fields mealie.RecipeFields) error
	SetThumbnail(ctx context.Context, slug, url string) error
}

// ContextResolver is the upstream collaborator that produces a task context
// (caption, transcription, thumbnail) for a source URL. The transcription
// stage itself lives behind this boundary; the scheduler only consumes its
// output.
type ContextResolver interface {
	Resolve(ctx context.Context, url string) (*domain.TaskContext, error)
}

// Config holds the scheduler's queue settings.
type Config struct {
	// QueueSize caps the number of pending tasks.
	QueueSize int

	// RecentTasks bounds the ring of terminal tasks kept for status
	// reporting. Zero disables retention.
	RecentTasks int
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		QueueSize:   100,
		RecentTasks: 50,
	}
}

// Scheduler owns the pending queue, the current-task pointer, and the
// worker goroutine. The mutex protects only queue and pointer mutation;
// it is never held across a network call.
type Scheduler struct {
	logger    *slog.Logger
	generator generation.Generator
	store     RecipeStore
	resolver  ContextResolver
	config    Config

	mu      sync.Mutex
	cond    *sync.Cond
	pending []*domain.Task
	current *domain.Task
	recent  []*domain.Task
	closed  bool

	wg sync.WaitGroup
}

// Status is a consistent snapshot of the queue for external observers.
type Status struct {
	QueueCount          int                   `json:"queue_count"`
	QueuedTasks         []domain.TaskSnapshot `json:"queued_tasks"`
	CurrentlyProcessing *domain.TaskSnapshot  `json:"currently_processing"`
	Recent              []domain.TaskSnapshot `json:"recent,omitempty"`
}

// New creates a Scheduler. The worker does not run until Start is called.
func New(logger *slog.Logger, generator generation.Generator, store RecipeStore, resolver ContextResolver, config Config) (*Scheduler, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if generator == nil {
		return nil, errors.New("generator cannot be nil")
	}
	if store == nil {
		return nil, errors.New("recipe store cannot be nil")
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultConfig().QueueSize
	}

	s := &Scheduler{
		logger:    logger,
		generator: generator,
		store:     store,
		resolver:  resolver,
		config:    config,
	}
	s.cond = sync.NewCond(&s.mu)
	return s, nil
}

// Start launches the single worker goroutine.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop prevents further submissions and waits for the worker to finish its
// current task. Tasks still pending at shutdown are not processed; once a
// task has been dequeued it always runs to a terminal state.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// Submit appends the task to the tail of the FIFO queue and returns its
// queue position. It never blocks on in-flight processing. Returns an error
// if the queue is full or closed.
func (s *Scheduler) Submit(task *domain.Task) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrQueueClosed
	}
	if len(s.pending) >= s.config.QueueSize {
		return 0, fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, s.config.QueueSize)
	}

	task.QueuePosition = len(s.pending) + 1
	s.pending = append(s.pending, task)
	s.cond.Signal()

	s.logger.Debug("task enqueued",
		"task_id", task.ID,
		"url", task.URL,
		"queue_position", task.QueuePosition,
		"queue_len", len(s.pending))

	return task.QueuePosition, nil
}

// Status returns a read-only snapshot of the queue, the current task, and
// recently finished tasks. It never blocks on the worker and never mutates
// state; it is safe to call concurrently from many readers.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		QueueCount:  len(s.pending),
		QueuedTasks: make([]domain.TaskSnapshot, 0, len(s.pending)),
	}
	for _, t := range s.pending {
		status.QueuedTasks = append(status.QueuedTasks, t.Snapshot())
	}
	if s.current != nil {
		snapshot := s.current.Snapshot()
		status.CurrentlyProcessing = &snapshot
	}
	for _, t := range s.recent {
		status.Recent = append(status.Recent, t.Snapshot())
	}
	return status
}

// run is the worker loop: dequeue exactly one task, mark it current, drive
// it through the pipeline, record the outcome, continue. A single task's
// failure never halts the loop.
func (s *Scheduler) run() {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		for len(s.pending) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed {
			s.mu.Unlock()
			return
		}
		task := s.pending[0]
		s.pending = s.pending[1:]
		s.current = task
		s.mu.Unlock()

		s.process(context.Background(), task)

		s.mu.Lock()
		s.current = nil
		s.retain(task)
		s.mu.Unlock()
	}
}

// mutate runs fn while holding the queue lock so status readers never
// observe a task mid-mutation. The lock is only ever held for field writes,
// never across a network call.
func (s *Scheduler) mutate(fn func()) {
	s.mu.Lock()
	fn()
	s.mu.Unlock()
}

// retain pushes a terminal task into the bounded recent ring. Caller holds
// the mutex.
func (s *Scheduler) retain(task *domain.Task) {
	if s.config.RecentTasks <= 0 {
		return
	}
	s.recent = append(s.recent, task)
	if len(s.recent) > s.config.RecentTasks {
		s.recent = s.recent[1:]
	}
}

// process executes the pipeline for one task. Every exit path leaves the
// task in a terminal state.
func (s *Scheduler) process(ctx context.Context, task *domain.Task) {
	logger := s.logger.With("task_id", task.ID, "url", task.URL)

	advance := func(status domain.TaskStatus) error {
		var err error
		s.mutate(func() { err = task.Advance(status) })
		return err
	}
	fail := func(reason string) {
		s.mutate(func() { task.Fail(reason) })
	}

	// A panicking collaborator must not take the worker down with it.
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while processing task", "panic", r)
			fail(fmt.Sprintf("internal error: %v", r))
		}
	}()

	now := time.Now().UTC()
	s.mutate(func() { task.StartedAt = &now })
	logger.Info("processing task")

	// Resolve transcript context unless an upstream step already supplied it.
	if task.Context == nil {
		if s.resolver == nil {
			fail(domain.ErrMissingTaskContext.Error())
			return
		}
		if err := advance(domain.TaskStatusTranscribing); err != nil {
			fail(err.Error())
			return
		}
		tc, err := s.resolver.Resolve(ctx, task.URL)
		if err != nil {
			logger.Error("transcript resolution failed", "error", redact.Error(err))
			fail(err.Error())
			return
		}
		if tc.Prompt == "" {
			tc.Prompt = prompt.Build(tc.Caption, tc.Transcription)
		}
		s.mutate(func() {
			task.Context = tc
			if task.OriginalCaption == "" {
				task.OriginalCaption = tc.Caption
			}
		})
	}

	if err := advance(domain.TaskStatusWaitingForSlot); err != nil {
		fail(err.Error())
		return
	}

	// With an eagerly created record the caller already holds a reference;
	// give it interim content from the naive parse while the LLM runs.
	if task.RecipeSlug != "" {
		interim := parser.NaiveParse(task.Context.Transcription)
		err := s.store.Update(ctx, task.RecipeSlug, mealie.RecipeFields{
			RecipeIngredient:   interim.RecipeIngredient,
			RecipeInstructions: interim.RecipeInstructions,
			Description:        task.OriginalCaption + "\n\n" + transcriptionStatusMarker,
		})
		if err != nil {
			logger.Error("interim recipe update failed", "error", redact.Error(err))
			fail(err.Error())
			return
		}
	}

	// A task must never reach the LLM without context and prompt.
	if err := task.ValidateForGeneration(); err != nil {
		logger.Error("task not ready for generation", "error", err)
		fail(err.Error())
		return
	}

	if err := advance(domain.TaskStatusGenerating); err != nil {
		fail(err.Error())
		return
	}

	raw, err := s.generator.Generate(ctx, task.Context.Prompt)
	if err != nil {
		// Transport failure: there is no model output to fall back on.
		logger.Error("LLM generation failed", "error", redact.Error(err))
		fail(err.Error())
		return
	}

	recipe, fellBack := parser.ParseWithFallback(raw, task.Context.Transcription)
	if fellBack {
		logger.Warn("structured parse failed, falling back to naive parser")
	}
	logger.Info("parsed recipe",
		"ingredients", len(recipe.RecipeIngredient),
		"instructions", len(recipe.RecipeInstructions),
		"fallback", fellBack)

	if err := advance(domain.TaskStatusSaving); err != nil {
		fail(err.Error())
		return
	}

	if err := s.save(ctx, task, recipe); err != nil {
		logger.Error("saving recipe failed", "error", redact.Error(err))
		fail(err.Error())
		return
	}

	if err := advance(domain.TaskStatusCompleted); err != nil {
		fail(err.Error())
		return
	}
	finished := time.Now().UTC()
	s.mutate(func() { task.FinishedAt = &finished })
	logger.Info("task completed", "recipe_slug", task.RecipeSlug)
}

// save writes the final recipe to the store, creating the remote record
// first if submission did not do so eagerly. The description always appends
// the original caption, whatever the parsers produced.
func (s *Scheduler) save(ctx context.Context, task *domain.Task, recipe *domain.Recipe) error {
	slug := task.RecipeSlug
	if slug == "" {
		created, err := s.store.Create(ctx, recipe.Name)
		if err != nil {
			return err
		}
		slug = created
		s.mutate(func() { task.RecipeSlug = slug })
	}

	description := recipe.Description + "\n\n**[ORIGINAL CAPTION]**\n" + task.OriginalCaption
	err := s.store.Update(ctx, slug, mealie.RecipeFields{
		RecipeIngredient:   recipe.RecipeIngredient,
		RecipeInstructions: recipe.RecipeInstructions,
		Description:        description,
		OrgURL:             task.URL,
	})
	if err != nil {
		return err
	}

	if task.Context != nil && task.Context.ThumbnailURL != "" {
		if err := s.store.SetThumbnail(ctx, slug, task.Context.ThumbnailURL); err != nil {
			return err
		}
	}

	return nil
}
