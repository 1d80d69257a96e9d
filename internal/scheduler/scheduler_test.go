package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/reelchef/reelchef/internal/domain"
	"github.com/reelchef/reelchef/internal/mealie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockGenerator implements generation.Generator for testing
type mockGenerator struct {
	generateFn func(ctx context.Context, prompt string) (string, error)
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if m.generateFn != nil {
		return m.generateFn(ctx, prompt)
	}
	return `{"name":"Test","recipeIngredient":["1 egg"],"recipeInstructions":["Cook"]}`, nil
}

// mockStore implements RecipeStore and records calls for assertions
type mockStore struct {
	mu         sync.Mutex
	created    []string
	updates    map[string][]mealie.RecipeFields
	thumbnails map[string]string

	createFn func(ctx context.Context, name string) (string, error)
	updateFn func(ctx context.Context, slug string, fields mealie.RecipeFields) error
}

func newMockStore() *mockStore {
	return &mockStore{
		updates:    make(map[string][]mealie.RecipeFields),
		thumbnails: make(map[string]string),
	}
}

func (m *mockStore) Create(ctx context.Context, name string) (string, error) {
	if m.createFn != nil {
		return m.createFn(ctx, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, name)
	return fmt.Sprintf("slug-%d", len(m.created)), nil
}

func (m *mockStore) Update(ctx context.Context, slug string, fields mealie.RecipeFields) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, slug, fields)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates[slug] = append(m.updates[slug], fields)
	return nil
}

func (m *mockStore) SetThumbnail(ctx context.Context, slug, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thumbnails[slug] = url
	return nil
}

func (m *mockStore) updatesFor(slug string) []mealie.RecipeFields {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mealie.RecipeFields(nil), m.updates[slug]...)
}

// mockResolver implements ContextResolver
type mockResolver struct {
	resolveFn func(ctx context.Context, url string) (*domain.TaskContext, error)
}

func (m *mockResolver) Resolve(ctx context.Context, url string) (*domain.TaskContext, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, url)
	}
	return &domain.TaskContext{
		Caption:       "caption",
		Transcription: "Add 2 eggs. Stir gently.",
	}, nil
}

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

func newTestTask(t *testing.T, url string) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(url)
	require.NoError(t, err)
	return task
}

// newReadyTask returns a task that already carries transcript context, as if
// an upstream step had resolved it before submission.
func newReadyTask(t *testing.T, url string) *domain.Task {
	task := newTestTask(t, url)
	task.Context = &domain.TaskContext{
		Caption:       "the caption",
		Transcription: "Add 2 eggs. Stir gently. Bake for 20 minutes.",
		ThumbnailURL:  "https://example.com/thumb.jpg",
		Prompt:        "extract this recipe",
	}
	task.OriginalCaption = "the caption"
	return task
}

// terminalSnapshot waits until the task with the given ID reaches a
// terminal state and returns its snapshot from the status view.
func terminalSnapshot(t *testing.T, s *Scheduler, taskID int64) domain.TaskSnapshot {
	t.Helper()
	var found domain.TaskSnapshot
	require.Eventually(t, func() bool {
		for _, snap := range s.Status().Recent {
			if snap.ID == taskID {
				found = snap
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond, "task %d never reached a terminal state", taskID)
	return found
}

func TestSubmitAssignsFIFOPositions(t *testing.T) {
	s, err := New(setupTestLogger(), &mockGenerator{}, newMockStore(), nil, DefaultConfig())
	require.NoError(t, err)
	// Worker deliberately not started: the queue must hold all three.

	var ids []int64
	for i, url := range []string{
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/c",
	} {
		task := newTestTask(t, url)
		pos, err := s.Submit(task)
		require.NoError(t, err)
		assert.Equal(t, i+1, pos)
		ids = append(ids, task.ID)
	}

	status := s.Status()
	assert.Equal(t, 3, status.QueueCount)
	require.Len(t, status.QueuedTasks, 3)
	for i, snap := range status.QueuedTasks {
		assert.Equal(t, ids[i], snap.ID, "submission order must be preserved")
		assert.Equal(t, i+1, snap.QueuePosition)
	}
	assert.Nil(t, status.CurrentlyProcessing)
}

func TestSubmitQueueFull(t *testing.T) {
	s, err := New(setupTestLogger(), &mockGenerator{}, newMockStore(), nil, Config{QueueSize: 1})
	require.NoError(t, err)

	_, err = s.Submit(newTestTask(t, "https://example.com/a"))
	require.NoError(t, err)

	_, err = s.Submit(newTestTask(t, "https://example.com/b"))
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestSubmitAfterStop(t *testing.T) {
	s, err := New(setupTestLogger(), &mockGenerator{}, newMockStore(), nil, DefaultConfig())
	require.NoError(t, err)
	s.Start()
	s.Stop()

	_, err = s.Submit(newTestTask(t, "https://example.com/a"))
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestWorkerCompletesTask(t *testing.T) {
	store := newMockStore()
	s, err := New(setupTestLogger(), &mockGenerator{}, store, nil, DefaultConfig())
	require.NoError(t, err)

	task := newReadyTask(t, "https://example.com/video")
	task.RecipeSlug = "eager-slug"

	_, err = s.Submit(task)
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	snap := terminalSnapshot(t, s, task.ID)
	assert.Equal(t, domain.TaskStatusCompleted, snap.Status)
	assert.Empty(t, snap.Err)
	assert.NotNil(t, snap.StartedAt)
	assert.NotNil(t, snap.FinishedAt)

	updates := store.updatesFor("eager-slug")
	require.Len(t, updates, 2, "interim naive-parse update plus final update")

	// Interim update carries the in-progress marker and naive-parsed content
	assert.Contains(t, updates[0].Description, "[Status: Transcription successful")
	assert.Contains(t, updates[0].RecipeIngredient, "Add 2 eggs")

	// Final update carries the structured result and always appends the caption
	assert.Equal(t, []string{"1 egg"}, updates[1].RecipeIngredient)
	assert.Contains(t, updates[1].Description, "**[ORIGINAL CAPTION]**")
	assert.Contains(t, updates[1].Description, "the caption")
	assert.Equal(t, "https://example.com/video", updates[1].OrgURL)

	assert.Equal(t, "https://example.com/thumb.jpg", store.thumbnails["eager-slug"])
}

func TestWorkerCreatesRecordWhenNoEagerSlug(t *testing.T) {
	store := newMockStore()
	s, err := New(setupTestLogger(), &mockGenerator{}, store, nil, DefaultConfig())
	require.NoError(t, err)

	task := newReadyTask(t, "https://example.com/video")

	_, err = s.Submit(task)
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	snap := terminalSnapshot(t, s, task.ID)
	assert.Equal(t, domain.TaskStatusCompleted, snap.Status)
	assert.Equal(t, "slug-1", snap.RecipeSlug)
	assert.Equal(t, []string{"Test"}, store.created)
}

func TestTransportFailureDoesNotHaltLoop(t *testing.T) {
	store := newMockStore()
	generator := &mockGenerator{
		generateFn: func(ctx context.Context, prompt string) (string, error) {
			if prompt == "fail me" {
				return "", errors.New("connection refused")
			}
			return `{"name":"OK","recipeIngredient":["1 egg"],"recipeInstructions":["Cook"]}`, nil
		},
	}
	s, err := New(setupTestLogger(), generator, store, nil, DefaultConfig())
	require.NoError(t, err)

	failing := newReadyTask(t, "https://example.com/bad")
	failing.Context.Prompt = "fail me"
	succeeding := newReadyTask(t, "https://example.com/good")

	_, err = s.Submit(failing)
	require.NoError(t, err)
	_, err = s.Submit(succeeding)
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	failedSnap := terminalSnapshot(t, s, failing.ID)
	assert.Equal(t, domain.TaskStatusFailed, failedSnap.Status)
	assert.NotEmpty(t, failedSnap.Err)

	okSnap := terminalSnapshot(t, s, succeeding.ID)
	assert.Equal(t, domain.TaskStatusCompleted, okSnap.Status)
}

func TestParseFailureFallsBackSilently(t *testing.T) {
	store := newMockStore()
	generator := &mockGenerator{
		generateFn: func(ctx context.Context, prompt string) (string, error) {
			return "sorry, I could not find a recipe in this video", nil
		},
	}
	s, err := New(setupTestLogger(), generator, store, nil, DefaultConfig())
	require.NoError(t, err)

	task := newReadyTask(t, "https://example.com/video")
	task.RecipeSlug = "eager-slug"

	_, err = s.Submit(task)
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	snap := terminalSnapshot(t, s, task.ID)
	assert.Equal(t, domain.TaskStatusCompleted, snap.Status, "parse failure alone must never fail the task")
	assert.Empty(t, snap.Err)

	updates := store.updatesFor("eager-slug")
	require.Len(t, updates, 2)
	// Final content comes from the naive parse of the transcription
	assert.Contains(t, updates[1].RecipeIngredient, "Add 2 eggs")
	assert.Contains(t, updates[1].RecipeIngredient, "Bake for 20 minutes")
}

func TestMissingContextFailsWithoutLLMCall(t *testing.T) {
	llmCalled := false
	generator := &mockGenerator{
		generateFn: func(ctx context.Context, prompt string) (string, error) {
			llmCalled = true
			return "", nil
		},
	}
	s, err := New(setupTestLogger(), generator, newMockStore(), nil, DefaultConfig())
	require.NoError(t, err)

	task := newTestTask(t, "https://example.com/video")

	_, err = s.Submit(task)
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	snap := terminalSnapshot(t, s, task.ID)
	assert.Equal(t, domain.TaskStatusFailed, snap.Status)
	assert.NotEmpty(t, snap.Err)
	assert.False(t, llmCalled, "validation failure must not reach the LLM")
}

func TestResolverSuppliesContext(t *testing.T) {
	store := newMockStore()
	var seenPrompt string
	generator := &mockGenerator{
		generateFn: func(ctx context.Context, prompt string) (string, error) {
			seenPrompt = prompt
			return `{"name":"Resolved","recipeIngredient":["1 egg"],"recipeInstructions":["Cook"]}`, nil
		},
	}
	resolver := &mockResolver{}
	s, err := New(setupTestLogger(), generator, store, resolver, DefaultConfig())
	require.NoError(t, err)

	task := newTestTask(t, "https://example.com/video")

	_, err = s.Submit(task)
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	snap := terminalSnapshot(t, s, task.ID)
	assert.Equal(t, domain.TaskStatusCompleted, snap.Status)
	assert.Contains(t, seenPrompt, "Add 2 eggs. Stir gently.",
		"prompt must be built from the resolved transcription")
}

func TestResolverFailureFailsTask(t *testing.T) {
	resolver := &mockResolver{
		resolveFn: func(ctx context.Context, url string) (*domain.TaskContext, error) {
			return nil, errors.New("yt-dlp exploded")
		},
	}
	s, err := New(setupTestLogger(), &mockGenerator{}, newMockStore(), resolver, DefaultConfig())
	require.NoError(t, err)

	task := newTestTask(t, "https://example.com/video")

	_, err = s.Submit(task)
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	snap := terminalSnapshot(t, s, task.ID)
	assert.Equal(t, domain.TaskStatusFailed, snap.Status)
	assert.Contains(t, snap.Err, "yt-dlp exploded")
}

func TestStoreFailureFailsTask(t *testing.T) {
	store := newMockStore()
	store.updateFn = func(ctx context.Context, slug string, fields mealie.RecipeFields) error {
		return errors.New("mealie unreachable")
	}
	s, err := New(setupTestLogger(), &mockGenerator{}, store, nil, DefaultConfig())
	require.NoError(t, err)

	task := newReadyTask(t, "https://example.com/video")
	task.RecipeSlug = "eager-slug"

	_, err = s.Submit(task)
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	snap := terminalSnapshot(t, s, task.ID)
	assert.Equal(t, domain.TaskStatusFailed, snap.Status)
	assert.Contains(t, snap.Err, "mealie unreachable")
}

func TestAtMostOneTaskProcessing(t *testing.T) {
	release := make(chan struct{})
	generator := &mockGenerator{
		generateFn: func(ctx context.Context, prompt string) (string, error) {
			<-release
			return `{"name":"Slow","recipeIngredient":["1 egg"],"recipeInstructions":["Cook"]}`, nil
		},
	}
	s, err := New(setupTestLogger(), generator, newMockStore(), nil, DefaultConfig())
	require.NoError(t, err)

	var tasks []*domain.Task
	for i := 0; i < 3; i++ {
		task := newReadyTask(t, fmt.Sprintf("https://example.com/v%d", i))
		tasks = append(tasks, task)
		_, err = s.Submit(task)
		require.NoError(t, err)
	}
	s.Start()
	defer s.Stop()

	// Wait for the first task to block inside generation
	require.Eventually(t, func() bool {
		status := s.Status()
		return status.CurrentlyProcessing != nil &&
			status.CurrentlyProcessing.Status == domain.TaskStatusGenerating
	}, 5*time.Second, 10*time.Millisecond)

	// While one task generates, all others must still be queued untouched
	status := s.Status()
	assert.Equal(t, tasks[0].ID, status.CurrentlyProcessing.ID)
	assert.Equal(t, 2, status.QueueCount)
	for _, snap := range status.QueuedTasks {
		assert.Equal(t, domain.TaskStatusReceived, snap.Status)
	}

	close(release)
	for _, task := range tasks {
		snap := terminalSnapshot(t, s, task.ID)
		assert.Equal(t, domain.TaskStatusCompleted, snap.Status)
	}
}

func TestStatusSafeForConcurrentReaders(t *testing.T) {
	s, err := New(setupTestLogger(), &mockGenerator{}, newMockStore(), nil, DefaultConfig())
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					s.Status()
				}
			}
		}()
	}

	var last *domain.Task
	for i := 0; i < 20; i++ {
		task := newReadyTask(t, fmt.Sprintf("https://example.com/v%d", i))
		_, err := s.Submit(task)
		require.NoError(t, err)
		last = task
	}

	snap := terminalSnapshot(t, s, last.ID)
	assert.Equal(t, domain.TaskStatusCompleted, snap.Status)

	close(done)
	wg.Wait()
}
