package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reelchef/reelchef/internal/config"
	"github.com/reelchef/reelchef/internal/generation"
	"github.com/reelchef/reelchef/internal/mealie"
	"github.com/reelchef/reelchef/internal/media"
	"github.com/reelchef/reelchef/internal/platform/gemini"
	"github.com/reelchef/reelchef/internal/platform/llamacpp"
	"github.com/reelchef/reelchef/internal/prompt"
	"github.com/reelchef/reelchef/internal/scheduler"
)

// application holds the wired dependencies of the service. There is no
// hidden global state: everything is constructed once here and passed by
// handle to the router and the scheduler.
type application struct {
	config    *config.Config
	logger    *slog.Logger
	store     *mealie.Client
	scheduler *scheduler.Scheduler
}

// newApplication builds all collaborators eagerly so configuration and
// credential problems surface at startup, not on the first task.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	systemPrompt, err := prompt.LoadSystemPrompt(cfg.LLM.SystemPromptPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load system prompt: %w", err)
	}

	generator, err := newGenerator(ctx, logger, cfg.LLM, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}

	store, err := mealie.NewClient(logger, cfg.Mealie)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize recipe store client: %w", err)
	}

	resolver, err := media.NewResolver(logger, cfg.Extractor)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize media resolver: %w", err)
	}

	sched, err := scheduler.New(logger, generator, store, resolver, scheduler.Config{
		QueueSize:   cfg.Scheduler.QueueSize,
		RecentTasks: cfg.Scheduler.RecentTasks,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	return &application{
		config:    cfg,
		logger:    logger,
		store:     store,
		scheduler: sched,
	}, nil
}

// newGenerator selects the inference backend from configuration.
func newGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig, systemPrompt string) (generation.Generator, error) {
	switch cfg.Provider {
	case "gemini":
		return gemini.NewGenerator(ctx, logger, cfg, systemPrompt)
	default:
		return llamacpp.NewGenerator(logger, cfg, systemPrompt)
	}
}
