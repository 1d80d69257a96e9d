// Package main implements the entry point for the reelchef server, which
// turns social-media video URLs into structured recipes via a queued LLM
// extraction pipeline and stores them in Mealie.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/reelchef/reelchef/internal/config"
	"github.com/reelchef/reelchef/internal/platform/logger"
)

func main() {
	app, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.scheduler.Start()

	if err := app.startHTTPServer(context.Background(), app.setupRouter()); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// initializeApp loads configuration and wires up application components.
// Configuration errors (missing store credentials, bad endpoint) are fatal
// here, before any task is accepted.
func initializeApp() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.Setup(cfg.Server)

	appLogger.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"llm_provider", cfg.LLM.Provider,
		"queue_size", cfg.Scheduler.QueueSize)

	app, err := newApplication(context.Background(), cfg, appLogger)
	if err != nil {
		return nil, err
	}

	return app, nil
}
