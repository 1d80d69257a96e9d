package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/reelchef/reelchef/internal/api"
	apiMiddleware "github.com/reelchef/reelchef/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware. Returns the configured router.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	taskHandler := api.NewTaskHandler(app.scheduler, app.store, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/submit", taskHandler.SubmitTask)
		r.Get("/status", taskHandler.GetStatus)
	})

	r.Get("/health", taskHandler.Health)

	return r
}
