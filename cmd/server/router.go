package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nepalijets/nepalijets-api/internal/api"
	apiMiddleware "github.com/nepalijets/nepalijets-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(app.metrics.Middleware)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))

	learningHandler := api.NewLearningHandler(app.learningService, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Get("/path", learningHandler.GetPath)
			r.Post("/reviews", learningHandler.SubmitReviews)
			r.Get("/metrics", learningHandler.GetMetrics)
			r.Get("/report", learningHandler.GetReport)
			r.Get("/review-queue", learningHandler.GetReviewQueue)

			r.Post("/sessions", learningHandler.StartSession)
			r.Get("/sessions/stats", learningHandler.GetSessionStats)
			r.Post("/sessions/{id}/end", learningHandler.EndSession)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	r.Method(http.MethodGet, "/metrics", app.metrics.Handler())

	return r
}
