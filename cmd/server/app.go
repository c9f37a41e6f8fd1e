package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/nepalijets/nepalijets-api/internal/config"
	"github.com/nepalijets/nepalijets-api/internal/domain/srs"
	"github.com/nepalijets/nepalijets-api/internal/events"
	"github.com/nepalijets/nepalijets-api/internal/platform/metrics"
	"github.com/nepalijets/nepalijets-api/internal/platform/postgres"
	"github.com/nepalijets/nepalijets-api/internal/service"
	"github.com/nepalijets/nepalijets-api/internal/service/auth"
)

// application holds the wired dependencies of the server.
type application struct {
	config *config.Config

	logger *slog.Logger
	db     *sql.DB

	metrics         *metrics.Metrics
	eventEmitter    events.EventEmitter
	jwtService      auth.JWTService
	learningService service.LearningService
}

// newApplication creates the stores and services on top of db.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: metrics.New(),
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}
	app.jwtService = jwtService

	loc, err := cfg.Learning.Location()
	if err != nil {
		return nil, fmt.Errorf("failed to load learning timezone: %w", err)
	}

	contentStore := postgres.NewPostgresContentStore(db, logger)
	progressStore := postgres.NewPostgresProgressStore(db, logger)
	sessionStore := postgres.NewPostgresSessionStore(db, logger)

	app.eventEmitter = events.NewInMemoryEventEmitter(logger,
		events.NewLoggingHandler(logger),
		app.metrics,
	)

	learningService, err := service.NewLearningService(
		db,
		contentStore,
		progressStore,
		sessionStore,
		app.eventEmitter,
		service.Options{
			SchedulerParams:   srs.NewParams(cfg.Learning.Scheduler),
			Location:          loc,
			DefaultPathLength: cfg.Learning.DefaultPathLength,
			MaxPathLength:     cfg.Learning.MaxPathLength,
			Recorder:          app.metrics,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create learning service: %w", err)
	}
	app.learningService = learningService

	return app, nil
}

// cleanup releases resources held by the application.
func (app *application) cleanup() {
	if app.db == nil {
		return
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database connection", "error", err)
		return
	}
	app.logger.Info("Database connection closed")
}
