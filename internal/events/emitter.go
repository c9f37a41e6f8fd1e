package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nepalijets/nepalijets-api/internal/platform/logger"
)

// InMemoryEventEmitter stores registered handlers in memory and dispatches
// events to them synchronously.
type InMemoryEventEmitter struct {
	handlers []EventHandler
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewInMemoryEventEmitter creates a new instance of InMemoryEventEmitter.
// If logger is nil, a default logger will be used.
func NewInMemoryEventEmitter(logger *slog.Logger, handlers ...EventHandler) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	e := &InMemoryEventEmitter{
		handlers: make([]EventHandler, 0, len(handlers)),
		logger:   logger.With("component", "in_memory_event_emitter"),
	}
	for _, h := range handlers {
		e.RegisterHandler(h)
	}
	return e
}

// RegisterHandler adds a new event handler to receive events.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
	e.logger.Debug("registered new event handler", "handler_count", len(e.handlers))
}

// EmitEvent publishes the given event to all registered handlers.
// Every handler sees the event even when an earlier one fails; the first
// error encountered is returned.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *LearningEvent) error {
	log := logger.FromContextOrDefault(ctx, e.logger)

	e.mu.RLock()
	handlers := make([]EventHandler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	log.Debug("emitting event",
		"event_id", event.ID,
		"event_type", event.Type,
		"handler_count", len(handlers))

	if len(handlers) == 0 {
		log.Warn("no handlers registered for event",
			"event_id", event.ID,
			"event_type", event.Type)
		return nil
	}

	var firstErr error
	for i, handler := range handlers {
		if err := handler.HandleEvent(ctx, event); err != nil {
			log.Error("handler failed to process event",
				"error", err,
				"handler_index", i,
				"event_id", event.ID,
				"event_type", event.Type)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// LoggingHandler writes every event to a structured log at info level.
type LoggingHandler struct {
	logger *slog.Logger
}

// NewLoggingHandler creates a LoggingHandler. If logger is nil, a default logger will be used.
func NewLoggingHandler(logger *slog.Logger) *LoggingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingHandler{logger: logger.With("component", "learning_events")}
}

// HandleEvent implements EventHandler. The payload is logged as a nested
// object and must be valid JSON.
func (h *LoggingHandler) HandleEvent(ctx context.Context, event *LearningEvent) error {
	var payload map[string]any
	if err := event.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", event.Type, err)
	}

	logger.FromContextOrDefault(ctx, h.logger).Info("learning event",
		"event_id", event.ID,
		"event_type", event.Type,
		"learner_id", event.LearnerID,
		"payload", payload)
	return nil
}
