package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the learning service.
const (
	// TypeReviewsSubmitted is emitted once per batch of recorded results.
	TypeReviewsSubmitted = "reviews.submitted"

	// TypeItemMastered is emitted when an item first reaches mastery.
	TypeItemMastered = "item.mastered"

	// TypeSessionStarted is emitted when a practice session opens.
	TypeSessionStarted = "session.started"

	// TypeSessionEnded is emitted when a practice session closes.
	TypeSessionEnded = "session.ended"

	// TypeStreakExtended is emitted when a session extends the learner's streak.
	TypeStreakExtended = "streak.extended"
)

// LearningEvent is a notification that something changed in a learner's progress.
type LearningEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type* constants
	Type string `json:"type"`

	// LearnerID identifies whose progress changed
	LearnerID uuid.UUID `json:"learner_id"`

	// Payload contains type-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the time the change happened
	CreatedAt time.Time `json:"created_at"`
}

// ItemMasteredPayload is the payload of TypeItemMastered.
type ItemMasteredPayload struct {
	ItemID   string `json:"item_id"`
	Category string `json:"category"`
}

// ReviewsSubmittedPayload is the payload of TypeReviewsSubmitted.
type ReviewsSubmittedPayload struct {
	Updated []string `json:"updated"`
	Failed  int      `json:"failed"`
}

// SessionPayload is the payload of the session events.
type SessionPayload struct {
	SessionID uuid.UUID `json:"session_id"`
	Duration  int       `json:"duration,omitempty"`
	Score     int       `json:"score,omitempty"`
}

// StreakPayload is the payload of TypeStreakExtended.
type StreakPayload struct {
	Streak int `json:"streak"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *LearningEvent) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewLearningEvent creates an event of the given type for a learner at a point in time.
func NewLearningEvent(
	eventType string,
	learnerID uuid.UUID,
	payload interface{},
	at time.Time,
) (*LearningEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &LearningEvent{
		ID:        uuid.New(),
		Type:      eventType,
		LearnerID: learnerID,
		Payload:   payloadBytes,
		CreatedAt: at,
	}, nil
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *LearningEvent) error
}

// EventEmitter defines an interface for components that can emit events.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *LearningEvent) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *LearningEvent) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *LearningEvent) error {
	return f(ctx, event)
}
