package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/nepalijets/nepalijets-api/internal/domain"
)

// SessionStore defines the interface for practice session persistence.
type SessionStore interface {
	// Create saves a new session.
	Create(ctx context.Context, session *domain.Session) error

	// Get retrieves a session of the learner by id.
	// Returns ErrSessionNotFound if it does not exist or belongs to another learner.
	Get(ctx context.Context, learnerID, sessionID uuid.UUID) (*domain.Session, error)

	// GetForUpdate is Get with a row-level lock using SELECT FOR UPDATE.
	GetForUpdate(ctx context.Context, learnerID, sessionID uuid.UUID) (*domain.Session, error)

	// Update writes the end time, duration, activities and metrics of a session.
	// Returns ErrSessionNotFound if it does not exist.
	Update(ctx context.Context, session *domain.Session) error

	// ListByLearner returns all sessions of the learner, newest first.
	ListByLearner(ctx context.Context, learnerID uuid.UUID) ([]domain.Session, error)

	// WithTx returns a new SessionStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) SessionStore
}
