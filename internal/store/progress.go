package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/nepalijets/nepalijets-api/internal/domain"
)

// ProgressStore defines the interface for per-learner progress persistence:
// the streak header and the scheduling and mastery fields of each item the
// learner has practised.
type ProgressStore interface {
	// Get retrieves the learner's progress snapshot. Items holds only the
	// items with stored progress.
	// Returns ErrProgressNotFound if the learner has no progress record.
	Get(ctx context.Context, learnerID uuid.UUID) (*domain.UserProgressSnapshot, error)

	// GetForUpdate is Get with a row-level lock on the learner's progress
	// header using SELECT FOR UPDATE. It should be used within a transaction
	// that writes the learner's progress.
	GetForUpdate(ctx context.Context, learnerID uuid.UUID) (*domain.UserProgressSnapshot, error)

	// Create inserts a progress header for the learner.
	// Returns ErrProgressExists if one already exists.
	Create(ctx context.Context, snapshot *domain.UserProgressSnapshot) error

	// UpdateStreak writes the streak bookkeeping fields of the snapshot.
	// Returns ErrProgressNotFound if the learner has no progress record.
	UpdateStreak(ctx context.Context, snapshot *domain.UserProgressSnapshot) error

	// SaveItems upserts the progress of the given items for the learner.
	// Returns ErrInvalidEntity if an item fails validation.
	SaveItems(ctx context.Context, learnerID uuid.UUID, items []domain.LearnableItem) error

	// WithTx returns a new ProgressStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ProgressStore
}
