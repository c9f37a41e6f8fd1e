package store

import (
	"context"
	"database/sql"

	"github.com/nepalijets/nepalijets-api/internal/domain"
)

// ContentStore defines the interface for the learnable item catalog.
// Catalog rows carry only id, category and difficulty; scheduling state
// lives in ProgressStore.
type ContentStore interface {
	// ListItems returns every catalog item ordered by id.
	ListItems(ctx context.Context) ([]domain.LearnableItem, error)

	// UpsertItems inserts catalog items or updates the category and
	// difficulty of existing ones. Items are validated first; an invalid
	// item aborts the call with ErrInvalidEntity.
	UpsertItems(ctx context.Context, items []domain.LearnableItem) error

	// WithTx returns a new ContentStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ContentStore
}
