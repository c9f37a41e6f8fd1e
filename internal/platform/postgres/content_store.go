package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/nepalijets/nepalijets-api/internal/domain"
	"github.com/nepalijets/nepalijets-api/internal/platform/logger"
	"github.com/nepalijets/nepalijets-api/internal/store"
)

// PostgresContentStore implements the store.ContentStore interface
// on the learnable_items table.
type PostgresContentStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresContentStore creates a new PostgreSQL implementation of the ContentStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresContentStore(db store.DBTX, logger *slog.Logger) *PostgresContentStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresContentStore{
		db:     db,
		logger: logger.With(slog.String("component", "content_store")),
	}
}

// Ensure PostgresContentStore implements store.ContentStore interface
var _ store.ContentStore = (*PostgresContentStore)(nil)

// WithTx implements store.ContentStore.WithTx
func (s *PostgresContentStore) WithTx(tx *sql.Tx) store.ContentStore {
	return &PostgresContentStore{
		db:     tx,
		logger: s.logger,
	}
}

// ListItems implements store.ContentStore.ListItems
func (s *PostgresContentStore) ListItems(ctx context.Context) ([]domain.LearnableItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, category, difficulty
		FROM learnable_items
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to query learnable items", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	items := []domain.LearnableItem{}
	for rows.Next() {
		var id, category string
		var difficulty int
		if err := rows.Scan(&id, &category, &difficulty); err != nil {
			log.Error("failed to scan learnable item row", slog.String("error", err.Error()))
			return nil, err
		}

		item, err := domain.NewLearnableItem(id, category, domain.Difficulty(difficulty))
		if err != nil {
			log.Error("invalid learnable item row",
				slog.String("error", err.Error()),
				slog.String("item_id", id))
			return nil, fmt.Errorf("%w: item %q: %v", store.ErrInvalidEntity, id, err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	log.Debug("listed learnable items", slog.Int("count", len(items)))
	return items, nil
}

// UpsertItems implements store.ContentStore.UpsertItems
func (s *PostgresContentStore) UpsertItems(ctx context.Context, items []domain.LearnableItem) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	for _, item := range items {
		if err := item.Validate(); err != nil {
			log.Warn("learnable item validation failed during upsert",
				slog.String("error", err.Error()),
				slog.String("item_id", item.ID))
			return fmt.Errorf("%w: item %q: %v", store.ErrInvalidEntity, item.ID, err)
		}
	}

	query := `
		INSERT INTO learnable_items (id, category, difficulty)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET category = EXCLUDED.category,
		    difficulty = EXCLUDED.difficulty,
		    updated_at = NOW()
	`

	for _, item := range items {
		if _, err := s.db.ExecContext(ctx, query, item.ID, item.Category, int(item.Difficulty)); err != nil {
			log.Error("failed to upsert learnable item",
				slog.String("error", err.Error()),
				slog.String("item_id", item.ID))
			return MapError(err)
		}
	}

	log.Info("learnable items upserted", slog.Int("count", len(items)))
	return nil
}
