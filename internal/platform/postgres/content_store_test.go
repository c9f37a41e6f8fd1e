package postgres_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/nepalijets/nepalijets-api/internal/domain"
	"github.com/nepalijets/nepalijets-api/internal/platform/postgres"
	"github.com/nepalijets/nepalijets-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newMock returns a sqlmock database whose expectations are verified on cleanup.
func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func TestNewPostgresContentStorePanicsOnNilDB(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { postgres.NewPostgresContentStore(nil, nil) })
}

func TestContentStoreListItems(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	s := postgres.NewPostgresContentStore(db, testLogger())

	mock.ExpectQuery("SELECT id, category, difficulty FROM learnable_items ORDER BY id").
		WillReturnRows(sqlmock.NewRows([]string{"id", "category", "difficulty"}).
			AddRow("namaste", "greetings", 1).
			AddRow("sampradaya", "culture", 3))

	items, err := s.ListItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "namaste", items[0].ID)
	assert.Equal(t, "greetings", items[0].Category)
	assert.Equal(t, domain.DifficultyEasy, items[0].Difficulty)
	assert.Equal(t, domain.DifficultyHard, items[1].Difficulty)
	assert.False(t, items[0].SchedulingInitialized())
}

func TestContentStoreListItemsRejectsInvalidRows(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		id       string
		tier     int
		category string
	}{
		{"unknown difficulty", "ghar", 7, "home"},
		{"blank id", "  ", 1, "home"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			db, mock := newMock(t)
			s := postgres.NewPostgresContentStore(db, testLogger())

			mock.ExpectQuery("FROM learnable_items").
				WillReturnRows(sqlmock.NewRows([]string{"id", "category", "difficulty"}).
					AddRow("namaste", "greetings", 1).
					AddRow(tt.id, tt.category, tt.tier))

			items, err := s.ListItems(context.Background())
			assert.Nil(t, items)
			assert.ErrorIs(t, err, store.ErrInvalidEntity)
		})
	}
}

func TestContentStoreListItemsEmpty(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	s := postgres.NewPostgresContentStore(db, testLogger())

	mock.ExpectQuery("FROM learnable_items").
		WillReturnRows(sqlmock.NewRows([]string{"id", "category", "difficulty"}))

	items, err := s.ListItems(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestContentStoreUpsertItems(t *testing.T) {
	t.Parallel()

	t.Run("upserts each item", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		s := postgres.NewPostgresContentStore(db, testLogger())

		mock.ExpectExec("INSERT INTO learnable_items").
			WithArgs("dhanyabad", "greetings", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO learnable_items").
			WithArgs("ghar", "", 2).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := s.UpsertItems(context.Background(), []domain.LearnableItem{
			{ID: "dhanyabad", Category: "greetings", Difficulty: domain.DifficultyEasy},
			{ID: "ghar", Difficulty: domain.DifficultyMedium},
		})
		require.NoError(t, err)
	})

	t.Run("invalid item aborts before writing", func(t *testing.T) {
		t.Parallel()
		db, _ := newMock(t)
		s := postgres.NewPostgresContentStore(db, testLogger())

		err := s.UpsertItems(context.Background(), []domain.LearnableItem{
			{ID: "ok", Difficulty: domain.DifficultyEasy},
			{ID: "bad", Difficulty: 7},
		})
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})

	t.Run("check violation is mapped", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		s := postgres.NewPostgresContentStore(db, testLogger())

		mock.ExpectExec("INSERT INTO learnable_items").WillReturnError(newPgError("23514"))

		err := s.UpsertItems(context.Background(), []domain.LearnableItem{{ID: "x", Difficulty: domain.DifficultyEasy}})
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})
}
