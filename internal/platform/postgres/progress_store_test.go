package postgres_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/nepalijets/nepalijets-api/internal/domain"
	"github.com/nepalijets/nepalijets-api/internal/platform/postgres"
	"github.com/nepalijets/nepalijets-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	headerColumns = []string{"learner_id", "learning_streak", "last_session_date", "total_learning_time"}
	itemColumns   = []string{
		"item_id", "category", "difficulty", "repetition_number", "ease_factor", "interval_days",
		"next_review_date", "mastered", "mastery_level", "practice_count", "correct_count",
		"last_practiced", "last_performance",
	}
)

func TestProgressStoreGet(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	s := postgres.NewPostgresProgressStore(db, testLogger())

	learnerID := uuid.New()
	lastSession := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	nextReview := lastSession.AddDate(0, 0, 3)

	mock.ExpectQuery("FROM learner_progress WHERE learner_id").
		WithArgs(learnerID).
		WillReturnRows(sqlmock.NewRows(headerColumns).AddRow(learnerID.String(), 4, lastSession, 95))
	mock.ExpectQuery("FROM learner_item_progress p JOIN learnable_items i").
		WithArgs(learnerID).
		WillReturnRows(sqlmock.NewRows(itemColumns).
			AddRow("namaste", "greetings", 1, 2, 2.6, 3, nextReview, false, "practicing", 4, 3, lastSession, 5).
			AddRow("ghar", "home", 2, 0, 2.5, 0, nil, false, "introduced", 0, 0, nil, nil))

	snapshot, err := s.Get(context.Background(), learnerID)
	require.NoError(t, err)

	assert.Equal(t, learnerID, snapshot.LearnerID)
	assert.Equal(t, 4, snapshot.LearningStreak)
	assert.Equal(t, 95, snapshot.TotalLearningTime)
	require.NotNil(t, snapshot.LastSessionDate)
	assert.True(t, snapshot.LastSessionDate.Equal(lastSession))

	require.Len(t, snapshot.Items, 2)
	item := snapshot.Items[0]
	assert.Equal(t, "namaste", item.ID)
	assert.Equal(t, domain.DifficultyEasy, item.Difficulty)
	assert.Equal(t, 2, item.RepetitionNumber)
	assert.InDelta(t, 2.6, item.EaseFactor, 1e-9)
	assert.Equal(t, 3, item.Interval)
	require.NotNil(t, item.NextReviewDate)
	assert.True(t, item.NextReviewDate.Equal(nextReview))
	assert.Equal(t, domain.MasteryPracticing, item.MasteryLevel)
	assert.Equal(t, 4, item.PracticeCount)
	assert.Equal(t, 3, item.CorrectCount)
	require.NotNil(t, item.LastPerformance)
	assert.Equal(t, 5, *item.LastPerformance)

	assert.Nil(t, snapshot.Items[1].NextReviewDate)
	assert.Nil(t, snapshot.Items[1].LastPracticed)
	assert.Nil(t, snapshot.Items[1].LastPerformance)
}

func TestProgressStoreGetNotFound(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	s := postgres.NewPostgresProgressStore(db, testLogger())

	mock.ExpectQuery("FROM learner_progress").WillReturnRows(sqlmock.NewRows(headerColumns))

	_, err := s.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrProgressNotFound)
	assert.True(t, store.IsNotFoundError(err))
}

func TestProgressStoreGetForUpdateLocksHeader(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)

	learnerID := uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE learner_id = $1 FOR UPDATE")).
		WithArgs(learnerID).
		WillReturnRows(sqlmock.NewRows(headerColumns).AddRow(learnerID.String(), 0, nil, 0))
	mock.ExpectQuery("FROM learner_item_progress").
		WillReturnRows(sqlmock.NewRows(itemColumns))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)

	s := postgres.NewPostgresProgressStore(db, testLogger()).WithTx(tx)
	snapshot, err := s.GetForUpdate(context.Background(), learnerID)
	require.NoError(t, err)
	assert.Nil(t, snapshot.LastSessionDate)
	assert.Empty(t, snapshot.Items)

	require.NoError(t, tx.Commit())
}

func TestProgressStoreCreate(t *testing.T) {
	t.Parallel()

	t.Run("inserts header", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		s := postgres.NewPostgresProgressStore(db, testLogger())

		learnerID := uuid.New()
		mock.ExpectExec("INSERT INTO learner_progress").
			WithArgs(learnerID, 0, nil, 0).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.Create(context.Background(), &domain.UserProgressSnapshot{LearnerID: learnerID}))
	})

	t.Run("duplicate learner", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		s := postgres.NewPostgresProgressStore(db, testLogger())

		mock.ExpectExec("INSERT INTO learner_progress").WillReturnError(newPgError("23505"))

		err := s.Create(context.Background(), &domain.UserProgressSnapshot{LearnerID: uuid.New()})
		assert.ErrorIs(t, err, store.ErrProgressExists)
		assert.True(t, store.IsDuplicateError(err))
	})
}

func TestProgressStoreUpdateStreak(t *testing.T) {
	t.Parallel()

	last := time.Date(2024, 5, 2, 18, 0, 0, 0, time.UTC)
	snapshot := &domain.UserProgressSnapshot{
		LearnerID:         uuid.New(),
		LearningStreak:    2,
		LastSessionDate:   &last,
		TotalLearningTime: 40,
	}

	t.Run("updates row", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		s := postgres.NewPostgresProgressStore(db, testLogger())

		mock.ExpectExec("UPDATE learner_progress").
			WithArgs(2, last, 40, snapshot.LearnerID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.UpdateStreak(context.Background(), snapshot))
	})

	t.Run("missing learner", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		s := postgres.NewPostgresProgressStore(db, testLogger())

		mock.ExpectExec("UPDATE learner_progress").WillReturnResult(sqlmock.NewResult(0, 0))

		err := s.UpdateStreak(context.Background(), snapshot)
		assert.ErrorIs(t, err, store.ErrProgressNotFound)
	})
}

func TestProgressStoreSaveItems(t *testing.T) {
	t.Parallel()

	learnerID := uuid.New()
	next := time.Date(2024, 5, 4, 9, 0, 0, 0, time.UTC)
	perf := 4

	t.Run("upserts items with defaults applied", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		s := postgres.NewPostgresProgressStore(db, testLogger())

		mock.ExpectExec("INSERT INTO learner_item_progress").
			WithArgs(learnerID, "namaste", 1, 2.5, 1, next, false, "practicing", 3, 2, next, 4).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("ON CONFLICT \\(learner_id, item_id\\) DO UPDATE").
			WithArgs(learnerID, "ghar", 0, 2.5, 0, nil, false, "introduced", 0, 0, nil, nil).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := s.SaveItems(context.Background(), learnerID, []domain.LearnableItem{
			{
				ID: "namaste", Difficulty: domain.DifficultyEasy, RepetitionNumber: 1, EaseFactor: 2.5, Interval: 1,
				NextReviewDate: &next, MasteryLevel: domain.MasteryPracticing, PracticeCount: 3,
				CorrectCount: 2, LastPracticed: &next, LastPerformance: &perf,
			},
			{ID: "ghar", Difficulty: domain.DifficultyMedium},
		})
		require.NoError(t, err)
	})

	t.Run("invalid item", func(t *testing.T) {
		t.Parallel()
		db, _ := newMock(t)
		s := postgres.NewPostgresProgressStore(db, testLogger())

		err := s.SaveItems(context.Background(), learnerID, []domain.LearnableItem{
			{ID: "namaste", Difficulty: domain.DifficultyEasy, PracticeCount: 1, CorrectCount: 2},
		})
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})

	t.Run("unknown catalog item", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		s := postgres.NewPostgresProgressStore(db, testLogger())

		mock.ExpectExec("INSERT INTO learner_item_progress").WillReturnError(newPgError("23503"))

		err := s.SaveItems(context.Background(), learnerID, []domain.LearnableItem{
			{ID: "missing", Difficulty: domain.DifficultyEasy},
		})
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})
}
