package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nepalijets/nepalijets-api/internal/domain"
	"github.com/nepalijets/nepalijets-api/internal/platform/logger"
	"github.com/nepalijets/nepalijets-api/internal/store"
)

// PostgresProgressStore implements the store.ProgressStore interface
// on the learner_progress and learner_item_progress tables.
type PostgresProgressStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresProgressStore creates a new PostgreSQL implementation of the ProgressStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresProgressStore(db store.DBTX, logger *slog.Logger) *PostgresProgressStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresProgressStore{
		db:     db,
		logger: logger.With(slog.String("component", "progress_store")),
	}
}

// Ensure PostgresProgressStore implements store.ProgressStore interface
var _ store.ProgressStore = (*PostgresProgressStore)(nil)

// WithTx implements store.ProgressStore.WithTx
func (s *PostgresProgressStore) WithTx(tx *sql.Tx) store.ProgressStore {
	return &PostgresProgressStore{
		db:     tx,
		logger: s.logger,
	}
}

const progressHeaderQuery = `
	SELECT learner_id, learning_streak, last_session_date, total_learning_time
	FROM learner_progress
	WHERE learner_id = $1
`

const progressItemsQuery = `
	SELECT p.item_id, i.category, i.difficulty,
	       p.repetition_number, p.ease_factor, p.interval_days, p.next_review_date, p.mastered,
	       p.mastery_level, p.practice_count, p.correct_count, p.last_practiced, p.last_performance
	FROM learner_item_progress p
	JOIN learnable_items i ON i.id = p.item_id
	WHERE p.learner_id = $1
	ORDER BY p.item_id
`

// Get implements store.ProgressStore.Get
func (s *PostgresProgressStore) Get(ctx context.Context, learnerID uuid.UUID) (*domain.UserProgressSnapshot, error) {
	return s.get(ctx, learnerID, progressHeaderQuery)
}

// GetForUpdate implements store.ProgressStore.GetForUpdate
func (s *PostgresProgressStore) GetForUpdate(
	ctx context.Context,
	learnerID uuid.UUID,
) (*domain.UserProgressSnapshot, error) {
	return s.get(ctx, learnerID, progressHeaderQuery+" FOR UPDATE")
}

func (s *PostgresProgressStore) get(
	ctx context.Context,
	learnerID uuid.UUID,
	headerQuery string,
) (*domain.UserProgressSnapshot, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving learner progress", slog.String("learner_id", learnerID.String()))

	var snapshot domain.UserProgressSnapshot
	var lastSession sql.NullTime
	err := s.db.QueryRowContext(ctx, headerQuery, learnerID).Scan(
		&snapshot.LearnerID,
		&snapshot.LearningStreak,
		&lastSession,
		&snapshot.TotalLearningTime,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("learner progress not found", slog.String("learner_id", learnerID.String()))
			return nil, store.ErrProgressNotFound
		}
		log.Error("failed to get learner progress",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, MapError(err)
	}
	snapshot.LastSessionDate = nullTimePtr(lastSession)

	items, err := s.items(ctx, log, learnerID)
	if err != nil {
		return nil, err
	}
	snapshot.Items = items

	log.Debug("learner progress retrieved",
		slog.String("learner_id", learnerID.String()),
		slog.Int("item_count", len(items)))
	return &snapshot, nil
}

func (s *PostgresProgressStore) items(
	ctx context.Context,
	log *slog.Logger,
	learnerID uuid.UUID,
) ([]domain.LearnableItem, error) {
	rows, err := s.db.QueryContext(ctx, progressItemsQuery, learnerID)
	if err != nil {
		log.Error("failed to query item progress",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	items := []domain.LearnableItem{}
	for rows.Next() {
		var item domain.LearnableItem
		var difficulty int
		var level string
		var nextReview, lastPracticed sql.NullTime
		var lastPerformance sql.NullInt32

		err := rows.Scan(
			&item.ID,
			&item.Category,
			&difficulty,
			&item.RepetitionNumber,
			&item.EaseFactor,
			&item.Interval,
			&nextReview,
			&item.Mastered,
			&level,
			&item.PracticeCount,
			&item.CorrectCount,
			&lastPracticed,
			&lastPerformance,
		)
		if err != nil {
			log.Error("failed to scan item progress row", slog.String("error", err.Error()))
			return nil, err
		}

		item.Difficulty = domain.Difficulty(difficulty)
		item.MasteryLevel = domain.MasteryLevel(level)
		item.NextReviewDate = nullTimePtr(nextReview)
		item.LastPracticed = nullTimePtr(lastPracticed)
		if lastPerformance.Valid {
			p := int(lastPerformance.Int32)
			item.LastPerformance = &p
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return items, nil
}

// Create implements store.ProgressStore.Create
func (s *PostgresProgressStore) Create(ctx context.Context, snapshot *domain.UserProgressSnapshot) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO learner_progress (learner_id, learning_streak, last_session_date, total_learning_time)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		snapshot.LearnerID,
		snapshot.LearningStreak,
		timePtrValue(snapshot.LastSessionDate),
		snapshot.TotalLearningTime,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("learner progress already exists",
				slog.String("learner_id", snapshot.LearnerID.String()))
			return MapUniqueViolation(err, store.ErrProgressExists)
		}
		log.Error("failed to create learner progress",
			slog.String("error", err.Error()),
			slog.String("learner_id", snapshot.LearnerID.String()))
		return MapError(err)
	}

	log.Info("learner progress created", slog.String("learner_id", snapshot.LearnerID.String()))
	return nil
}

// UpdateStreak implements store.ProgressStore.UpdateStreak
func (s *PostgresProgressStore) UpdateStreak(ctx context.Context, snapshot *domain.UserProgressSnapshot) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE learner_progress
		SET learning_streak = $1, last_session_date = $2, total_learning_time = $3, updated_at = NOW()
		WHERE learner_id = $4
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		snapshot.LearningStreak,
		timePtrValue(snapshot.LastSessionDate),
		snapshot.TotalLearningTime,
		snapshot.LearnerID,
	)
	if err != nil {
		log.Error("failed to update learner streak",
			slog.String("error", err.Error()),
			slog.String("learner_id", snapshot.LearnerID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrProgressNotFound); err != nil {
		log.Debug("learner progress not found for streak update",
			slog.String("learner_id", snapshot.LearnerID.String()))
		return err
	}

	log.Debug("learner streak updated",
		slog.String("learner_id", snapshot.LearnerID.String()),
		slog.Int("streak", snapshot.LearningStreak))
	return nil
}

// SaveItems implements store.ProgressStore.SaveItems
func (s *PostgresProgressStore) SaveItems(ctx context.Context, learnerID uuid.UUID, items []domain.LearnableItem) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	for _, item := range items {
		if err := item.Validate(); err != nil {
			log.Warn("item progress validation failed",
				slog.String("error", err.Error()),
				slog.String("learner_id", learnerID.String()),
				slog.String("item_id", item.ID))
			return fmt.Errorf("%w: item %q: %v", store.ErrInvalidEntity, item.ID, err)
		}
	}

	query := `
		INSERT INTO learner_item_progress (
			learner_id, item_id, repetition_number, ease_factor, interval_days, next_review_date,
			mastered, mastery_level, practice_count, correct_count, last_practiced, last_performance
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (learner_id, item_id) DO UPDATE
		SET repetition_number = EXCLUDED.repetition_number,
		    ease_factor = EXCLUDED.ease_factor,
		    interval_days = EXCLUDED.interval_days,
		    next_review_date = EXCLUDED.next_review_date,
		    mastered = EXCLUDED.mastered,
		    mastery_level = EXCLUDED.mastery_level,
		    practice_count = EXCLUDED.practice_count,
		    correct_count = EXCLUDED.correct_count,
		    last_practiced = EXCLUDED.last_practiced,
		    last_performance = EXCLUDED.last_performance,
		    updated_at = NOW()
	`

	for _, item := range items {
		item = item.WithSchedulingDefaults(domain.DefaultEaseFactor).WithMasteryDefaults()

		var lastPerformance any
		if item.LastPerformance != nil {
			lastPerformance = *item.LastPerformance
		}

		_, err := s.db.ExecContext(
			ctx,
			query,
			learnerID,
			item.ID,
			item.RepetitionNumber,
			item.EaseFactor,
			item.Interval,
			timePtrValue(item.NextReviewDate),
			item.Mastered,
			string(item.MasteryLevel),
			item.PracticeCount,
			item.CorrectCount,
			timePtrValue(item.LastPracticed),
			lastPerformance,
		)
		if err != nil {
			if IsForeignKeyViolation(err) {
				log.Warn("item progress references unknown item or learner",
					slog.String("learner_id", learnerID.String()),
					slog.String("item_id", item.ID))
			} else {
				log.Error("failed to save item progress",
					slog.String("error", err.Error()),
					slog.String("learner_id", learnerID.String()),
					slog.String("item_id", item.ID))
			}
			return MapError(err)
		}
	}

	log.Debug("item progress saved",
		slog.String("learner_id", learnerID.String()),
		slog.Int("count", len(items)))
	return nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// timePtrValue converts an optional time to a driver argument.
func timePtrValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
