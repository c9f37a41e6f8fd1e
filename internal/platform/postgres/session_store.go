package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nepalijets/nepalijets-api/internal/domain"
	"github.com/nepalijets/nepalijets-api/internal/platform/logger"
	"github.com/nepalijets/nepalijets-api/internal/store"
)

// PostgresSessionStore implements the store.SessionStore interface on the
// learning_sessions table. Activities and metrics are stored as JSONB.
type PostgresSessionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSessionStore creates a new PostgreSQL implementation of the SessionStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresSessionStore(db store.DBTX, logger *slog.Logger) *PostgresSessionStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSessionStore{
		db:     db,
		logger: logger.With(slog.String("component", "session_store")),
	}
}

// Ensure PostgresSessionStore implements store.SessionStore interface
var _ store.SessionStore = (*PostgresSessionStore)(nil)

// WithTx implements store.SessionStore.WithTx
func (s *PostgresSessionStore) WithTx(tx *sql.Tx) store.SessionStore {
	return &PostgresSessionStore{
		db:     tx,
		logger: s.logger,
	}
}

const sessionColumns = `id, learner_id, start_time, end_time, duration_minutes, activities, metrics`

// Create implements store.SessionStore.Create
func (s *PostgresSessionStore) Create(ctx context.Context, session *domain.Session) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	activities, metrics, err := encodeSessionPayload(session)
	if err != nil {
		log.Error("failed to encode session payload",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return err
	}

	query := `
		INSERT INTO learning_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = s.db.ExecContext(
		ctx,
		query,
		session.ID,
		session.LearnerID,
		session.StartTime.UTC(),
		timePtrValue(session.EndTime),
		session.Duration,
		activities,
		metrics,
	)
	if err != nil {
		log.Error("failed to create session",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()),
			slog.String("learner_id", session.LearnerID.String()))
		return MapError(err)
	}

	log.Info("session created",
		slog.String("session_id", session.ID.String()),
		slog.String("learner_id", session.LearnerID.String()))
	return nil
}

// Get implements store.SessionStore.Get
func (s *PostgresSessionStore) Get(ctx context.Context, learnerID, sessionID uuid.UUID) (*domain.Session, error) {
	return s.get(ctx, learnerID, sessionID, "")
}

// GetForUpdate implements store.SessionStore.GetForUpdate
func (s *PostgresSessionStore) GetForUpdate(
	ctx context.Context,
	learnerID, sessionID uuid.UUID,
) (*domain.Session, error) {
	return s.get(ctx, learnerID, sessionID, " FOR UPDATE")
}

func (s *PostgresSessionStore) get(
	ctx context.Context,
	learnerID, sessionID uuid.UUID,
	lockClause string,
) (*domain.Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + sessionColumns + `
		FROM learning_sessions
		WHERE id = $1 AND learner_id = $2` + lockClause

	session, err := scanSession(s.db.QueryRowContext(ctx, query, sessionID, learnerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("session not found",
				slog.String("session_id", sessionID.String()),
				slog.String("learner_id", learnerID.String()))
			return nil, store.ErrSessionNotFound
		}
		log.Error("failed to get session",
			slog.String("error", err.Error()),
			slog.String("session_id", sessionID.String()))
		return nil, MapError(err)
	}

	return session, nil
}

// Update implements store.SessionStore.Update
func (s *PostgresSessionStore) Update(ctx context.Context, session *domain.Session) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	activities, metrics, err := encodeSessionPayload(session)
	if err != nil {
		log.Error("failed to encode session payload",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return err
	}

	query := `
		UPDATE learning_sessions
		SET end_time = $1, duration_minutes = $2, activities = $3, metrics = $4, updated_at = NOW()
		WHERE id = $5 AND learner_id = $6
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		timePtrValue(session.EndTime),
		session.Duration,
		activities,
		metrics,
		session.ID,
		session.LearnerID,
	)
	if err != nil {
		log.Error("failed to update session",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrSessionNotFound); err != nil {
		log.Debug("session not found for update", slog.String("session_id", session.ID.String()))
		return err
	}

	log.Debug("session updated",
		slog.String("session_id", session.ID.String()),
		slog.Int("activities", len(session.Activities)))
	return nil
}

// ListByLearner implements store.SessionStore.ListByLearner
func (s *PostgresSessionStore) ListByLearner(ctx context.Context, learnerID uuid.UUID) ([]domain.Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + sessionColumns + `
		FROM learning_sessions
		WHERE learner_id = $1
		ORDER BY start_time DESC
	`

	rows, err := s.db.QueryContext(ctx, query, learnerID)
	if err != nil {
		log.Error("failed to query sessions",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	sessions := []domain.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			log.Error("failed to scan session row", slog.String("error", err.Error()))
			return nil, err
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	log.Debug("listed sessions",
		slog.String("learner_id", learnerID.String()),
		slog.Int("count", len(sessions)))
	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var session domain.Session
	var endTime sql.NullTime
	var activities, metrics []byte

	if err := row.Scan(
		&session.ID,
		&session.LearnerID,
		&session.StartTime,
		&endTime,
		&session.Duration,
		&activities,
		&metrics,
	); err != nil {
		return nil, err
	}

	session.EndTime = nullTimePtr(endTime)

	session.Activities = []domain.Activity{}
	if len(activities) > 0 {
		if err := json.Unmarshal(activities, &session.Activities); err != nil {
			return nil, fmt.Errorf("decode activities of session %s: %w", session.ID, err)
		}
	}
	if len(metrics) > 0 {
		if err := json.Unmarshal(metrics, &session.Metrics); err != nil {
			return nil, fmt.Errorf("decode metrics of session %s: %w", session.ID, err)
		}
	}

	return &session, nil
}

// encodeSessionPayload returns the JSONB text of activities and metrics.
func encodeSessionPayload(session *domain.Session) (string, string, error) {
	activities := session.Activities
	if activities == nil {
		activities = []domain.Activity{}
	}

	a, err := json.Marshal(activities)
	if err != nil {
		return "", "", fmt.Errorf("encode activities: %w", err)
	}
	m, err := json.Marshal(session.Metrics)
	if err != nil {
		return "", "", fmt.Errorf("encode metrics: %w", err)
	}
	return string(a), string(m), nil
}
