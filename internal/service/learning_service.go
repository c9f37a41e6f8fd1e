package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nepalijets/nepalijets-api/internal/domain"
	"github.com/nepalijets/nepalijets-api/internal/domain/difficulty"
	"github.com/nepalijets/nepalijets-api/internal/domain/mastery"
	"github.com/nepalijets/nepalijets-api/internal/domain/path"
	"github.com/nepalijets/nepalijets-api/internal/domain/srs"
	"github.com/nepalijets/nepalijets-api/internal/events"
	"github.com/nepalijets/nepalijets-api/internal/platform/logger"
	"github.com/nepalijets/nepalijets-api/internal/store"
	"golang.org/x/sync/errgroup"
)

// Path lengths used when Options leaves them unset.
const (
	DefaultPathLength    = 10
	DefaultMaxPathLength = 50
)

// Recorder receives review and path observations. *metrics.Metrics
// satisfies it.
type Recorder interface {
	ObserveReview(performance int)
	ObservePath(length int)
}

type noopRecorder struct{}

func (noopRecorder) ObserveReview(int) {}
func (noopRecorder) ObservePath(int)   {}

// Options configures a LearningService. Zero values select the defaults.
type Options struct {
	// SchedulerParams overrides the review scheduling parameters.
	SchedulerParams *srs.Params
	// Location defines a learner's calendar day for streaks.
	Location *time.Location

	DefaultPathLength int
	MaxPathLength     int

	// Now returns the current time.
	Now func() time.Time
	// NewRandomSource returns the random source for one request. When nil
	// the process-wide generator is used.
	NewRandomSource func() difficulty.RandomSource

	Recorder Recorder
}

// SubmitRequest is a batch of review results.
type SubmitRequest struct {
	// SessionID, when set, names an open session that records the attempts.
	SessionID *uuid.UUID
	// Results are the rated items in the order they were practised.
	Results []path.CompletedItem
	// PathIDs is the path the client was working on. When empty a fresh
	// path of the default length is generated first.
	PathIDs []string
}

// SubmitResult is the outcome of SubmitResults.
type SubmitResult struct {
	Path     []domain.LearnableItem
	Updated  []domain.LearnableItem
	Failures []path.ItemFailure
}

// LearningService provides the learner-facing operations.
type LearningService interface {
	// GetPath returns a personalized practice path. A length of zero selects
	// the default; lengths above the maximum are clamped.
	GetPath(ctx context.Context, learnerID uuid.UUID, length int) ([]domain.LearnableItem, error)

	// SubmitResults applies a batch of results, persists the changed items
	// and returns the regenerated path, clamped to the maximum length, with
	// per-item failures.
	SubmitResults(ctx context.Context, learnerID uuid.UUID, req SubmitRequest) (*SubmitResult, error)

	// GetMetrics summarizes the learner's pool.
	GetMetrics(ctx context.Context, learnerID uuid.UUID) (*path.Metrics, error)

	// GetReport builds the learner's progress report.
	GetReport(ctx context.Context, learnerID uuid.UUID) (*mastery.ProgressReport, error)

	// GetReviewQueue returns the unmastered items the learner has not
	// practised recently.
	GetReviewQueue(ctx context.Context, learnerID uuid.UUID) ([]domain.LearnableItem, error)

	// GetSessionStats summarizes the learner's session history.
	GetSessionStats(ctx context.Context, learnerID uuid.UUID) (*mastery.SessionStats, error)

	// StartSession opens a session and updates the learner's streak.
	StartSession(ctx context.Context, learnerID uuid.UUID) (*domain.Session, error)

	// EndSession closes an open session and adds its duration to the
	// learner's total learning time.
	EndSession(ctx context.Context, learnerID, sessionID uuid.UUID) (*domain.Session, error)
}

type learningServiceImpl struct {
	db        store.TxBeginner
	content   store.ContentStore
	progress  store.ProgressStore
	sessions  store.SessionStore
	emitter   events.EventEmitter
	scheduler srs.Scheduler
	tracker   *mastery.Tracker
	opts      Options
	logger    *slog.Logger
}

// NewLearningService creates a LearningService.
// It returns an error if any of the required dependencies are nil.
func NewLearningService(
	db store.TxBeginner,
	content store.ContentStore,
	progress store.ProgressStore,
	sessions store.SessionStore,
	emitter events.EventEmitter,
	opts Options,
	logger *slog.Logger,
) (LearningService, error) {
	switch {
	case db == nil:
		return nil, &LearningServiceError{Operation: "create_service", Message: "db cannot be nil"}
	case content == nil:
		return nil, &LearningServiceError{Operation: "create_service", Message: "content store cannot be nil"}
	case progress == nil:
		return nil, &LearningServiceError{Operation: "create_service", Message: "progress store cannot be nil"}
	case sessions == nil:
		return nil, &LearningServiceError{Operation: "create_service", Message: "session store cannot be nil"}
	case emitter == nil:
		return nil, &LearningServiceError{Operation: "create_service", Message: "event emitter cannot be nil"}
	case logger == nil:
		return nil, &LearningServiceError{Operation: "create_service", Message: "logger cannot be nil"}
	}

	if opts.SchedulerParams == nil {
		opts.SchedulerParams = srs.NewDefaultParams()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.DefaultPathLength <= 0 {
		opts.DefaultPathLength = DefaultPathLength
	}
	if opts.MaxPathLength < opts.DefaultPathLength {
		opts.MaxPathLength = max(DefaultMaxPathLength, opts.DefaultPathLength)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Recorder == nil {
		opts.Recorder = noopRecorder{}
	}

	return &learningServiceImpl{
		db:        db,
		content:   content,
		progress:  progress,
		sessions:  sessions,
		emitter:   emitter,
		scheduler: srs.NewSchedulerWithParams(opts.SchedulerParams),
		tracker:   mastery.NewTracker(mastery.WithLocation(opts.Location)),
		opts:      opts,
		logger:    logger.With(slog.String("component", "learning_service")),
	}, nil
}

// GetPath implements LearningService.
func (s *learningServiceImpl) GetPath(
	ctx context.Context,
	learnerID uuid.UUID,
	length int,
) ([]domain.LearnableItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("learner_id", learnerID.String()))

	n, err := s.pathLength(length)
	if err != nil {
		return nil, err
	}

	pool, err := s.loadPool(ctx, learnerID)
	if err != nil {
		return nil, NewLearningServiceError("get_path", "failed to load learner pool", err)
	}

	items, err := s.newGenerator(pool).GeneratePersonalizedPath(n, s.opts.Now())
	if err != nil {
		return nil, NewLearningServiceError("get_path", "failed to generate path", err)
	}
	s.opts.Recorder.ObservePath(len(items))

	log.Debug("generated path", slog.Int("requested", n), slog.Int("length", len(items)))
	return items, nil
}

// SubmitResults implements LearningService.
func (s *learningServiceImpl) SubmitResults(
	ctx context.Context,
	learnerID uuid.UUID,
	req SubmitRequest,
) (*SubmitResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("learner_id", learnerID.String()))
	now := s.opts.Now()

	if err := s.ensureProgress(ctx, learnerID); err != nil {
		return nil, NewLearningServiceError("submit_results", "failed to initialize progress", err)
	}

	var (
		result        path.UpdateResult
		newlyMastered []domain.LearnableItem
	)

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		progressTx := s.progress.WithTx(tx)

		snapshot, err := progressTx.GetForUpdate(ctx, learnerID)
		if err != nil {
			return err
		}
		catalog, err := s.content.WithTx(tx).ListItems(ctx)
		if err != nil {
			return err
		}

		var session *domain.Session
		if req.SessionID != nil {
			session, err = s.sessions.WithTx(tx).GetForUpdate(ctx, learnerID, *req.SessionID)
			if err != nil {
				return err
			}
			if !session.IsOpen() {
				return domain.ErrSessionClosed
			}
		}

		pool := mergePool(catalog, snapshot.Items)
		before := make(map[string]bool, len(pool))
		for _, item := range pool {
			before[item.ID] = item.Mastered
		}

		gen := s.newGenerator(pool)
		if len(req.PathIDs) > 0 {
			gen.RestorePath(req.PathIDs)
		} else if _, err := gen.GeneratePersonalizedPath(s.opts.DefaultPathLength, now); err != nil {
			return err
		}

		result, err = gen.UpdatePath(req.Results, now)
		if err != nil {
			return err
		}
		if len(result.Path) > s.opts.MaxPathLength {
			result.Path = result.Path[:s.opts.MaxPathLength]
		}

		changed := latestStates(result.Updated)
		if len(changed) > 0 {
			if err := progressTx.SaveItems(ctx, learnerID, changed); err != nil {
				return err
			}
		}

		for _, item := range changed {
			if item.Mastered && !before[item.ID] {
				newlyMastered = append(newlyMastered, item)
			}
		}

		if session != nil && len(result.Updated) > 0 {
			recorded := *session
			for _, item := range result.Updated {
				if item.LastPerformance == nil {
					continue
				}
				recorded, err = s.tracker.RecordActivity(recorded, item.ID, *item.LastPerformance, now)
				if err != nil {
					return err
				}
			}
			if err := s.sessions.WithTx(tx).Update(ctx, &recorded); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		log.Error("failed to submit results", slog.String("error", err.Error()))
		return nil, NewLearningServiceError("submit_results", "failed to apply review results", err)
	}

	updatedIDs := make([]string, 0, len(result.Updated))
	for _, item := range result.Updated {
		updatedIDs = append(updatedIDs, item.ID)
		if item.LastPerformance != nil {
			s.opts.Recorder.ObserveReview(*item.LastPerformance)
		}
	}
	s.opts.Recorder.ObservePath(len(result.Path))

	s.emit(ctx, events.TypeReviewsSubmitted, learnerID, events.ReviewsSubmittedPayload{
		Updated: updatedIDs,
		Failed:  len(result.Failures),
	}, now)
	for _, item := range newlyMastered {
		s.emit(ctx, events.TypeItemMastered, learnerID, events.ItemMasteredPayload{
			ItemID:   item.ID,
			Category: item.CategoryOrDefault(),
		}, now)
	}

	log.Info("applied review results",
		slog.Int("updated", len(result.Updated)),
		slog.Int("failed", len(result.Failures)),
		slog.Int("mastered", len(newlyMastered)))

	return &SubmitResult{
		Path:     result.Path,
		Updated:  result.Updated,
		Failures: result.Failures,
	}, nil
}

// GetMetrics implements LearningService.
func (s *learningServiceImpl) GetMetrics(ctx context.Context, learnerID uuid.UUID) (*path.Metrics, error) {
	pool, err := s.loadPool(ctx, learnerID)
	if err != nil {
		return nil, NewLearningServiceError("get_metrics", "failed to load learner pool", err)
	}

	metrics := s.newGenerator(pool).LearningMetrics()
	return &metrics, nil
}

// GetReport implements LearningService.
func (s *learningServiceImpl) GetReport(ctx context.Context, learnerID uuid.UUID) (*mastery.ProgressReport, error) {
	var (
		catalog  []domain.LearnableItem
		snapshot *domain.UserProgressSnapshot
		sessions []domain.Session
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		catalog, err = s.content.ListItems(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snapshot, err = loadSnapshot(gctx, s.progress, learnerID)
		return err
	})
	g.Go(func() error {
		var err error
		sessions, err = s.sessions.ListByLearner(gctx, learnerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, NewLearningServiceError("get_report", "failed to load learner history", err)
	}

	report := s.tracker.ProgressReport(mergePool(catalog, snapshot.Items), sessions, s.opts.Now())
	return &report, nil
}

// GetReviewQueue implements LearningService.
func (s *learningServiceImpl) GetReviewQueue(ctx context.Context, learnerID uuid.UUID) ([]domain.LearnableItem, error) {
	pool, err := s.loadPool(ctx, learnerID)
	if err != nil {
		return nil, NewLearningServiceError("get_review_queue", "failed to load learner pool", err)
	}

	return s.tracker.ItemsNeedingReview(pool, s.opts.Now()), nil
}

// GetSessionStats implements LearningService.
func (s *learningServiceImpl) GetSessionStats(ctx context.Context, learnerID uuid.UUID) (*mastery.SessionStats, error) {
	sessions, err := s.sessions.ListByLearner(ctx, learnerID)
	if err != nil {
		return nil, NewLearningServiceError("get_session_stats", "failed to load sessions", err)
	}

	stats := s.tracker.SessionStatistics(sessions)
	return &stats, nil
}

// StartSession implements LearningService.
func (s *learningServiceImpl) StartSession(ctx context.Context, learnerID uuid.UUID) (*domain.Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("learner_id", learnerID.String()))
	now := s.opts.Now()

	if err := s.ensureProgress(ctx, learnerID); err != nil {
		return nil, NewLearningServiceError("start_session", "failed to initialize progress", err)
	}

	var (
		session        *domain.Session
		previousStreak int
		streak         int
	)

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		progressTx := s.progress.WithTx(tx)

		snapshot, err := progressTx.GetForUpdate(ctx, learnerID)
		if err != nil {
			return err
		}
		previousStreak = snapshot.LearningStreak

		next, opened := s.tracker.StartSession(*snapshot, now)
		if err := progressTx.UpdateStreak(ctx, &next); err != nil {
			return err
		}
		if err := s.sessions.WithTx(tx).Create(ctx, opened); err != nil {
			return err
		}

		session = opened
		streak = next.LearningStreak
		return nil
	})
	if err != nil {
		log.Error("failed to start session", slog.String("error", err.Error()))
		return nil, NewLearningServiceError("start_session", "failed to start session", err)
	}

	s.emit(ctx, events.TypeSessionStarted, learnerID, events.SessionPayload{SessionID: session.ID}, now)
	if streak > previousStreak {
		s.emit(ctx, events.TypeStreakExtended, learnerID, events.StreakPayload{Streak: streak}, now)
	}

	log.Info("started session", slog.String("session_id", session.ID.String()), slog.Int("streak", streak))
	return session, nil
}

// EndSession implements LearningService.
func (s *learningServiceImpl) EndSession(
	ctx context.Context,
	learnerID, sessionID uuid.UUID,
) (*domain.Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("learner_id", learnerID.String()),
		slog.String("session_id", sessionID.String()))
	now := s.opts.Now()

	var closed domain.Session

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		progressTx := s.progress.WithTx(tx)

		snapshot, err := progressTx.GetForUpdate(ctx, learnerID)
		if errors.Is(err, store.ErrProgressNotFound) {
			// a learner without progress has never started a session
			return domain.ErrSessionNotFound
		}
		if err != nil {
			return err
		}

		session, err := s.sessions.WithTx(tx).GetForUpdate(ctx, learnerID, sessionID)
		if err != nil {
			return err
		}

		next, ended, err := s.tracker.EndSession(*snapshot, *session, now)
		if err != nil {
			return err
		}
		if err := progressTx.UpdateStreak(ctx, &next); err != nil {
			return err
		}
		if err := s.sessions.WithTx(tx).Update(ctx, &ended); err != nil {
			return err
		}

		closed = ended
		return nil
	})
	if err != nil {
		log.Error("failed to end session", slog.String("error", err.Error()))
		return nil, NewLearningServiceError("end_session", "failed to end session", err)
	}

	s.emit(ctx, events.TypeSessionEnded, learnerID, events.SessionPayload{
		SessionID: closed.ID,
		Duration:  closed.Duration,
		Score:     closed.Metrics.Score,
	}, now)

	log.Info("ended session", slog.Int("duration", closed.Duration), slog.Int("score", closed.Metrics.Score))
	return &closed, nil
}

func (s *learningServiceImpl) pathLength(n int) (int, error) {
	switch {
	case n == 0:
		return s.opts.DefaultPathLength, nil
	case n < 0:
		return 0, domain.ErrInvalidPathLength
	case n > s.opts.MaxPathLength:
		return s.opts.MaxPathLength, nil
	default:
		return n, nil
	}
}

func (s *learningServiceImpl) newGenerator(pool []domain.LearnableItem) *path.Generator {
	advisor := difficulty.NewAdvisor(nil)
	if s.opts.NewRandomSource != nil {
		advisor = difficulty.NewAdvisor(s.opts.NewRandomSource())
	}

	return path.NewGenerator(pool,
		path.WithScheduler(s.scheduler),
		path.WithAdvisor(advisor),
		path.WithMasteryTracker(s.tracker),
	)
}

// loadSnapshot returns the learner's progress, or an empty snapshot for a
// learner who has not practised yet.
func loadSnapshot(
	ctx context.Context,
	progress store.ProgressStore,
	learnerID uuid.UUID,
) (*domain.UserProgressSnapshot, error) {
	snapshot, err := progress.Get(ctx, learnerID)
	if errors.Is(err, store.ErrProgressNotFound) {
		return &domain.UserProgressSnapshot{LearnerID: learnerID, Items: []domain.LearnableItem{}}, nil
	}
	return snapshot, err
}

// loadPool reads the catalog and the learner's progress from one snapshot.
func (s *learningServiceImpl) loadPool(ctx context.Context, learnerID uuid.UUID) ([]domain.LearnableItem, error) {
	var pool []domain.LearnableItem

	err := store.RunInReadOnlyTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		catalog, err := s.content.WithTx(tx).ListItems(ctx)
		if err != nil {
			return err
		}
		snapshot, err := loadSnapshot(ctx, s.progress.WithTx(tx), learnerID)
		if err != nil {
			return err
		}
		pool = mergePool(catalog, snapshot.Items)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// ensureProgress creates the learner's progress header if it is missing.
// It runs outside the write transaction because a unique violation aborts
// the surrounding Postgres transaction.
func (s *learningServiceImpl) ensureProgress(ctx context.Context, learnerID uuid.UUID) error {
	_, err := s.progress.Get(ctx, learnerID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrProgressNotFound) {
		return err
	}

	err = s.progress.Create(ctx, &domain.UserProgressSnapshot{LearnerID: learnerID})
	if err != nil && !store.IsDuplicateError(err) {
		return err
	}
	return nil
}

func (s *learningServiceImpl) emit(ctx context.Context, eventType string, learnerID uuid.UUID, payload any, at time.Time) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	event, err := events.NewLearningEvent(eventType, learnerID, payload, at)
	if err != nil {
		log.Error("failed to build event", slog.String("event_type", eventType), slog.String("error", err.Error()))
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Warn("failed to emit event", slog.String("event_type", eventType), slog.String("error", err.Error()))
	}
}

// mergePool overlays a learner's item states on the catalog. Category and
// difficulty always come from the catalog. Progress for items that left the
// catalog is dropped.
func mergePool(catalog, progress []domain.LearnableItem) []domain.LearnableItem {
	states := make(map[string]domain.LearnableItem, len(progress))
	for _, item := range progress {
		states[item.ID] = item
	}

	pool := make([]domain.LearnableItem, 0, len(catalog))
	seen := make(map[string]struct{}, len(catalog))
	for _, entry := range catalog {
		if _, dup := seen[entry.ID]; dup {
			continue
		}
		seen[entry.ID] = struct{}{}

		item := entry.Clone()
		if state, ok := states[entry.ID]; ok {
			item = state.Clone()
			item.Category = entry.Category
			item.Difficulty = entry.Difficulty
		}
		pool = append(pool, item)
	}

	return pool
}

// latestStates keeps the last state of each item id, in order of first appearance.
func latestStates(items []domain.LearnableItem) []domain.LearnableItem {
	position := make(map[string]int, len(items))
	out := make([]domain.LearnableItem, 0, len(items))
	for _, item := range items {
		if idx, ok := position[item.ID]; ok {
			out[idx] = item
			continue
		}
		position[item.ID] = len(out)
		out = append(out, item)
	}
	return out
}
