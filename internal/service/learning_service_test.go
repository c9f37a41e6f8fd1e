package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/nepalijets/nepalijets-api/internal/domain"
	"github.com/nepalijets/nepalijets-api/internal/domain/path"
	"github.com/nepalijets/nepalijets-api/internal/events"
	"github.com/nepalijets/nepalijets-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

type fakeContentStore struct {
	mu    sync.Mutex
	items []domain.LearnableItem
	err   error
}

func (f *fakeContentStore) ListItems(context.Context) ([]domain.LearnableItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return domain.CloneItems(f.items), nil
}

func (f *fakeContentStore) UpsertItems(_ context.Context, items []domain.LearnableItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, domain.CloneItems(items)...)
	return nil
}

func (f *fakeContentStore) WithTx(*sql.Tx) store.ContentStore { return f }

type fakeProgressStore struct {
	mu        sync.Mutex
	snapshots map[uuid.UUID]*domain.UserProgressSnapshot
	saved     []domain.LearnableItem
	saveErr   error
}

func newFakeProgressStore() *fakeProgressStore {
	return &fakeProgressStore{snapshots: map[uuid.UUID]*domain.UserProgressSnapshot{}}
}

func (f *fakeProgressStore) Get(_ context.Context, learnerID uuid.UUID) (*domain.UserProgressSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot, ok := f.snapshots[learnerID]
	if !ok {
		return nil, store.ErrProgressNotFound
	}
	c := *snapshot
	c.Items = domain.CloneItems(snapshot.Items)
	return &c, nil
}

func (f *fakeProgressStore) GetForUpdate(ctx context.Context, learnerID uuid.UUID) (*domain.UserProgressSnapshot, error) {
	return f.Get(ctx, learnerID)
}

func (f *fakeProgressStore) Create(_ context.Context, snapshot *domain.UserProgressSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.snapshots[snapshot.LearnerID]; ok {
		return store.ErrProgressExists
	}
	c := *snapshot
	f.snapshots[snapshot.LearnerID] = &c
	return nil
}

func (f *fakeProgressStore) UpdateStreak(_ context.Context, snapshot *domain.UserProgressSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.snapshots[snapshot.LearnerID]
	if !ok {
		return store.ErrProgressNotFound
	}
	current.LearningStreak = snapshot.LearningStreak
	current.LastSessionDate = snapshot.LastSessionDate
	current.TotalLearningTime = snapshot.TotalLearningTime
	return nil
}

func (f *fakeProgressStore) SaveItems(_ context.Context, learnerID uuid.UUID, items []domain.LearnableItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	current := f.snapshots[learnerID]
	for _, item := range items {
		f.saved = append(f.saved, item.Clone())
		replaced := false
		for i := range current.Items {
			if current.Items[i].ID == item.ID {
				current.Items[i] = item.Clone()
				replaced = true
			}
		}
		if !replaced {
			current.Items = append(current.Items, item.Clone())
		}
	}
	return nil
}

func (f *fakeProgressStore) WithTx(*sql.Tx) store.ProgressStore { return f }

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]domain.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[uuid.UUID]domain.Session{}}
}

func (f *fakeSessionStore) Create(_ context.Context, session *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.ID] = session.Clone()
	return nil
}

func (f *fakeSessionStore) Get(_ context.Context, learnerID, sessionID uuid.UUID) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok || session.LearnerID != learnerID {
		return nil, store.ErrSessionNotFound
	}
	c := session.Clone()
	return &c, nil
}

func (f *fakeSessionStore) GetForUpdate(ctx context.Context, learnerID, sessionID uuid.UUID) (*domain.Session, error) {
	return f.Get(ctx, learnerID, sessionID)
}

func (f *fakeSessionStore) Update(_ context.Context, session *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[session.ID]; !ok {
		return store.ErrSessionNotFound
	}
	f.sessions[session.ID] = session.Clone()
	return nil
}

func (f *fakeSessionStore) ListByLearner(_ context.Context, learnerID uuid.UUID) ([]domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Session{}
	for _, s := range f.sessions {
		if s.LearnerID == learnerID {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

func (f *fakeSessionStore) WithTx(*sql.Tx) store.SessionStore { return f }

type recordingEmitter struct {
	mu     sync.Mutex
	events []*events.LearningEvent
}

func (e *recordingEmitter) EmitEvent(_ context.Context, event *events.LearningEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func (e *recordingEmitter) ofType(eventType string) []*events.LearningEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*events.LearningEvent
	for _, ev := range e.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

type recordingRecorder struct {
	mu      sync.Mutex
	reviews []int
	paths   []int
}

func (r *recordingRecorder) ObserveReview(p int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reviews = append(r.reviews, p)
}

func (r *recordingRecorder) ObservePath(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, n)
}

type harness struct {
	svc      LearningService
	mock     sqlmock.Sqlmock
	content  *fakeContentStore
	progress *fakeProgressStore
	sessions *fakeSessionStore
	emitter  *recordingEmitter
	recorder *recordingRecorder
	now      time.Time
}

func catalog() []domain.LearnableItem {
	return []domain.LearnableItem{
		{ID: "namaste", Category: "greetings", Difficulty: domain.DifficultyEasy},
		{ID: "dhanyabad", Category: "greetings", Difficulty: domain.DifficultyEasy},
		{ID: "ghar", Category: "home", Difficulty: domain.DifficultyMedium},
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	h := &harness{
		mock:     mock,
		content:  &fakeContentStore{items: catalog()},
		progress: newFakeProgressStore(),
		sessions: newFakeSessionStore(),
		emitter:  &recordingEmitter{},
		recorder: &recordingRecorder{},
		now:      testNow,
	}

	svc, err := NewLearningService(db, h.content, h.progress, h.sessions, h.emitter, Options{
		DefaultPathLength: 10,
		MaxPathLength:     20,
		Now:               func() time.Time { return h.now },
		Recorder:          h.recorder,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	h.svc = svc

	return h
}

func (h *harness) expectTx() {
	h.mock.ExpectBegin()
	h.mock.ExpectCommit()
}

func TestNewLearningService_NilDependencies(t *testing.T) {
	t.Parallel()

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	content := &fakeContentStore{}
	progress := newFakeProgressStore()
	sessions := newFakeSessionStore()
	emitter := &recordingEmitter{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name  string
		build func() (LearningService, error)
	}{
		{"nil db", func() (LearningService, error) {
			return NewLearningService(nil, content, progress, sessions, emitter, Options{}, logger)
		}},
		{"nil content store", func() (LearningService, error) {
			return NewLearningService(db, nil, progress, sessions, emitter, Options{}, logger)
		}},
		{"nil progress store", func() (LearningService, error) {
			return NewLearningService(db, content, nil, sessions, emitter, Options{}, logger)
		}},
		{"nil session store", func() (LearningService, error) {
			return NewLearningService(db, content, progress, nil, emitter, Options{}, logger)
		}},
		{"nil emitter", func() (LearningService, error) {
			return NewLearningService(db, content, progress, sessions, nil, Options{}, logger)
		}},
		{"nil logger", func() (LearningService, error) {
			return NewLearningService(db, content, progress, sessions, emitter, Options{}, nil)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := tt.build()
			assert.Nil(t, svc)
			var serviceErr *LearningServiceError
			require.ErrorAs(t, err, &serviceErr)
			assert.Equal(t, "create_service", serviceErr.Operation)
		})
	}
}

func TestGetPath(t *testing.T) {
	t.Parallel()

	t.Run("new learner gets every catalog item", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.expectTx()

		items, err := h.svc.GetPath(context.Background(), uuid.New(), 0)
		require.NoError(t, err)

		ids := make([]string, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.ID)
		}
		assert.Equal(t, []string{"namaste", "dhanyabad", "ghar"}, ids)
		assert.Equal(t, []int{3}, h.recorder.paths)
	})

	t.Run("bounded by length", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.expectTx()

		items, err := h.svc.GetPath(context.Background(), uuid.New(), 2)
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})

	t.Run("scheduled items are not due", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.expectTx()

		learnerID := uuid.New()
		future := testNow.AddDate(0, 0, 5)
		h.progress.snapshots[learnerID] = &domain.UserProgressSnapshot{
			LearnerID: learnerID,
			Items: []domain.LearnableItem{
				{ID: "namaste", EaseFactor: 2.5, RepetitionNumber: 8, Interval: 30, NextReviewDate: &future, Mastered: true},
			},
		}

		items, err := h.svc.GetPath(context.Background(), learnerID, 10)
		require.NoError(t, err)
		for _, item := range items {
			assert.NotEqual(t, "namaste", item.ID)
		}
		assert.Len(t, items, 2)
	})

	t.Run("negative length", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)

		_, err := h.svc.GetPath(context.Background(), uuid.New(), -1)
		assert.ErrorIs(t, err, domain.ErrInvalidPathLength)
		assert.True(t, domain.IsInvalidArgument(err))
	})

	t.Run("store failure is wrapped", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.content.err = errors.New("connection refused")
		h.mock.ExpectBegin()
		h.mock.ExpectRollback()

		_, err := h.svc.GetPath(context.Background(), uuid.New(), 5)
		var serviceErr *LearningServiceError
		require.ErrorAs(t, err, &serviceErr)
		assert.Equal(t, "get_path", serviceErr.Operation)
	})
}

func TestSubmitResults(t *testing.T) {
	t.Parallel()

	t.Run("schedules and persists reviewed items", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.expectTx()
		learnerID := uuid.New()

		result, err := h.svc.SubmitResults(context.Background(), learnerID, SubmitRequest{
			Results: []path.CompletedItem{
				{ItemID: "namaste", Performance: 5},
				{ItemID: "missing", Performance: 4},
				{ItemID: "ghar", Performance: 9},
				{ItemID: "", Performance: 3},
			},
		})
		require.NoError(t, err)

		require.Len(t, result.Updated, 1)
		updated := result.Updated[0]
		assert.Equal(t, "namaste", updated.ID)
		assert.Equal(t, 1, updated.RepetitionNumber)
		assert.Equal(t, 1, updated.Interval)
		require.NotNil(t, updated.NextReviewDate)
		assert.True(t, updated.NextReviewDate.Equal(testNow.AddDate(0, 0, 1)))
		assert.Equal(t, 1, updated.PracticeCount)
		assert.Equal(t, 1, updated.CorrectCount)

		require.Len(t, result.Failures, 3)
		assert.ErrorIs(t, result.Failures[0], domain.ErrItemNotFound)
		assert.ErrorIs(t, result.Failures[1], domain.ErrInvalidPerformance)
		assert.ErrorIs(t, result.Failures[2], domain.ErrMissingItemID)

		assert.Len(t, result.Path, 3)

		require.Len(t, h.progress.saved, 1)
		assert.Equal(t, "namaste", h.progress.saved[0].ID)
		assert.Equal(t, []int{5}, h.recorder.reviews)

		submitted := h.emitter.ofType(events.TypeReviewsSubmitted)
		require.Len(t, submitted, 1)
		var payload events.ReviewsSubmittedPayload
		require.NoError(t, submitted[0].UnmarshalPayload(&payload))
		assert.Equal(t, []string{"namaste"}, payload.Updated)
		assert.Equal(t, 3, payload.Failed)
		assert.Empty(t, h.emitter.ofType(events.TypeItemMastered))
	})

	t.Run("regenerated path is clamped to the maximum length", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.expectTx()

		h.content.items = nil
		for i := 0; i < 30; i++ {
			h.content.items = append(h.content.items, domain.LearnableItem{
				ID: fmt.Sprintf("word%02d", i), Category: "vocab", Difficulty: domain.DifficultyEasy,
			})
		}
		pathIDs := make([]string, 0, 20)
		for i := 0; i < 20; i++ {
			pathIDs = append(pathIDs, fmt.Sprintf("word%02d", i))
		}
		var results []path.CompletedItem
		for i := 20; i < 25; i++ {
			results = append(results, path.CompletedItem{ItemID: fmt.Sprintf("word%02d", i), Performance: 5})
		}

		result, err := h.svc.SubmitResults(context.Background(), uuid.New(), SubmitRequest{
			Results: results,
			PathIDs: pathIDs,
		})
		require.NoError(t, err)
		assert.Len(t, result.Updated, 5)
		assert.Len(t, result.Path, 20)
		assert.Equal(t, []int{20}, h.recorder.paths)
	})

	t.Run("records attempts in an open session", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		learnerID := uuid.New()

		h.expectTx()
		session, err := h.svc.StartSession(context.Background(), learnerID)
		require.NoError(t, err)

		h.expectTx()
		_, err = h.svc.SubmitResults(context.Background(), learnerID, SubmitRequest{
			SessionID: &session.ID,
			Results: []path.CompletedItem{
				{ItemID: "namaste", Performance: 5},
				{ItemID: "ghar", Performance: 2},
			},
			PathIDs: []string{"namaste", "ghar"},
		})
		require.NoError(t, err)

		stored := h.sessions.sessions[session.ID]
		require.Len(t, stored.Activities, 2)
		assert.Equal(t, "namaste", stored.Activities[0].ItemID)
		assert.Equal(t, 2, stored.Activities[1].Performance)
		assert.Equal(t, domain.SessionMetrics{Score: 50, ItemsStudied: 2, ReviewsCompleted: 2}, stored.Metrics)
	})

	t.Run("emits an event when an item becomes mastered", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.expectTx()

		learnerID := uuid.New()
		due := testNow.AddDate(0, 0, -1)
		h.progress.snapshots[learnerID] = &domain.UserProgressSnapshot{
			LearnerID: learnerID,
			Items: []domain.LearnableItem{{
				ID: "namaste", EaseFactor: 2.5, RepetitionNumber: 7, Interval: 40, NextReviewDate: &due,
				MasteryLevel: domain.MasteryPracticing, PracticeCount: 7, CorrectCount: 7,
			}},
		}

		result, err := h.svc.SubmitResults(context.Background(), learnerID, SubmitRequest{
			Results: []path.CompletedItem{{ItemID: "namaste", Performance: 5}},
		})
		require.NoError(t, err)
		require.Len(t, result.Updated, 1)
		assert.True(t, result.Updated[0].Mastered)

		mastered := h.emitter.ofType(events.TypeItemMastered)
		require.Len(t, mastered, 1)
		var payload events.ItemMasteredPayload
		require.NoError(t, mastered[0].UnmarshalPayload(&payload))
		assert.Equal(t, events.ItemMasteredPayload{ItemID: "namaste", Category: "greetings"}, payload)
	})

	t.Run("unknown session", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.mock.ExpectBegin()
		h.mock.ExpectRollback()

		sessionID := uuid.New()
		_, err := h.svc.SubmitResults(context.Background(), uuid.New(), SubmitRequest{
			SessionID: &sessionID,
			Results:   []path.CompletedItem{{ItemID: "namaste", Performance: 5}},
		})
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
		assert.Empty(t, h.progress.saved)
	})

	t.Run("closed session", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		learnerID := uuid.New()

		h.expectTx()
		session, err := h.svc.StartSession(context.Background(), learnerID)
		require.NoError(t, err)
		h.expectTx()
		_, err = h.svc.EndSession(context.Background(), learnerID, session.ID)
		require.NoError(t, err)

		h.mock.ExpectBegin()
		h.mock.ExpectRollback()
		_, err = h.svc.SubmitResults(context.Background(), learnerID, SubmitRequest{
			SessionID: &session.ID,
			Results:   []path.CompletedItem{{ItemID: "namaste", Performance: 5}},
		})
		assert.ErrorIs(t, err, domain.ErrSessionClosed)
	})

	t.Run("save failure rolls back", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.progress.saveErr = errors.New("disk full")
		h.mock.ExpectBegin()
		h.mock.ExpectRollback()

		_, err := h.svc.SubmitResults(context.Background(), uuid.New(), SubmitRequest{
			Results: []path.CompletedItem{{ItemID: "namaste", Performance: 5}},
		})
		var serviceErr *LearningServiceError
		require.ErrorAs(t, err, &serviceErr)
		assert.Equal(t, "submit_results", serviceErr.Operation)
		assert.Empty(t, h.emitter.ofType(events.TypeReviewsSubmitted))
	})
}

func TestSessions(t *testing.T) {
	t.Parallel()

	t.Run("streak grows on consecutive days", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		learnerID := uuid.New()

		h.expectTx()
		_, err := h.svc.StartSession(context.Background(), learnerID)
		require.NoError(t, err)
		assert.Equal(t, 1, h.progress.snapshots[learnerID].LearningStreak)

		h.now = testNow.Add(2 * time.Hour)
		h.expectTx()
		_, err = h.svc.StartSession(context.Background(), learnerID)
		require.NoError(t, err)
		assert.Equal(t, 1, h.progress.snapshots[learnerID].LearningStreak)

		h.now = testNow.AddDate(0, 0, 1)
		h.expectTx()
		_, err = h.svc.StartSession(context.Background(), learnerID)
		require.NoError(t, err)
		assert.Equal(t, 2, h.progress.snapshots[learnerID].LearningStreak)

		assert.Len(t, h.emitter.ofType(events.TypeSessionStarted), 3)
		streaks := h.emitter.ofType(events.TypeStreakExtended)
		require.Len(t, streaks, 2)
		var payload events.StreakPayload
		require.NoError(t, streaks[1].UnmarshalPayload(&payload))
		assert.Equal(t, 2, payload.Streak)
	})

	t.Run("end session records duration", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		learnerID := uuid.New()

		h.expectTx()
		session, err := h.svc.StartSession(context.Background(), learnerID)
		require.NoError(t, err)
		assert.True(t, session.IsOpen())

		h.now = testNow.Add(25 * time.Minute)
		h.expectTx()
		closed, err := h.svc.EndSession(context.Background(), learnerID, session.ID)
		require.NoError(t, err)
		assert.False(t, closed.IsOpen())
		assert.Equal(t, 25, closed.Duration)
		assert.Equal(t, 25, h.progress.snapshots[learnerID].TotalLearningTime)

		ended := h.emitter.ofType(events.TypeSessionEnded)
		require.Len(t, ended, 1)
		var payload events.SessionPayload
		require.NoError(t, ended[0].UnmarshalPayload(&payload))
		assert.Equal(t, session.ID, payload.SessionID)
		assert.Equal(t, 25, payload.Duration)

		h.mock.ExpectBegin()
		h.mock.ExpectRollback()
		_, err = h.svc.EndSession(context.Background(), learnerID, session.ID)
		assert.ErrorIs(t, err, domain.ErrSessionClosed)
	})

	t.Run("end session for unknown learner", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.mock.ExpectBegin()
		h.mock.ExpectRollback()

		_, err := h.svc.EndSession(context.Background(), uuid.New(), uuid.New())
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("end another learner's session", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		owner, other := uuid.New(), uuid.New()

		h.expectTx()
		session, err := h.svc.StartSession(context.Background(), owner)
		require.NoError(t, err)
		h.expectTx()
		_, err = h.svc.StartSession(context.Background(), other)
		require.NoError(t, err)

		h.mock.ExpectBegin()
		h.mock.ExpectRollback()
		_, err = h.svc.EndSession(context.Background(), other, session.ID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}

func TestGetMetricsAndReport(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	learnerID := uuid.New()
	future := testNow.AddDate(0, 0, 30)
	h.progress.snapshots[learnerID] = &domain.UserProgressSnapshot{
		LearnerID: learnerID,
		Items: []domain.LearnableItem{
			{ID: "namaste", EaseFactor: 2.6, RepetitionNumber: 8, Interval: 30, NextReviewDate: &future,
				Mastered: true, MasteryLevel: domain.MasteryMastered, PracticeCount: 10, CorrectCount: 10},
		},
	}
	end := testNow.Add(-23 * time.Hour)
	h.sessions.sessions[uuid.New()] = domain.Session{
		ID: uuid.New(), LearnerID: learnerID, StartTime: testNow.Add(-24 * time.Hour), EndTime: &end,
		Duration: 60, Activities: []domain.Activity{}, Metrics: domain.SessionMetrics{Score: 80, ItemsStudied: 4},
	}

	h.expectTx()
	metrics, err := h.svc.GetMetrics(context.Background(), learnerID)
	require.NoError(t, err)
	assert.Equal(t, 3, metrics.TotalItems)
	assert.Equal(t, 1, metrics.MasteredItems)
	assert.Equal(t, 33, metrics.OverallMastery)
	assert.Equal(t, 50, metrics.CategoryMastery["greetings"])
	assert.Equal(t, 0, metrics.CategoryMastery["home"])
	assert.Equal(t, domain.DifficultyEasy, metrics.CurrentDifficulty)

	report, err := h.svc.GetReport(context.Background(), learnerID)
	require.NoError(t, err)
	assert.Equal(t, 33, report.MasteryDistribution.Mastered)
	assert.Equal(t, 67, report.MasteryDistribution.Introduced)
	assert.Equal(t, 1, report.Streak.CurrentStreak)
	assert.Equal(t, 60, report.TotalLearningTime)
	assert.Equal(t, map[string]int{"greetings": 2, "home": 1}, report.ItemsPerCategory)
	require.Len(t, report.RecentPerformance, 1)
	assert.Equal(t, 80, report.RecentPerformance[0].Score)
}

func TestGetReviewQueue(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	learnerID := uuid.New()
	stale := testNow.AddDate(0, 0, -10)
	recent := testNow.Add(-2 * time.Hour)
	future := testNow.AddDate(0, 0, 30)
	h.progress.snapshots[learnerID] = &domain.UserProgressSnapshot{
		LearnerID: learnerID,
		Items: []domain.LearnableItem{
			{ID: "namaste", EaseFactor: 2.6, RepetitionNumber: 8, Interval: 30, NextReviewDate: &future,
				Mastered: true, MasteryLevel: domain.MasteryMastered, PracticeCount: 10, CorrectCount: 10, LastPracticed: &stale},
			{ID: "dhanyabad", EaseFactor: 2.5, RepetitionNumber: 1, Interval: 1, NextReviewDate: &future,
				MasteryLevel: domain.MasteryIntroduced, PracticeCount: 1, CorrectCount: 1, LastPracticed: &recent},
			{ID: "ghar", EaseFactor: 2.5, RepetitionNumber: 2, Interval: 3, NextReviewDate: &future,
				MasteryLevel: domain.MasteryPracticing, PracticeCount: 4, CorrectCount: 3, LastPracticed: &stale},
		},
	}

	h.expectTx()
	items, err := h.svc.GetReviewQueue(context.Background(), learnerID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "ghar", items[0].ID)
	assert.Equal(t, "home", items[0].Category)

	t.Run("store failure is wrapped", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.content.err = errors.New("connection refused")
		h.mock.ExpectBegin()
		h.mock.ExpectRollback()

		_, err := h.svc.GetReviewQueue(context.Background(), uuid.New())
		var serviceErr *LearningServiceError
		require.ErrorAs(t, err, &serviceErr)
		assert.Equal(t, "get_review_queue", serviceErr.Operation)
	})
}

func TestGetSessionStats(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	learnerID := uuid.New()

	stats, err := h.svc.GetSessionStats(context.Background(), learnerID)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalSessions)

	day1 := testNow.AddDate(0, 0, -1)
	for i, start := range []time.Time{day1, day1.Add(3 * time.Hour), testNow} {
		end := start.Add(time.Duration(10*(i+1)) * time.Minute)
		id := uuid.New()
		h.sessions.sessions[id] = domain.Session{
			ID: id, LearnerID: learnerID, StartTime: start, EndTime: &end,
			Duration: 10 * (i + 1), Activities: []domain.Activity{},
		}
	}
	other := uuid.New()
	h.sessions.sessions[other] = domain.Session{ID: other, LearnerID: uuid.New(), StartTime: testNow, Activities: []domain.Activity{}}

	stats, err = h.svc.GetSessionStats(context.Background(), learnerID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalSessions)
	assert.InDelta(t, 20, stats.AverageSessionDuration, 1e-9)
	assert.InDelta(t, 1.5, stats.SessionsPerDay, 1e-9)
}

func TestMergePool(t *testing.T) {
	t.Parallel()

	next := testNow.AddDate(0, 0, 1)
	pool := mergePool(catalog(), []domain.LearnableItem{
		{ID: "ghar", Category: "stale", Difficulty: domain.DifficultyHard, EaseFactor: 2.4, NextReviewDate: &next},
		{ID: "retired", Category: "old", Difficulty: domain.DifficultyEasy, EaseFactor: 2.5},
	})

	require.Len(t, pool, 3)
	assert.Equal(t, "ghar", pool[2].ID)
	assert.Equal(t, "home", pool[2].Category)
	assert.Equal(t, domain.DifficultyMedium, pool[2].Difficulty)
	assert.InDelta(t, 2.4, pool[2].EaseFactor, 1e-9)
	for _, item := range pool {
		assert.NotEqual(t, "retired", item.ID)
	}
}

func TestLatestStates(t *testing.T) {
	t.Parallel()

	items := latestStates([]domain.LearnableItem{
		{ID: "a", PracticeCount: 1},
		{ID: "b", PracticeCount: 1},
		{ID: "a", PracticeCount: 2},
	})
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, 2, items[0].PracticeCount)
	assert.Equal(t, "b", items[1].ID)
}

func TestNewLearningServiceError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, NewLearningServiceError("op", "msg", nil))
	assert.Same(t, domain.ErrInvalidPathLength, NewLearningServiceError("op", "msg", domain.ErrInvalidPathLength))
	assert.Equal(t, domain.ErrSessionNotFound, NewLearningServiceError("op", "msg", store.ErrSessionNotFound))
	assert.Equal(t, domain.ErrItemNotFound, NewLearningServiceError("op", "msg", store.ErrItemNotFound))

	err := NewLearningServiceError("get_report", "failed", errors.New("boom"))
	assert.Equal(t, "learning service get_report failed: failed: boom", err.Error())
}
