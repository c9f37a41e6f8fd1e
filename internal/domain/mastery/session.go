package mastery

import (
	"math"
	"time"

	"github.com/nepalijets/nepalijets-api/internal/domain"
)

// StartSession opens a new session for the snapshot's learner and updates
// the streak bookkeeping: a previous session yesterday extends the streak,
// one earlier today leaves it as is, anything else starts it over at 1.
func (t *Tracker) StartSession(
	snapshot domain.UserProgressSnapshot,
	now time.Time,
) (domain.UserProgressSnapshot, *domain.Session) {
	next := snapshot
	yesterday := t.day(now).AddDate(0, 0, -1)

	switch {
	case snapshot.LastSessionDate == nil:
		next.LearningStreak = 1
	case t.day(*snapshot.LastSessionDate).Equal(yesterday):
		next.LearningStreak = snapshot.LearningStreak + 1
	case t.sameDay(*snapshot.LastSessionDate, now):
		if next.LearningStreak < 1 {
			next.LearningStreak = 1
		}
	default:
		next.LearningStreak = 1
	}

	started := now
	next.LastSessionDate = &started

	return next, domain.NewSession(snapshot.LearnerID, now)
}

// EndSession closes session at now, derives its duration in whole minutes
// and adds it to the snapshot's total learning time.
func (t *Tracker) EndSession(
	snapshot domain.UserProgressSnapshot,
	session domain.Session,
	now time.Time,
) (domain.UserProgressSnapshot, domain.Session, error) {
	if !session.IsOpen() {
		return snapshot, session, domain.ErrSessionClosed
	}

	closed := session.Clone()
	ended := now
	closed.EndTime = &ended

	minutes := int(math.Round(now.Sub(session.StartTime).Minutes()))
	closed.Duration = max(minutes, 0)

	next := snapshot
	next.TotalLearningTime += closed.Duration

	return next, closed, nil
}

// RecordActivity appends an attempt to an open session and refreshes its metrics.
func (t *Tracker) RecordActivity(
	session domain.Session,
	itemID string,
	performance int,
	now time.Time,
) (domain.Session, error) {
	if !session.IsOpen() {
		return session, domain.ErrSessionClosed
	}
	if itemID == "" {
		return session, domain.ErrMissingItemID
	}
	if err := domain.ValidatePerformance(performance); err != nil {
		return session, err
	}

	next := session.Clone()
	next.Activities = append(next.Activities, domain.Activity{
		ItemID:      itemID,
		Performance: performance,
		At:          now,
	})
	next.Metrics = sessionMetrics(next.Activities)

	return next, nil
}

func sessionMetrics(activities []domain.Activity) domain.SessionMetrics {
	studied := make(map[string]struct{}, len(activities))
	correct := 0
	for _, a := range activities {
		studied[a.ItemID] = struct{}{}
		if a.Performance >= CorrectPerformance {
			correct++
		}
	}

	score := 0
	if len(activities) > 0 {
		score = int(math.Round(float64(correct) / float64(len(activities)) * 100))
	}

	return domain.SessionMetrics{
		Score:            score,
		ItemsStudied:     len(studied),
		ReviewsCompleted: len(activities),
	}
}

// SessionStats summarizes a learner's session history.
type SessionStats struct {
	TotalSessions          int     `json:"totalSessions"`
	AverageSessionDuration float64 `json:"averageSessionDuration"` // minutes
	SessionsPerDay         float64 `json:"sessionsPerDay"`
}

// SessionStatistics returns the session count, the average duration of
// sessions that recorded one, and the average number of sessions per day
// with any activity.
func (t *Tracker) SessionStatistics(sessions []domain.Session) SessionStats {
	stats := SessionStats{TotalSessions: len(sessions)}
	if len(sessions) == 0 {
		return stats
	}

	total, timed := 0, 0
	days := make(map[int64]struct{})
	for _, s := range sessions {
		if s.Duration > 0 {
			total += s.Duration
			timed++
		}
		days[t.day(s.StartTime).Unix()] = struct{}{}
	}

	if timed > 0 {
		stats.AverageSessionDuration = float64(total) / float64(timed)
	}
	stats.SessionsPerDay = float64(len(sessions)) / float64(len(days))

	return stats
}
