// Package mastery turns attempt outcomes into a three-stage mastery label
// per item and aggregates item and session history into streaks and
// progress reports.
package mastery

import (
	"time"

	"github.com/nepalijets/nepalijets-api/internal/domain"
	"github.com/nepalijets/nepalijets-api/internal/domain/srs"
)

// Thresholds of the mastery labels.
const (
	MasteredMinPractice   = 10
	MasteredMinRate       = 80
	PracticingMinPractice = 3
	PracticingMinRate     = 60

	// CorrectPerformance is the lowest rating counted as a correct attempt.
	CorrectPerformance = 4
)

const (
	defaultRecentSessions = 10
	defaultReviewAfter    = 3 * 24 * time.Hour
)

// Tracker computes mastery labels and learner aggregates. Calendar-day
// calculations use the tracker's location.
type Tracker struct {
	location       *time.Location
	recentSessions int
	reviewAfter    time.Duration
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLocation sets the time zone that defines calendar days.
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) {
		if loc != nil {
			t.location = loc
		}
	}
}

// WithRecentSessions sets how many sessions a progress report summarizes.
func WithRecentSessions(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.recentSessions = n
		}
	}
}

// WithReviewAfter sets how long an unmastered item may go unpractised
// before ItemsNeedingReview reports it.
func WithReviewAfter(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.reviewAfter = d
		}
	}
}

// NewTracker creates a Tracker. Without options calendar days are UTC.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		location:       time.UTC,
		recentSessions: defaultRecentSessions,
		reviewAfter:    defaultReviewAfter,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Location returns the time zone used for calendar days.
func (t *Tracker) Location() *time.Location {
	return t.location
}

// UpdateMasteryLevel returns item with its practice counters and label
// updated for one attempt.
//
// A rating of 4 or 5 counts as correct. The label is mastered after at least
// 10 attempts with an 80% success rate, practicing after at least 3 attempts
// with 60%, introduced otherwise. Reaching mastered also sets the mastered
// flag, and an item that is already flagged mastered keeps the mastered label.
func (t *Tracker) UpdateMasteryLevel(item domain.LearnableItem, performance int, now time.Time) (domain.LearnableItem, error) {
	if item.ID == "" {
		return item, domain.ErrMissingItemID
	}
	if err := domain.ValidatePerformance(performance); err != nil {
		return item, err
	}

	next := item.Clone()
	next.PracticeCount++
	if performance >= CorrectPerformance {
		next.CorrectCount++
	}

	next.MasteryLevel = Label(next.PracticeCount, next.CorrectCount)
	if next.MasteryLevel == domain.MasteryMastered {
		next.Mastered = true
	}
	if next.Mastered {
		next.MasteryLevel = domain.MasteryMastered
	}

	practiced := now
	next.LastPracticed = &practiced
	p := performance
	next.LastPerformance = &p

	return next, nil
}

// Label returns the mastery label for the given counters.
func Label(practiceCount, correctCount int) domain.MasteryLevel {
	if practiceCount <= 0 {
		return domain.MasteryIntroduced
	}

	rate := float64(correctCount) / float64(practiceCount) * 100
	switch {
	case practiceCount >= MasteredMinPractice && rate >= MasteredMinRate:
		return domain.MasteryMastered
	case practiceCount >= PracticingMinPractice && rate >= PracticingMinRate:
		return domain.MasteryPracticing
	default:
		return domain.MasteryIntroduced
	}
}

// Distribution is the percentage of items at each mastery label. Each value
// is rounded on its own, so the sum may differ from 100.
type Distribution struct {
	Introduced int `json:"introduced"`
	Practicing int `json:"practicing"`
	Mastered   int `json:"mastered"`
}

// MasteryDistribution returns the share of items per label. Items without a
// label count as introduced. Empty input yields all zeros.
func (t *Tracker) MasteryDistribution(items []domain.LearnableItem) Distribution {
	var introduced, practicing, mastered int
	for _, item := range items {
		switch item.EffectiveMasteryLevel() {
		case domain.MasteryMastered:
			mastered++
		case domain.MasteryPracticing:
			practicing++
		default:
			introduced++
		}
	}

	return Distribution{
		Introduced: srs.Percentage(introduced, len(items)),
		Practicing: srs.Percentage(practicing, len(items)),
		Mastered:   srs.Percentage(mastered, len(items)),
	}
}

// ItemsNeedingReview returns introduced or practicing items whose last
// practice is older than the review window. Items that were never
// practised are not included.
func (t *Tracker) ItemsNeedingReview(items []domain.LearnableItem, now time.Time) []domain.LearnableItem {
	cutoff := now.Add(-t.reviewAfter)

	out := make([]domain.LearnableItem, 0)
	for _, item := range items {
		if item.EffectiveMasteryLevel() == domain.MasteryMastered || item.Mastered {
			continue
		}
		if item.LastPracticed != nil && item.LastPracticed.Before(cutoff) {
			out = append(out, item)
		}
	}
	return out
}
