package mastery

import (
	"time"

	"github.com/nepalijets/nepalijets-api/internal/domain"
)

// Streak summarizes consecutive days of activity.
type Streak struct {
	CurrentStreak  int        `json:"currentStreak"`
	LongestStreak  int        `json:"longestStreak"`
	LastActiveDate *time.Time `json:"lastActiveDate"`
}

// CalculateStreak counts consecutive calendar days with at least one session.
//
// The streak is 0 when the most recent session is before yesterday.
// Otherwise days are counted backward from today, or from yesterday when
// there is no session today, stopping at the first day without one.
// LongestStreak always equals CurrentStreak.
func (t *Tracker) CalculateStreak(sessions []domain.Session, now time.Time) Streak {
	if len(sessions) == 0 {
		return Streak{}
	}

	active := make(map[int64]struct{}, len(sessions))
	var last time.Time
	for i, s := range sessions {
		day := t.day(s.StartTime)
		active[day.Unix()] = struct{}{}
		if i == 0 || day.After(last) {
			last = day
		}
	}

	lastActive := last
	today := t.day(now)
	yesterday := today.AddDate(0, 0, -1)

	if last.Before(yesterday) {
		return Streak{LastActiveDate: &lastActive}
	}

	cursor := yesterday
	if last.Equal(today) {
		cursor = today
	}

	current := 0
	for {
		if _, ok := active[cursor.Unix()]; !ok {
			break
		}
		current++
		cursor = cursor.AddDate(0, 0, -1)
	}

	return Streak{
		CurrentStreak:  current,
		LongestStreak:  current,
		LastActiveDate: &lastActive,
	}
}

// day truncates ts to midnight of its calendar day in the tracker's location.
func (t *Tracker) day(ts time.Time) time.Time {
	y, m, d := ts.In(t.location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.location)
}

// sameDay reports whether a and b fall on the same calendar day.
func (t *Tracker) sameDay(a, b time.Time) bool {
	return t.day(a).Equal(t.day(b))
}
