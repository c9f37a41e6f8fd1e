package domain

import (
	"time"

	"github.com/google/uuid"
)

// Activity is a single attempt recorded within a session.
type Activity struct {
	ItemID      string    `json:"itemId"`
	Performance int       `json:"performance"`
	At          time.Time `json:"at"`
}

// SessionMetrics are the running aggregates of a session.
type SessionMetrics struct {
	Score            int `json:"score"` // percentage of attempts rated 4 or 5
	ItemsStudied     int `json:"itemsStudied"`
	ReviewsCompleted int `json:"reviewsCompleted"`
}

// Session is one practice session of a learner.
type Session struct {
	ID         uuid.UUID      `json:"sessionId"`
	LearnerID  uuid.UUID      `json:"learnerId"`
	StartTime  time.Time      `json:"startTime"`
	EndTime    *time.Time     `json:"endTime"`
	Duration   int            `json:"duration"` // minutes, derived when the session ends
	Activities []Activity     `json:"activities"`
	Metrics    SessionMetrics `json:"metrics"`
}

// NewSession creates an open session for a learner starting at now.
func NewSession(learnerID uuid.UUID, now time.Time) *Session {
	return &Session{
		ID:         uuid.New(),
		LearnerID:  learnerID,
		StartTime:  now,
		Activities: []Activity{},
	}
}

// IsOpen reports whether the session has not ended yet.
func (s Session) IsOpen() bool {
	return s.EndTime == nil
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	c := s
	if s.EndTime != nil {
		t := *s.EndTime
		c.EndTime = &t
	}
	if s.Activities != nil {
		c.Activities = make([]Activity, len(s.Activities))
		copy(c.Activities, s.Activities)
	}
	return c
}
