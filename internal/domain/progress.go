package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserProgressSnapshot aggregates all item states of one learner together
// with streak bookkeeping.
type UserProgressSnapshot struct {
	LearnerID         uuid.UUID       `json:"learnerId"`
	Items             []LearnableItem `json:"items"`
	LearningStreak    int             `json:"learningStreak"`
	LastSessionDate   *time.Time      `json:"lastSessionDate"`
	TotalLearningTime int             `json:"totalLearningTime"` // minutes
}
