package domain

import (
	"strings"
	"time"
)

// MasteryLevel is the three-stage mastery label of an item.
type MasteryLevel string

// Possible mastery labels, in order of progression.
const (
	MasteryIntroduced MasteryLevel = "introduced"
	MasteryPracticing MasteryLevel = "practicing"
	MasteryMastered   MasteryLevel = "mastered"
)

// Valid reports whether l is a known label.
func (l MasteryLevel) Valid() bool {
	switch l {
	case MasteryIntroduced, MasteryPracticing, MasteryMastered:
		return true
	default:
		return false
	}
}

// DefaultEaseFactor is the ease factor given to an item on its first review.
const DefaultEaseFactor = 2.5

// MinimumEaseFactor is the floor below which the ease factor never drops.
const MinimumEaseFactor = 1.3

// UncategorizedCategory is used in aggregates for items without a category.
const UncategorizedCategory = "uncategorized"

// LearnableItem is one vocabulary word, phrase, or grammar point eligible
// for scheduling. The catalog supplies ID, Category and Difficulty; every
// other field is owned by the scheduling packages.
//
// An item whose EaseFactor is zero has never been scheduled. Nullable
// fields are pointers and are encoded as JSON null when unset.
type LearnableItem struct {
	ID         string     `json:"id"`
	Category   string     `json:"category"`
	Difficulty Difficulty `json:"difficulty"`

	RepetitionNumber int        `json:"repetitionNumber"`
	EaseFactor       float64    `json:"easeFactor"`
	Interval         int        `json:"interval"` // days
	NextReviewDate   *time.Time `json:"nextReviewDate"`
	Mastered         bool       `json:"mastered"`

	MasteryLevel    MasteryLevel `json:"masteryLevel,omitempty"`
	PracticeCount   int          `json:"practiceCount"`
	CorrectCount    int          `json:"correctCount"`
	LastPracticed   *time.Time   `json:"lastPracticed"`
	LastPerformance *int         `json:"lastPerformance"`
}

// NewLearnableItem creates a catalog item with no scheduling state.
func NewLearnableItem(id, category string, difficulty Difficulty) (*LearnableItem, error) {
	item := &LearnableItem{
		ID:         id,
		Category:   category,
		Difficulty: difficulty,
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}

	return item, nil
}

// Validate checks the structural invariants of an item.
func (i LearnableItem) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return ErrMissingItemID
	}

	if !i.Difficulty.Valid() {
		return ErrInvalidDifficulty
	}

	if i.SchedulingInitialized() && i.EaseFactor < MinimumEaseFactor {
		return ErrInvalidEaseFactor
	}

	if i.PracticeCount < 0 || i.CorrectCount < 0 || i.CorrectCount > i.PracticeCount {
		return ErrInvalidCounts
	}

	if i.MasteryLevel != "" && !i.MasteryLevel.Valid() {
		return ErrInvalidMasteryLevel
	}

	if i.LastPerformance != nil {
		if err := ValidatePerformance(*i.LastPerformance); err != nil {
			return err
		}
	}

	return nil
}

// SchedulingInitialized reports whether the item has been through the scheduler.
func (i LearnableItem) SchedulingInitialized() bool {
	return i.EaseFactor != 0
}

// WithSchedulingDefaults returns a copy with missing scheduling fields set
// to their initial values.
func (i LearnableItem) WithSchedulingDefaults(defaultEase float64) LearnableItem {
	if !i.SchedulingInitialized() {
		i.RepetitionNumber = 0
		i.EaseFactor = defaultEase
		i.Interval = 0
	}
	return i
}

// WithMasteryDefaults returns a copy with a missing mastery label set to
// introduced.
func (i LearnableItem) WithMasteryDefaults() LearnableItem {
	if i.MasteryLevel == "" {
		i.MasteryLevel = MasteryIntroduced
	}
	return i
}

// IsDue reports whether the item should be reviewed at now. Items that
// were never scheduled are always due.
func (i LearnableItem) IsDue(now time.Time) bool {
	return i.NextReviewDate == nil || !i.NextReviewDate.After(now)
}

// EffectiveMasteryLevel returns the label, treating an unset label as introduced.
func (i LearnableItem) EffectiveMasteryLevel() MasteryLevel {
	if i.MasteryLevel == "" {
		return MasteryIntroduced
	}
	return i.MasteryLevel
}

// CategoryOrDefault returns the category, or UncategorizedCategory when empty.
func (i LearnableItem) CategoryOrDefault() string {
	if i.Category == "" {
		return UncategorizedCategory
	}
	return i.Category
}

// Clone returns a deep copy that shares no pointers with i.
func (i LearnableItem) Clone() LearnableItem {
	c := i
	if i.NextReviewDate != nil {
		t := *i.NextReviewDate
		c.NextReviewDate = &t
	}
	if i.LastPracticed != nil {
		t := *i.LastPracticed
		c.LastPracticed = &t
	}
	if i.LastPerformance != nil {
		p := *i.LastPerformance
		c.LastPerformance = &p
	}
	return c
}

// CloneItems deep-copies a slice of items.
func CloneItems(items []LearnableItem) []LearnableItem {
	if items == nil {
		return nil
	}
	out := make([]LearnableItem, len(items))
	for idx := range items {
		out[idx] = items[idx].Clone()
	}
	return out
}
