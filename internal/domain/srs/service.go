package srs

import (
	"fmt"
	"math"
	"time"

	"github.com/nepalijets/nepalijets-api/internal/domain"
)

// Scheduler decides when each item is next due for review.
type Scheduler interface {
	// ScheduleNextReview returns item updated for a performance rating in [0,5].
	ScheduleNextReview(item domain.LearnableItem, performance int, now time.Time) (domain.LearnableItem, error)

	// DueItems returns the items with no review date or one at or before now, in input order.
	DueItems(items []domain.LearnableItem, now time.Time) []domain.LearnableItem

	// MasteryPercentage returns the rounded share of mastered items, 0 for an empty list.
	MasteryPercentage(items []domain.LearnableItem) int
}

// defaultScheduler is the standard implementation of the Scheduler interface
type defaultScheduler struct {
	params *Params
}

// NewDefaultScheduler creates a new scheduler with default parameters
func NewDefaultScheduler() Scheduler {
	return &defaultScheduler{
		params: NewDefaultParams(),
	}
}

// NewSchedulerWithParams creates a new scheduler with custom parameters
func NewSchedulerWithParams(params *Params) Scheduler {
	if params == nil {
		params = NewDefaultParams()
	}
	return &defaultScheduler{
		params: params,
	}
}

// ScheduleNextReview implements the Scheduler interface
func (s *defaultScheduler) ScheduleNextReview(
	item domain.LearnableItem,
	performance int,
	now time.Time,
) (domain.LearnableItem, error) {
	if item.ID == "" {
		return item, domain.ErrMissingItemID
	}

	if err := domain.ValidatePerformance(performance); err != nil {
		return item, fmt.Errorf("item %s: %w", item.ID, err)
	}

	return calculateNextItem(item, performance, now, s.params), nil
}

// DueItems implements the Scheduler interface
func (s *defaultScheduler) DueItems(items []domain.LearnableItem, now time.Time) []domain.LearnableItem {
	due := make([]domain.LearnableItem, 0, len(items))
	for _, item := range items {
		if item.IsDue(now) {
			due = append(due, item)
		}
	}
	return due
}

// MasteryPercentage implements the Scheduler interface
func (s *defaultScheduler) MasteryPercentage(items []domain.LearnableItem) int {
	return MasteryPercentage(items)
}

// MasteryPercentage returns round(mastered/total*100), or 0 for no items.
func MasteryPercentage(items []domain.LearnableItem) int {
	if len(items) == 0 {
		return 0
	}

	mastered := 0
	for _, item := range items {
		if item.Mastered {
			mastered++
		}
	}

	return Percentage(mastered, len(items))
}

// Percentage returns round(part/total*100), or 0 when total is 0.
func Percentage(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
