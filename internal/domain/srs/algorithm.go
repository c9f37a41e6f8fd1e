package srs

import (
	"math"
	"time"

	"github.com/nepalijets/nepalijets-api/internal/domain"
)

// calculateNewEaseFactor determines the new ease factor after a successful recall.
//
// Parameters:
//   - currentEF: The current ease factor of the item
//   - performance: The rating of the attempt, 0 to 5
//   - params: Configuration parameters for the algorithm
//
// Returns:
//   - currentEF + (0.1 - (5-q) * (0.08 + (5-q)*0.02)), never below params.MinEaseFactor
//
// A rating of 5 raises the ease factor by 0.1, a 4 leaves it unchanged and
// a 3 lowers it by 0.14.
func calculateNewEaseFactor(currentEF float64, performance int, params *Params) float64 {
	q := float64(domain.MaxPerformance - performance)
	newEF := currentEF + (0.1 - q*(0.08+q*0.02))

	if newEF < params.MinEaseFactor {
		newEF = params.MinEaseFactor
	}

	return newEF
}

// calculateNewInterval determines the interval in days after a successful recall.
//
// The first success schedules params.FirstInterval days, the second
// params.SecondInterval days, and later ones multiply the previous interval
// by the (already updated) ease factor, rounded to the nearest day.
func calculateNewInterval(repetitionNumber, currentInterval int, easeFactor float64, params *Params) int {
	switch repetitionNumber {
	case 0:
		return params.FirstInterval
	case 1:
		return params.SecondInterval
	default:
		return int(math.Round(float64(currentInterval) * easeFactor))
	}
}

// calculateNextReviewDate converts an interval into the moment the item is due again.
func calculateNextReviewDate(interval int, now time.Time) time.Time {
	return now.AddDate(0, 0, interval)
}

// calculateNextItem returns a copy of item with its scheduling fields
// updated for the given rating. The input is never modified.
//
// Algorithm behavior:
//   - Missing scheduling fields are initialized first
//   - A failed recall resets the repetition count and schedules
//     params.FailureInterval days, leaving the ease factor alone
//   - A successful recall updates the ease factor, grows the interval and
//     increments the repetition count
//   - Reaching params.MasteryRepetitions marks the item mastered; the flag
//     is never cleared here
func calculateNextItem(
	item domain.LearnableItem,
	performance int,
	now time.Time,
	params *Params,
) domain.LearnableItem {
	next := item.Clone().WithSchedulingDefaults(params.DefaultEaseFactor)

	if performance < params.PassThreshold {
		next.RepetitionNumber = 0
		next.Interval = params.FailureInterval
	} else {
		next.EaseFactor = calculateNewEaseFactor(next.EaseFactor, performance, params)
		next.Interval = calculateNewInterval(next.RepetitionNumber, next.Interval, next.EaseFactor, params)
		next.RepetitionNumber++
	}

	reviewAt := calculateNextReviewDate(next.Interval, now)
	next.NextReviewDate = &reviewAt

	if next.RepetitionNumber >= params.MasteryRepetitions {
		next.Mastered = true
	}
	// mastered implies the mastered label
	if next.Mastered {
		next.MasteryLevel = domain.MasteryMastered
	}

	return next
}
