// Package domain defines the core learning entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by the scheduling packages wraps
// exactly one of these, so callers can classify with errors.Is.
var (
	// ErrInvalidArgument is returned when an input is outside its allowed range
	// or a record is malformed.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when a referenced item or session does not exist.
	ErrNotFound = errors.New("not found")
)

// Specific errors.
var (
	// ErrInvalidPerformance is returned when a performance rating is outside [0,5].
	ErrInvalidPerformance = fmt.Errorf("%w: performance must be between %d and %d",
		ErrInvalidArgument, MinPerformance, MaxPerformance)

	// ErrInvalidPathLength is returned when a requested path length is not positive.
	ErrInvalidPathLength = fmt.Errorf("%w: path length must be at least 1", ErrInvalidArgument)

	// ErrMissingItemID is returned for an item record without an id.
	ErrMissingItemID = fmt.Errorf("%w: item id cannot be empty", ErrInvalidArgument)

	// ErrInvalidDifficulty is returned when a difficulty is not one of the known tiers.
	ErrInvalidDifficulty = fmt.Errorf("%w: difficulty must be between %d and %d",
		ErrInvalidArgument, DifficultyEasy, DifficultyHard)

	// ErrInvalidEaseFactor is returned when an initialized ease factor is below the floor.
	ErrInvalidEaseFactor = fmt.Errorf("%w: ease factor below minimum", ErrInvalidArgument)

	// ErrInvalidCounts is returned when correctCount exceeds practiceCount.
	ErrInvalidCounts = fmt.Errorf("%w: correct count exceeds practice count", ErrInvalidArgument)

	// ErrInvalidMasteryLevel is returned for an unknown mastery label.
	ErrInvalidMasteryLevel = fmt.Errorf("%w: unknown mastery level", ErrInvalidArgument)

	// ErrSessionClosed is returned when recording into or closing a session
	// that already has an end time.
	ErrSessionClosed = fmt.Errorf("%w: session already ended", ErrInvalidArgument)

	// ErrItemNotFound is returned when an item id is absent from the pool.
	ErrItemNotFound = fmt.Errorf("%w: item", ErrNotFound)

	// ErrSessionNotFound is returned when a session id does not exist.
	ErrSessionNotFound = fmt.Errorf("%w: session", ErrNotFound)
)

// IsInvalidArgument reports whether err belongs to the invalid argument category.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsNotFound reports whether err belongs to the not found category.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
