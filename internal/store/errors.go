package store

import (
	"errors"
	"fmt"
)

// Category errors. Store implementations wrap one of these so callers can
// classify failures without knowing the backend.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrDuplicate     = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed wraps failures to begin or commit a transaction.
	ErrTransactionFailed = errors.New("transaction failed")
)

// Specific errors for the learning tables.
var (
	ErrProgressNotFound = fmt.Errorf("%w: learner progress", ErrNotFound)
	ErrProgressExists   = fmt.Errorf("%w: learner progress", ErrDuplicate)
	ErrSessionNotFound  = fmt.Errorf("%w: session", ErrNotFound)
	ErrItemNotFound     = fmt.Errorf("%w: item", ErrNotFound)
)

// IsNotFoundError reports whether err is any kind of not-found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError reports whether err is any kind of duplicate error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
