package service

import (
	"errors"
	"fmt"

	"github.com/nepalijets/nepalijets-api/internal/domain"
	"github.com/nepalijets/nepalijets-api/internal/store"
)

// LearningServiceError wraps unexpected errors from the learning service with context.
type LearningServiceError struct {
	// Operation is the operation that failed (e.g., "submit_results", "end_session")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for LearningServiceError.
func (e *LearningServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("learning service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("learning service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *LearningServiceError) Unwrap() error {
	return e.Err
}

// NewLearningServiceError creates a new LearningServiceError.
// Domain errors are returned unchanged and store not-found errors are
// translated to their domain counterparts.
func NewLearningServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	if domain.IsInvalidArgument(err) || domain.IsNotFound(err) {
		return err
	}

	if errors.Is(err, store.ErrSessionNotFound) {
		return domain.ErrSessionNotFound
	}
	if errors.Is(err, store.ErrItemNotFound) {
		return domain.ErrItemNotFound
	}

	return &LearningServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
