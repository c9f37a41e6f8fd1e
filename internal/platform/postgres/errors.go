package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nepalijets/nepalijets-api/internal/store"
)

// PostgreSQL error codes
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	notNullViolationCode    = "23502"
)

// MapError classifies a driver error into a store category, keeping the
// original error in the message. Unknown errors are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	pgErr, ok := asPgError(err)
	if !ok {
		return err
	}

	switch pgErr.Code {
	case uniqueViolationCode:
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	case foreignKeyViolationCode:
		return invalidEntity("foreign key violation", pgErr.ConstraintName, err)
	case checkViolationCode:
		return invalidEntity("check constraint violation", pgErr.ConstraintName, err)
	case notNullViolationCode:
		return invalidEntity("not null violation", pgErr.ColumnName, err)
	default:
		return err
	}
}

func invalidEntity(kind, name string, err error) error {
	return fmt.Errorf("%w: %s (%s): %v", store.ErrInvalidEntity, kind, name, err)
}

func asPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	pgErr, ok := asPgError(err)
	return ok && pgErr.Code == uniqueViolationCode
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
// For learner_item_progress this means the item is not in the catalog.
func IsForeignKeyViolation(err error) bool {
	pgErr, ok := asPgError(err)
	return ok && pgErr.Code == foreignKeyViolationCode
}

// CheckRowsAffected returns notFound (or store.ErrNotFound when nil) if an
// UPDATE or DELETE touched no rows.
func CheckRowsAffected(result sql.Result, notFound error) error {
	if result == nil {
		return errors.New("nil result provided to CheckRowsAffected")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	if notFound == nil {
		return store.ErrNotFound
	}
	return notFound
}

// MapUniqueViolation replaces a unique violation with specific, leaving
// every other error untouched.
func MapUniqueViolation(err error, specific error) error {
	if !IsUniqueViolation(err) {
		return err
	}
	if specific == nil {
		specific = store.ErrDuplicate
	}
	return fmt.Errorf("%w: %v", specific, err)
}
