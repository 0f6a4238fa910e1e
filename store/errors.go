package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

type (
	UnknownRole struct {
		Name string
	}
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

var (
	ErrNotFound    = errors.New("store: record not found")
	ErrDuplicate   = errors.New("store: duplicate key")
	ErrUnavailable = errors.New("store: database unavailable")

	// ErrMissingReference is returned when a row points to a parent that
	// does not exist (eg.: a memo for an unknown user).
	ErrMissingReference = errors.New("store: referenced record does not exist")
)

func (u UnknownRole) Error() string {
	return fmt.Sprintf("role %v does not exist", u.Name)
}

// fail wraps err with a description of the operation. Deadlines and unique
// constraint violations are mapped to ErrUnavailable and ErrDuplicate,
// foreign key violations to ErrMissingReference.
func (s *Store) fail(ctx context.Context, err error, format string, args ...interface{}) error {
	op := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("unable to %v, cause %w: %v", op, ErrUnavailable, err)
	case isUniqueViolation(err):
		return fmt.Errorf("unable to %v, cause %w: %v", op, ErrDuplicate, err)
	case isForeignKeyViolation(err):
		return fmt.Errorf("unable to %v, cause %w: %v", op, ErrMissingReference, err)
	}
	return fmt.Errorf("unable to %v, cause %w", op, err)
}

func isUniqueViolation(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}
	return false
}
