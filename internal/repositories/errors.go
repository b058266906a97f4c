package repositories

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates the attempted write would violate a uniqueness
	// constraint.
	ErrConflict = errors.New("record conflict")
	// ErrInvalid indicates the attempted write violates a table check
	// constraint, e.g. subscribing to one's own channel.
	ErrInvalid = errors.New("record invalid")
)

// mapPgError translates PostgreSQL constraint violations into the package
// sentinel errors. Unrecognized errors are returned unchanged.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505": // unique_violation
		return ErrConflict
	case "23503": // foreign_key_violation
		return ErrNotFound
	case "23514": // check_violation
		return ErrInvalid
	}
	return err
}
