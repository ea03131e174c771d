package repositories

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/videocave/backend/internal/apperr"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = fmt.Errorf("record %w", apperr.ErrNotFound)
	// ErrConflict indicates the attempted write would violate a uniqueness constraint
	// or the record is not in the state the write expects.
	ErrConflict = fmt.Errorf("record %w", apperr.ErrConflict)
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	invalidTextInput    = "22P02"
	serializationError  = "40001"
)

// classify maps driver errors to the repository sentinels. A malformed id can
// never match a row, so it is reported as ErrNotFound. A serializable
// transaction that lost to a concurrent writer is ErrConflict. Errors it does
// not recognise are wrapped with op.
func classify(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation, serializationError:
			return ErrConflict
		case foreignKeyViolation, invalidTextInput:
			return ErrNotFound
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
