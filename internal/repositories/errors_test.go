package repositories

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/videocave/backend/internal/apperr"
)

func TestClassify(t *testing.T) {
	driverErr := errors.New("connection reset")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: pgx.ErrNoRows, want: apperr.ErrNotFound},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, want: apperr.ErrConflict},
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}, want: apperr.ErrConflict},
		{name: "foreign key", err: &pgconn.PgError{Code: "23503"}, want: apperr.ErrNotFound},
		{name: "malformed id", err: &pgconn.PgError{Code: "22P02"}, want: apperr.ErrNotFound},
		{name: "unrecognised", err: driverErr, want: driverErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err, "op")
			if !errors.Is(got, tt.want) {
				t.Fatalf("classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
