package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapExposesKindAndCause(t *testing.T) {
	cause := errors.New("smtp: connection refused")
	err := Wrap(ErrDispatch, "failed to send verification email", cause)

	if !errors.Is(err, ErrDispatch) {
		t.Fatalf("expected ErrDispatch kind, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable, got %v", err)
	}
	if got := Message(err); got != "failed to send verification email" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", New(ErrInvalidArgument, "bad"), http.StatusBadRequest},
		{"expired", New(ErrTokenExpired, "expired"), http.StatusUnauthorized},
		{"token invalid", New(ErrTokenInvalid, "bad token"), http.StatusUnauthorized},
		{"forbidden", New(ErrForbidden, "nope"), http.StatusForbidden},
		{"not found wrapped", fmt.Errorf("lookup: %w", ErrNotFound), http.StatusNotFound},
		{"conflict", New(ErrConflict, "taken"), http.StatusConflict},
		{"rate limited", New(ErrRateLimited, "slow down"), http.StatusTooManyRequests},
		{"dispatch", New(ErrDispatch, "mail"), http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Fatalf("expected %d got %d", tt.want, got)
			}
		})
	}
}

func TestMessageHidesUnclassifiedErrors(t *testing.T) {
	if got := Message(errors.New("pq: relation users does not exist")); got != "internal server error" {
		t.Fatalf("expected generic message, got %q", got)
	}
	if got := Message(fmt.Errorf("find: %w", ErrNotFound)); got != "not found" {
		t.Fatalf("expected kind message, got %q", got)
	}
}
