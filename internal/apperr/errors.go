// Package apperr defines the error kinds shared by every core component.
//
// A kind is a sentinel; callers classify failures with errors.Is and the HTTP
// layer maps kinds to status codes. Messages attached through New and Wrap are
// safe to show to clients.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrTokenInvalid    = errors.New("token invalid")
	ErrTokenExpired    = errors.New("token expired")
	ErrDispatch        = errors.New("dispatch failed")
	ErrRateLimited     = errors.New("rate limited")
)

// Error couples a kind with a client-facing message and an optional cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// New returns an error of the given kind carrying msg.
func New(kind error, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap returns an error of the given kind carrying msg and cause.
func Wrap(kind error, msg string, cause error) error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

var kinds = []struct {
	kind   error
	status int
}{
	{ErrInvalidArgument, http.StatusBadRequest},
	{ErrTokenExpired, http.StatusUnauthorized},
	{ErrTokenInvalid, http.StatusUnauthorized},
	{ErrUnauthorized, http.StatusUnauthorized},
	{ErrForbidden, http.StatusForbidden},
	{ErrNotFound, http.StatusNotFound},
	{ErrConflict, http.StatusConflict},
	{ErrRateLimited, http.StatusTooManyRequests},
	{ErrDispatch, http.StatusBadGateway},
}

// HTTPStatus maps err to the status code of its kind. Unclassified errors are
// internal server errors.
func HTTPStatus(err error) int {
	for _, k := range kinds {
		if errors.Is(err, k.kind) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}

// Message returns the client-facing message of err. Unclassified errors get a
// generic message so internal details never leak.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	for _, k := range kinds {
		if errors.Is(err, k.kind) {
			return k.kind.Error()
		}
	}
	return "internal server error"
}
