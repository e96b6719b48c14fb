// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Kind classifies an error for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidArgument
	KindUnauthenticated
	KindPermissionDenied
	KindNotFound
	KindAlreadyExists
	KindLimitExceeded
	KindStorage
)

// Error is the service-level error carried up to the HTTP boundary.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status code for the error kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindPermissionDenied, KindLimitExceeded:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindAlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Map converts repo/infra errors into service errors.
// Keeps service layer clean by centralizing error mapping.
func Map(err error) error {
	if err == nil {
		return nil
	}

	var svcErr *Error
	switch {
	case errors.As(err, &svcErr):
		return svcErr

	case errors.Is(err, gorm.ErrRecordNotFound):
		return &Error{Kind: KindNotFound, Message: err.Error(), Err: err}

	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindStorage, Message: "request timed out", Err: err}

	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindStorage, Message: "request was canceled", Err: err}

	default:
		return &Error{Kind: KindStorage, Message: "storage error", Err: err}
	}
}

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindInternal
}

// InvalidArgument creates a validation error (400).
// Use this in service layer for bad input validation.
func InvalidArgument(msg string) error {
	return &Error{Kind: KindInvalidArgument, Message: msg}
}

// Unauthenticated creates an auth error (401).
func Unauthenticated(msg string) error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

// PermissionDenied creates a 403 error.
func PermissionDenied(msg string) error {
	return &Error{Kind: KindPermissionDenied, Message: msg}
}

// NotFound creates a 404 error.
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// AlreadyExists creates a 409 error.
func AlreadyExists(msg string) error {
	return &Error{Kind: KindAlreadyExists, Message: msg}
}

// LimitExceeded creates the daily-cap error; responses carry limitExceeded=true.
func LimitExceeded(msg string) error {
	return &Error{Kind: KindLimitExceeded, Message: msg}
}

// Internal wraps an unexpected failure such as a misconfiguration.
func Internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}
