// Package apperror defines the application's error taxonomy.
//
// Every layer returns (or wraps) one of the sentinel errors below so that
// callers can branch with errors.Is without knowing which layer failed.
// KindOf folds the sentinels into the three user-facing categories the
// editor reacts to.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTransient    = errors.New("transient failure")
	ErrRateLimited  = errors.New("rate limited")
)

type AppError struct {
	Err     error  // sentinel
	Message string // human-readable
	Field   string // optional: offending field
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized means no valid identity accompanied the request.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Transient wraps a failure the caller may retry by hand, typically a
// network error or a 5xx from the server.
func Transient(message string, cause error) *AppError {
	return &AppError{
		Err:     errors.Join(ErrTransient, cause),
		Message: message,
	}
}

// RateLimited means the caller should retry later. HTTP handlers map it to
// 429; the editor treats it as transient.
func RateLimited(message string) *AppError {
	return &AppError{
		Err:     ErrRateLimited,
		Message: message,
	}
}

// Kind is the user-facing error category.
type Kind int

const (
	KindNone Kind = iota
	KindNotFoundOrUnauthorized
	KindNetworkOrTransient
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotFoundOrUnauthorized:
		return "not_found_or_unauthorized"
	case KindNetworkOrTransient:
		return "network_or_transient"
	case KindValidation:
		return "validation"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// KindOf classifies err. Anything that is not a known not-found,
// authorization, or validation failure counts as transient.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden), errors.Is(err, ErrUnauthorized):
		return KindNotFoundOrUnauthorized
	case errors.Is(err, ErrValidation):
		return KindValidation
	default:
		return KindNetworkOrTransient
	}
}
