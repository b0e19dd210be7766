// Package common defines shared constants and sentinel errors used across
// the server, transports and client. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors. Transports map these to error kinds.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorBadRequest   = errors.New("bad request")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// ErrorKind is the transport-neutral classification of a failed operation.
type ErrorKind string

const (
	KindUnauthorized ErrorKind = "UNAUTHORIZED"
	KindBadRequest   ErrorKind = "BAD_REQUEST"
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindInternal     ErrorKind = "INTERNAL"
)

// KindOf classifies err. Unknown errors are internal.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrorUnauthorized),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrRefreshTokenExpired):
		return KindUnauthorized
	case errors.Is(err, ErrorBadRequest), errors.Is(err, ErrorAlreadyExists):
		return KindBadRequest
	case errors.Is(err, ErrorNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}
