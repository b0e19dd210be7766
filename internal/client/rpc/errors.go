package rpc

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/multichat/internal/common"
)

// ErrUnexpectedResponse is returned when the server reply is not a valid
// batch response.
var ErrUnexpectedResponse = errors.New("unexpected response")

// Error is a procedure failure reported by the server.
type Error struct {
	Kind       common.ErrorKind
	Message    string
	Code       int
	HTTPStatus int
	Path       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Path, e.Message, e.Kind)
}

// Is matches the common sentinel of the error kind, so callers can use
// errors.Is(err, common.ErrorUnauthorized) and common.KindOf.
func (e *Error) Is(target error) bool {
	switch e.Kind {
	case common.KindUnauthorized:
		return target == common.ErrorUnauthorized
	case common.KindBadRequest:
		return target == common.ErrorBadRequest
	case common.KindNotFound:
		return target == common.ErrorNotFound
	case common.KindInternal:
		return target == common.ErrorInternal
	}
	return false
}
