// Package apperr defines the error kinds shared by the attendance service and
// its HTTP boundary.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("conflict")
	ErrStorage      = errors.New("storage failure")
)

// ErrDuplicate is returned by ledgers when an insert hits the
// (student, session, date) unique constraint. It satisfies errors.Is(err, ErrConflict).
var ErrDuplicate = &duplicateError{}

type duplicateError struct{}

func (*duplicateError) Error() string        { return "conflict: attendance record already exists" }
func (*duplicateError) Is(target error) bool { return target == ErrConflict }

// Status maps an error to the HTTP status code it should be rendered with.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing text for err. Unclassified errors are
// never echoed back since they may carry driver details.
func Message(err error) string {
	switch Status(err) {
	case http.StatusInternalServerError:
		return "internal error"
	case http.StatusServiceUnavailable:
		return "storage unavailable"
	}
	return err.Error()
}
