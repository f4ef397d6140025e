// Package apperr defines the error taxonomy shared by every layer. Lower
// layers wrap one of these sentinels with fmt.Errorf("...: %w", ...) and the
// HTTP boundary maps it to a status code with errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation marks missing or malformed input.
	ErrValidation = errors.New("validation error")
	// ErrUnauthenticated marks a missing, invalid or expired session.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden marks a valid session that lacks the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound marks an unknown username or customer id.
	ErrNotFound = errors.New("not found")
	// ErrUpstreamUnavailable marks a chat backend that could not be reached,
	// timed out or answered with a non-200 status.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrStorage marks a record store that could not be read or written.
	ErrStorage = errors.New("storage error")
)

// Error is a classified error whose message is safe to show to clients.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

// New returns an error of class kind carrying a client-facing message.
func New(kind error, msg string) error { return &Error{Kind: kind, Msg: msg} }

// Newf is New with fmt.Sprintf formatting.
func Newf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Status maps err to the HTTP status code for its taxonomy class.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Public returns the message that may be shown to a client. Storage and
// unclassified errors never leak their detail.
func Public(err error) string {
	switch Status(err) {
	case http.StatusInternalServerError:
		return "internal server error"
	case http.StatusServiceUnavailable:
		return "chat service is unavailable, please try again later"
	default:
		return err.Error()
	}
}
