package clierr

import (
	"errors"
	"fmt"

	"github.com/habedi/paydash/auth"
)

// Type categorizes a CLI-facing error for consistent messaging & exit codes.
type Type string

const (
	Validation Type = "validation"
	Network    Type = "network"
	HTTP       Type = "http"
	Session    Type = "session"
	Internal   Type = "internal"
)

// SessionEndedMessage is shown whenever a command ends with a forced sign-out.
const SessionEndedMessage = "Your session has ended. Please sign in again."

// Error is a structured user-facing error.
type Error struct {
	Type    Type
	Message string
	Err     error // optional underlying error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

// New constructs a new CLI Error.
func New(t Type, msg string, err error) *Error { return &Error{Type: t, Message: msg, Err: err} }

// ExitCode maps the error type to the process exit status.
func (e *Error) ExitCode() int {
	switch e.Type {
	case Validation:
		return 2
	case Network:
		return 3
	case HTTP:
		return 4
	case Session:
		return 5
	default:
		return 1
	}
}

// FromError turns any command error into a CLI Error. Errors that already are
// CLI errors are returned unchanged.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	var pe *auth.Error
	if !errors.As(err, &pe) {
		return New(Internal, err.Error(), err)
	}
	if pe.SignedOut {
		return New(Session, SessionEndedMessage, err)
	}
	switch pe.Kind {
	case auth.KindNetwork:
		return New(Network, fmt.Sprintf("Could not reach the server: %v", pe.Err), err)
	case auth.KindHTTP:
		msg := pe.Detail
		if msg == "" {
			msg = fmt.Sprintf("HTTP error! status: %d", pe.Status)
		}
		return New(HTTP, msg, err)
	case auth.KindMalformedResponse:
		return New(HTTP, "The server returned an unexpected response", err)
	default:
		return New(Internal, err.Error(), err)
	}
}

// ExitCode returns the exit status for err, 0 for nil.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return FromError(err).ExitCode()
}
