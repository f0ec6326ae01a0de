package auth

import (
	"errors"
	"fmt"
)

// Kind classifies a failed pipeline call.
type Kind string

const (
	KindNetwork           Kind = "network"            // no response was received
	KindHTTP              Kind = "http"               // non-2xx response that is not an expiry signal
	KindExpiredSession    Kind = "expired_session"    // expiry signalled again after a refresh
	KindNoRefreshToken    Kind = "no_refresh_token"   // refresh required but no refresh credential stored
	KindRefreshRejected   Kind = "refresh_rejected"   // refresh endpoint answered with a failure
	KindMalformedResponse Kind = "malformed_response" // 2xx body did not have the expected shape
	KindStore             Kind = "store"              // credential store read or write failed
)

// Sentinels for errors.Is matching on Kind only.
var (
	ErrNetwork           = &Error{Kind: KindNetwork}
	ErrHTTP              = &Error{Kind: KindHTTP}
	ErrSessionExpired    = &Error{Kind: KindExpiredSession}
	ErrNoRefreshToken    = &Error{Kind: KindNoRefreshToken}
	ErrRefreshRejected   = &Error{Kind: KindRefreshRejected}
	ErrMalformedResponse = &Error{Kind: KindMalformedResponse}
	ErrStore             = &Error{Kind: KindStore}
)

// Error is the failure outcome of Pipeline.Execute.
type Error struct {
	Kind   Kind
	Status int    // HTTP status, zero when no response was involved
	Detail string // server supplied message, if any
	Err    error  // underlying cause, if any

	// SignedOut is set when the pipeline cleared the session before returning.
	SignedOut bool
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindNetwork:
		msg = "network error"
	case KindHTTP:
		msg = fmt.Sprintf("HTTP %d", e.Status)
	case KindExpiredSession:
		msg = "refresh token expired or invalid"
	case KindNoRefreshToken:
		msg = "no refresh token available"
	case KindRefreshRejected:
		msg = "could not refresh token"
	case KindMalformedResponse:
		msg = "malformed response"
	case KindStore:
		msg = "credential store error"
	default:
		msg = string(e.Kind)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind, and by Status when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Status == 0 || t.Status == e.Status
}

// KindOf returns the Kind of a pipeline error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// SignedOut reports whether err carries a forced sign-out.
func SignedOut(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.SignedOut
}

// StatusOf returns the HTTP status attached to err, or zero.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}
