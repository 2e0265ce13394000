package manager

import "errors"

// tooBusyError signals that the session limit is reached, for 429 mapping.
type tooBusyError struct{ limit int }

func (e tooBusyError) Error() string { return "too busy: session limit reached" }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var e tooBusyError
	return errors.As(err, &e)
}

type sessionNotFoundError struct{ id string }

func (e sessionNotFoundError) Error() string { return "session not found: " + e.id }

// ErrSessionNotFound returns an error for an unknown instance id.
func ErrSessionNotFound(id string) error { return sessionNotFoundError{id: id} }

// IsSessionNotFound reports whether the error indicates a missing session.
func IsSessionNotFound(err error) bool {
	var e sessionNotFoundError
	return errors.As(err, &e)
}

// ErrShuttingDown is returned by Open once Shutdown has started.
var ErrShuttingDown = errors.New("manager is shutting down")
