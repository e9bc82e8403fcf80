package booking

import "errors"

var (
	// ErrSessionNotFound is returned for unknown or expired sessions.
	ErrSessionNotFound = errors.New("booking: session not found")
	// ErrSubmitInFlight is returned when a confirmation for the session is
	// already running.
	ErrSubmitInFlight = errors.New("booking: submission already in flight")
	// ErrAlreadySubmitted is returned when confirm is called on a completed
	// session.
	ErrAlreadySubmitted = errors.New("booking: session already submitted")

	errSubmitInterrupted = errors.New("booking: previous submission was interrupted")
)
