package chat

import "errors"

var (
	// ErrSessionNotFound is returned when no session exists for the id
	ErrSessionNotFound = errors.New("chat: session not found")

	// ErrSessionInactive is returned when the session has already ended
	ErrSessionInactive = errors.New("chat: session is no longer active")

	// ErrConfigMissing is returned when no company config record exists
	ErrConfigMissing = errors.New("chat: company config missing")

	// ErrStepNotFound marks a script-integrity failure: the session points
	// at a step id the flow graph does not contain.
	ErrStepNotFound = errors.New("chat: conversation step not found")
)
