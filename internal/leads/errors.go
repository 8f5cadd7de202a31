package leads

import "errors"

var (
	// ErrMissingName is returned when the lead has no name
	ErrMissingName = errors.New("leads: name is required")

	// ErrMissingPhone is returned when the lead has no phone
	ErrMissingPhone = errors.New("leads: phone is required")

	// ErrMissingOwner is returned when no system actor is available to own the lead
	ErrMissingOwner = errors.New("leads: owner is required")

	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("leads: lead not found")
)
