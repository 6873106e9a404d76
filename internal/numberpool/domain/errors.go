package domain

import "errors"

var (
	// ErrPoolExhausted signals that no AVAILABLE number exists. It is a
	// routing signal, not a failure: callers fall back to the shared number.
	ErrPoolExhausted = errors.New("phone number pool exhausted")
	// ErrNotAssigned indicates a release attempt on a number that is not
	// currently ASSIGNED.
	ErrNotAssigned = errors.New("phone number is not assigned")
	// ErrInvalidState indicates a disable/enable attempt on a number whose
	// current status does not allow the transition.
	ErrInvalidState = errors.New("phone number is in an invalid state for this transition")
	// ErrNotFound indicates the requested number does not exist.
	ErrNotFound = errors.New("phone number not found")
	// ErrDuplicateNumber indicates the E.164 number is already registered.
	ErrDuplicateNumber = errors.New("phone number already registered")
)
