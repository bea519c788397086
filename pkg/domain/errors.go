package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownState is matched by every UnknownStateError.
	ErrUnknownState = errors.New("unknown state")

	// ErrUnknownTransition is matched by every UnknownTransitionError.
	ErrUnknownTransition = errors.New("unknown transition")

	// ErrInvalidConfig is returned when a machine cannot be built from a configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidSnapshot is returned when a snapshot violates the history invariants
	// or does not belong to the configuration it is restored against.
	ErrInvalidSnapshot = errors.New("invalid snapshot")

	// ErrSessionNotFound is returned when a session ID cannot be found in the store.
	ErrSessionNotFound = errors.New("session not found")
)

// ErrorKind is the closed set of rejections the engine reports.
type ErrorKind string

const (
	KindUnknownState      ErrorKind = "unknown_state"
	KindUnknownTransition ErrorKind = "unknown_transition"
)

// UnknownStateError is returned by ChangeState when the target is not configured.
type UnknownStateError struct {
	State string
}

func (e *UnknownStateError) Error() string {
	return fmt.Sprintf("unknown state %q", e.State)
}

// Is makes errors.Is(err, ErrUnknownState) hold.
func (e *UnknownStateError) Is(target error) bool {
	return target == ErrUnknownState
}

// UnknownTransitionError is returned by Trigger when the current state defines
// no transition for the event.
type UnknownTransitionError struct {
	State string
	Event string
}

func (e *UnknownTransitionError) Error() string {
	return fmt.Sprintf("no transition for event %q from state %q", e.Event, e.State)
}

// Is makes errors.Is(err, ErrUnknownTransition) hold.
func (e *UnknownTransitionError) Is(target error) bool {
	return target == ErrUnknownTransition
}

// KindOf classifies an engine rejection. It returns "" for any other error.
func KindOf(err error) ErrorKind {
	var stateErr *UnknownStateError
	if errors.As(err, &stateErr) {
		return KindUnknownState
	}
	var transErr *UnknownTransitionError
	if errors.As(err, &transErr) {
		return KindUnknownTransition
	}
	return ""
}
