package domain

import (
	"context"
	"time"
)

// EventType defines the category of a history movement.
type EventType string

const (
	EventStateChange EventType = "state_change"
	EventUndo        EventType = "undo"
	EventRedo        EventType = "redo"
	EventReset       EventType = "reset"
	EventRejected    EventType = "rejected"
)

// TransitionEvent describes a movement of the history cursor, or a rejected attempt.
type TransitionEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Machine   string    `json:"machine,omitempty"`

	From  string `json:"from"`
	To    string `json:"to"`
	Event string `json:"event,omitempty"` // Empty for direct state changes.

	// Position is the history cursor after the movement.
	Position int `json:"position"`

	// Kind and Err are only set for EventRejected.
	Kind ErrorKind `json:"kind,omitempty"`
	Err  error     `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
// Any hook may be nil.
type LifecycleHooks struct {
	OnStateChange func(context.Context, *TransitionEvent)
	OnUndo        func(context.Context, *TransitionEvent)
	OnRedo        func(context.Context, *TransitionEvent)
	OnReset       func(context.Context, *TransitionEvent)
	OnRejected    func(context.Context, *TransitionEvent)
}

// Dispatch routes an event to the matching hook.
func (h LifecycleHooks) Dispatch(ctx context.Context, e *TransitionEvent) {
	var fn func(context.Context, *TransitionEvent)
	switch e.Type {
	case EventStateChange:
		fn = h.OnStateChange
	case EventUndo:
		fn = h.OnUndo
	case EventRedo:
		fn = h.OnRedo
	case EventReset:
		fn = h.OnReset
	case EventRejected:
		fn = h.OnRejected
	}
	if fn != nil {
		fn(ctx, e)
	}
}

// ComposeHooks returns hooks that call each of the given hooks in order.
func ComposeHooks(all ...LifecycleHooks) LifecycleHooks {
	fan := func(ctx context.Context, e *TransitionEvent) {
		for _, h := range all {
			h.Dispatch(ctx, e)
		}
	}
	return LifecycleHooks{
		OnStateChange: fan,
		OnUndo:        fan,
		OnRedo:        fan,
		OnReset:       fan,
		OnRejected:    fan,
	}
}
