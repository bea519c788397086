package session

import (
	"time"

	"github.com/aretw0/rewind/pkg/domain"
)

// View is the wire representation of a session shared by the adapters.
type View struct {
	ID        string    `json:"id" jsonschema_description:"Session identifier"`
	State     string    `json:"state" jsonschema_description:"The active state"`
	Position  int       `json:"position" jsonschema_description:"History cursor, 0 is the initial state"`
	History   []string  `json:"history" jsonschema_description:"Live history, including entries reachable by redo"`
	CanUndo   bool      `json:"can_undo"`
	CanRedo   bool      `json:"can_redo"`
	Events    []string  `json:"events" jsonschema_description:"Events the active state accepts"`
	UpdatedAt time.Time `json:"updated_at"`

	// Moved is only set by undo and redo.
	Moved *bool `json:"moved,omitempty"`
}

// NewView describes snap, with the accepted events looked up in cfg.
func NewView(id string, snap domain.Snapshot, cfg *domain.Config) View {
	def, _ := cfg.States.Get(snap.State())
	events := def.Events()
	if events == nil {
		events = []string{}
	}
	history := []string{}
	if snap.TailPtr > 0 && snap.TailPtr <= len(snap.Memento) {
		history = snap.Memento[:snap.TailPtr]
	}
	return View{
		ID:        id,
		State:     snap.State(),
		Position:  snap.StatePtr,
		History:   history,
		CanUndo:   snap.StatePtr > 0,
		CanRedo:   snap.StatePtr < snap.TailPtr-1,
		Events:    events,
		UpdatedAt: snap.UpdatedAt,
	}
}
