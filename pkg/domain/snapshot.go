package domain

import (
	"fmt"
	"time"
)

// Snapshot is the persisted form of a machine's history buffer.
// Only the live part of the memento (up to TailPtr) is carried.
type Snapshot struct {
	Memento   []string  `json:"memento"`
	StatePtr  int       `json:"state_ptr"`
	TailPtr   int       `json:"tail_ptr"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSnapshot returns the snapshot of a freshly built machine.
func NewSnapshot(initial string) Snapshot {
	return Snapshot{
		Memento:  []string{initial},
		StatePtr: 0,
		TailPtr:  1,
	}
}

// State returns the active state recorded in the snapshot.
func (s Snapshot) State() string {
	if s.StatePtr < 0 || s.StatePtr >= len(s.Memento) {
		return ""
	}
	return s.Memento[s.StatePtr]
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Memento = make([]string, len(s.Memento))
	copy(out.Memento, s.Memento)
	return out
}

// Validate checks the history invariants and that every recorded state
// belongs to cfg.
func (s Snapshot) Validate(cfg *Config) error {
	if len(s.Memento) == 0 {
		return fmt.Errorf("%w: empty memento", ErrInvalidSnapshot)
	}
	if s.TailPtr < 1 || s.TailPtr > len(s.Memento) {
		return fmt.Errorf("%w: tail_ptr %d out of range [1, %d]", ErrInvalidSnapshot, s.TailPtr, len(s.Memento))
	}
	if s.StatePtr < 0 || s.StatePtr >= s.TailPtr {
		return fmt.Errorf("%w: state_ptr %d out of range [0, %d)", ErrInvalidSnapshot, s.StatePtr, s.TailPtr)
	}
	if cfg == nil {
		return nil
	}
	if s.Memento[0] != cfg.Initial {
		return fmt.Errorf("%w: history starts at %q, expected initial state %q", ErrInvalidSnapshot, s.Memento[0], cfg.Initial)
	}
	for i, name := range s.Memento[:s.TailPtr] {
		if !cfg.States.Has(name) {
			return fmt.Errorf("%w: entry %d: %v", ErrInvalidSnapshot, i, &UnknownStateError{State: name})
		}
	}
	return nil
}
