package runtime

import (
	"fmt"

	"github.com/aretw0/rewind/pkg/domain"
)

// Machine is the core finite-state machine with linear history.
// It performs no logging, no I/O and no synchronization; callers serialize access.
type Machine struct {
	cfg  *domain.Config
	hist history
}

// NewMachine builds a machine positioned at the configured initial state.
func NewMachine(cfg *domain.Config) (*Machine, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return &Machine{
		cfg:  cfg,
		hist: newHistory(cfg.Initial),
	}, nil
}

// Config returns the configuration the machine was built from.
func (m *Machine) Config() *domain.Config {
	return m.cfg
}

// State returns the active state.
func (m *Machine) State() string {
	return m.hist.current()
}

// States lists configured states in configuration order. With a non-empty event,
// only states whose transition table defines that event are returned.
func (m *Machine) States(event string) []string {
	names := m.cfg.States.Names()
	if event == "" {
		return names
	}
	result := make([]string, 0, len(names))
	for _, name := range names {
		def, _ := m.cfg.States.Get(name)
		if _, ok := def.Target(event); ok {
			result = append(result, name)
		}
	}
	return result
}

// Events lists the events defined for the active state, sorted.
func (m *Machine) Events() []string {
	def, _ := m.cfg.States.Get(m.State())
	return def.Events()
}

// ChangeState moves directly to target. An unknown target leaves the machine untouched.
func (m *Machine) ChangeState(target string) error {
	if !m.cfg.States.Has(target) {
		return &domain.UnknownStateError{State: target}
	}
	m.hist.push(target)
	return nil
}

// Trigger resolves event against the active state's transitions and moves to the target.
//
// An event with no transition still discards the redo chain. An event whose
// target is not configured fails in ChangeState and leaves history untouched.
func (m *Machine) Trigger(event string) error {
	current := m.State()
	def, _ := m.cfg.States.Get(current)
	target, ok := def.Target(event)
	if !ok {
		m.hist.truncate()
		return &domain.UnknownTransitionError{State: current, Event: event}
	}
	return m.ChangeState(target)
}

// Undo steps back one entry. It returns false at the start of history.
func (m *Machine) Undo() bool {
	return m.hist.back()
}

// Redo steps forward one recorded entry. It returns false when none exists.
func (m *Machine) Redo() bool {
	return m.hist.forward()
}

// CanUndo reports whether Undo would move.
func (m *Machine) CanUndo() bool {
	return m.hist.canBack()
}

// CanRedo reports whether Redo would move.
func (m *Machine) CanRedo() bool {
	return m.hist.canForward()
}

// Reset returns to the initial state and discards all history.
func (m *Machine) Reset() {
	m.hist.collapse()
}

// ClearHistory is equivalent to Reset.
func (m *Machine) ClearHistory() {
	m.hist.collapse()
}

// History returns the readable history entries, oldest first.
func (m *Machine) History() []string {
	return m.hist.live()
}

// Position returns the index of the active state within History.
func (m *Machine) Position() int {
	return m.hist.statePtr
}

// Snapshot captures the live part of the history buffer.
func (m *Machine) Snapshot() domain.Snapshot {
	return domain.Snapshot{
		Memento:  m.hist.live(),
		StatePtr: m.hist.statePtr,
		TailPtr:  m.hist.tailPtr,
	}
}

// Restore replaces the history buffer with snap. An invalid snapshot leaves
// the machine untouched.
func (m *Machine) Restore(snap domain.Snapshot) error {
	if err := snap.Validate(m.cfg); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	memento := make([]string, snap.TailPtr)
	copy(memento, snap.Memento[:snap.TailPtr])
	m.hist = history{
		memento:  memento,
		statePtr: snap.StatePtr,
		tailPtr:  snap.TailPtr,
	}
	return nil
}
