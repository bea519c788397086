package rewind

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/rewind/internal/logging"
	"github.com/aretw0/rewind/internal/runtime"
	"github.com/aretw0/rewind/pkg/domain"
	"github.com/aretw0/rewind/pkg/schema"
)

// Machine is the high-level entry point for the rewind library.
// It wraps the internal runtime and adds logging and lifecycle hooks.
//
// A Machine is not safe for concurrent use. Confine it to one goroutine or
// serialize access, for example through session.Manager.
type Machine struct {
	runtime *runtime.Machine
	name    string
	logger  *slog.Logger
	hooks   domain.LifecycleHooks
	strict  bool
	now     func() time.Time
}

// Option defines a functional option for configuring the Machine.
type Option func(*Machine)

// WithLogger sets a custom structured logger for the machine.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithName labels the machine in logs and lifecycle events.
func WithName(name string) Option {
	return func(m *Machine) {
		m.name = name
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Machine) {
		m.hooks = hooks
	}
}

// WithStrictValidation runs the full configuration validation (dangling
// transition targets, empty names) before the machine is built.
func WithStrictValidation() Option {
	return func(m *Machine) {
		m.strict = true
	}
}

// New builds a machine positioned at cfg.Initial.
// The configuration is owned by the caller and must not be modified afterwards.
func New(cfg *domain.Config, opts ...Option) (*Machine, error) {
	m := &Machine{now: time.Now}
	for _, opt := range opts {
		opt(m)
	}

	// Ensure logger is initialized so callers never have to guard it.
	if m.logger == nil {
		m.logger = logging.NewNop()
	}
	if m.name != "" {
		m.logger = m.logger.With("machine", m.name)
	}

	if m.strict {
		if err := schema.ValidateConfig(cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
		}
	}

	rt, err := runtime.NewMachine(cfg)
	if err != nil {
		return nil, err
	}
	m.runtime = rt
	return m, nil
}

// Name returns the label set with WithName.
func (m *Machine) Name() string { return m.name }

// Config returns the configuration the machine was built from.
func (m *Machine) Config() *domain.Config { return m.runtime.Config() }

// State returns the active state.
func (m *Machine) State() string { return m.runtime.State() }

// States lists configured states in configuration order, optionally only
// those that define a transition for event.
func (m *Machine) States(event string) []string { return m.runtime.States(event) }

// Events lists the events available from the active state.
func (m *Machine) Events() []string { return m.runtime.Events() }

// History returns the readable history entries, oldest first.
func (m *Machine) History() []string { return m.runtime.History() }

// Position returns the index of the active state within History.
func (m *Machine) Position() int { return m.runtime.Position() }

// CanUndo reports whether Undo would move.
func (m *Machine) CanUndo() bool { return m.runtime.CanUndo() }

// CanRedo reports whether Redo would move.
func (m *Machine) CanRedo() bool { return m.runtime.CanRedo() }

// ChangeState moves directly to target, discarding any redo chain.
// It returns a *domain.UnknownStateError when target is not configured.
func (m *Machine) ChangeState(target string) error {
	return m.ChangeStateContext(context.Background(), target)
}

// ChangeStateContext is ChangeState with a context passed to lifecycle hooks.
func (m *Machine) ChangeStateContext(ctx context.Context, target string) error {
	from := m.runtime.State()
	if err := m.runtime.ChangeState(target); err != nil {
		m.reject(ctx, from, "", err)
		return err
	}
	m.logger.Debug("state changed", "from", from, "to", target, "position", m.runtime.Position())
	m.emit(ctx, domain.EventStateChange, from, "")
	return nil
}

// Trigger resolves event against the active state's transitions.
// It returns a *domain.UnknownTransitionError when no transition is defined;
// in that case the redo chain is still discarded.
func (m *Machine) Trigger(event string) error {
	return m.TriggerContext(context.Background(), event)
}

// TriggerContext is Trigger with a context passed to lifecycle hooks.
func (m *Machine) TriggerContext(ctx context.Context, event string) error {
	from := m.runtime.State()
	if err := m.runtime.Trigger(event); err != nil {
		m.reject(ctx, from, event, err)
		return err
	}
	m.logger.Debug("event handled", "event", event, "from", from, "to", m.runtime.State(), "position", m.runtime.Position())
	m.emit(ctx, domain.EventStateChange, from, event)
	return nil
}

// Undo steps back one entry and reports whether it moved.
func (m *Machine) Undo() bool {
	return m.UndoContext(context.Background())
}

// UndoContext is Undo with a context passed to lifecycle hooks.
func (m *Machine) UndoContext(ctx context.Context) bool {
	from := m.runtime.State()
	if !m.runtime.Undo() {
		return false
	}
	m.logger.Debug("undo", "from", from, "to", m.runtime.State())
	m.emit(ctx, domain.EventUndo, from, "")
	return true
}

// Redo steps forward one recorded entry and reports whether it moved.
func (m *Machine) Redo() bool {
	return m.RedoContext(context.Background())
}

// RedoContext is Redo with a context passed to lifecycle hooks.
func (m *Machine) RedoContext(ctx context.Context) bool {
	from := m.runtime.State()
	if !m.runtime.Redo() {
		return false
	}
	m.logger.Debug("redo", "from", from, "to", m.runtime.State())
	m.emit(ctx, domain.EventRedo, from, "")
	return true
}

// Reset returns to the initial state and discards all history.
func (m *Machine) Reset() {
	m.ResetContext(context.Background())
}

// ClearHistory is equivalent to Reset.
func (m *Machine) ClearHistory() {
	m.ResetContext(context.Background())
}

// ResetContext is Reset with a context passed to lifecycle hooks.
func (m *Machine) ResetContext(ctx context.Context) {
	from := m.runtime.State()
	m.runtime.Reset()
	m.logger.Debug("history cleared", "from", from)
	m.emit(ctx, domain.EventReset, from, "")
}

// Snapshot captures the live history so it can be persisted.
func (m *Machine) Snapshot() domain.Snapshot {
	snap := m.runtime.Snapshot()
	snap.UpdatedAt = m.now().UTC()
	return snap
}

// Restore replaces the history with snap. It returns an error wrapping
// domain.ErrInvalidSnapshot, without changing the machine, when snap does not
// fit the configuration.
func (m *Machine) Restore(snap domain.Snapshot) error {
	return m.runtime.Restore(snap)
}

func (m *Machine) emit(ctx context.Context, typ domain.EventType, from, event string) {
	m.hooks.Dispatch(ctx, &domain.TransitionEvent{
		Timestamp: m.now(),
		Type:      typ,
		Machine:   m.name,
		From:      from,
		To:        m.runtime.State(),
		Event:     event,
		Position:  m.runtime.Position(),
	})
}

func (m *Machine) reject(ctx context.Context, from, event string, err error) {
	kind := domain.KindOf(err)
	m.logger.Debug("transition rejected", "from", from, "event", event, "kind", kind, "err", err)
	m.hooks.Dispatch(ctx, &domain.TransitionEvent{
		Timestamp: m.now(),
		Type:      domain.EventRejected,
		Machine:   m.name,
		From:      from,
		To:        m.runtime.State(),
		Event:     event,
		Position:  m.runtime.Position(),
		Kind:      kind,
		Err:       err,
	})
}
