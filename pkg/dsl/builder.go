package dsl

import (
	"fmt"

	"github.com/aretw0/rewind/pkg/domain"
	"github.com/aretw0/rewind/pkg/schema"
)

// Builder manages the configuration construction.
type Builder struct {
	order   []string
	states  map[string]*StateBuilder
	initial string
}

// New creates a new configuration builder.
func New() *Builder {
	return &Builder{
		states: make(map[string]*StateBuilder),
	}
}

// Add creates a new state in the configuration.
// If the state already exists, it returns the existing builder.
func (b *Builder) Add(name string) *StateBuilder {
	if sb, ok := b.states[name]; ok {
		return sb
	}
	sb := &StateBuilder{
		name:        name,
		transitions: make(map[string]string),
		builder:     b,
	}
	b.states[name] = sb
	b.order = append(b.order, name)
	return sb
}

// Build compiles the states into a validated configuration.
func (b *Builder) Build() (*domain.Config, error) {
	cfg := &domain.Config{Initial: b.initial}
	for _, name := range b.order {
		cfg.States.Set(name, b.states[name].def())
	}

	if err := schema.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("failed to build config: %w", err)
	}
	return cfg, nil
}

// StateBuilder provides a fluent API for configuring a state.
type StateBuilder struct {
	name        string
	transitions map[string]string
	builder     *Builder
}

// Initial marks this state as the machine's starting state.
// Calling it on another state moves the mark.
func (s *StateBuilder) Initial() *StateBuilder {
	s.builder.initial = s.name
	return s
}

// On adds a transition taken when event fires in this state.
// A later call for the same event replaces the target.
func (s *StateBuilder) On(event, target string) *StateBuilder {
	s.transitions[event] = target
	return s
}

func (s *StateBuilder) def() domain.StateDef {
	transitions := make(map[string]string, len(s.transitions))
	for event, target := range s.transitions {
		transitions[event] = target
	}
	return domain.StateDef{Transitions: transitions}
}
