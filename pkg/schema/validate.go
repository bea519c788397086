package schema

import (
	"fmt"

	"github.com/aretw0/rewind/pkg/domain"
)

// ValidateConfig checks a configuration for every problem that would make a
// machine misbehave at runtime: a missing or unknown initial state, empty
// names, and transitions that point at states that do not exist.
// Returns nil or an *AggregateError.
func ValidateConfig(cfg *domain.Config) error {
	if cfg == nil {
		return &AggregateError{Errors: []error{&ValidationError{Key: "config", Reason: "required"}}}
	}

	var errs []error

	if cfg.States.Len() == 0 {
		errs = append(errs, &ValidationError{Key: "states", Reason: "at least one state is required"})
	}

	switch {
	case cfg.Initial == "":
		errs = append(errs, &ValidationError{Key: "initial", Reason: "required"})
	case !cfg.States.Has(cfg.Initial):
		errs = append(errs, &ValidationError{Key: "initial", Reason: "not a configured state", Value: cfg.Initial})
	}

	for _, name := range cfg.States.Names() {
		if name == "" {
			errs = append(errs, &ValidationError{Key: "states", Reason: "state name cannot be empty"})
			continue
		}
		def, _ := cfg.States.Get(name)
		for _, event := range def.Events() {
			key := fmt.Sprintf("states.%s.transitions.%s", name, event)
			if event == "" {
				errs = append(errs, &ValidationError{Key: key, Reason: "event name cannot be empty"})
				continue
			}
			target := def.Transitions[event]
			if !cfg.States.Has(target) {
				errs = append(errs, &ValidationError{Key: key, Reason: "unknown target state", Value: target})
			}
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}
