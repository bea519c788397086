package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// StateDef describes a single configured state.
type StateDef struct {
	// Transitions maps an event name to the target state name.
	// Events without an entry have no transition from this state.
	Transitions map[string]string `json:"transitions" yaml:"transitions" mapstructure:"transitions"`
}

// Target resolves the state reached by event, if a transition is defined.
func (d StateDef) Target(event string) (string, bool) {
	target, ok := d.Transitions[event]
	return target, ok
}

// Events returns the events defined for this state in sorted order.
func (d StateDef) Events() []string {
	events := make([]string, 0, len(d.Transitions))
	for event := range d.Transitions {
		events = append(events, event)
	}
	sort.Strings(events)
	return events
}

// StateTable is a mapping from state name to definition that remembers
// declaration order. The zero value is an empty table ready to use.
type StateTable struct {
	names []string
	defs  map[string]StateDef
}

// NewStateTable creates a table from a plain map.
// Go maps carry no order, so names are enumerated in sorted order.
func NewStateTable(defs map[string]StateDef) StateTable {
	var t StateTable
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t.Set(name, defs[name])
	}
	return t
}

// Set adds or replaces a state. A replaced state keeps its original position.
func (t *StateTable) Set(name string, def StateDef) {
	if t.defs == nil {
		t.defs = make(map[string]StateDef)
	}
	if _, exists := t.defs[name]; !exists {
		t.names = append(t.names, name)
	}
	t.defs[name] = def
}

// Get returns the definition of a state.
func (t StateTable) Get(name string) (StateDef, bool) {
	def, ok := t.defs[name]
	return def, ok
}

// Has reports whether name is a configured state.
func (t StateTable) Has(name string) bool {
	_, ok := t.defs[name]
	return ok
}

// Names returns the state names in declaration order.
func (t StateTable) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Len returns the number of configured states.
func (t StateTable) Len() int {
	return len(t.names)
}

// MarshalJSON encodes the table as a JSON object, keeping declaration order.
func (t StateTable) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range t.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(t.defs[name])
		if err != nil {
			return nil, fmt.Errorf("state %s: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object token by token so that the document
// order of the states is preserved.
func (t *StateTable) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*t = StateTable{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("states: expected object, got %v", tok)
	}

	table := StateTable{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("states: expected state name, got %v", tok)
		}
		var def StateDef
		if err := dec.Decode(&def); err != nil {
			return fmt.Errorf("state %s: %w", name, err)
		}
		table.Set(name, def)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*t = table
	return nil
}

// MarshalYAML encodes the table as a mapping in declaration order.
func (t StateTable) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, name := range t.names {
		var val yaml.Node
		if err := val.Encode(t.defs[name]); err != nil {
			return nil, fmt.Errorf("state %s: %w", name, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name},
			&val,
		)
	}
	return node, nil
}

// UnmarshalYAML walks the mapping node so that states keep their document order.
func (t *StateTable) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*t = StateTable{}
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: states must be a mapping of state name to definition", node.Line)
	}

	table := StateTable{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		var def StateDef
		if err := node.Content[i+1].Decode(&def); err != nil {
			return fmt.Errorf("line %d: state %s: %w", node.Content[i+1].Line, name, err)
		}
		table.Set(name, def)
	}

	*t = table
	return nil
}

// Config is the already-parsed machine configuration.
// It is owned by the caller and treated as read-only once a machine is built from it.
type Config struct {
	// Initial is the state every machine starts in. It is always history entry 0.
	Initial string `json:"initial" yaml:"initial"`

	// States holds every configured state in declaration order.
	States StateTable `json:"states" yaml:"states"`
}

// Check performs the minimal structural check a machine needs to be built.
// Full validation (dangling targets, empty names) lives in package schema.
func (c *Config) Check() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if c.States.Len() == 0 {
		return fmt.Errorf("%w: no states configured", ErrInvalidConfig)
	}
	if c.Initial == "" {
		return fmt.Errorf("%w: initial state is required", ErrInvalidConfig)
	}
	if !c.States.Has(c.Initial) {
		return fmt.Errorf("%w: initial state %q is not a configured state", ErrInvalidConfig, c.Initial)
	}
	return nil
}
