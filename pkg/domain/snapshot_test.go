package domain_test

import (
	"testing"

	"github.com/aretw0/rewind/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestSnapshot_Validate(t *testing.T) {
	cfg := &domain.Config{
		Initial: "a",
		States: domain.NewStateTable(map[string]domain.StateDef{
			"a": {}, "b": {}, "c": {},
		}),
	}

	assert.NoError(t, domain.NewSnapshot("a").Validate(cfg))
	assert.NoError(t, domain.Snapshot{Memento: []string{"a", "b", "c"}, StatePtr: 1, TailPtr: 3}.Validate(cfg))
	// Entries past the tail are dead and are not checked.
	assert.NoError(t, domain.Snapshot{Memento: []string{"a", "b", "gone"}, StatePtr: 1, TailPtr: 2}.Validate(cfg))

	tests := []struct {
		name string
		snap domain.Snapshot
	}{
		{"empty", domain.Snapshot{}},
		{"tail zero", domain.Snapshot{Memento: []string{"a"}, TailPtr: 0}},
		{"tail past end", domain.Snapshot{Memento: []string{"a"}, TailPtr: 2}},
		{"state at tail", domain.Snapshot{Memento: []string{"a", "b"}, StatePtr: 2, TailPtr: 2}},
		{"negative state", domain.Snapshot{Memento: []string{"a"}, StatePtr: -1, TailPtr: 1}},
		{"wrong initial", domain.Snapshot{Memento: []string{"b"}, TailPtr: 1}},
		{"unknown entry", domain.Snapshot{Memento: []string{"a", "ghost"}, StatePtr: 1, TailPtr: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.snap.Validate(cfg), domain.ErrInvalidSnapshot)
		})
	}
}

func TestSnapshot_CloneAndState(t *testing.T) {
	snap := domain.Snapshot{Memento: []string{"a", "b"}, StatePtr: 1, TailPtr: 2}
	clone := snap.Clone()
	clone.Memento[1] = "c"

	assert.Equal(t, "b", snap.State())
	assert.Equal(t, "c", clone.State())
	assert.Equal(t, "", domain.Snapshot{}.State())
}
