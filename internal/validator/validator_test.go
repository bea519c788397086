package validator

import (
	"testing"

	"github.com/aretw0/rewind/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func table(t *testing.T, pairs ...any) domain.StateTable {
	t.Helper()
	var st domain.StateTable
	for i := 0; i < len(pairs); i += 2 {
		st.Set(pairs[i].(string), domain.StateDef{Transitions: pairs[i+1].(map[string]string)})
	}
	return st
}

func TestAnalyze(t *testing.T) {
	// start -> a -> b (end), orphan -> start
	cfg := &domain.Config{
		Initial: "start",
		States: table(t,
			"start", map[string]string{"next": "a"},
			"a", map[string]string{"next": "b", "back": "start"},
			"b", map[string]string(nil),
			"orphan", map[string]string{"go": "start"},
		),
	}

	report := Analyze(cfg)
	assert.Equal(t, []string{"start", "a", "b"}, report.Reachable)
	assert.Equal(t, []string{"orphan"}, report.Unreachable)
	assert.Equal(t, []string{"b"}, report.Final)
	assert.Empty(t, report.Broken)
	assert.Equal(t, []string{"state 'orphan' is unreachable from the initial state"}, report.Warnings())

	assert.Empty(t, report.Broken)
}

func TestAnalyze_BrokenLink(t *testing.T) {
	cfg := &domain.Config{
		Initial: "broken_start",
		States: table(t,
			"broken_start", map[string]string{"go": "ghost_node"},
		),
	}

	report := Analyze(cfg)
	assert.Equal(t, []string{"broken_start --go--> ghost_node"}, report.Broken)
	assert.Equal(t, []string{"broken_start"}, report.Reachable)
	assert.Equal(t, []string{"broken transition: broken_start --go--> ghost_node"}, report.Warnings())
}

func TestAnalyze_SelfLoop(t *testing.T) {
	cfg := &domain.Config{
		Initial: "spin",
		States:  table(t, "spin", map[string]string{"again": "spin"}),
	}

	report := Analyze(cfg)
	assert.Equal(t, []string{"spin"}, report.Reachable)
	assert.Empty(t, report.Final)
}
