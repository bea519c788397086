package observability_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/aretw0/rewind"
	"github.com/aretw0/rewind/pkg/dsl"
	"github.com/aretw0/rewind/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMachine(t *testing.T, opts ...rewind.Option) *rewind.Machine {
	t.Helper()
	b := dsl.New()
	b.Add("idle").Initial().On("start", "running")
	b.Add("running").On("stop", "idle")
	cfg, err := b.Build()
	require.NoError(t, err)

	m, err := rewind.New(cfg, opts...)
	require.NoError(t, err)
	return m
}

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	m := newMachine(t, rewind.WithLifecycleHooks(metrics.Hooks()))

	require.NoError(t, m.Trigger("start"))
	require.True(t, m.Undo())
	require.True(t, m.Redo())
	require.Error(t, m.Trigger("start"))
	require.Error(t, m.ChangeState("nowhere"))
	m.Reset()

	expected := `
# HELP rewind_history_movements_total Total number of history movements by type
# TYPE rewind_history_movements_total counter
rewind_history_movements_total{type="redo"} 1
rewind_history_movements_total{type="reset"} 1
rewind_history_movements_total{type="state_change"} 1
rewind_history_movements_total{type="undo"} 1
# HELP rewind_rejections_total Total number of rejected transitions by error kind
# TYPE rewind_rejections_total counter
rewind_rejections_total{kind="unknown_state"} 1
rewind_rejections_total{kind="unknown_transition"} 1
# HELP rewind_state_entries_total Total number of times a state became active
# TYPE rewind_state_entries_total counter
rewind_state_entries_total{state="idle"} 2
rewind_state_entries_total{state="running"} 2
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"rewind_history_movements_total",
		"rewind_rejections_total",
		"rewind_state_entries_total",
	)
	assert.NoError(t, err)

	assert.Equal(t, 1, testutil.CollectAndCount(reg, "rewind_history_position"))
}

func TestMetrics_NilRegisterer(t *testing.T) {
	metrics := observability.NewMetrics(nil)
	m := newMachine(t, rewind.WithLifecycleHooks(metrics.Hooks()))
	assert.NoError(t, m.Trigger("start"))
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	m := newMachine(t, rewind.WithName("demo"), rewind.WithLifecycleHooks(observability.LogHooks(logger)))

	require.NoError(t, m.Trigger("start"))
	require.Error(t, m.Trigger("start"))

	out := buf.String()
	assert.Contains(t, out, "msg=state_change")
	assert.Contains(t, out, "machine=demo")
	assert.Contains(t, out, "to=running")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "kind=unknown_transition")
}
