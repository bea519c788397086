package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aretw0/rewind"
	"github.com/aretw0/rewind/pkg/adapters/memory"
	"github.com/aretw0/rewind/pkg/domain"
	"github.com/aretw0/rewind/pkg/dsl"
	"github.com/aretw0/rewind/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trafficLight(t *testing.T) *domain.Config {
	t.Helper()
	b := dsl.New()
	b.Add("green").Initial().On("timer", "yellow")
	b.Add("yellow").On("timer", "red")
	b.Add("red").On("timer", "green").On("fault", "blinking")
	b.Add("blinking")
	cfg, err := b.Build()
	require.NoError(t, err)
	return cfg
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()
	m, err := rewind.New(trafficLight(t))
	require.NoError(t, err)

	run := func(line string) (string, error) {
		var out bytes.Buffer
		err := Dispatch(ctx, m, line, &out)
		return out.String(), err
	}

	out, err := run("t timer")
	require.NoError(t, err)
	assert.Equal(t, "yellow\n", out)

	out, err = run("trigger timer")
	require.NoError(t, err)
	assert.Equal(t, "red\n", out)

	out, err = run("u")
	require.NoError(t, err)
	assert.Equal(t, "yellow\n", out)

	out, err = run("history")
	require.NoError(t, err)
	assert.Equal(t, "  0 green\n* 1 yellow\n  2 red\n", out)

	out, err = run("redo")
	require.NoError(t, err)
	assert.Equal(t, "red\n", out)

	out, err = run("redo")
	require.NoError(t, err)
	assert.Equal(t, "nothing to redo\n", out)

	out, err = run("events")
	require.NoError(t, err)
	assert.Equal(t, "fault\ntimer\n", out)

	out, err = run("states fault")
	require.NoError(t, err)
	assert.Equal(t, "red\n", out)

	out, err = run("states")
	require.NoError(t, err)
	assert.Equal(t, "green\nyellow\nred\nblinking\n", out)

	out, err = run("g blinking")
	require.NoError(t, err)
	assert.Equal(t, "blinking\n", out)

	out, err = run("events")
	require.NoError(t, err)
	assert.Equal(t, "(none)\n", out)

	out, err = run("reset")
	require.NoError(t, err)
	assert.Equal(t, "green\n", out)

	out, err = run("undo")
	require.NoError(t, err)
	assert.Equal(t, "nothing to undo\n", out)

	out, err = run("  ")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = run("help")
	require.NoError(t, err)
	assert.Contains(t, out, "trigger, t <event>")
}

func TestDispatch_Errors(t *testing.T) {
	ctx := context.Background()
	m, err := rewind.New(trafficLight(t))
	require.NoError(t, err)
	var out bytes.Buffer

	assert.ErrorIs(t, Dispatch(ctx, m, "t fault", &out), domain.ErrUnknownTransition)
	assert.ErrorIs(t, Dispatch(ctx, m, "goto purple", &out), domain.ErrUnknownState)
	assert.ErrorIs(t, Dispatch(ctx, m, "t", &out), errUsage)
	assert.ErrorIs(t, Dispatch(ctx, m, "goto a b", &out), errUsage)
	assert.ErrorIs(t, Dispatch(ctx, m, "dance", &out), errUsage)
	assert.ErrorIs(t, Dispatch(ctx, m, "EXIT", &out), ErrQuit)
	assert.Empty(t, out.String())
}

func TestREPL_Run(t *testing.T) {
	store := memory.NewStore()
	mgr := session.NewManager(trafficLight(t), store)

	input := strings.Join([]string{
		"t timer",
		"t fault",
		"g nowhere",
		"t timer",
		"u",
		"quit",
		"t timer", // never read
	}, "\n")

	var out bytes.Buffer
	repl := &REPL{Sessions: mgr, SessionID: "dev", In: strings.NewReader(input), Out: &out}
	require.NoError(t, repl.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "[green]> yellow")
	assert.Contains(t, text, "error: unknown_transition:")
	assert.Contains(t, text, "error: unknown_state:")
	assert.Contains(t, text, "[red]> yellow")

	snap, err := store.Load(context.Background(), "dev")
	require.NoError(t, err)
	assert.Equal(t, "yellow", snap.State())
	assert.Equal(t, []string{"green", "yellow", "red"}, snap.Memento)
}

func TestREPL_EndOfInput(t *testing.T) {
	mgr := session.NewManager(trafficLight(t), memory.NewStore())

	var out bytes.Buffer
	repl := &REPL{Sessions: mgr, SessionID: "eof", In: strings.NewReader("t timer\n"), Out: &out}
	assert.NoError(t, repl.Run(context.Background()))
	assert.True(t, strings.HasSuffix(out.String(), "[yellow]> \n"))
}

func TestREPL_Canceled(t *testing.T) {
	mgr := session.NewManager(trafficLight(t), memory.NewStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	repl := &REPL{Sessions: mgr, SessionID: "c", In: strings.NewReader("t timer\n"), Out: &out}
	assert.NoError(t, repl.Run(ctx))
	assert.NotContains(t, out.String(), "yellow")
}
