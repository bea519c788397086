package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/rewind"
	"github.com/aretw0/rewind/internal/presentation/tui"
	"github.com/aretw0/rewind/pkg/domain"
	"github.com/aretw0/rewind/pkg/session"
)

// ErrQuit is returned by Dispatch for exit commands.
var ErrQuit = errors.New("quit")

// errUsage marks input the REPL could not parse.
var errUsage = errors.New("usage")

const helpText = `Commands:
  trigger, t <event>   fire an event on the active state
  goto, g <state>      change directly to a state
  undo, u              step back
  redo, r              step forward
  reset                return to the initial state and clear history
  clear                same as reset
  states [event]       list states, optionally only those accepting event
  events               list events the active state accepts
  history              show the history with the cursor
  help                 show this help
  exit, quit, q        leave
`

// Dispatch runs one REPL command against m and writes its result to out.
// Engine rejections are returned unchanged so callers can classify them.
func Dispatch(ctx context.Context, m *rewind.Machine, line string, out io.Writer) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	arg := func(name string) (string, error) {
		if len(args) != 1 {
			return "", fmt.Errorf("%w: %s <%s>", errUsage, cmd, name)
		}
		return args[0], nil
	}

	switch cmd {
	case "trigger", "t":
		event, err := arg("event")
		if err != nil {
			return err
		}
		if err := m.TriggerContext(ctx, event); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n", m.State())

	case "goto", "g":
		state, err := arg("state")
		if err != nil {
			return err
		}
		if err := m.ChangeStateContext(ctx, state); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n", m.State())

	case "undo", "u":
		if !m.UndoContext(ctx) {
			fmt.Fprintln(out, "nothing to undo")
			return nil
		}
		fmt.Fprintf(out, "%s\n", m.State())

	case "redo", "r":
		if !m.RedoContext(ctx) {
			fmt.Fprintln(out, "nothing to redo")
			return nil
		}
		fmt.Fprintf(out, "%s\n", m.State())

	case "reset", "clear":
		m.ResetContext(ctx)
		fmt.Fprintf(out, "%s\n", m.State())

	case "states":
		event := ""
		if len(args) > 0 {
			event = args[0]
		}
		writeList(out, m.States(event))

	case "events":
		writeList(out, m.Events())

	case "history":
		for i, name := range m.History() {
			marker := "  "
			if i == m.Position() {
				marker = "* "
			}
			fmt.Fprintf(out, "%s%d %s\n", marker, i, name)
		}

	case "help", "?":
		fmt.Fprint(out, helpText)

	case "exit", "quit", "q":
		return ErrQuit

	default:
		return fmt.Errorf("%w: unknown command %q, try 'help'", errUsage, cmd)
	}
	return nil
}

func writeList(out io.Writer, items []string) {
	if len(items) == 0 {
		fmt.Fprintln(out, "(none)")
		return
	}
	fmt.Fprintln(out, strings.Join(items, "\n"))
}

// REPL reads commands line by line and applies each one to a session through
// the manager, so every command is persisted before the next prompt.
type REPL struct {
	Sessions  *session.Manager
	SessionID string
	In        io.Reader
	Out       io.Writer
}

// Run loops until input ends, an exit command is read or ctx is done.
// Command errors are printed and the loop continues; only persistence
// failures end it.
func (r *REPL) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(NewInterruptibleReader(r.In, ctx.Done()))

	state, err := r.apply(ctx, "")
	if err != nil {
		return err
	}

	for {
		fmt.Fprint(r.Out, tui.Prompt(r.Out, state))
		if !scanner.Scan() {
			fmt.Fprintln(r.Out)
			return handleExecutionError(scanner.Err())
		}

		state, err = r.apply(ctx, scanner.Text())
		switch {
		case errors.Is(err, ErrQuit):
			return nil
		case errors.Is(err, session.ErrPersistence):
			return err
		case err != nil:
			fmt.Fprintf(r.Out, "error: %v\n", describe(err))
		}
	}
}

func (r *REPL) apply(ctx context.Context, line string) (string, error) {
	snap, err := r.Sessions.Do(ctx, r.SessionID, func(m *rewind.Machine) error {
		return Dispatch(ctx, m, line, r.Out)
	})
	if snap.TailPtr == 0 && err != nil && !errors.Is(err, ErrQuit) {
		return "", err
	}
	return snap.State(), err
}

// describe prefixes engine rejections with their kind.
func describe(err error) string {
	if kind := domain.KindOf(err); kind != "" {
		return fmt.Sprintf("%s: %v", kind, err)
	}
	return err.Error()
}
