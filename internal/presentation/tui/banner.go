package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the rewind banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	if !IsTerminal(w) {
		p = termenv.Ascii
	}
	// Using a subtle gradient-like color scheme (Teal/Cyan)
	lines := []struct {
		text  string
		color string
	}{
		{`                     _           _ `, "#2dd4bf"},
		{`  _ __ _____      __(_)_ __   __| |`, "#22d3ee"},
		{" | '__/ _ \\ \\ /\\ / /| | '_ \\ / _` |", "#38bdf8"},
		{` | | |  __/\ V  V / | | | | | (_| |`, "#60a5fa"},
		{` |_|  \___| \_/\_/  |_|_| |_|\__,_|`, "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, p.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, p.String("  v"+strings.TrimSpace(version)).Faint())
	fmt.Fprintln(w)
}

// Prompt renders the REPL prompt for the active state.
func Prompt(w io.Writer, state string) string {
	p := termenv.ColorProfile()
	if !IsTerminal(w) {
		p = termenv.Ascii
	}
	return p.String("["+state+"]").Foreground(p.Color("#2dd4bf")).Bold().String() + "> "
}
