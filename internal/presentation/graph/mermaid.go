package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/rewind/pkg/domain"
)

// GraphOverlay contains dynamic history data to visualize on the graph.
type GraphOverlay struct {
	VisitedStates []string // History up to and including the cursor.
	RedoStates    []string // Entries Redo would move through.
	CurrentState  string
}

// OverlayFromSnapshot splits a snapshot's live history around its cursor.
func OverlayFromSnapshot(snap domain.Snapshot) *GraphOverlay {
	if snap.TailPtr < 1 || snap.TailPtr > len(snap.Memento) || snap.StatePtr >= snap.TailPtr {
		return nil
	}
	return &GraphOverlay{
		VisitedStates: snap.Memento[:snap.StatePtr+1],
		RedoStates:    snap.Memento[snap.StatePtr+1 : snap.TailPtr],
		CurrentState:  snap.State(),
	}
}

// GenerateMermaid produces a Mermaid flowchart syntax string from a configuration.
// It applies semantic styling:
// - Initial: ((Circle))
// - Final (no transitions): ([Stadium])
// - Default: [Rectangle]
// Edges are labeled with their event; edges to unconfigured states are dotted.
// It also applies overlay styles (Visited/Redo/Current) if provided.
func GenerateMermaid(cfg *domain.Config, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, name := range cfg.States.Names() {
		def, _ := cfg.States.Get(name)
		safeID := sanitizeMermaidID(name)

		opener, closer := "[", "]"
		switch {
		case name == cfg.Initial:
			opener, closer = "((", "))"
		case len(def.Transitions) == 0:
			opener, closer = "([", "])"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, escapeLabel(name), closer)

		for _, event := range def.Events() {
			target := def.Transitions[event]
			label := escapeLabel(event)
			arrow := fmt.Sprintf("-- \"%s\" -->", label)
			if !cfg.States.Has(target) {
				arrow = fmt.Sprintf("-. \"%s\" .->", label)
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", safeID, arrow, sanitizeMermaidID(target))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef redo fill:#f5f5f5,stroke:#9e9e9e,stroke-dasharray:4 2,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		styled := make(map[string]bool)
		if overlay.CurrentState != "" {
			styled[sanitizeMermaidID(overlay.CurrentState)] = true
		}
		writeClass(&sb, overlay.VisitedStates, "visited", styled)
		writeClass(&sb, overlay.RedoStates, "redo", styled)

		if overlay.CurrentState != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentState))
		}
	}

	return sb.String()
}

// writeClass styles each state once; a state already styled keeps its class.
func writeClass(sb *strings.Builder, states []string, class string, styled map[string]bool) {
	for _, name := range states {
		safeID := sanitizeMermaidID(name)
		if safeID == "" || styled[safeID] {
			continue
		}
		styled[safeID] = true
		fmt.Fprintf(sb, "    class %s %s;\n", safeID, class)
	}
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(
		".", "_",
		"-", "_",
		"/", "_",
		"\\", "_",
		" ", "_",
	).Replace(id)
}
