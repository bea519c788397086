package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/rewind/pkg/domain"
)

// ConfigMarkdown describes a configuration as a markdown document with one
// table row per transition.
func ConfigMarkdown(title string, cfg *domain.Config) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "Initial state: `%s` · %d states\n\n", cfg.Initial, cfg.States.Len())
	sb.WriteString("| State | Event | Target |\n")
	sb.WriteString("|---|---|---|\n")

	for _, name := range cfg.States.Names() {
		label := "`" + name + "`"
		if name == cfg.Initial {
			label += " (initial)"
		}

		def, _ := cfg.States.Get(name)
		events := def.Events()
		if len(events) == 0 {
			fmt.Fprintf(&sb, "| %s | | *final* |\n", label)
			continue
		}
		for i, event := range events {
			if i > 0 {
				label = ""
			}
			fmt.Fprintf(&sb, "| %s | %s | `%s` |\n", label, event, def.Transitions[event])
		}
	}
	return sb.String()
}
