package validator

import (
	"fmt"

	"github.com/aretw0/rewind/pkg/domain"
)

// Report describes the shape of a configuration's transition graph.
// All slices follow configuration order.
type Report struct {
	Reachable   []string // States reachable from the initial state, including it.
	Unreachable []string // States no event sequence can reach.
	Final       []string // States without outgoing transitions.
	Broken      []string // "state --event--> target" edges whose target is not configured.
}

// Warnings renders the non-fatal findings, one per line.
func (r Report) Warnings() []string {
	var out []string
	for _, name := range r.Unreachable {
		out = append(out, fmt.Sprintf("state '%s' is unreachable from the initial state", name))
	}
	for _, edge := range r.Broken {
		out = append(out, fmt.Sprintf("broken transition: %s", edge))
	}
	return out
}

// Analyze crawls the transition graph breadth-first starting from cfg.Initial.
func Analyze(cfg *domain.Config) Report {
	visited := make(map[string]bool)
	var report Report

	queue := []string{cfg.Initial}
	for len(queue) > 0 {
		currentID := queue[0]
		queue = queue[1:]

		if visited[currentID] {
			continue
		}
		visited[currentID] = true

		def, ok := cfg.States.Get(currentID)
		if !ok {
			continue // Reported as broken by the owning edge.
		}
		for _, event := range def.Events() {
			if target := def.Transitions[event]; !visited[target] {
				queue = append(queue, target)
			}
		}
	}

	for _, name := range cfg.States.Names() {
		def, _ := cfg.States.Get(name)
		if visited[name] {
			report.Reachable = append(report.Reachable, name)
		} else {
			report.Unreachable = append(report.Unreachable, name)
		}
		if len(def.Transitions) == 0 {
			report.Final = append(report.Final, name)
		}
		for _, event := range def.Events() {
			if target := def.Transitions[event]; !cfg.States.Has(target) {
				report.Broken = append(report.Broken, fmt.Sprintf("%s --%s--> %s", name, event, target))
			}
		}
	}

	return report
}
