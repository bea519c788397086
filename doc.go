/*
Package rewind is a finite-state machine engine with a linear undo/redo history.

A machine tracks one active state among a configured set. It moves either directly
(ChangeState) or by resolving a named event against the active state's transition
table (Trigger). Every move is recorded in a history buffer that can be stepped
backward (Undo) and forward (Redo) until a new move overwrites the forward history.

# Concept

The configuration is plain data: an initial state and, for each state, a table of
event → target state. The engine never loads or persists anything on its own; the
packages under pkg/ add optional loaders (schema), snapshot stores (adapters) and a
session manager that serializes access to machines shared between goroutines.

# Key Features

  - Linear History: Undo/Redo over every visited state, truncated on new moves.
  - Typed Rejections: UnknownStateError and UnknownTransitionError carry the offending names.
  - Ordered Configuration: States enumerate in declaration order.
  - Snapshots: The live history can be captured and restored across processes.

# Usage

	package main

	import (
		"fmt"
		"log"

		"github.com/aretw0/rewind"
		"github.com/aretw0/rewind/pkg/dsl"
	)

	func main() {
		b := dsl.New()
		b.Add("idle").Initial().On("start", "running")
		b.Add("running").On("stop", "idle")

		cfg, err := b.Build()
		if err != nil {
			log.Fatal(err)
		}

		m, err := rewind.New(cfg)
		if err != nil {
			log.Fatal(err)
		}

		_ = m.Trigger("start")
		m.Undo()
		fmt.Println(m.State()) // idle
	}

# Concurrency

A Machine has no internal locking. Use session.Manager, or confine each machine to
a single goroutine.
*/
package rewind
