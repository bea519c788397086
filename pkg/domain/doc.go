/*
Package domain contains the core domain models for the rewind engine.

It defines the configuration a machine is built from, the persisted form of its history
and the error kinds the engine reports. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Config: The initial state plus an ordered table of state definitions.
  - StateDef: The event → target transition table of a single state.
  - Snapshot: The live part of a machine's history buffer (memento and cursors).
  - TransitionEvent: What lifecycle hooks receive after every history movement.
*/
package domain
