/*
Package ports defines the driven ports (interfaces) around the rewind engine.

The engine itself never persists anything. These interfaces let the session layer
keep machine history in various storage backends and coordinate access across
process replicas.

# Key Interfaces

  - SnapshotStore: Responsible for persisting and loading a session's history Snapshot.
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
*/
package ports
