/*
Package session implements session management and persistence orchestration.

A Manager owns one configuration and a ports.SnapshotStore. Each call to Do
loads a session's history, restores it into a fresh rewind.Machine, runs the
caller's operation and saves the resulting snapshot. Calls for the same
session are serialized by a per-session mutex and, across replicas, by an
optional ports.DistributedLocker.
*/
package session
