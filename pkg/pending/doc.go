// Package pending tracks in-flight asynchronous restore operations for
// persisted properties and exposes the startup barrier applications use to
// wait for all of them.
//
// Responsibilities:
//   - Future[T] is a settle-once promise: it resolves with a value or rejects
//     with an error, exactly once, and stays settled.
//   - Registry is a ledger of futures keyed by property key. A key is present
//     exactly while its restore is in flight.
//   - Registry.AllSettled snapshots the current entries and waits for every
//     one of them to settle, whether fulfilled or rejected. Entries enqueued
//     after the snapshot is taken are not covered; callers wanting full
//     coverage must construct all async persisted properties first.
//
// The process-wide registry returned by Default() is what NewPersistedAsync
// uses when no registry is configured. Tests should construct their own
// Registry (or call Reset) to stay isolated.
package pending
