// Package store provides a bounded, volatile in-memory store for
// conversation history, keyed by session ID.
//
// A session holds an ordered, fixed-capacity message history plus liveness
// timestamps. Three independent bounds are enforced:
//
//   - per-session message count: AddMessage trims oldest-first via a ring
//     buffer, so a session never holds more than MaxMessagesPerSession turns
//   - total session count: CreateSession evicts expired sessions first and
//     falls back to the least-recently-updated session when the store is full
//   - idle timeout: sessions untouched for SessionTimeout are removed by the
//     background cleanup pass (see [Store.StartCleanup]) and by the capacity
//     check above
//
// # Concurrency
//
// Store is safe for concurrent use. The store-level RWMutex guards the
// session map and each session carries its own mutex guarding history and
// timestamps. Lock acquisition order is always store lock before session
// lock. Mutating calls hold the store read-lock for the duration of the
// session mutation, so structural writers (create, delete, cleanup), which
// take the write lock, never observe a session mid-mutation.
//
// # Error semantics
//
// A missing session is an expected state, not a fault: reads return an empty
// history, lookups return a false ok, clears and deletes return false.
// Errors are reserved for rejected input ([ErrInvalidMessage]) and for the
// store being full with nothing evictable ([ErrCapacityExceeded]).
//
// The store is process-local by design. Nothing is persisted; a restart
// loses all sessions.
package store
