package store

import "errors"

// Sentinel errors for store operations, checked with errors.Is.
//
// Example:
//
//	if err := s.AddMessage(id, role, content); errors.Is(err, store.ErrInvalidMessage) {
//	    // reject the request, nothing was stored
//	}
var (
	// ErrInvalidMessage indicates an empty content or an unrecognized role.
	// The call is rejected before any mutation.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrCapacityExceeded indicates the store is at MaxSessions and no
	// session could be evicted to free a slot.
	ErrCapacityExceeded = errors.New("session capacity exceeded")
)
