package store

// ring is a fixed-capacity message buffer with oldest-first overwrite.
// Appending to a full ring drops the oldest entry, keeping eviction O(1)
// instead of re-slicing a dynamic array on every trim.
//
// Not safe for concurrent use; the owning session's mutex guards it.
type ring struct {
	buf   []Message
	head  int // index of the oldest entry
	count int
}

// newRing creates a ring holding at most capacity messages.
func newRing(capacity int) ring {
	return ring{buf: make([]Message, capacity)}
}

// push appends m, overwriting the oldest entry when full.
func (r *ring) push(m Message) {
	if len(r.buf) == 0 {
		return
	}
	if r.count < len(r.buf) {
		r.buf[(r.head+r.count)%len(r.buf)] = m
		r.count++
		return
	}
	r.buf[r.head] = m
	r.head = (r.head + 1) % len(r.buf)
}

// len returns the number of stored messages.
func (r *ring) len() int {
	return r.count
}

// snapshot returns the messages oldest-first as a fresh slice.
func (r *ring) snapshot() []Message {
	out := make([]Message, r.count)
	for i := range r.count {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}

// reset empties the ring, releasing references to stored contents.
func (r *ring) reset() {
	clear(r.buf)
	r.head = 0
	r.count = 0
}
