package store

import "testing"

func msg(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func contents(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

func TestRing_PushBelowCapacity(t *testing.T) {
	r := newRing(3)
	r.push(msg("a"))
	r.push(msg("b"))

	if r.len() != 2 {
		t.Fatalf("len() = %d, want 2", r.len())
	}

	got := contents(r.snapshot())
	want := []string{"a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("snapshot()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRing_OverwritesOldest(t *testing.T) {
	r := newRing(3)
	for _, c := range []string{"a", "b", "c", "d", "e"} {
		r.push(msg(c))
	}

	if r.len() != 3 {
		t.Fatalf("len() = %d, want 3", r.len())
	}

	got := contents(r.snapshot())
	want := []string{"c", "d", "e"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("snapshot()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRing_Reset(t *testing.T) {
	r := newRing(2)
	r.push(msg("a"))
	r.push(msg("b"))
	r.push(msg("c"))

	r.reset()

	if r.len() != 0 {
		t.Fatalf("len() after reset = %d, want 0", r.len())
	}
	if got := r.snapshot(); len(got) != 0 {
		t.Fatalf("snapshot() after reset has %d entries, want 0", len(got))
	}

	// Reusable after reset, with insertion order restarting cleanly.
	r.push(msg("x"))
	got := contents(r.snapshot())
	if len(got) != 1 || got[0] != "x" {
		t.Errorf("snapshot() after reuse = %v, want [x]", got)
	}
}

func TestRing_SnapshotIsACopy(t *testing.T) {
	r := newRing(2)
	r.push(msg("a"))

	snap := r.snapshot()
	snap[0].Content = "mutated"

	if got := r.snapshot()[0].Content; got != "a" {
		t.Errorf("ring content = %q after mutating snapshot, want %q", got, "a")
	}
}

func TestRing_ZeroCapacity(t *testing.T) {
	r := newRing(0)
	r.push(msg("a"))

	if r.len() != 0 {
		t.Errorf("len() = %d, want 0", r.len())
	}
}
