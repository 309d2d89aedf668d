package testutil

import "testing"

func TestParseSSEEvents(t *testing.T) {
	body := "event: chunk\ndata: {\"text\":\"hi\"}\n\n" +
		": keepalive\n" +
		"event: done\ndata: {\"done\":true}\n\n"

	events := ParseSSEEvents(t, body)
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Type != "chunk" || events[0].Data != `{"text":"hi"}` {
		t.Errorf("events[0] = %+v", events[0])
	}
	if events[1].Type != "done" {
		t.Errorf("events[1].Type = %q, want done", events[1].Type)
	}
}

func TestParseSSEEvents_MultilineData(t *testing.T) {
	body := "event: chunk\ndata: line one\ndata: line two\n\n"

	events := ParseSSEEvents(t, body)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Data != "line one\nline two" {
		t.Errorf("data = %q, want joined lines", events[0].Data)
	}
}

func TestParseSSEEvents_DefaultType(t *testing.T) {
	events := ParseSSEEvents(t, "data: hello\n\n")
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Type != "message" {
		t.Errorf("type = %q, want message", events[0].Type)
	}
}

func TestParseSSEEvents_UnterminatedEvent(t *testing.T) {
	events := ParseSSEEvents(t, "event: chunk\ndata: partial\n")
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1 (trailing event flushed)", len(events))
	}
}

func TestFindEvent(t *testing.T) {
	events := []SSEEvent{{Type: "chunk"}, {Type: "done", Data: "x"}}

	if e := FindEvent(events, "done"); e == nil || e.Data != "x" {
		t.Errorf("FindEvent(done) = %+v, want data x", e)
	}
	if e := FindEvent(events, "error"); e != nil {
		t.Errorf("FindEvent(error) = %+v, want nil", e)
	}
}

type payload struct {
	Text string `json:"text"`
}

func TestDecodeData(t *testing.T) {
	e := SSEEvent{Type: "chunk", Data: `{"text":"hi"}`}

	var p payload
	e.DecodeData(t, &p)
	if p.Text != "hi" {
		t.Errorf("text = %q, want hi", p.Text)
	}
}
