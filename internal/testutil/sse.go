// Package testutil provides shared test helpers.
package testutil

import (
	"bufio"
	"encoding/json"
	"strings"
	"testing"
)

// SSEEvent is one parsed Server-Sent Event.
type SSEEvent struct {
	Type string // event: value ("message" when the stream omits it)
	Data string // data: value, multi-line joined with \n
}

// DecodeData unmarshals the event's JSON data payload into v.
func (e SSEEvent) DecodeData(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(e.Data), v); err != nil {
		t.Fatalf("decoding %s event data %q: %v", e.Type, e.Data, err)
	}
}

// ParseSSEEvents parses an SSE response body into structured events.
// Multiple data: lines are joined with newline, a blank line terminates an
// event, and comment lines (leading ":") are skipped.
func ParseSSEEvents(t *testing.T, body string) []SSEEvent {
	t.Helper()

	var events []SSEEvent
	cur := SSEEvent{}
	var data []string

	flush := func() {
		if cur.Type == "" && len(data) == 0 {
			return
		}
		if cur.Type == "" {
			cur.Type = "message"
		}
		cur.Data = strings.Join(data, "\n")
		events = append(events, cur)
		cur = SSEEvent{}
		data = nil
	}

	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "event: "):
			cur.Type = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = append(data, strings.TrimPrefix(line, "data: "))
		default:
			t.Fatalf("unexpected SSE line: %q", line)
		}
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scanning SSE body: %v", err)
	}
	flush()

	return events
}

// FindEvent returns the first event of the given type, or nil.
func FindEvent(events []SSEEvent, eventType string) *SSEEvent {
	for i := range events {
		if events[i].Type == eventType {
			return &events[i]
		}
	}
	return nil
}
