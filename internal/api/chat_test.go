package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/Priyanshu-aipalette/ai-coding-tool-backend/internal/store"
	"github.com/Priyanshu-aipalette/ai-coding-tool-backend/internal/testutil"
)

// stubGenerator returns canned responses and records the calls it saw.
type stubGenerator struct {
	response string
	chunks   []string
	err      error

	lastPrompt  string
	lastHistory []store.GeminiMessage
}

func (g *stubGenerator) Generate(_ context.Context, prompt string, history []store.GeminiMessage) (string, error) {
	g.lastPrompt = prompt
	g.lastHistory = history
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func (g *stubGenerator) GenerateStream(_ context.Context, prompt string, history []store.GeminiMessage, fn func(chunk string) error) (string, error) {
	g.lastPrompt = prompt
	g.lastHistory = history
	if g.err != nil {
		return "", g.err
	}
	var full strings.Builder
	for _, c := range g.chunks {
		if err := fn(c); err != nil {
			return "", err
		}
		full.WriteString(c)
	}
	return full.String(), nil
}

func TestChat_NewSession(t *testing.T) {
	st := newTestStore(t)
	gen := &stubGenerator{response: "2+2 equals 4."}
	h := newTestServer(t, st, gen)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/chat", `{"message":"What is 2+2?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body)
	}

	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Message != "2+2 equals 4." {
		t.Errorf("message = %q, want %q", resp.Message, "2+2 equals 4.")
	}
	if resp.SessionID == "" {
		t.Fatal("session_id is empty")
	}
	if resp.Role != store.RoleAssistant {
		t.Errorf("role = %q, want %q", resp.Role, store.RoleAssistant)
	}

	msgs := st.Messages(resp.SessionID, 0)
	if len(msgs) != 2 {
		t.Fatalf("stored messages = %d, want 2", len(msgs))
	}
	if msgs[0].Role != store.RoleUser || msgs[1].Role != store.RoleAssistant {
		t.Errorf("roles = %q, %q, want user then assistant", msgs[0].Role, msgs[1].Role)
	}
}

func TestChat_HistoryExcludesCurrentTurn(t *testing.T) {
	st := newTestStore(t)
	gen := &stubGenerator{response: "ok"}
	h := newTestServer(t, st, gen)

	id, _ := st.CreateSession("")
	if err := st.AddMessage(id, store.RoleUser, "first question"); err != nil {
		t.Fatalf("AddMessage() error: %v", err)
	}
	if err := st.AddMessage(id, store.RoleAssistant, "first answer"); err != nil {
		t.Fatalf("AddMessage() error: %v", err)
	}

	body := fmt.Sprintf(`{"message":"second question","session_id":%q}`, id)
	rec := doRequest(t, h, http.MethodPost, "/api/v1/chat", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	if gen.lastPrompt != "second question" {
		t.Errorf("prompt = %q, want %q", gen.lastPrompt, "second question")
	}
	if len(gen.lastHistory) != 2 {
		t.Fatalf("history length = %d, want 2", len(gen.lastHistory))
	}
	if gen.lastHistory[1].Role != "model" {
		t.Errorf("history[1].Role = %q, want %q", gen.lastHistory[1].Role, "model")
	}
}

func TestHistoryContext(t *testing.T) {
	tests := []struct {
		name    string
		history []store.GeminiMessage
		wantLen int
	}{
		{"empty after concurrent clear", nil, 0},
		{"single turn", []store.GeminiMessage{{Role: "user"}}, 0},
		{"multiple turns", []store.GeminiMessage{{Role: "user"}, {Role: "model"}, {Role: "user"}}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := historyContext(tt.history)
			if len(got) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestChat_ConcurrentClear(t *testing.T) {
	st := newTestStore(t)
	gen := &stubGenerator{response: "ok"}
	h := newTestServer(t, st, gen)

	id, _ := st.CreateSession("")

	// Clears racing chat requests must never surface a 500: the handler
	// may observe an empty history between its add and its read.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				st.ClearMessages(id)
			}
		}
	}()

	// Stay under the per-IP rate limit burst.
	body := fmt.Sprintf(`{"message":"hi","session_id":%q}`, id)
	for range 50 {
		rec := doRequest(t, h, http.MethodPost, "/api/v1/chat", body)
		if rec.Code == http.StatusInternalServerError {
			t.Fatalf("chat returned 500 during concurrent clears: %s", rec.Body)
		}
	}

	close(stop)
	wg.Wait()
}

func TestChat_MissingMessage(t *testing.T) {
	h := newTestServer(t, newTestStore(t), &stubGenerator{})

	rec := doRequest(t, h, http.MethodPost, "/api/v1/chat", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestChat_UnknownSession(t *testing.T) {
	h := newTestServer(t, newTestStore(t), &stubGenerator{response: "ok"})

	rec := doRequest(t, h, http.MethodPost, "/api/v1/chat", `{"message":"hi","session_id":"missing"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestChat_NoGenerator(t *testing.T) {
	h := newTestServer(t, newTestStore(t), nil)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/chat", `{"message":"hi"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestChat_GenerationError(t *testing.T) {
	st := newTestStore(t)
	gen := &stubGenerator{err: errors.New("boom")}
	h := newTestServer(t, st, gen)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/chat", `{"message":"hi"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestChatStream_Events(t *testing.T) {
	st := newTestStore(t)
	gen := &stubGenerator{chunks: []string{"Hello", ", ", "world"}}
	h := newTestServer(t, st, gen)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/chat/stream", `{"message":"greet me"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want %q", ct, "text/event-stream")
	}

	events := testutil.ParseSSEEvents(t, rec.Body.String())
	if len(events) != 4 {
		t.Fatalf("events = %d, want 4 (3 chunks + done): %v", len(events), events)
	}
	for i, want := range []string{"Hello", ", ", "world"} {
		if events[i].Type != eventChunk {
			t.Fatalf("events[%d].Type = %q, want %q", i, events[i].Type, eventChunk)
		}
		var p chunkPayload
		if err := json.Unmarshal([]byte(events[i].Data), &p); err != nil {
			t.Fatalf("decoding chunk %d: %v", i, err)
		}
		if p.Text != want {
			t.Errorf("chunk %d = %q, want %q", i, p.Text, want)
		}
	}

	last := events[len(events)-1]
	if last.Type != eventDone {
		t.Fatalf("final event = %q, want %q", last.Type, eventDone)
	}
	var done donePayload
	if err := json.Unmarshal([]byte(last.Data), &done); err != nil {
		t.Fatalf("decoding done payload: %v", err)
	}
	if done.Response != "Hello, world" {
		t.Errorf("response = %q, want %q", done.Response, "Hello, world")
	}
	if done.MessageCount != 2 {
		t.Errorf("message_count = %d, want 2", done.MessageCount)
	}

	msgs := st.Messages(done.SessionID, 0)
	if len(msgs) != 2 {
		t.Fatalf("stored messages = %d, want 2", len(msgs))
	}
	if msgs[1].Content != "Hello, world" {
		t.Errorf("stored reply = %q, want %q", msgs[1].Content, "Hello, world")
	}
}

func TestChatStream_GenerationError(t *testing.T) {
	st := newTestStore(t)
	gen := &stubGenerator{err: errors.New("boom")}
	h := newTestServer(t, st, gen)

	rec := doRequest(t, h, http.MethodPost, "/api/v1/chat/stream", `{"message":"hi"}`)

	events := testutil.ParseSSEEvents(t, rec.Body.String())
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1: %v", len(events), events)
	}
	if events[0].Type != eventError {
		t.Errorf("event = %q, want %q", events[0].Type, eventError)
	}
}

func TestStreamSeeded_TranscriptSeedsFreshSession(t *testing.T) {
	st := newTestStore(t)
	gen := &stubGenerator{chunks: []string{"6"}}
	h := newTestServer(t, st, gen)

	body := `{
		"prompt": "What is 3+3?",
		"messages": [
			{"role": "user", "content": "What is 2+2?"},
			{"role": "assistant", "content": "4"},
			{"role": "user", "content": "What is 3+3?"}
		]
	}`
	rec := doRequest(t, h, http.MethodPost, "/api/v1/stream", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	events := testutil.ParseSSEEvents(t, rec.Body.String())
	last := events[len(events)-1]
	if last.Type != eventDone {
		t.Fatalf("final event = %q, want %q", last.Type, eventDone)
	}
	var done donePayload
	if err := json.Unmarshal([]byte(last.Data), &done); err != nil {
		t.Fatalf("decoding done payload: %v", err)
	}

	// Transcript (minus the duplicated prompt) + prompt + reply.
	msgs := st.Messages(done.SessionID, 0)
	want := []struct{ role, content string }{
		{store.RoleUser, "What is 2+2?"},
		{store.RoleAssistant, "4"},
		{store.RoleUser, "What is 3+3?"},
		{store.RoleAssistant, "6"},
	}
	if len(msgs) != len(want) {
		t.Fatalf("stored messages = %d, want %d: %+v", len(msgs), len(want), msgs)
	}
	for i, w := range want {
		if msgs[i].Role != w.role || msgs[i].Content != w.content {
			t.Errorf("messages[%d] = {%q %q}, want {%q %q}", i, msgs[i].Role, msgs[i].Content, w.role, w.content)
		}
	}

	// Model context excludes the turn being answered.
	if len(gen.lastHistory) != 2 {
		t.Errorf("history length = %d, want 2", len(gen.lastHistory))
	}
}

func TestStreamSeeded_ExistingSessionIgnoresTranscript(t *testing.T) {
	st := newTestStore(t)
	gen := &stubGenerator{chunks: []string{"ok"}}
	h := newTestServer(t, st, gen)

	id, _ := st.CreateSession("")
	if err := st.AddMessage(id, store.RoleUser, "earlier"); err != nil {
		t.Fatalf("AddMessage() error: %v", err)
	}

	body := fmt.Sprintf(`{
		"prompt": "next",
		"session_id": %q,
		"messages": [{"role": "user", "content": "should be ignored"}]
	}`, id)
	rec := doRequest(t, h, http.MethodPost, "/api/v1/stream", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	for _, m := range st.Messages(id, 0) {
		if m.Content == "should be ignored" {
			t.Error("transcript was seeded into a non-empty session")
		}
	}
}

func TestStreamSeeded_MissingPrompt(t *testing.T) {
	h := newTestServer(t, newTestStore(t), &stubGenerator{})

	rec := doRequest(t, h, http.MethodPost, "/api/v1/stream", `{"messages":[]}`)

	events := testutil.ParseSSEEvents(t, rec.Body.String())
	if len(events) != 1 || events[0].Type != eventError {
		t.Fatalf("events = %v, want single error event", events)
	}
}
