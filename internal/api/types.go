package api

import (
	"time"

	"github.com/Priyanshu-aipalette/ai-coding-tool-backend/internal/store"
)

// Request/response bodies for the JSON API. Field names mirror the wire
// format consumed by the frontend.

// chatRequest asks for a reply to message within a session.
type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// chatResponse carries the generated reply.
type chatResponse struct {
	Message   string    `json:"message"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}

// sessionCreateRequest optionally names the session to create.
type sessionCreateRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

// sessionCreateResponse confirms a created (or already existing) session.
type sessionCreateResponse struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// messagesResponse wraps a session's history.
type messagesResponse struct {
	Messages []store.Message `json:"messages"`
}

// healthResponse reports service liveness and load.
type healthResponse struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	Version        string    `json:"version"`
	ActiveSessions int       `json:"active_sessions"`
}

// streamMessage is one turn of a client-supplied transcript.
type streamMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// streamRequest asks for a streamed reply to prompt, optionally seeding a
// fresh session with a prior transcript.
type streamRequest struct {
	Messages  []streamMessage `json:"messages,omitempty"`
	Prompt    string          `json:"prompt"`
	SessionID string          `json:"session_id,omitempty"`
}
