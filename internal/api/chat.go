package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Priyanshu-aipalette/ai-coding-tool-backend/internal/log"
	"github.com/Priyanshu-aipalette/ai-coding-tool-backend/internal/store"
)

// Generator is the language-model surface the chat endpoints need.
// Implemented by gemini.Client; tests substitute a stub.
type Generator interface {
	// Generate produces a complete reply to prompt given prior turns.
	Generate(ctx context.Context, prompt string, history []store.GeminiMessage) (string, error)

	// GenerateStream streams the reply chunk by chunk through fn and
	// returns the accumulated text.
	GenerateStream(ctx context.Context, prompt string, history []store.GeminiMessage, fn func(chunk string) error) (string, error)
}

// SSE event types for chat streaming.
const (
	eventChunk = "chunk" // partial response text
	eventDone  = "done"  // stream completed successfully
	eventError = "error" // error occurred during streaming
)

// chunkPayload is the SSE data payload for streaming text chunks.
type chunkPayload struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id"`
}

// donePayload is the SSE data payload when streaming completes.
type donePayload struct {
	Done         bool   `json:"done"`
	Response     string `json:"response"`
	SessionID    string `json:"session_id"`
	MessageCount int    `json:"message_count"`
}

// errorPayload is the SSE data payload when an error occurs.
type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// chatHandler serves the chat endpoints, wiring the session store to the
// generation client.
type chatHandler struct {
	store     *store.Store
	generator Generator
	logger    log.Logger
}

// send handles POST /api/v1/chat (synchronous).
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "missing_message", "message is required", h.logger)
		return
	}
	if h.generator == nil {
		writeError(w, http.StatusServiceUnavailable, "model_unavailable", "model client not configured", h.logger)
		return
	}

	sessionID, ok := h.resolveSession(w, req.SessionID)
	if !ok {
		return
	}

	if err := h.store.AddMessage(sessionID, store.RoleUser, req.Message); err != nil {
		h.writeStoreError(w, err)
		return
	}

	history := historyContext(h.store.MessagesForGemini(sessionID))

	response, err := h.generator.Generate(r.Context(), req.Message, history)
	if err != nil {
		h.logger.Error("generating response", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "generation_failed", "failed to generate response", h.logger)
		return
	}

	if err := h.store.AddMessage(sessionID, store.RoleAssistant, response); err != nil {
		h.logger.Warn("storing assistant reply", "session_id", sessionID, "error", err)
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Message:   response,
		SessionID: sessionID,
		Role:      store.RoleAssistant,
		Timestamp: time.Now().UTC(),
	}, h.logger)
}

// stream handles POST /api/v1/chat/stream (SSE).
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	sse, ok := newSSEWriter(w)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	var req chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = sse.writeEvent(eventError, errorPayload{Code: "invalid_request", Message: "invalid request body"})
		return
	}
	if req.Message == "" {
		_ = sse.writeEvent(eventError, errorPayload{Code: "missing_message", Message: "message is required"})
		return
	}
	if h.generator == nil {
		_ = sse.writeEvent(eventError, errorPayload{Code: "model_unavailable", Message: "model client not configured"})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		var err error
		if sessionID, err = h.store.CreateSession(""); err != nil {
			_ = sse.writeEvent(eventError, errorPayload{Code: "capacity_exceeded", Message: "no session slot available"})
			return
		}
	} else if _, ok := h.store.Info(sessionID); !ok {
		_ = sse.writeEvent(eventError, errorPayload{Code: "session_not_found", Message: "session not found"})
		return
	}

	if err := h.store.AddMessage(sessionID, store.RoleUser, req.Message); err != nil {
		_ = sse.writeEvent(eventError, errorPayload{Code: "invalid_message", Message: err.Error()})
		return
	}

	history := historyContext(h.store.MessagesForGemini(sessionID))
	h.streamResponse(r.Context(), sse, sessionID, req.Message, history)
}

// streamSeeded handles POST /api/v1/stream: a streaming chat that accepts a
// client-held transcript and persists it into a fresh session, so clients
// migrating from stateless operation keep their context.
func (h *chatHandler) streamSeeded(w http.ResponseWriter, r *http.Request) {
	sse, ok := newSSEWriter(w)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	var req streamRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = sse.writeEvent(eventError, errorPayload{Code: "invalid_request", Message: "invalid request body"})
		return
	}
	if req.Prompt == "" {
		_ = sse.writeEvent(eventError, errorPayload{Code: "missing_prompt", Message: "prompt is required"})
		return
	}
	if h.generator == nil {
		_ = sse.writeEvent(eventError, errorPayload{Code: "model_unavailable", Message: "model client not configured"})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		var err error
		if sessionID, err = h.store.CreateSession(""); err != nil {
			_ = sse.writeEvent(eventError, errorPayload{Code: "capacity_exceeded", Message: "no session slot available"})
			return
		}
	}

	// A fresh session gets seeded with the client-supplied transcript
	// before the prompt, skipping the current prompt itself.
	if len(req.Messages) > 0 && len(h.store.Messages(sessionID, 0)) == 0 {
		for _, m := range req.Messages {
			if m.Content == "" || m.Content == req.Prompt {
				continue
			}
			role := strings.ToLower(m.Role)
			if role != store.RoleAssistant && role != store.RoleSystem {
				role = store.RoleUser
			}
			if err := h.store.AddMessage(sessionID, role, m.Content); err != nil {
				h.logger.Warn("seeding transcript message", "session_id", sessionID, "error", err)
			}
		}
	}

	// Sessions named by the client are created on first use.
	if err := h.store.AddMessage(sessionID, store.RoleUser, req.Prompt); err != nil {
		_ = sse.writeEvent(eventError, errorPayload{Code: "invalid_message", Message: err.Error()})
		return
	}

	history := historyContext(h.store.MessagesForGemini(sessionID))
	h.streamResponse(r.Context(), sse, sessionID, req.Prompt, history)
}

// streamResponse runs the generation stream and emits SSE events. The
// assistant reply is persisted only on success.
func (h *chatHandler) streamResponse(ctx context.Context, sse *sseWriter, sessionID, prompt string, history []store.GeminiMessage) {
	full, err := h.generator.GenerateStream(ctx, prompt, history, func(chunk string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return sse.writeEvent(eventChunk, chunkPayload{Text: chunk, SessionID: sessionID})
	})
	if err != nil {
		if ctx.Err() != nil {
			h.logger.Info("client disconnected", "session_id", sessionID)
			return
		}
		h.logger.Error("streaming response", "session_id", sessionID, "error", err)
		_ = sse.writeEvent(eventError, errorPayload{Code: "generation_failed", Message: "failed to generate response"})
		return
	}

	if err := h.store.AddMessage(sessionID, store.RoleAssistant, full); err != nil {
		h.logger.Warn("storing assistant reply", "session_id", sessionID, "error", err)
	}

	info, _ := h.store.Info(sessionID)
	_ = sse.writeEvent(eventDone, donePayload{
		Done:         true,
		Response:     full,
		SessionID:    sessionID,
		MessageCount: info.MessageCount,
	})
}

// historyContext returns the prior turns to use as model context, dropping
// the turn currently being answered. The add and the history read are
// separate store critical sections, so a concurrent clear or delete can
// empty the history in between; an empty read yields no context.
func historyContext(history []store.GeminiMessage) []store.GeminiMessage {
	if len(history) == 0 {
		return nil
	}
	return history[:len(history)-1]
}

// resolveSession validates or creates the session for a synchronous chat
// call. Writes the error response itself when returning ok=false.
func (h *chatHandler) resolveSession(w http.ResponseWriter, sessionID string) (string, bool) {
	if sessionID == "" {
		id, err := h.store.CreateSession("")
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "capacity_exceeded", "no session slot available", h.logger)
			return "", false
		}
		return id, true
	}
	if _, ok := h.store.Info(sessionID); !ok {
		writeError(w, http.StatusNotFound, "session_not_found", "session not found", h.logger)
		return "", false
	}
	return sessionID, true
}

// writeStoreError maps store errors to HTTP error responses.
func (h *chatHandler) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidMessage):
		writeError(w, http.StatusBadRequest, "invalid_message", err.Error(), h.logger)
	case errors.Is(err, store.ErrCapacityExceeded):
		writeError(w, http.StatusServiceUnavailable, "capacity_exceeded", "no session slot available", h.logger)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", h.logger)
	}
}

// sseWriter emits Server-Sent Events with JSON payloads.
type sseWriter struct {
	w       io.Writer
	flusher http.Flusher
}

// newSSEWriter prepares w for SSE streaming and sets the response headers.
// Returns ok=false when w does not support flushing.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering

	return &sseWriter{w: w, flusher: flusher}, true
}

// writeEvent writes a single SSE event in "event: <type>\ndata: <json>\n\n"
// format and flushes it to the client.
func (s *sseWriter) writeEvent(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	s.flusher.Flush()
	return nil
}
