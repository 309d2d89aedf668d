package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Priyanshu-aipalette/ai-coding-tool-backend/internal/log"
	"github.com/Priyanshu-aipalette/ai-coding-tool-backend/internal/store"
)

// maxBodyBytes bounds request bodies across all POST handlers.
const maxBodyBytes = 1 << 20 // 1MB

// sessionHandler serves session CRUD endpoints on top of the store.
type sessionHandler struct {
	store  *store.Store
	logger log.Logger
}

// create handles POST /api/v1/sessions. The body is optional; when present
// it may name the session ID to create (idempotent for existing IDs).
func (h *sessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req sessionCreateRequest

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "failed to read request body", h.logger)
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
			return
		}
	}

	id, err := h.store.CreateSession(req.SessionID)
	if err != nil {
		if errors.Is(err, store.ErrCapacityExceeded) {
			writeError(w, http.StatusServiceUnavailable, "capacity_exceeded", "no session slot available", h.logger)
			return
		}
		h.logger.Error("creating session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create session", h.logger)
		return
	}

	info, _ := h.store.Info(id)
	writeJSON(w, http.StatusCreated, sessionCreateResponse{
		SessionID: id,
		CreatedAt: info.CreatedAt,
	}, h.logger)
}

// get handles GET /api/v1/sessions/{id}.
func (h *sessionHandler) get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	info, ok := h.store.Info(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session_not_found", "session not found", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, info, h.logger)
}

// messages handles GET /api/v1/sessions/{id}/messages?limit=N.
func (h *sessionHandler) messages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if _, ok := h.store.Info(id); !ok {
		writeError(w, http.StatusNotFound, "session_not_found", "session not found", h.logger)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer", h.logger)
			return
		}
		limit = n
	}

	writeJSON(w, http.StatusOK, messagesResponse{
		Messages: h.store.Messages(id, limit),
	}, h.logger)
}

// clear handles DELETE /api/v1/sessions/{id}/messages. The session record
// survives with an empty history.
func (h *sessionHandler) clear(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if !h.store.ClearMessages(id) {
		writeError(w, http.StatusNotFound, "session_not_found", "session not found", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "session messages cleared"}, h.logger)
}

// delete handles DELETE /api/v1/sessions/{id}.
func (h *sessionHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if !h.store.DeleteSession(id) {
		writeError(w, http.StatusNotFound, "session_not_found", "session not found", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "session deleted"}, h.logger)
}

// probe is the bare liveness endpoint, kept outside the middleware stack
// so load balancer checks never hit the rate limiter.
func probe(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
}

// healthHandler serves the versioned health endpoint.
type healthHandler struct {
	store   *store.Store
	version string
	logger  log.Logger
}

// health handles GET /api/v1/health.
func (h *healthHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:         "healthy",
		Timestamp:      time.Now().UTC(),
		Version:        h.version,
		ActiveSessions: h.store.Count(),
	}, h.logger)
}
