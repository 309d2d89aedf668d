// Package api implements the JSON HTTP API of the backend.
//
// Endpoints (prefix /api/v1 unless noted):
//
//	GET    /health                        liveness probe (no middleware)
//	GET    /api/v1/health                 health with active session count
//	POST   /api/v1/sessions               create a session
//	GET    /api/v1/sessions/{id}          session metadata
//	GET    /api/v1/sessions/{id}/messages session history (?limit=N)
//	DELETE /api/v1/sessions/{id}/messages clear history, keep the session
//	DELETE /api/v1/sessions/{id}          delete the session
//	POST   /api/v1/chat                   synchronous chat
//	POST   /api/v1/chat/stream            streaming chat (SSE)
//	POST   /api/v1/stream                 streaming chat seeded from a
//	                                      client-supplied transcript
//
// Handlers are plain structs wired by NewServer onto a net/http ServeMux
// using Go 1.22 method patterns. The middleware stack (outermost first) is
// recovery, request ID, tracing, logging, CORS, per-IP rate limiting.
//
// The model client is injected as the Generator interface; a nil Generator
// keeps session endpoints fully functional while chat endpoints answer 503.
package api
