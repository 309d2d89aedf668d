package store

import "time"

// Role constants define valid message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// geminiRoleModel is the role name the Gemini API uses for assistant turns.
const geminiRoleModel = "model"

// Message is a single conversation turn. Immutable once stored.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// GeminiMessage is a message projected into the shape the Gemini API
// expects: "user"/"model" roles and content split into parts.
type GeminiMessage struct {
	Role  string   `json:"role"`
	Parts []string `json:"parts"`
}

// SessionInfo is a point-in-time snapshot of session metadata.
type SessionInfo struct {
	ID           string    `json:"session_id"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MaxMessages  int       `json:"max_messages"`
}

// validRole reports whether role belongs to the recognized set.
func validRole(role string) bool {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}
