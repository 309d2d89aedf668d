package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Priyanshu-aipalette/ai-coding-tool-backend/internal/log"
)

// Default configuration values.
const (
	DefaultMaxSessions           = 1000
	DefaultSessionTimeout        = 24 * time.Hour
	DefaultMaxMessagesPerSession = 5
	DefaultCleanupInterval       = 10 * time.Minute
)

// Config holds construction-time store settings. All fields are fixed once
// the store is created.
type Config struct {
	// MaxSessions bounds the total number of live sessions.
	MaxSessions int

	// SessionTimeout is the idle time after which a session becomes a
	// removal candidate, measured against its last update.
	SessionTimeout time.Duration

	// MaxMessagesPerSession bounds the history kept per session.
	MaxMessagesPerSession int

	// CleanupInterval is the period of the background expiry pass.
	CleanupInterval time.Duration
}

// normalize replaces nonpositive values with defaults.
func (c Config) normalize() Config {
	if c.MaxSessions <= 0 {
		c.MaxSessions = DefaultMaxSessions
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = DefaultSessionTimeout
	}
	if c.MaxMessagesPerSession <= 0 {
		c.MaxMessagesPerSession = DefaultMaxMessagesPerSession
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = DefaultCleanupInterval
	}
	return c
}

// session is the store-internal session record. Its mutex guards messages
// and updatedAt; createdAt is immutable after construction.
type session struct {
	mu        sync.Mutex
	messages  ring
	createdAt time.Time
	updatedAt time.Time
}

// Store is the process-wide session store. Construct once with New, pass by
// handle to all callers, and tear down by canceling the StartCleanup context.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session
	cfg      Config
	logger   log.Logger
	now      func() time.Time
}

// New creates an empty session store. Nonpositive config values fall back
// to defaults; a nil logger falls back to slog.Default().
func New(cfg Config, logger log.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sessions: make(map[string]*session),
		cfg:      cfg.normalize(),
		logger:   logger,
		now:      time.Now,
	}
}

// CreateSession registers a session and returns its ID. An empty id asks
// the store to generate one. Creating an existing id is idempotent: the id
// is returned with its state untouched.
//
// When the store is full, expired sessions are removed first; if the store
// is still full the least-recently-updated session is evicted. The call
// fails with ErrCapacityExceeded only when no session can be evicted.
func (s *Store) CreateSession(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	} else if _, ok := s.sessions[id]; ok {
		return id, nil
	}

	if err := s.ensureSlotLocked(); err != nil {
		return "", err
	}

	s.sessions[id] = s.newSessionLocked()
	return id, nil
}

// AddMessage validates and appends one turn to the session's history,
// creating the session if it does not exist. When the history is full the
// oldest message is dropped. Fails with ErrInvalidMessage (no mutation) on
// empty content or an unrecognized role, and with ErrCapacityExceeded when
// an implicit creation cannot free a slot.
func (s *Store) AddMessage(sessionID, role, content string) error {
	if !validRole(role) {
		return fmt.Errorf("%w: unrecognized role %q", ErrInvalidMessage, role)
	}
	if content == "" {
		return fmt.Errorf("%w: empty content", ErrInvalidMessage)
	}

	// Fast path under the read lock; fall back to creating the session
	// under the write lock and retry. The loop handles a concurrent delete
	// between the two acquisitions.
	for {
		s.mu.RLock()
		sess, ok := s.sessions[sessionID]
		if ok {
			sess.mu.Lock()
			now := s.now()
			sess.messages.push(Message{Role: role, Content: content, Timestamp: now})
			sess.updatedAt = now
			sess.mu.Unlock()
			s.mu.RUnlock()
			return nil
		}
		s.mu.RUnlock()

		s.mu.Lock()
		if _, ok := s.sessions[sessionID]; !ok {
			if err := s.ensureSlotLocked(); err != nil {
				s.mu.Unlock()
				return err
			}
			s.sessions[sessionID] = s.newSessionLocked()
		}
		s.mu.Unlock()
	}
}

// Messages returns a copy of the session's history, oldest first. A
// positive limit returns only the last limit messages. An unknown session
// yields an empty slice, not an error.
func (s *Store) Messages(sessionID string, limit int) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return []Message{}
	}

	sess.mu.Lock()
	msgs := sess.messages.snapshot()
	sess.mu.Unlock()

	if limit > 0 && limit < len(msgs) {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs
}

// MessagesForGemini projects the session's history into the Gemini API
// shape: assistant turns become "model", content becomes a single part.
// It is a pure projection; excluding the in-flight turn is the caller's
// responsibility.
func (s *Store) MessagesForGemini(sessionID string) []GeminiMessage {
	msgs := s.Messages(sessionID, 0)

	out := make([]GeminiMessage, len(msgs))
	for i, m := range msgs {
		role := geminiRoleModel
		if m.Role == RoleUser {
			role = RoleUser
		}
		out[i] = GeminiMessage{Role: role, Parts: []string{m.Content}}
	}
	return out
}

// Info returns a metadata snapshot for the session. The second return is
// false when the session does not exist.
func (s *Store) Info(sessionID string) (SessionInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return SessionInfo{}, false
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return SessionInfo{
		ID:           sessionID,
		MessageCount: sess.messages.len(),
		CreatedAt:    sess.createdAt,
		UpdatedAt:    sess.updatedAt,
		MaxMessages:  s.cfg.MaxMessagesPerSession,
	}, true
}

// ClearMessages empties the session's history while keeping the session
// record. Returns false when the session does not exist.
func (s *Store) ClearMessages(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return false
	}

	sess.mu.Lock()
	sess.messages.reset()
	sess.updatedAt = s.now()
	sess.mu.Unlock()
	return true
}

// DeleteSession removes the session entirely. Returns false when the
// session does not exist.
func (s *Store) DeleteSession(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return false
	}
	delete(s.sessions, sessionID)
	return true
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// CleanupExpired removes every session idle for at least SessionTimeout
// and returns the number removed.
func (s *Store) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeExpiredLocked()
}

// StartCleanup launches the periodic expiry pass. The goroutine exits when
// ctx is canceled (server shutdown).
func (s *Store) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.CleanupExpired(); n > 0 {
					s.logger.Debug("expired sessions removed", "count", n)
				}
			}
		}
	}()
}

// newSessionLocked allocates a session record; caller holds the write lock.
func (s *Store) newSessionLocked() *session {
	now := s.now()
	return &session{
		messages:  newRing(s.cfg.MaxMessagesPerSession),
		createdAt: now,
		updatedAt: now,
	}
}

// ensureSlotLocked frees room for one new session; caller holds the write
// lock. Expired sessions go first, then the least-recently-updated one.
func (s *Store) ensureSlotLocked() error {
	if len(s.sessions) < s.cfg.MaxSessions {
		return nil
	}

	if n := s.removeExpiredLocked(); n > 0 {
		s.logger.Debug("expired sessions removed at capacity", "count", n)
	}
	if len(s.sessions) < s.cfg.MaxSessions {
		return nil
	}

	var (
		oldestID string
		oldest   time.Time
	)
	for id, sess := range s.sessions {
		if oldestID == "" || sess.updatedAt.Before(oldest) {
			oldestID = id
			oldest = sess.updatedAt
		}
	}
	if oldestID == "" {
		return ErrCapacityExceeded
	}

	delete(s.sessions, oldestID)
	s.logger.Debug("session evicted at capacity", "session_id", oldestID, "idle_since", oldest)

	if len(s.sessions) >= s.cfg.MaxSessions {
		return ErrCapacityExceeded
	}
	return nil
}

// removeExpiredLocked deletes all expired sessions; caller holds the write
// lock. Holding the write lock excludes in-flight mutators, so no session
// is removed mid-mutation.
func (s *Store) removeExpiredLocked() int {
	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.updatedAt) >= s.cfg.SessionTimeout {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
