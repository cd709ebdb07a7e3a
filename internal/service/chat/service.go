package chat

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zhouzirui/voicemate/backend/internal/model/chat"
)

const DefaultHistoryCap = 20

var (
	ErrSessionRequired = errors.New("session id is required")
	ErrInvalidRole     = errors.New("message role must be user or assistant")
)

type session struct {
	createdAt  time.Time
	lastAccess time.Time
	messages   []chat.Message
}

// Service keeps conversation history in memory, bounded per session.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*session
	cap      int
	now      func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService bootstraps the in-memory store. A non-positive cap falls back to DefaultHistoryCap.
func NewService(historyCap int, opts ...Option) *Service {
	if historyCap < 1 {
		historyCap = DefaultHistoryCap
	}
	s := &Service{
		sessions: make(map[string]*session),
		cap:      historyCap,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HistoryCap returns the retention limit per session.
func (s *Service) HistoryCap() int {
	return s.cap
}

// CreateSession provisions an empty session with a server-generated identifier.
func (s *Service) CreateSession(ctx context.Context) chat.Session {
	return s.GetOrCreate(ctx, uuid.NewString())
}

// GetOrCreate returns the session, creating it on first reference.
func (s *Service) GetOrCreate(_ context.Context, sessionID string) chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess := s.getOrCreateLocked(sessionID, now)
	sess.lastAccess = now
	return snapshot(sessionID, sess)
}

// Append stores message at the tail of the session, evicting the oldest entries beyond the cap.
func (s *Service) Append(_ context.Context, sessionID string, message chat.Message) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrSessionRequired
	}
	if message.Role != chat.RoleUser && message.Role != chat.RoleAssistant {
		return ErrInvalidRole
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = now
	}

	sess := s.getOrCreateLocked(sessionID, now)
	sess.messages = append(sess.messages, message)
	if overflow := len(sess.messages) - s.cap; overflow > 0 {
		// 重新分配底层数组，避免被淘汰的消息一直被引用。
		kept := make([]chat.Message, s.cap, s.cap+1)
		copy(kept, sess.messages[overflow:])
		sess.messages = kept
	}
	sess.lastAccess = now
	return nil
}

// History returns a copy of the session's messages, oldest first. Unknown sessions yield an empty slice.
func (s *Service) History(_ context.Context, sessionID string) []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return []chat.Message{}
	}
	copied := make([]chat.Message, len(sess.messages))
	copy(copied, sess.messages)
	return copied
}

// Clear empties the session history and reports how many messages were removed.
// The session itself stays known.
func (s *Service) Clear(_ context.Context, sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return 0
	}
	removed := len(sess.messages)
	sess.messages = nil
	sess.lastAccess = s.now()
	return removed
}

// ListSessions summarizes every known session, most recently used first.
func (s *Service) ListSessions(_ context.Context) []chat.SessionSummary {
	s.mu.RLock()
	summaries := make([]chat.SessionSummary, 0, len(s.sessions))
	for id, sess := range s.sessions {
		summary := chat.SessionSummary{
			ID:           id,
			MessageCount: len(sess.messages),
			CreatedAt:    sess.createdAt,
			LastAccess:   sess.lastAccess,
		}
		if n := len(sess.messages); n > 0 {
			first := sess.messages[0].Timestamp
			last := sess.messages[n-1].Timestamp
			summary.FirstMessageAt = &first
			summary.LastMessageAt = &last
		}
		summaries = append(summaries, summary)
	}
	s.mu.RUnlock()

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].LastAccess.Equal(summaries[j].LastAccess) {
			return summaries[i].ID < summaries[j].ID
		}
		return summaries[i].LastAccess.After(summaries[j].LastAccess)
	})
	return summaries
}

// Stats reports session and message totals.
func (s *Service) Stats(_ context.Context) chat.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := chat.Stats{Sessions: len(s.sessions)}
	for _, sess := range s.sessions {
		stats.Messages += len(sess.messages)
	}
	return stats
}

func (s *Service) getOrCreateLocked(sessionID string, now time.Time) *session {
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{createdAt: now, lastAccess: now}
		s.sessions[sessionID] = sess
	}
	return sess
}

func snapshot(id string, sess *session) chat.Session {
	messages := make([]chat.Message, len(sess.messages))
	copy(messages, sess.messages)
	return chat.Session{
		ID:         id,
		Messages:   messages,
		CreatedAt:  sess.createdAt,
		LastAccess: sess.lastAccess,
	}
}
