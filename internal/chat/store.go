package chat

import (
	"context"
	"sort"
	"sync"
	"time"
)

// SessionStore persists chat sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, session *ChatSession) error
	GetSession(ctx context.Context, sessionID string) (*ChatSession, error)
	UpdateSession(ctx context.Context, session *ChatSession) error
	// AttachLead links a lead to the session only if no lead is attached
	// yet. It reports whether this call won the claim.
	AttachLead(ctx context.Context, sessionID, leadID string) (bool, error)
	EndSession(ctx context.Context, sessionID string, at time.Time) error
	// ListIdleCandidates returns active sessions without a lead whose
	// captured name and phone are set and whose last update is older than
	// cutoff.
	ListIdleCandidates(ctx context.Context, cutoff time.Time, limit int) ([]*ChatSession, error)
}

// MessageStore persists the conversation transcript.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg *ChatMessage) error
	ListMessages(ctx context.Context, sessionID string) ([]*ChatMessage, error)
}

// InMemoryStore implements SessionStore and MessageStore in memory, used in
// tests and when running without a database.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*ChatSession
	messages map[string][]*ChatMessage

	// now is swappable so tests can control idleness.
	now func() time.Time
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]*ChatSession),
		messages: make(map[string][]*ChatMessage),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *InMemoryStore) CreateSession(ctx context.Context, session *ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	session.CreatedAt = now
	session.UpdatedAt = now
	copied := cloneSession(session)
	s.sessions[session.ID] = copied
	return nil
}

func (s *InMemoryStore) GetSession(ctx context.Context, sessionID string) (*ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return cloneSession(session), nil
}

func (s *InMemoryStore) UpdateSession(ctx context.Context, session *ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.sessions[session.ID]
	if !ok {
		return ErrSessionNotFound
	}
	session.CreatedAt = stored.CreatedAt
	session.UpdatedAt = s.now()
	// The lead pointer is one-way: once set it is never unset or repointed.
	if stored.LeadID != "" {
		session.LeadID = stored.LeadID
	}
	s.sessions[session.ID] = cloneSession(session)
	return nil
}

func (s *InMemoryStore) AttachLead(ctx context.Context, sessionID, leadID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return false, ErrSessionNotFound
	}
	if session.LeadID != "" {
		return false, nil
	}
	session.LeadID = leadID
	session.UpdatedAt = s.now()
	return true, nil
}

func (s *InMemoryStore) EndSession(ctx context.Context, sessionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	session.IsActive = false
	session.EndedAt = &at
	session.UpdatedAt = s.now()
	return nil
}

func (s *InMemoryStore) ListIdleCandidates(ctx context.Context, cutoff time.Time, limit int) ([]*ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*ChatSession
	for _, session := range s.sessions {
		if !session.IsActive || session.LeadID != "" {
			continue
		}
		if session.CapturedName == "" || session.CapturedPhone == "" {
			continue
		}
		if !session.UpdatedAt.Before(cutoff) {
			continue
		}
		out = append(out, cloneSession(session))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) AppendMessage(ctx context.Context, msg *ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	copied := *msg
	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], &copied)
	return nil
}

func (s *InMemoryStore) ListMessages(ctx context.Context, sessionID string) ([]*ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.messages[sessionID]
	out := make([]*ChatMessage, 0, len(stored))
	for _, msg := range stored {
		copied := *msg
		out = append(out, &copied)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Touch backdates a session's UpdatedAt. Test helper for idleness scenarios.
func (s *InMemoryStore) Touch(sessionID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[sessionID]; ok {
		session.UpdatedAt = at
	}
}

func cloneSession(session *ChatSession) *ChatSession {
	copied := *session
	copied.UserResponses = make(map[string]string, len(session.UserResponses))
	for k, v := range session.UserResponses {
		copied.UserResponses[k] = v
	}
	if session.EndedAt != nil {
		ended := *session.EndedAt
		copied.EndedAt = &ended
	}
	return &copied
}
