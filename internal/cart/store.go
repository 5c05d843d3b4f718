package cart

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mvega/pos-checkout-service/internal/apperrors"
	"github.com/mvega/pos-checkout-service/internal/model"
)

// SessionStore holds in-flight checkout sessions. Sessions live only in
// memory; a finalized or abandoned session is removed.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*model.Session),
	}
}

func (s *SessionStore) Create() *model.Session {
	now := time.Now()
	session := &model.Session{
		ID:            uuid.New().String(),
		PaymentMethod: model.PaymentCash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return session
}

// Get returns a copy of the session so callers cannot mutate shared state
// outside Update.
func (s *SessionStore) Get(id string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	copied := *session
	copied.Items = append([]model.LineItem(nil), session.Items...)
	return &copied, nil
}

// Update applies fn to the session under the store lock.
func (s *SessionStore) Update(id string, fn func(*model.Session) error) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	if err := fn(session); err != nil {
		return nil, err
	}
	session.UpdatedAt = time.Now()

	copied := *session
	copied.Items = append([]model.LineItem(nil), session.Items...)
	return &copied, nil
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}
