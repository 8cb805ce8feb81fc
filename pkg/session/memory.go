package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/atina-inc/atina-engine/pkg/apperrors"
	"github.com/atina-inc/atina-engine/pkg/models"
)

// memoryStore is the fallback store used when Redis is not configured.
// Sessions are kept as JSON so both stores round-trip identically.
type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore() Store {
	return &memoryStore{sessions: make(map[string][]byte)}
}

var _ Store = (*memoryStore)(nil)

func (s *memoryStore) Get(ctx context.Context, senderID string) (*models.ConversationSession, error) {
	s.mu.RLock()
	data, ok := s.sessions[senderID]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}

	var session models.ConversationSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *memoryStore) Put(ctx context.Context, session *models.ConversationSession) error {
	session.UpdatedAt = time.Now()
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sessions[session.SenderID] = data
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, senderID string) error {
	s.mu.Lock()
	delete(s.sessions, senderID)
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.sessions = make(map[string][]byte)
	s.mu.Unlock()
	return nil
}
