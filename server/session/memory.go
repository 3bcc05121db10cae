package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryStore implements Store with in-process maps. It is the default
// driver and the one the idle sweeper operates against directly.
// Every session that crosses the store boundary is a snapshot: readers
// like the session listing and the analytics snapshot run concurrently
// with in-flight turns, so live state never leaves the lock.
type memoryStore struct {
	mu   sync.RWMutex
	byID map[string]*Session
	// byKey indexes sessions by platform:callerKey for get-or-create.
	byKey map[string]*Session
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		byID:  make(map[string]*Session),
		byKey: make(map[string]*Session),
	}
}

// GetOrCreate implements Store. Creation is atomic w.r.t. the derived key:
// the whole lookup-or-insert happens under one lock.
func (s *memoryStore) GetOrCreate(_ context.Context, params CreateParams) (*Session, bool, error) {
	key := Key(params.Platform, params.CallerKey)

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.byKey[key]; ok {
		return sess.Clone(), false, nil
	}

	now := time.Now()
	sess := &Session{
		ID:           uuid.New().String(),
		Key:          key,
		Platform:     params.Platform,
		UserID:       params.UserID,
		Language:     params.Language,
		Context:      cloneContext(params.Context),
		Capabilities: params.Capabilities,
		CreatedAt:    now,
		LastActivity: now,
		History:      []ConversationTurn{},
	}
	s.byID[sess.ID] = sess
	s.byKey[key] = sess
	return sess.Clone(), true, nil
}

// Get implements Store.
func (s *memoryStore) Get(_ context.Context, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.byID[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return sess.Clone(), nil
}

// Touch implements Store.
func (s *memoryStore) Touch(_ context.Context, sessionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byID[sessionID]
	if !ok {
		return ErrNotFound
	}
	if at.After(sess.LastActivity) {
		sess.LastActivity = at
	}
	return nil
}

// AppendTurn implements Store.
func (s *memoryStore) AppendTurn(_ context.Context, sessionID string, turn ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byID[sessionID]
	if !ok {
		return ErrNotFound
	}
	sess.History = append(sess.History, turn)
	return nil
}

// Update implements Store. Only the caller-mutable fields are written back.
func (s *memoryStore) Update(_ context.Context, updated *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byID[updated.ID]
	if !ok {
		return ErrNotFound
	}
	sess.Language = updated.Language
	sess.Context = cloneContext(updated.Context)
	return nil
}

// Delete implements Store.
func (s *memoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byID[sessionID]
	if !ok {
		return ErrNotFound
	}
	delete(s.byID, sessionID)
	delete(s.byKey, sess.Key)
	return nil
}

// ExpireIdle implements Store.
func (s *memoryStore) ExpireIdle(_ context.Context, now time.Time, ttl time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.byID {
		if sess.IdleSince(now) > ttl {
			delete(s.byID, id)
			delete(s.byKey, sess.Key)
			removed++
		}
	}
	return removed, nil
}

// List implements Store.
func (s *memoryStore) List(_ context.Context) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*Session, 0, len(s.byID))
	for _, sess := range s.byID {
		sessions = append(sessions, sess.Clone())
	}
	return sessions, nil
}

// Count implements Store.
func (s *memoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

// Close implements Store.
func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID = nil
	s.byKey = nil
	return nil
}
