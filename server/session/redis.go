package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "thachai:session:key:"
	redisIDPrefix  = "thachai:session:id:"
)

// redisStore implements Store on Redis for multi-instance deployments.
// Sessions are stored as JSON under their derived key, with a secondary
// id -> key index so the by-id operations of the Store contract work.
// Writes use WATCH for optimistic concurrency, following the same scheme
// as the memory driver's single-lock semantics.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func (s *redisStore) sessionKey(key string) string {
	return redisKeyPrefix + key
}

func (s *redisStore) idKey(sessionID string) string {
	return redisIDPrefix + sessionID
}

// GetOrCreate implements Store. SetNX makes creation atomic for the key;
// a concurrent loser falls through to reading the winner's session.
func (s *redisStore) GetOrCreate(ctx context.Context, params CreateParams) (*Session, bool, error) {
	key := Key(params.Platform, params.CallerKey)

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
	val, err := json.Marshal(sess)
	if err != nil {
		return nil, false, err
	}

	created, err := s.client.SetNX(ctx, s.sessionKey(key), val, s.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if created {
		if err := s.client.Set(ctx, s.idKey(sess.ID), key, s.ttl).Err(); err != nil {
			return nil, false, err
		}
		return sess, true, nil
	}

	existing, err := s.getByKey(ctx, key)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *redisStore) getByKey(ctx context.Context, key string) (*Session, error) {
	val, err := s.client.Get(ctx, s.sessionKey(key)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *redisStore) resolveID(ctx context.Context, sessionID string) (string, error) {
	key, err := s.client.Get(ctx, s.idKey(sessionID)).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return key, nil
}

// Get implements Store.
func (s *redisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	key, err := s.resolveID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.getByKey(ctx, key)
}

// mutate applies fn to the stored session under WATCH and writes it back.
func (s *redisStore) mutate(ctx context.Context, sessionID string, fn func(*Session)) error {
	key, err := s.resolveID(ctx, sessionID)
	if err != nil {
		return err
	}
	redisKey := s.sessionKey(key)

	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, redisKey).Result()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var sess Session
		if err := json.Unmarshal([]byte(val), &sess); err != nil {
			return err
		}
		fn(&sess)

		newVal, err := json.Marshal(&sess)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, redisKey, newVal, s.ttl)
			pipe.Expire(ctx, s.idKey(sessionID), s.ttl)
			return nil
		})
		return err
	}, redisKey)
}

// Touch implements Store.
func (s *redisStore) Touch(ctx context.Context, sessionID string, at time.Time) error {
	return s.mutate(ctx, sessionID, func(sess *Session) {
		if at.After(sess.LastActivity) {
			sess.LastActivity = at
		}
	})
}

// AppendTurn implements Store.
func (s *redisStore) AppendTurn(ctx context.Context, sessionID string, turn ConversationTurn) error {
	return s.mutate(ctx, sessionID, func(sess *Session) {
		sess.History = append(sess.History, turn)
	})
}

// Update implements Store. Only the caller-mutable fields are written back.
func (s *redisStore) Update(ctx context.Context, updated *Session) error {
	return s.mutate(ctx, updated.ID, func(sess *Session) {
		sess.Language = updated.Language
		sess.Context = updated.Context
	})
}

// Delete implements Store.
func (s *redisStore) Delete(ctx context.Context, sessionID string) error {
	key, err := s.resolveID(ctx, sessionID)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.sessionKey(key))
		pipe.Del(ctx, s.idKey(sessionID))
		return nil
	})
	return err
}

// ExpireIdle implements Store. The key TTL already bounds session lifetime;
// this sweep removes sessions idle past the (shorter) conversational TTL.
func (s *redisStore) ExpireIdle(ctx context.Context, now time.Time, ttl time.Duration) (int, error) {
	sessions, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, sess := range sessions {
		if sess.IdleSince(now) > ttl {
			if err := s.Delete(ctx, sess.ID); err != nil && err != ErrNotFound {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

// List implements Store.
func (s *redisStore) List(ctx context.Context) ([]*Session, error) {
	var sessions []*Session
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		val, err := s.client.Get(ctx, iter.Val()).Result()
		if err == redis.Nil {
			continue // expired between SCAN and GET
		}
		if err != nil {
			return nil, err
		}
		var sess Session
		if err := json.Unmarshal([]byte(val), &sess); err != nil {
			return nil, err
		}
		sessions = append(sessions, &sess)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Count implements Store.
func (s *redisStore) Count(ctx context.Context) (int, error) {
	count := 0
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}
	return count, nil
}

// Close implements Store.
func (s *redisStore) Close() error {
	return s.client.Close()
}
