package store

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/akolanti/CyberScholar/internal/data/redisStore"
	"github.com/akolanti/CyberScholar/pkg/logger_i"
)

type session struct {
	ownerId   string
	expiresAt time.Time
}

type InMemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]session
	now      func() time.Time
}

func InitInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[string]session), now: time.Now}
}

func (s *InMemorySessionStore) SaveSession(ctx context.Context, token, ownerId string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = session{ownerId: ownerId, expiresAt: s.now().Add(ttl)}
	return nil
}

// expired tokens are dropped on read
func (s *InMemorySessionStore) SessionOwner(ctx context.Context, token string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return "", false, nil
	}
	if !s.now().Before(sess.expiresAt) {
		delete(s.sessions, token)
		return "", false, nil
	}
	return sess.ownerId, true, nil
}

func (s *InMemorySessionStore) RevokeOwnerSessions(ctx context.Context, ownerId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, sess := range s.sessions {
		if sess.ownerId == ownerId {
			delete(s.sessions, token)
		}
	}
	return nil
}

type RedisSessionStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisSessionStore(ctx context.Context) *RedisSessionStore {
	rs := redisStore.GetRedisStore(ctx, config.RedisSessionStore)
	if rs == nil {
		return nil
	}
	return NewRedisSessionStore(rs)
}

func NewRedisSessionStore(rs *redisStore.Store) *RedisSessionStore {
	return &RedisSessionStore{store: rs, logger: logger_i.NewLogger("SessionStore")}
}

// the owner index outlives single tokens so revoke can find every one still alive
func (s *RedisSessionStore) SaveSession(ctx context.Context, token, ownerId string, ttl time.Duration) error {
	if err := s.store.Set(ctx, sessionKey(token), ownerId, ttl); err != nil {
		return err
	}
	if err := s.store.SetAdd(ctx, sessionIndexKey(ownerId), token); err != nil {
		return err
	}
	return s.store.Expire(ctx, sessionIndexKey(ownerId), ttl)
}

func (s *RedisSessionStore) SessionOwner(ctx context.Context, token string) (string, bool, error) {
	owner, err := s.store.Get(ctx, sessionKey(token))
	if s.store.IsNil(err) {
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}
	return owner, true, nil
}

func (s *RedisSessionStore) RevokeOwnerSessions(ctx context.Context, ownerId string) error {
	tokens, err := s.store.SetMembers(ctx, sessionIndexKey(ownerId))
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(tokens)+1)
	for _, token := range tokens {
		keys = append(keys, sessionKey(token))
	}
	keys = append(keys, sessionIndexKey(ownerId))
	if err := s.store.Del(ctx, keys...); err != nil {
		return err
	}
	s.logger.ForRequest(ctx).Debug("Revoked chat sessions", "count", len(tokens))
	return nil
}
