package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/akolanti/CyberScholar/internal/data/redisStore"
	"github.com/akolanti/CyberScholar/internal/domain/lockModel"
	"github.com/akolanti/CyberScholar/pkg/logger_i"
)

type InMemoryLockStore struct {
	mu    sync.RWMutex
	locks map[string]lockModel.ChatLock
}

func InitInMemoryLockStore() *InMemoryLockStore {
	return &InMemoryLockStore{locks: make(map[string]lockModel.ChatLock)}
}

func (s *InMemoryLockStore) GetLock(ctx context.Context, ownerId string) (lockModel.ChatLock, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lock, ok := s.locks[ownerId]
	return lock, ok, nil
}

func (s *InMemoryLockStore) SaveLock(ctx context.Context, lock lockModel.ChatLock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks[lock.OwnerId] = lock
	return nil
}

type RedisLockStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisLockStore(ctx context.Context) *RedisLockStore {
	rs := redisStore.GetRedisStore(ctx, config.RedisLockStore)
	if rs == nil {
		return nil
	}
	return NewRedisLockStore(rs)
}

func NewRedisLockStore(rs *redisStore.Store) *RedisLockStore {
	return &RedisLockStore{store: rs, logger: logger_i.NewLogger("LockStore")}
}

func (s *RedisLockStore) GetLock(ctx context.Context, ownerId string) (lockModel.ChatLock, bool, error) {
	var lock lockModel.ChatLock
	val, err := s.store.Get(ctx, lockKey(ownerId))
	if s.store.IsNil(err) {
		return lock, false, nil
	} else if err != nil {
		return lock, false, err
	}
	if err = json.Unmarshal([]byte(val), &lock); err != nil {
		return lock, false, fmt.Errorf("unmarshalling chat lock: %w", err)
	}
	return lock, true, nil
}

// lock records never expire
func (s *RedisLockStore) SaveLock(ctx context.Context, lock lockModel.ChatLock) error {
	data, err := json.Marshal(lock)
	if err != nil {
		return fmt.Errorf("marshalling chat lock: %w", err)
	}
	if err = s.store.Set(ctx, lockKey(lock.OwnerId), data, 0); err != nil {
		return err
	}
	s.logger.ForRequest(ctx).Debug("Saved chat lock", "enabled", lock.Enabled(), "failedAttempts", lock.FailedAttempts)
	return nil
}
