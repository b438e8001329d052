package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/akolanti/CyberScholar/internal/data/redisStore"
	"github.com/akolanti/CyberScholar/internal/domain/commonModels"
	"github.com/akolanti/CyberScholar/pkg/logger_i"
)

// audit logs are append only, read back in insertion order

type InMemoryAuditStore struct {
	mu     sync.RWMutex
	events map[string][]commonModels.SecurityEvent
}

func InitInMemoryAuditStore() *InMemoryAuditStore {
	return &InMemoryAuditStore{events: make(map[string][]commonModels.SecurityEvent)}
}

func (s *InMemoryAuditStore) RecordEvent(ctx context.Context, event commonModels.SecurityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.OwnerId] = append(s.events[event.OwnerId], event)
	return nil
}

func (s *InMemoryAuditStore) ListEvents(ctx context.Context, ownerId string) ([]commonModels.SecurityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]commonModels.SecurityEvent, len(s.events[ownerId]))
	copy(out, s.events[ownerId])
	return out, nil
}

type RedisAuditStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisAuditStore(ctx context.Context) *RedisAuditStore {
	rs := redisStore.GetRedisStore(ctx, config.RedisAuditStore)
	if rs == nil {
		return nil
	}
	return NewRedisAuditStore(rs)
}

func NewRedisAuditStore(rs *redisStore.Store) *RedisAuditStore {
	return &RedisAuditStore{store: rs, logger: logger_i.NewLogger("AuditStore")}
}

func (s *RedisAuditStore) RecordEvent(ctx context.Context, event commonModels.SecurityEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling security event: %w", err)
	}
	if err = s.store.ListPush(ctx, auditKey(event.OwnerId), data); err != nil {
		return err
	}
	s.logger.ForRequest(ctx).Debug("Recorded security event", "event", event.EventType)
	return nil
}

func (s *RedisAuditStore) ListEvents(ctx context.Context, ownerId string) ([]commonModels.SecurityEvent, error) {
	raw, err := s.store.ListGetAll(ctx, auditKey(ownerId))
	if err != nil {
		return nil, err
	}
	out := make([]commonModels.SecurityEvent, 0, len(raw))
	for _, val := range raw {
		var event commonModels.SecurityEvent
		if err := json.Unmarshal([]byte(val), &event); err != nil {
			return nil, fmt.Errorf("unmarshalling security event: %w", err)
		}
		out = append(out, event)
	}
	return out, nil
}
