package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/akolanti/CyberScholar/internal/data/redisStore"
	"github.com/akolanti/CyberScholar/internal/domain/commonModels"
	"github.com/akolanti/CyberScholar/pkg/logger_i"
)

type InMemoryDocumentStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]commonModels.Document // owner -> source -> doc
}

func InitInMemoryDocumentStore() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{docs: make(map[string]map[string]commonModels.Document)}
}

func (s *InMemoryDocumentStore) SaveDocument(ctx context.Context, doc commonModels.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	owned, ok := s.docs[doc.OwnerId]
	if !ok {
		owned = make(map[string]commonModels.Document)
		s.docs[doc.OwnerId] = owned
	}
	owned[doc.Source] = doc
	return nil
}

func (s *InMemoryDocumentStore) GetDocument(ctx context.Context, ownerId, source string) (commonModels.Document, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[ownerId][source]
	return doc, ok, nil
}

func (s *InMemoryDocumentStore) ListDocuments(ctx context.Context, ownerId string) ([]commonModels.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]commonModels.Document, 0, len(s.docs[ownerId]))
	for _, doc := range s.docs[ownerId] {
		out = append(out, doc)
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemoryDocumentStore) DeleteDocument(ctx context.Context, ownerId, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs[ownerId], source)
	return nil
}

type RedisDocumentStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisDocumentStore(ctx context.Context) *RedisDocumentStore {
	rs := redisStore.GetRedisStore(ctx, config.RedisDocumentStore)
	if rs == nil {
		return nil
	}
	return NewRedisDocumentStore(rs)
}

func NewRedisDocumentStore(rs *redisStore.Store) *RedisDocumentStore {
	return &RedisDocumentStore{store: rs, logger: logger_i.NewLogger("DocumentStore")}
}

// document metadata has no ttl; it lives as long as the upload does
func (s *RedisDocumentStore) SaveDocument(ctx context.Context, doc commonModels.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshalling document: %w", err)
	}
	if err = s.store.Set(ctx, documentKey(doc.OwnerId, doc.Source), data, 0); err != nil {
		return err
	}
	if err = s.store.SetAdd(ctx, documentIndexKey(doc.OwnerId), doc.Source); err != nil {
		return err
	}
	s.logger.ForRequest(ctx).Debug("Saved document", "source", doc.Source)
	return nil
}

func (s *RedisDocumentStore) GetDocument(ctx context.Context, ownerId, source string) (commonModels.Document, bool, error) {
	var doc commonModels.Document
	val, err := s.store.Get(ctx, documentKey(ownerId, source))
	if s.store.IsNil(err) {
		return doc, false, nil
	} else if err != nil {
		return doc, false, err
	}
	if err = json.Unmarshal([]byte(val), &doc); err != nil {
		return doc, false, fmt.Errorf("unmarshalling document: %w", err)
	}
	return doc, true, nil
}

func (s *RedisDocumentStore) ListDocuments(ctx context.Context, ownerId string) ([]commonModels.Document, error) {
	sources, err := s.store.SetMembers(ctx, documentIndexKey(ownerId))
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(sources))
	for i, source := range sources {
		keys[i] = documentKey(ownerId, source)
	}
	values, found, err := s.store.MultiGet(ctx, keys...)
	if err != nil {
		return nil, err
	}

	out := make([]commonModels.Document, 0, len(values))
	for i, val := range values {
		if !found[i] {
			continue
		}
		var doc commonModels.Document
		if err := json.Unmarshal([]byte(val), &doc); err != nil {
			s.logger.ForRequest(ctx).Error("Skipping unreadable document", "source", sources[i], "error", err)
			continue
		}
		out = append(out, doc)
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *RedisDocumentStore) DeleteDocument(ctx context.Context, ownerId, source string) error {
	if err := s.store.Del(ctx, documentKey(ownerId, source)); err != nil {
		return err
	}
	return s.store.SetRemove(ctx, documentIndexKey(ownerId), source)
}

func sortNewestFirst(docs []commonModels.Document) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].IngestedAt.Equal(docs[j].IngestedAt) {
			return docs[i].Source < docs[j].Source
		}
		return docs[i].IngestedAt.After(docs[j].IngestedAt)
	})
}
