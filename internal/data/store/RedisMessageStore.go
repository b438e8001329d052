package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/akolanti/CyberScholar/internal/data/redisStore"
	"github.com/akolanti/CyberScholar/internal/domain/jobModel"
	"github.com/akolanti/CyberScholar/pkg/logger_i"
)

type RedisMessageStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisMessageStore(ctx context.Context) *RedisMessageStore {
	rs := redisStore.GetRedisStore(ctx, config.RedisMessageStore)
	if rs == nil {
		return nil
	}
	return NewRedisMessageStore(rs)
}

func NewRedisMessageStore(rs *redisStore.Store) *RedisMessageStore {
	return &RedisMessageStore{
		store:  rs,
		logger: logger_i.NewLogger("MessageStore"),
	}
}

// a chat exists once it has an owner; the turn list may still be empty
func (s *RedisMessageStore) ValidateChatId(ctx context.Context, chatId string) bool {
	isFound, err := s.store.Exists(ctx, chatOwnerKey(chatId))
	if err != nil {
		s.logger.ForRequest(ctx).Error("Failed to check if chatId exists", "chatId", chatId, "error", err)
		return false
	}
	return isFound
}

func (s *RedisMessageStore) ChatOwner(ctx context.Context, chatId string) (string, bool) {
	owner, err := s.store.Get(ctx, chatOwnerKey(chatId))
	if err != nil {
		if !s.store.IsNil(err) {
			s.logger.ForRequest(ctx).Error("Failed to read chat owner", "chatId", chatId, "error", err)
		}
		return "", false
	}
	return owner, true
}

func (s *RedisMessageStore) TrySaveChat(ctx context.Context, id string, conversation jobModel.JobPayload) error {
	log := s.logger.ForRequest(ctx).With("chatId", id)
	if !s.ValidateChatId(ctx, id) {
		err := errors.New("invalid chat id")
		log.Error("Failed validation before saving", "error", err)
		return err
	}

	data, err := json.Marshal(conversation)
	if err != nil {
		return err
	}
	if err = s.store.ListPush(ctx, chatKey(id), data); err != nil {
		log.Error("Error saving chat", "error", err)
		return err
	}
	if err = s.store.Expire(ctx, chatKey(id), config.RedisMessageStoreTTL); err != nil {
		log.Warn("Could not refresh chat ttl", "error", err)
	}
	log.Debug("Saved chat successfully")
	return nil
}

func (s *RedisMessageStore) InitNewChat(ctx context.Context, id string, ownerId string) error {
	log := s.logger.ForRequest(ctx).With("chatId", id)
	log.Debug("Initializing new chat")
	if err := s.store.Del(ctx, chatKey(id)); err != nil {
		log.Error("Error clearing chat", "error", err)
		return err
	}
	return s.store.Set(ctx, chatOwnerKey(id), ownerId, config.RedisMessageStoreTTL)
}

// GetMessageHistory returns the newest turns as JSON, oldest first
func (s *RedisMessageStore) GetMessageHistory(ctx context.Context, chatId string) (error, []string) {
	res, err := s.store.ListGetLast(ctx, chatKey(chatId), config.MessageHistoryWindow)
	if err != nil {
		s.logger.ForRequest(ctx).Error("Error getting history", "chatId", chatId, "error", err)
		return err, nil
	}
	return nil, res
}
