package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/akolanti/CyberScholar/internal/domain/jobModel"
)

type chat struct {
	ownerId  string
	messages []jobModel.JobPayload
}

type InMemoryMessageStore struct {
	chatLock *sync.RWMutex
	chatMap  map[string]*chat
}

func InitMessageStore() *InMemoryMessageStore {
	return &InMemoryMessageStore{
		chatLock: new(sync.RWMutex),
		chatMap:  make(map[string]*chat),
	}
}

func (store *InMemoryMessageStore) ValidateChatId(ctx context.Context, chatId string) bool {
	store.chatLock.RLock()
	defer store.chatLock.RUnlock()
	_, ok := store.chatMap[chatId]
	return ok
}

func (store *InMemoryMessageStore) ChatOwner(ctx context.Context, chatId string) (string, bool) {
	store.chatLock.RLock()
	defer store.chatLock.RUnlock()
	c, ok := store.chatMap[chatId]
	if !ok {
		return "", false
	}
	return c.ownerId, true
}

func (store *InMemoryMessageStore) TrySaveChat(ctx context.Context, id string, conversation jobModel.JobPayload) error {
	store.chatLock.Lock()
	defer store.chatLock.Unlock()
	c, ok := store.chatMap[id]
	if !ok {
		return errors.New("invalid chat id")
	}
	c.messages = append(c.messages, conversation)
	inMemLogger.Debug("Saved convo to chat message store", "chatId", id)
	return nil
}

func (store *InMemoryMessageStore) InitNewChat(ctx context.Context, id string, ownerId string) error {
	store.chatLock.Lock()
	defer store.chatLock.Unlock()
	store.chatMap[id] = &chat{ownerId: ownerId, messages: make([]jobModel.JobPayload, 0)}
	return nil
}

// GetMessageHistory returns the newest turns as JSON, oldest first
func (store *InMemoryMessageStore) GetMessageHistory(ctx context.Context, chatId string) (error, []string) {
	store.chatLock.RLock()
	defer store.chatLock.RUnlock()
	c, ok := store.chatMap[chatId]
	if !ok {
		return nil, []string{}
	}

	start := max(0, len(c.messages)-config.MessageHistoryWindow)
	history := make([]string, 0, len(c.messages)-start)
	for _, m := range c.messages[start:] {
		data, err := json.Marshal(m)
		if err != nil {
			return err, nil
		}
		history = append(history, string(data))
	}
	return nil, history
}
