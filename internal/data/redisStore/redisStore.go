package redisStore

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/akolanti/CyberScholar/pkg/logger_i"
	"github.com/redis/go-redis/v9"
)

var (
	instances = make(map[int]*Store)
	mu        sync.RWMutex
	logger    = logger_i.NewLogger("Redis Store")
	once      sync.Once
)

// Store is one go-redis client bound to a single logical DB
type Store struct {
	client *redis.Client
	Type   int
}

// GetRedisStore returns the shared client for dbType, or nil when redis is offline.
// Callers fall back to their in-memory store on nil.
func GetRedisStore(ctx context.Context, dbType int) *Store {
	mu.RLock()
	instance, exists := instances[dbType]
	mu.RUnlock()

	if exists {
		return instance
	}

	mu.Lock()
	defer mu.Unlock()

	if instance, exists = instances[dbType]; exists {
		return instance
	}
	return createNewStore(ctx, dbType)
}

func closeRedisStores(ctx context.Context) {
	<-ctx.Done()
	logger.Info("Closing Redis Stores")
	mu.Lock()
	defer mu.Unlock()
	for dbType, store := range instances {
		if err := store.client.Close(); err != nil {
			logger.Error("Error closing redis client", "db", dbType, "error", err)
		}
		delete(instances, dbType)
	}
	logger.Info("Redis Store Closed successfully")
}

func createNewStore(ctx context.Context, dbType int) *Store {
	newClient := redis.NewClient(&redis.Options{
		Addr:                  config.RedisAddress,
		Password:              config.RedisPassword,
		DB:                    dbType,
		ContextTimeoutEnabled: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
	log := logger.With("db", strconv.Itoa(dbType))

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := newClient.Ping(pingCtx).Err(); err != nil {
		log.Error("Redis is offline", "error", err)
		_ = newClient.Close()
		return nil
	}

	log.Info("Redis client init successfully")

	newStore := &Store{
		client: newClient,
		Type:   dbType,
	}

	instances[dbType] = newStore
	once.Do(func() {
		go closeRedisStores(ctx)
	})
	return newStore
}

// NewTestStore wraps a client pointed at miniredis
func NewTestStore(client *redis.Client) *Store {
	return &Store{client: client}
}
