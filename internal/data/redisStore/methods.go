package redisStore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

func (s *Store) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return s.client.Set(ctx, key, value, expiration).Err()
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

func (s *Store) IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Expire(ctx, key, ttl).Err()
}

func (s *Store) ListPush(ctx context.Context, key string, value interface{}) error {
	return s.client.RPush(ctx, key, value).Err()
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	count, err := s.client.Exists(ctx, key).Result()
	return count > 0, err
}

// ListGetLast returns at most the n newest entries, oldest first
func (s *Store) ListGetLast(ctx context.Context, key string, n int64) ([]string, error) {
	if n <= 0 {
		return []string{}, nil
	}
	return s.client.LRange(ctx, key, -n, -1).Result()
}

func (s *Store) ListGetAll(ctx context.Context, key string) ([]string, error) {
	return s.client.LRange(ctx, key, 0, -1).Result()
}

// set helpers back the per-owner indexes (documents, sessions)
func (s *Store) SetAdd(ctx context.Context, key string, members ...interface{}) error {
	return s.client.SAdd(ctx, key, members...).Err()
}

func (s *Store) SetMembers(ctx context.Context, key string) ([]string, error) {
	return s.client.SMembers(ctx, key).Result()
}

func (s *Store) SetRemove(ctx context.Context, key string, members ...interface{}) error {
	return s.client.SRem(ctx, key, members...).Err()
}

// MultiGet returns one value per key; missing keys come back as ok=false
func (s *Store) MultiGet(ctx context.Context, keys ...string) ([]string, []bool, error) {
	values := make([]string, len(keys))
	found := make([]bool, len(keys))
	if len(keys) == 0 {
		return values, found, nil
	}
	raw, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, err
	}
	for i, v := range raw {
		if str, ok := v.(string); ok {
			values[i] = str
			found[i] = true
		}
	}
	return values, found, nil
}
