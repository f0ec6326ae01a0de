package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/habedi/paydash/auth"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps credentials as plain Redis string keys named <prefix><slot>.
type RedisStore struct {
	redis  *redis.Client
	prefix string
}

var (
	_ auth.CredentialStore = (*RedisStore)(nil)
	_ auth.SessionWriter   = (*RedisStore)(nil)
)

// NewRedisStore creates a RedisStore on an existing client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) key(name string) string {
	return s.prefix + name
}

func (s *RedisStore) Get(ctx context.Context, name string) (string, bool, error) {
	v, err := s.redis.Get(ctx, s.key(name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", name, err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, name, value string) error {
	if err := s.redis.Set(ctx, s.key(name), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", name, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, name string) error {
	if err := s.redis.Del(ctx, s.key(name)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", name, err)
	}
	return nil
}

func (s *RedisStore) ClearAll(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.key(auth.AccessSlot), s.key(auth.RefreshSlot)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

// SetSession writes both keys in one MULTI/EXEC transaction.
func (s *RedisStore) SetSession(ctx context.Context, access, refresh string) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(auth.RefreshSlot), refresh, 0)
		pipe.Set(ctx, s.key(auth.AccessSlot), access, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}
