package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares locker selections between service replicas.
type RedisStore struct {
	client      *redis.Client
	serviceName string
	ttl         time.Duration
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client, serviceName string, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, serviceName: serviceName, ttl: ttl}
}

// GenerateKey namespaces a session key.
func (s *RedisStore) GenerateKey(operation, key string) string {
	return fmt.Sprintf("%s:%s:%s", s.serviceName, operation, key)
}

// SetLocker stores the selection with the store TTL.
func (s *RedisStore) SetLocker(ctx context.Context, sessionID, lockerID string) error {
	return s.client.Set(ctx, s.GenerateKey("locker", sessionID), lockerID, s.ttl).Err()
}

// Locker returns the selected locker, or "" when the key is absent.
func (s *RedisStore) Locker(ctx context.Context, sessionID string) (string, error) {
	lockerID, err := s.client.Get(ctx, s.GenerateKey("locker", sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return lockerID, nil
}

// Clear deletes the selection.
func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.GenerateKey("locker", sessionID)).Err()
}

var _ Store = (*RedisStore)(nil)
