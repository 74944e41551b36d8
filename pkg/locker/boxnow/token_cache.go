package boxnow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenCache stores access tokens between courier calls.
// A nil TokenCache on Client means every call authenticates afresh.
type TokenCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, token string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type cachedToken struct {
	token     string
	expiresAt time.Time
}

// MemoryTokenCache keeps tokens in process memory.
type MemoryTokenCache struct {
	mu     sync.Mutex
	tokens map[string]cachedToken
	now    func() time.Time
}

// NewMemoryTokenCache creates an empty in-memory token cache.
func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{
		tokens: make(map[string]cachedToken),
		now:    time.Now,
	}
}

// Get returns a token that has not expired yet.
func (c *MemoryTokenCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.tokens[key]
	if !ok {
		return "", false, nil
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.tokens, key)
		return "", false, nil
	}
	return entry.token, true, nil
}

// Set stores a token for ttl.
func (c *MemoryTokenCache) Set(_ context.Context, key, token string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[key] = cachedToken{token: token, expiresAt: c.now().Add(ttl)}
	return nil
}

// Delete drops a token.
func (c *MemoryTokenCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, key)
	return nil
}

// RedisTokenCache shares tokens between service replicas.
type RedisTokenCache struct {
	client *redis.Client
	prefix string
}

// NewRedisTokenCache creates a Redis-backed token cache.
func NewRedisTokenCache(client *redis.Client, prefix string) *RedisTokenCache {
	if prefix == "" {
		prefix = "lockerlink"
	}
	return &RedisTokenCache{client: client, prefix: prefix}
}

func (c *RedisTokenCache) key(key string) string {
	return fmt.Sprintf("%s:token:%s", c.prefix, key)
}

// Get returns the cached token, if any.
func (c *RedisTokenCache) Get(ctx context.Context, key string) (string, bool, error) {
	token, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

// Set stores a token with a Redis TTL.
func (c *RedisTokenCache) Set(ctx context.Context, key, token string, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(key), token, ttl).Err()
}

// Delete drops a token.
func (c *RedisTokenCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}

var (
	_ TokenCache = (*MemoryTokenCache)(nil)
	_ TokenCache = (*RedisTokenCache)(nil)
)
