package session_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/lockerlink/internal/session"
)

func testStores(t *testing.T) map[string]session.Store {
	t.Helper()
	stores := map[string]session.Store{
		"memory": session.NewMemoryStore(time.Minute),
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		t.Cleanup(func() { _ = client.Close() })
		stores["redis"] = session.NewRedisStore(client, "lockerlink-test-"+uuid.New().String()[:8], time.Minute)
	}
	return stores
}

func TestStore_LockerRoundTrip(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			got, err := store.Locker(ctx, "sess-1")
			require.NoError(t, err)
			assert.Empty(t, got)

			require.NoError(t, store.SetLocker(ctx, "sess-1", "4"))
			got, err = store.Locker(ctx, "sess-1")
			require.NoError(t, err)
			assert.Equal(t, "4", got)

			require.NoError(t, store.SetLocker(ctx, "sess-1", "5"))
			got, err = store.Locker(ctx, "sess-1")
			require.NoError(t, err)
			assert.Equal(t, "5", got)

			require.NoError(t, store.Clear(ctx, "sess-1"))
			got, err = store.Locker(ctx, "sess-1")
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := session.NewMemoryStore(time.Nanosecond)
	ctx := context.Background()

	require.NoError(t, store.SetLocker(ctx, "sess-1", "4"))
	time.Sleep(time.Millisecond)

	got, err := store.Locker(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisStore_GenerateKey(t *testing.T) {
	store := session.NewRedisStore(nil, "lockerlink", 0)
	assert.Equal(t, "lockerlink:locker:abc", store.GenerateKey("locker", "abc"))
}

func TestMemoryStore_SetLockerDropsExpiredSelections(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := session.NewMemoryStore(time.Hour)
	store.SetClock(func() time.Time { return now })

	require.NoError(t, store.SetLocker(ctx, "abandoned-1", "4"))
	require.NoError(t, store.SetLocker(ctx, "abandoned-2", "5"))
	assert.Equal(t, 2, store.Len())

	now = now.Add(2 * time.Hour)
	require.NoError(t, store.SetLocker(ctx, "active", "6"))

	assert.Equal(t, 1, store.Len())
	lockerID, err := store.Locker(ctx, "active")
	require.NoError(t, err)
	assert.Equal(t, "6", lockerID)
}
