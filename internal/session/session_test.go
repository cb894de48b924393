package session

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	out := map[string]Store{"memory": NewMemory()}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		r, err := NewRedis(context.Background(), addr, time.Minute)
		require.NoError(t, err)
		r.prefix = fmt.Sprintf("videofinder:test:%d:", time.Now().UnixNano())
		t.Cleanup(func() { _ = r.Close() })
		out["redis"] = r
	}
	return out
}

func TestStore_Lifecycle(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := UserKey(42)

			_, ok, err := s.Pending(ctx, key)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.SetPending(ctx, key, "Mahabharat - 1080P"))
			group, ok, err := s.Pending(ctx, key)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "Mahabharat - 1080P", group)

			group, ok, err = s.Take(ctx, key)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "Mahabharat - 1080P", group)

			_, ok, err = s.Take(ctx, key)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_KeysAreIsolated(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.SetPending(ctx, UserKey(1), "A - 720P"))
			require.NoError(t, s.SetPending(ctx, UserKey(2), "B - 1080P"))

			require.NoError(t, s.Clear(ctx, UserKey(1)))

			_, ok, err := s.Pending(ctx, UserKey(1))
			require.NoError(t, err)
			assert.False(t, ok)

			group, ok, err := s.Pending(ctx, UserKey(2))
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "B - 1080P", group)
		})
	}
}

func TestMemory_ConcurrentUsers(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			key := UserKey(id)
			group := fmt.Sprintf("G%d - 720P", id)
			_ = m.SetPending(ctx, key, group)
			got, ok, _ := m.Take(ctx, key)
			assert.True(t, ok)
			assert.Equal(t, group, got)
		}(int64(i))
	}
	wg.Wait()
	assert.Empty(t, m.pending)
}

func TestUserKey(t *testing.T) {
	assert.Equal(t, Key("123456789"), UserKey(123456789))
	assert.Equal(t, Key("-5"), UserKey(-5))
}
