package store

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawcraft/gatekeeper/adapters/clock"
	"github.com/clawcraft/gatekeeper/core"
	"github.com/clawcraft/gatekeeper/ports"
)

// exerciseStore runs behaviour every Store implementation must share.
// ns isolates keys so the suite can run against a shared Redis.
func exerciseStore(t *testing.T, s ports.Store, ns string) {
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		_, err := s.Get(ctx, ns+"missing")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("put get delete", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, ns+"a", []byte("1"), 0))
		v, err := s.Get(ctx, ns+"a")
		require.NoError(t, err)
		assert.Equal(t, []byte("1"), v)

		require.NoError(t, s.Put(ctx, ns+"a", []byte("2"), 0))
		v, err = s.Get(ctx, ns+"a")
		require.NoError(t, err)
		assert.Equal(t, []byte("2"), v)

		require.NoError(t, s.Delete(ctx, ns+"a"))
		_, err = s.Get(ctx, ns+"a")
		assert.ErrorIs(t, err, core.ErrNotFound)
		assert.NoError(t, s.Delete(ctx, ns+"a"))
	})

	t.Run("take is single use", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, ns+"once", []byte("x"), time.Minute))
		v, err := s.Take(ctx, ns+"once")
		require.NoError(t, err)
		assert.Equal(t, []byte("x"), v)

		_, err = s.Take(ctx, ns+"once")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("concurrent take succeeds once", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, ns+"race", []byte("x"), time.Minute))

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.Take(ctx, ns+"race"); err == nil {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("scan by prefix", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, ns+"p:1", []byte("a"), 0))
		require.NoError(t, s.Put(ctx, ns+"p:2", []byte("b"), 0))
		require.NoError(t, s.Put(ctx, ns+"q:1", []byte("c"), 0))

		seen := map[string]string{}
		err := s.Scan(ctx, ns+"p:", func(key string, value []byte) error {
			seen[key] = string(value)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{ns + "p:1": "a", ns + "p:2": "b"}, seen)

		for _, k := range []string{"p:1", "p:2", "q:1"} {
			require.NoError(t, s.Delete(ctx, ns+k))
		}
	})
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(clock.NewSystemClock()), "")
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	fake := clock.NewFake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	s := NewMemoryStore(fake)

	require.NoError(t, s.Put(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, s.Put(ctx, "forever", []byte("v"), 0))

	fake.Advance(59 * time.Second)
	_, err := s.Get(ctx, "k")
	require.NoError(t, err)

	fake.Advance(time.Second)
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.Take(ctx, "k")
	assert.ErrorIs(t, err, core.ErrNotFound)

	fake.Advance(365 * 24 * time.Hour)
	_, err = s.Get(ctx, "forever")
	assert.NoError(t, err)

	var keys []string
	require.NoError(t, s.Scan(ctx, "", func(key string, _ []byte) error {
		keys = append(keys, key)
		return nil
	}))
	assert.Equal(t, []string{"forever"}, keys)
}

func TestMemoryStore_ScanMayMutate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(clock.NewSystemClock())
	require.NoError(t, s.Put(ctx, "a", []byte("1"), 0))
	require.NoError(t, s.Put(ctx, "b", []byte("2"), 0))

	err := s.Scan(ctx, "", func(key string, _ []byte) error {
		return s.Delete(ctx, key)
	})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	exerciseStore(t, NewRedisStore(client), "test:"+uuid.NewString()+":")
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `a\*b\?c\[d\]`, escapeGlob("a*b?c[d]"))
	assert.Equal(t, "challenge:", escapeGlob("challenge:"))
}
