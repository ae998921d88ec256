package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsefeed-post-service/internal/cache"
	"pulsefeed-post-service/internal/cache/local"
	"pulsefeed-post-service/internal/custom_errors"
	"pulsefeed-post-service/internal/logger"
	prometheus_metrics "pulsefeed-post-service/internal/metrics/prometheus"
)

type sharedEntry struct {
	value     []byte
	expiresAt time.Time
}

// memoryShared is an in-memory cache.SharedStore with failure injection.
type memoryShared struct {
	mu      sync.Mutex
	entries map[string]sharedEntry
	getErr  error
	setErr  error
	delErr  error
}

func newMemoryShared() *memoryShared {
	return &memoryShared{entries: make(map[string]sharedEntry)}
}

func (m *memoryShared) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	e, ok := m.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		delete(m.entries, key)
		return nil, custom_errors.ErrCacheMiss
	}
	return e.value, nil
}

func (m *memoryShared) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.setErr != nil {
		return m.setErr
	}
	m.entries[key] = sharedEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (m *memoryShared) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.delErr != nil {
		return m.delErr
	}
	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

func (m *memoryShared) contains(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}

func setupTieredCache(t *testing.T) (*cache.TieredCache, *local.Store, *memoryShared) {
	t.Helper()
	log := logger.New("test")
	localStore := local.NewStore(0)
	t.Cleanup(localStore.Close)
	shared := newMemoryShared()
	tiered := cache.NewTieredCache(localStore, shared, log, prometheus_metrics.NewPrometheusMetricsProvider())
	return tiered, localStore, shared
}

var testPolicy = cache.Policy{Local: time.Minute, Shared: 15 * time.Minute}

func TestTieredCache_GetOrPopulate(t *testing.T) {
	t.Run("populates on full miss and serves from cache after", func(t *testing.T) {
		tiered, _, _ := setupTieredCache(t)

		var calls int32
		populate := func(ctx context.Context) ([]byte, error) {
			atomic.AddInt32(&calls, 1)
			return []byte("value"), nil
		}

		got, err := tiered.GetOrPopulate(context.Background(), cache.NamespacePost, "1", testPolicy, populate)
		require.NoError(t, err)
		assert.Equal(t, []byte("value"), got)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

		got, err = tiered.GetOrPopulate(context.Background(), cache.NamespacePost, "1", testPolicy, populate)
		require.NoError(t, err)
		assert.Equal(t, []byte("value"), got)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "second get must not re-populate")
	})

	t.Run("backfills local tier from shared tier", func(t *testing.T) {
		tiered, localStore, shared := setupTieredCache(t)

		key := cache.Key(cache.NamespacePost, "7")
		require.NoError(t, shared.Set(context.Background(), key, []byte("shared-value"), time.Minute))

		got, err := tiered.GetOrPopulate(context.Background(), cache.NamespacePost, "7", testPolicy, func(ctx context.Context) ([]byte, error) {
			t.Fatal("populate must not run on a shared hit")
			return nil, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []byte("shared-value"), got)

		cached, ok := localStore.Get(key)
		assert.True(t, ok)
		assert.Equal(t, []byte("shared-value"), cached)
	})

	t.Run("populate error is returned and nothing is cached", func(t *testing.T) {
		tiered, localStore, shared := setupTieredCache(t)

		wantErr := errors.New("source unavailable")
		_, err := tiered.GetOrPopulate(context.Background(), cache.NamespacePost, "9", testPolicy, func(ctx context.Context) ([]byte, error) {
			return nil, wantErr
		})
		assert.ErrorIs(t, err, wantErr)

		key := cache.Key(cache.NamespacePost, "9")
		_, ok := localStore.Get(key)
		assert.False(t, ok)
		assert.False(t, shared.contains(key))
	})

	t.Run("shared tier outage fails open to populate", func(t *testing.T) {
		tiered, _, shared := setupTieredCache(t)
		shared.getErr = errors.New("connection refused")
		shared.setErr = errors.New("connection refused")

		got, err := tiered.GetOrPopulate(context.Background(), cache.NamespacePost, "2", testPolicy, func(ctx context.Context) ([]byte, error) {
			return []byte("fresh"), nil
		})
		require.NoError(t, err)
		assert.Equal(t, []byte("fresh"), got)
	})

	t.Run("local expiry falls back to shared tier", func(t *testing.T) {
		tiered, localStore, _ := setupTieredCache(t)
		shortLocal := cache.Policy{Local: 10 * time.Millisecond, Shared: time.Minute}

		_, err := tiered.GetOrPopulate(context.Background(), cache.NamespaceFeedPage, "1", shortLocal, func(ctx context.Context) ([]byte, error) {
			return []byte("page"), nil
		})
		require.NoError(t, err)

		time.Sleep(20 * time.Millisecond)
		_, ok := localStore.Get(cache.Key(cache.NamespaceFeedPage, "1"))
		assert.False(t, ok, "local entry should have expired")

		got, err := tiered.GetOrPopulate(context.Background(), cache.NamespaceFeedPage, "1", shortLocal, func(ctx context.Context) ([]byte, error) {
			t.Fatal("populate must not run while the shared entry is live")
			return nil, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []byte("page"), got)
	})
}

func TestTieredCache_CoalescesConcurrentPopulation(t *testing.T) {
	tiered, _, _ := setupTieredCache(t)

	var calls int32
	release := make(chan struct{})
	populate := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []byte("coalesced"), nil
	}

	const readers = 16
	var wg sync.WaitGroup
	results := make([][]byte, readers)
	errs := make([]error, readers)

	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = tiered.GetOrPopulate(context.Background(), cache.NamespacePost, "42", testPolicy, populate)
		}(i)
	}

	// Let every reader reach the flight before releasing the populate.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < readers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, []byte("coalesced"), results[i])
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "concurrent readers of one key must share a single population")
}

func TestTieredCache_Remove(t *testing.T) {
	tiered, localStore, shared := setupTieredCache(t)

	_, err := tiered.GetOrPopulate(context.Background(), cache.NamespaceUserPosts, "u1", testPolicy, func(ctx context.Context) ([]byte, error) {
		return []byte("posts"), nil
	})
	require.NoError(t, err)

	require.NoError(t, tiered.Remove(context.Background(), cache.NamespaceUserPosts, "u1"))

	key := cache.Key(cache.NamespaceUserPosts, "u1")
	_, ok := localStore.Get(key)
	assert.False(t, ok)
	assert.False(t, shared.contains(key))

	// Removing an absent key is a no-op.
	assert.NoError(t, tiered.Remove(context.Background(), cache.NamespaceUserPosts, "absent"))
}

func TestTieredCache_RemoveSharedFailureStillClearsLocal(t *testing.T) {
	tiered, localStore, shared := setupTieredCache(t)

	_, err := tiered.GetOrPopulate(context.Background(), cache.NamespacePost, "5", testPolicy, func(ctx context.Context) ([]byte, error) {
		return []byte("v"), nil
	})
	require.NoError(t, err)

	shared.delErr = errors.New("connection refused")
	err = tiered.Remove(context.Background(), cache.NamespacePost, "5")
	assert.Error(t, err)

	_, ok := localStore.Get(cache.Key(cache.NamespacePost, "5"))
	assert.False(t, ok, "local tier must be cleared even when the shared delete fails")
}
