package local_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pulsefeed-post-service/internal/cache/local"
)

func TestStore_SetGet(t *testing.T) {
	store := local.NewStore(0)
	defer store.Close()

	store.Set("a", []byte("1"), time.Minute)

	got, ok := store.Get("a")
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), got)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestStore_Expiry(t *testing.T) {
	store := local.NewStore(0)
	defer store.Close()

	store.Set("a", []byte("1"), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := store.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len(), "expired entry is dropped on read")
}

func TestStore_NonPositiveTTLIsNotStored(t *testing.T) {
	store := local.NewStore(0)
	defer store.Close()

	store.Set("a", []byte("1"), 0)
	_, ok := store.Get("a")
	assert.False(t, ok)
}

func TestStore_Delete(t *testing.T) {
	store := local.NewStore(0)
	defer store.Close()

	store.Set("a", []byte("1"), time.Minute)
	store.Set("b", []byte("2"), time.Minute)

	store.Delete("a", "b", "absent")

	_, ok := store.Get("a")
	assert.False(t, ok)
	_, ok = store.Get("b")
	assert.False(t, ok)
}

func TestStore_Sweep(t *testing.T) {
	store := local.NewStore(10 * time.Millisecond)
	defer store.Close()

	store.Set("a", []byte("1"), 5*time.Millisecond)
	store.Set("b", []byte("2"), time.Minute)

	assert.Eventually(t, func() bool {
		return store.Len() == 1
	}, time.Second, 10*time.Millisecond, "janitor should drop the expired entry")
}
