package cache

import (
	"context"
	"time"
)

// Key namespaces. Full keys look like "post:42", "posts:user:u1",
// "feed:page:3".
const (
	NamespacePost      = "post"
	NamespaceUserPosts = "posts:user"
	NamespaceFeedPage  = "feed:page"
)

// Policy carries the expiry horizon for each tier. Local must not exceed
// Shared.
type Policy struct {
	Local  time.Duration
	Shared time.Duration
}

// Cache is a generic two-tier key-value cache. Values are opaque bytes;
// serialization stays with the caller.
type Cache interface {
	// GetOrPopulate returns the cached value for (namespace, key) if present
	// and unexpired. On a miss it invokes populate at most once per key per
	// process under concurrent contention and caches the result in both
	// tiers. Populate errors are returned verbatim and nothing is cached.
	GetOrPopulate(ctx context.Context, namespace, key string, policy Policy, populate func(context.Context) ([]byte, error)) ([]byte, error)

	// Remove drops the given keys from both tiers. Absent keys are a no-op.
	Remove(ctx context.Context, namespace string, keys ...string) error
}

// SharedStore is the distributed tier backing a Cache.
type SharedStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

func Key(namespace, key string) string {
	return namespace + ":" + key
}
