package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"pulsefeed-post-service/internal/cache/local"
	"pulsefeed-post-service/internal/custom_errors"
	"pulsefeed-post-service/internal/logger"
	"pulsefeed-post-service/internal/metrics"
)

// TieredCache layers a per-process store over a shared one. Population on a
// full miss is coalesced per key with singleflight, so concurrent readers of
// the same key share one trip to the source. A shared-tier outage degrades
// to populating directly; it never fails a read.
type TieredCache struct {
	local   *local.Store
	shared  SharedStore
	group   singleflight.Group
	log     *logger.Logger
	metrics metrics.MetricsProvider
}

func NewTieredCache(localStore *local.Store, shared SharedStore, log *logger.Logger, metrics metrics.MetricsProvider) *TieredCache {
	return &TieredCache{
		local:   localStore,
		shared:  shared,
		log:     log,
		metrics: metrics,
	}
}

func (c *TieredCache) GetOrPopulate(ctx context.Context, namespace, key string, policy Policy, populate func(context.Context) ([]byte, error)) ([]byte, error) {
	fullKey := Key(namespace, key)

	if val, ok := c.local.Get(fullKey); ok {
		c.metrics.IncrementCacheHits("local")
		return val, nil
	}
	c.metrics.IncrementCacheMisses("local")

	val, err, _ := c.group.Do(fullKey, func() (interface{}, error) {
		start := time.Now()
		cached, err := c.shared.Get(ctx, fullKey)
		c.metrics.RecordCacheOperationDuration("shared_get", time.Since(start))

		switch {
		case err == nil:
			c.metrics.IncrementCacheHits("shared")
			c.local.Set(fullKey, cached, policy.Local)
			return cached, nil
		case errors.Is(err, custom_errors.ErrCacheMiss):
			c.metrics.IncrementCacheMisses("shared")
		default:
			// Shared tier unavailable: fall through to the source.
			c.metrics.IncrementCacheMisses("shared")
			c.log.Warn("Shared cache unavailable, reading through to source",
				slog.String("key", fullKey),
				slog.String("error", err.Error()))
		}

		fresh, err := populate(ctx)
		if err != nil {
			return nil, err
		}

		setStart := time.Now()
		if err := c.shared.Set(ctx, fullKey, fresh, policy.Shared); err != nil {
			c.log.Warn("Failed to set shared cache",
				slog.String("key", fullKey),
				slog.String("error", err.Error()))
		}
		c.metrics.RecordCacheOperationDuration("shared_set", time.Since(setStart))

		c.local.Set(fullKey, fresh, policy.Local)
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}

	return val.([]byte), nil
}

func (c *TieredCache) Remove(ctx context.Context, namespace string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	fullKeys := make([]string, 0, len(keys))
	for _, key := range keys {
		fullKeys = append(fullKeys, Key(namespace, key))
	}

	c.local.Delete(fullKeys...)

	start := time.Now()
	err := c.shared.Delete(ctx, fullKeys...)
	c.metrics.RecordCacheOperationDuration("shared_delete", time.Since(start))
	if err != nil {
		c.log.Warn("Failed to remove keys from shared cache",
			slog.Int("keys", len(fullKeys)),
			slog.String("error", err.Error()))
		return err
	}

	return nil
}
