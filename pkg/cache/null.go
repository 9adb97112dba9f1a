package cache

import (
	"context"
	"time"
)

// NullCache is the backend used when layouts and renders should always be
// recomputed (--no-cache, or enabled = false under [cache]). Every lookup
// misses and writes are dropped. A cancelled context still fails like
// [FileCache], so a stopped pipeline stops at the cache too.
type NullCache struct{}

// NewNullCache returns a cache that stores nothing.
func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(ctx context.Context, _ string) ([]byte, bool, error) {
	return nil, false, ctx.Err()
}

func (NullCache) Set(ctx context.Context, _ string, _ []byte, _ time.Duration) error {
	return ctx.Err()
}

func (NullCache) Delete(ctx context.Context, _ string) error {
	return ctx.Err()
}

func (NullCache) Close() error { return nil }
