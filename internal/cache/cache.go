// Package cache defines the memo cache contract used to skip repeated codec
// work. Cached values never change results; a failing cache is bypassed.
package cache

import (
	"context"
	"time"
)

type Interface interface {
	// MGet returns only the keys that were found.
	MGet(ctx context.Context, keys []string) (map[string][]byte, error)
	MSet(ctx context.Context, kv map[string][]byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
