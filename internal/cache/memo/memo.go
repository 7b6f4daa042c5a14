// Package memo is an in-process, size-bounded LRU implementation of
// cache.Interface.
package memo

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/geo-codec-gateway/internal/cache"
	"github.com/mohammed-shakir/geo-codec-gateway/internal/core/observability"
)

type entry struct {
	val     []byte
	expires time.Time // zero means no expiry
}

type Store struct {
	lru *lru.Cache[string, entry]
	now func() time.Time
}

var _ cache.Interface = (*Store)(nil)

func New(size int) (*Store, error) {
	if size <= 0 {
		size = 4096
	}
	c, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("memo lru: %w", err)
	}
	return &Store{lru: c, now: time.Now}, nil
}

func (s *Store) MGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		observability.ObserveCacheOp("mget", err, time.Since(start).Seconds())
		return nil, err
	}
	out := make(map[string][]byte, len(keys))
	now := s.now()
	for _, k := range keys {
		e, ok := s.lru.Get(k)
		if !ok {
			continue
		}
		if !e.expires.IsZero() && !now.Before(e.expires) {
			s.lru.Remove(k)
			continue
		}
		out[k] = e.val
	}
	observability.ObserveCacheOp("mget", nil, time.Since(start).Seconds())
	observability.AddCacheHits(len(out))
	observability.AddCacheMisses(len(keys) - len(out))
	return out, nil
}

func (s *Store) MSet(ctx context.Context, kv map[string][]byte, ttl time.Duration) error {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		observability.ObserveCacheOp("mset", err, time.Since(start).Seconds())
		return err
	}
	var exp time.Time
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	for k, v := range kv {
		s.lru.Add(k, entry{val: v, expires: exp})
	}
	observability.ObserveCacheOp("mset", nil, time.Since(start).Seconds())
	return nil
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		observability.ObserveCacheOp("del", err, time.Since(start).Seconds())
		return err
	}
	for _, k := range keys {
		s.lru.Remove(k)
	}
	observability.ObserveCacheOp("del", nil, time.Since(start).Seconds())
	return nil
}

func (s *Store) Len() int { return s.lru.Len() }
