package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/mohammed-shakir/geo-codec-gateway/internal/codec"
	"github.com/mohammed-shakir/geo-codec-gateway/internal/core/observability"
	"github.com/mohammed-shakir/geo-codec-gateway/internal/events"
	"github.com/mohammed-shakir/geo-codec-gateway/internal/logger"
)

// item describes how one batch element is keyed, computed and memoized.
type item[In, Out any] struct {
	key       func(In) string
	compute   func(In) (Out, error)
	marshal   func(Out) ([]byte, error)
	unmarshal func(In, []byte) (Out, bool)
}

func process[In, Out any](
	ctx context.Context,
	g *Gateway,
	codecName, op string,
	in []In,
	it item[In, Out],
) ([]Result[Out], error) {
	start := time.Now()
	if g.maxBatch > 0 && len(in) > g.maxBatch {
		return nil, fmt.Errorf("%w: %d items, max %d", ErrBatchTooLarge, len(in), g.maxBatch)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]Result[Out], len(in))

	var ks []string
	var cached map[string][]byte
	if g.cache != nil && len(in) > 0 {
		ks = make([]string, len(in))
		for i, v := range in {
			ks[i] = it.key(v)
		}
		cached = g.cacheGet(ctx, ks)
	}

	fill := make(map[string][]byte)
	var hits, invalid, failed int
	for i, v := range in {
		if i > 0 && i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if ks != nil {
			if b, ok := cached[ks[i]]; ok {
				if val, ok := it.unmarshal(v, b); ok {
					out[i].Value = val
					hits++
					continue
				}
			}
		}
		val, err := it.compute(v)
		if err != nil {
			out[i].Err = &ItemError{Index: i, Err: err}
			if codec.IsClientError(err) {
				invalid++
			} else {
				failed++
			}
			continue
		}
		out[i].Value = val
		if ks != nil {
			if b, err := it.marshal(val); err == nil {
				fill[ks[i]] = b
			}
		}
	}
	g.cacheSet(ctx, fill)

	ok := len(in) - invalid - failed
	observability.ObserveBatch(codecName, op, len(in))
	observability.ObserveCodec(codecName, op, "ok", ok)
	observability.ObserveCodec(codecName, op, "invalid", invalid)
	observability.ObserveCodec(codecName, op, "error", failed)

	g.events.Publish(events.Event{
		Op:         op,
		Codec:      codecName,
		Items:      len(in),
		Failed:     invalid + failed,
		CacheHits:  hits,
		RequestID:  logger.RequestID(ctx),
		DurationMS: float64(time.Since(start).Microseconds()) / 1000,
		TS:         time.Now().UTC(),
	})

	g.logger.DebugContext(ctx, "batch processed",
		"codec", codecName,
		"op", op,
		"items", len(in),
		"failed", invalid+failed,
		"cache_hits", hits)
	return out, nil
}

// cacheGet never fails the batch; errors degrade to a full miss.
func (g *Gateway) cacheGet(ctx context.Context, ks []string) map[string][]byte {
	cctx, cancel := context.WithTimeout(ctx, g.cacheTimeout)
	defer cancel()
	got, err := g.cache.MGet(cctx, ks)
	if err != nil {
		g.logger.WarnContext(ctx, "cache mget failed; bypassing", "keys", len(ks), "err", err)
		return nil
	}
	return got
}

func (g *Gateway) cacheSet(ctx context.Context, kv map[string][]byte) {
	if g.cache == nil || len(kv) == 0 {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, g.cacheTimeout)
	defer cancel()
	if err := g.cache.MSet(cctx, kv, g.cacheTTL); err != nil {
		g.logger.WarnContext(ctx, "cache mset failed", "keys", len(kv), "err", err)
	}
}
