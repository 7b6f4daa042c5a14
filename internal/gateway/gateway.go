// Package gateway is the coordinate codec gateway: it runs batches of
// encode/decode requests through the registered codecs and returns one
// result per input, in input order.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/geo-codec-gateway/internal/cache"
	"github.com/mohammed-shakir/geo-codec-gateway/internal/cache/keys"
	"github.com/mohammed-shakir/geo-codec-gateway/internal/codec"
	"github.com/mohammed-shakir/geo-codec-gateway/internal/events"
)

var ErrBatchTooLarge = errors.New("batch too large")

// checked every ctxCheckEvery items so huge batches stop on cancellation
const ctxCheckEvery = 1024

type EncodeRequest struct {
	Lat       float64
	Lon       float64
	Precision int
}

type Encoded struct {
	Lat       float64
	Lon       float64
	Precision int
	Token     string
}

type Decoded struct {
	Token string
	codec.Point
}

// Result holds either a value or the error for one batch item.
type Result[T any] struct {
	Value T
	Err   error
}

// ItemError ties a codec error to its position in the batch.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string { return fmt.Sprintf("item %d: %v", e.Index, e.Err) }

func (e *ItemError) Unwrap() error { return e.Err }

// FirstError returns the first failed item's error, or nil.
func FirstError[T any](rs []Result[T]) error {
	for _, r := range rs {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

type Gateway struct {
	geohash codec.Codec
	h3      codec.Codec
	s2      codec.Codec

	maxBatch     int
	cache        cache.Interface
	cacheTTL     time.Duration
	cacheTimeout time.Duration
	events       events.Publisher
	logger       *slog.Logger
}

type Option func(*Gateway)

// WithMaxBatch caps the number of items per batch; 0 means unbounded.
func WithMaxBatch(n int) Option {
	return func(g *Gateway) { g.maxBatch = n }
}

func WithCache(c cache.Interface, ttl, opTimeout time.Duration) Option {
	return func(g *Gateway) {
		g.cache = c
		g.cacheTTL = ttl
		g.cacheTimeout = opTimeout
	}
}

func WithEvents(p events.Publisher) Option {
	return func(g *Gateway) {
		if p != nil {
			g.events = p
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// New resolves the three codecs from lk once; lk is not consulted again.
func New(lk codec.Lookup, opts ...Option) (*Gateway, error) {
	g := &Gateway{
		events:       events.Nop{},
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		cacheTimeout: 250 * time.Millisecond,
	}
	for name, dst := range map[string]*codec.Codec{codec.Geohash: &g.geohash, codec.H3: &g.h3, codec.S2: &g.s2} {
		c, ok := lk.Codec(name)
		if !ok {
			return nil, fmt.Errorf("gateway: codec %q not registered", name)
		}
		*dst = c
	}
	for _, o := range opts {
		o(g)
	}
	return g, nil
}

func (g *Gateway) EncodeGeohash(ctx context.Context, reqs []EncodeRequest) ([]Result[Encoded], error) {
	return g.encode(ctx, g.geohash, reqs)
}

func (g *Gateway) DecodeGeohash(ctx context.Context, tokens []string) ([]Result[Decoded], error) {
	return g.decode(ctx, g.geohash, tokens)
}

func (g *Gateway) EncodeH3(ctx context.Context, reqs []EncodeRequest) ([]Result[Encoded], error) {
	return g.encode(ctx, g.h3, reqs)
}

func (g *Gateway) DecodeH3(ctx context.Context, tokens []string) ([]Result[Decoded], error) {
	return g.decode(ctx, g.h3, tokens)
}

// EncodeS2 treats Precision as the cell level; 0 selects the leaf level.
func (g *Gateway) EncodeS2(ctx context.Context, reqs []EncodeRequest) ([]Result[Encoded], error) {
	return g.encode(ctx, g.s2, reqs)
}

func (g *Gateway) DecodeS2(ctx context.Context, tokens []string) ([]Result[Decoded], error) {
	return g.decode(ctx, g.s2, tokens)
}

func (g *Gateway) encode(ctx context.Context, c codec.Codec, reqs []EncodeRequest) ([]Result[Encoded], error) {
	return process(ctx, g, c.Name(), "encode", reqs, item[EncodeRequest, Encoded]{
		key: func(r EncodeRequest) string { return keys.Encode(c.Name(), r.Lat, r.Lon, r.Precision) },
		compute: func(r EncodeRequest) (Encoded, error) {
			tok, err := c.Encode(r.Lat, r.Lon, r.Precision)
			if err != nil {
				return Encoded{}, err
			}
			return Encoded{Lat: r.Lat, Lon: r.Lon, Precision: r.Precision, Token: tok}, nil
		},
		marshal: func(v Encoded) ([]byte, error) { return []byte(v.Token), nil },
		unmarshal: func(r EncodeRequest, b []byte) (Encoded, bool) {
			if len(b) == 0 {
				return Encoded{}, false
			}
			return Encoded{Lat: r.Lat, Lon: r.Lon, Precision: r.Precision, Token: string(b)}, true
		},
	})
}

func (g *Gateway) decode(ctx context.Context, c codec.Codec, tokens []string) ([]Result[Decoded], error) {
	return process(ctx, g, c.Name(), "decode", tokens, item[string, Decoded]{
		key: func(t string) string { return keys.Decode(c.Name(), t) },
		compute: func(t string) (Decoded, error) {
			p, err := c.Decode(t)
			if err != nil {
				return Decoded{}, err
			}
			return Decoded{Token: t, Point: p}, nil
		},
		marshal: func(v Decoded) ([]byte, error) { return json.Marshal(v.Point) },
		unmarshal: func(t string, b []byte) (Decoded, bool) {
			var p codec.Point
			if err := json.Unmarshal(b, &p); err != nil {
				return Decoded{}, false
			}
			return Decoded{Token: t, Point: p}, true
		},
	})
}
