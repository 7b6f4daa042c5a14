package redisstore

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/mohammed-shakir/geo-codec-gateway/internal/cache/keys"
)

func TestMSetTTL_MemoEntriesExpire(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	rc, err := NewWithPrefix(ctx, mr.Addr(), "gw-a:")
	if err != nil {
		t.Fatalf("NewWithPrefix: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })

	dec := keys.Decode("h3", "8928308280fffff")
	enc := keys.Encode("geohash", 37.7749, -122.4194, 6)
	kv := map[string][]byte{
		dec: []byte(`{"lat":37.77,"lon":-122.41,"precision":9}`),
		enc: []byte("9q8yyk"),
	}
	if err := rc.MSet(ctx, kv, 2*time.Second); err != nil {
		t.Fatalf("MSet: %v", err)
	}
	if !mr.Exists("gw-a:" + dec) {
		t.Fatalf("memo key not stored under prefix; keys=%v", mr.Keys())
	}

	got, err := rc.MGet(ctx, []string{dec, enc})
	if err != nil || string(got[enc]) != "9q8yyk" || len(got) != 2 {
		t.Fatalf("pre expiry got=%v err=%v", got, err)
	}

	mr.FastForward(3 * time.Second)

	got2, err := rc.MGet(ctx, []string{dec, enc})
	if err != nil {
		t.Fatalf("MGet: %v", err)
	}
	if len(got2) != 0 {
		t.Fatalf("expected memo entries to expire; got=%v", got2)
	}
}
