package codec_test

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/mohammed-shakir/geo-codec-gateway/internal/codec"
)

type stub struct{ name string }

func (s stub) Name() string                               { return s.name }
func (s stub) Encode(_, _ float64, _ int) (string, error) { return "x", nil }
func (s stub) Decode(_ string) (codec.Point, error)       { return codec.Point{}, nil }

func TestRegistry_LookupAndReadiness(t *testing.T) {
	r, err := codec.NewRegistry(stub{codec.Geohash}, stub{codec.H3})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if _, ok := r.Codec(codec.H3); !ok {
		t.Fatalf("h3 not found")
	}
	if ready, _ := r.Readiness(); ready {
		t.Fatalf("registry without s2 must not be ready")
	}

	r, err = codec.NewRegistry(stub{codec.Geohash}, stub{codec.H3}, stub{codec.S2})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	ready, names := r.Readiness()
	if !ready || len(names) != 3 || names[0] != codec.Geohash {
		t.Fatalf("ready=%v names=%v", ready, names)
	}
}

func TestRegistry_RejectsDuplicatesAndEmpty(t *testing.T) {
	if _, err := codec.NewRegistry(stub{"a"}, stub{"a"}); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if _, err := codec.NewRegistry(stub{""}); err == nil {
		t.Fatalf("expected empty name error")
	}
}

func TestValidateLatLon(t *testing.T) {
	if err := codec.ValidateLatLon("t", 90, -180); err != nil {
		t.Fatalf("bounds are inclusive: %v", err)
	}
	for _, c := range [][2]float64{{-90.0001, 0}, {0, 180.5}, {math.Inf(1), 0}, {0, math.NaN()}} {
		if err := codec.ValidateLatLon("t", c[0], c[1]); codec.Kind(err) != "validation" {
			t.Fatalf("%v: want validation error, got %v", c, err)
		}
	}
}

func TestKind_UnwrapsWrappedErrors(t *testing.T) {
	de := &codec.DecodeError{Codec: "t", Token: "bad", Err: errors.New("boom")}
	wrapped := fmt.Errorf("item 3: %w", de)
	if codec.Kind(wrapped) != "decode" || !codec.IsClientError(wrapped) {
		t.Fatalf("wrapped decode error not classified")
	}
	if codec.IsClientError(&codec.InitError{Codec: "t", Err: errors.New("x")}) {
		t.Fatalf("init error is not a client error")
	}
	if codec.Kind(errors.New("other")) != "" {
		t.Fatalf("unknown errors have no kind")
	}
}
