// Package geohashcodec adapts github.com/mmcloughlin/geohash to codec.Codec.
package geohashcodec

import (
	"fmt"
	"math"
	"strings"

	"github.com/mmcloughlin/geohash"

	"github.com/mohammed-shakir/geo-codec-gateway/internal/codec"
)

const (
	MinPrecision = 1
	// character precision beyond 12 overflows the library's 64-bit integer hash
	MaxPrecision = 12
)

type Codec struct{}

var _ codec.Codec = (*Codec)(nil)

func New() *Codec { return &Codec{} }

func (c *Codec) Name() string { return codec.Geohash }

func (c *Codec) Encode(lat, lon float64, precision int) (string, error) {
	if err := codec.ValidateLatLon(codec.Geohash, lat, lon); err != nil {
		return "", err
	}
	if err := validatePrecision(precision); err != nil {
		return "", err
	}
	lat, lon = clampUpper(lat, lon)
	return geohash.EncodeWithPrecision(lat, lon, uint(precision)), nil
}

// The library quantizes each axis to 32 bits and wraps to the minimum cell
// when (x+r)/2r reaches 1, which happens at lat=90 and lon=180 (and for
// values within an ulp of them). Half a quantum below each bound still falls
// in the last cell, whose box keeps the bound on its edge.
var (
	maxLat = 90 - math.Ldexp(180, -33)
	maxLon = 180 - math.Ldexp(360, -33)
)

func clampUpper(lat, lon float64) (float64, float64) {
	if lat > maxLat {
		lat = maxLat
	}
	if lon > maxLon {
		lon = maxLon
	}
	return lat, lon
}

// Decode returns the centre of the token's bounding box, not the encoded point.
func (c *Codec) Decode(token string) (codec.Point, error) {
	box, err := c.Bounds(token)
	if err != nil {
		return codec.Point{}, err
	}
	lat, lon := box.Center()
	return codec.Point{Lat: lat, Lon: lon, Precision: len(token)}, nil
}

// Bounds returns the cell rectangle the token denotes.
func (c *Codec) Bounds(token string) (geohash.Box, error) {
	if token == "" {
		return geohash.Box{}, &codec.ValidationError{Codec: codec.Geohash, Field: "geohash", Msg: "empty geohash"}
	}
	if len(token) > MaxPrecision {
		return geohash.Box{}, &codec.DecodeError{
			Codec: codec.Geohash,
			Token: token,
			Err:   fmt.Errorf("length %d exceeds %d", len(token), MaxPrecision),
		}
	}
	norm := strings.ToLower(token)
	if err := geohash.Validate(norm); err != nil {
		return geohash.Box{}, &codec.DecodeError{Codec: codec.Geohash, Token: token, Err: err}
	}
	return geohash.BoundingBox(norm), nil
}

func validatePrecision(p int) error {
	if p < MinPrecision || p > MaxPrecision {
		return &codec.ValidationError{
			Codec: codec.Geohash,
			Field: "precision",
			Msg:   fmt.Sprintf("%d must be %d..%d", p, MinPrecision, MaxPrecision),
		}
	}
	return nil
}
