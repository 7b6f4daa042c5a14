// Package codec defines the contract shared by the spatial index codecs
// (Geohash, H3, S2) and the registry the gateway resolves them from.
package codec

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

const (
	Geohash = "geohash"
	H3      = "h3"
	S2      = "s2"
)

// Point is a decoded cell: its centre and the precision/resolution/level
// the token encodes.
type Point struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Precision int     `json:"precision"`
}

// Codec converts coordinates to cell tokens and back. Implementations must be
// pure and safe for concurrent use.
type Codec interface {
	Name() string
	Encode(lat, lon float64, precision int) (string, error)
	Decode(token string) (Point, error)
}

type Lookup interface {
	Codec(name string) (Codec, bool)
}

// ValidateLatLon rejects non-finite and out-of-range coordinates.
func ValidateLatLon(name string, lat, lon float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return &ValidationError{Codec: name, Field: "lat", Msg: fmt.Sprintf("latitude %v must be in [-90,90]", lat)}
	}
	if math.IsNaN(lon) || math.IsInf(lon, 0) || lon < -180 || lon > 180 {
		return &ValidationError{Codec: name, Field: "lon", Msg: fmt.Sprintf("longitude %v must be in [-180,180]", lon)}
	}
	return nil
}

// Registry is built once at startup and read-only afterwards.
type Registry struct {
	codecs map[string]Codec
}

var _ Lookup = (*Registry)(nil)

func NewRegistry(cs ...Codec) (*Registry, error) {
	r := &Registry{codecs: make(map[string]Codec, len(cs))}
	for _, c := range cs {
		if c == nil {
			return nil, errors.New("nil codec")
		}
		name := c.Name()
		if name == "" {
			return nil, errors.New("codec with empty name")
		}
		if _, dup := r.codecs[name]; dup {
			return nil, fmt.Errorf("duplicate codec %q", name)
		}
		r.codecs[name] = c
	}
	return r, nil
}

func (r *Registry) Codec(name string) (Codec, bool) {
	c, ok := r.codecs[name]
	return c, ok
}

// Names returns registered codec names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.codecs))
	for n := range r.codecs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Readiness reports ready once every codec is registered.
func (r *Registry) Readiness() (bool, []string) {
	names := r.Names()
	for _, want := range []string{Geohash, H3, S2} {
		if _, ok := r.codecs[want]; !ok {
			return false, names
		}
	}
	return true, names
}
