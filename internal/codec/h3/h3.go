// Package h3codec adapts github.com/uber/h3-go/v4 to codec.Codec.
package h3codec

import (
	"errors"
	"fmt"
	"strings"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/geo-codec-gateway/internal/codec"
)

const (
	MinRes = 0
	MaxRes = 15
)

// reference point used by the startup self-check
var probe = h3.LatLng{Lat: 59.3293, Lng: 18.0686}

type Codec struct{}

var _ codec.Codec = (*Codec)(nil)

// New performs the one-time initialization of the grid library: it encodes
// and decodes a reference point at every resolution and fails with
// *codec.InitError if the tables are not usable.
func New() (*Codec, error) {
	for res := MinRes; res <= MaxRes; res++ {
		cell, err := h3.LatLngToCell(probe, res)
		if err != nil {
			return nil, &codec.InitError{Codec: codec.H3, Err: fmt.Errorf("probe res %d: %w", res, err)}
		}
		if !cell.IsValid() || cell.Resolution() != res {
			return nil, &codec.InitError{Codec: codec.H3, Err: fmt.Errorf("probe res %d produced %s", res, cell)}
		}
		if _, err := cell.LatLng(); err != nil {
			return nil, &codec.InitError{Codec: codec.H3, Err: fmt.Errorf("probe centroid res %d: %w", res, err)}
		}
	}
	return &Codec{}, nil
}

func (c *Codec) Name() string { return codec.H3 }

func (c *Codec) Encode(lat, lon float64, res int) (string, error) {
	if err := codec.ValidateLatLon(codec.H3, lat, lon); err != nil {
		return "", err
	}
	if err := validateRes(res); err != nil {
		return "", err
	}
	cell, err := h3.LatLngToCell(h3.LatLng{Lat: lat, Lng: lon}, res)
	if err != nil {
		return "", fmt.Errorf("h3 latlng to cell: %w", err)
	}
	return cell.String(), nil
}

// Decode returns the cell centre and the resolution embedded in the index.
func (c *Codec) Decode(token string) (codec.Point, error) {
	cell, err := parseCell(token)
	if err != nil {
		return codec.Point{}, err
	}
	ll, err := cell.LatLng()
	if err != nil {
		return codec.Point{}, &codec.DecodeError{Codec: codec.H3, Token: token, Err: err}
	}
	return codec.Point{Lat: ll.Lat, Lon: ll.Lng, Precision: cell.Resolution()}, nil
}

// parseCell accepts only the canonical 15-digit hex form (any case); padded,
// 0x-prefixed or zero-extended spellings are decode errors so the echoed
// h3Index is always the cell's own address.
func parseCell(token string) (h3.Cell, error) {
	if strings.TrimSpace(token) == "" {
		return 0, &codec.ValidationError{Codec: codec.H3, Field: "h3Index", Msg: "empty address"}
	}
	var cell h3.Cell
	if err := cell.UnmarshalText([]byte(token)); err != nil {
		return 0, &codec.DecodeError{Codec: codec.H3, Token: token, Err: err}
	}
	if !cell.IsValid() {
		return 0, &codec.DecodeError{Codec: codec.H3, Token: token, Err: errors.New("not a valid cell")}
	}
	if strings.ToLower(token) != cell.String() {
		return 0, &codec.DecodeError{Codec: codec.H3, Token: token, Err: fmt.Errorf("non-canonical address, want %s", cell)}
	}
	return cell, nil
}

func validateRes(res int) error {
	if res < MinRes || res > MaxRes {
		return &codec.ValidationError{
			Codec: codec.H3,
			Field: "resolution",
			Msg:   fmt.Sprintf("%d must be %d..%d", res, MinRes, MaxRes),
		}
	}
	return nil
}
