// Package s2codec adapts github.com/golang/geo/s2 to codec.Codec.
package s2codec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang/geo/s2"

	"github.com/mohammed-shakir/geo-codec-gateway/internal/codec"
)

// Leaf selects the maximum cell level.
const Leaf = 0

type Codec struct{}

var _ codec.Codec = (*Codec)(nil)

func New() *Codec { return &Codec{} }

func (c *Codec) Name() string { return codec.S2 }

// Encode returns the token of the cell containing (lat, lon) at the given
// level; Leaf yields the level-30 leaf cell.
func (c *Codec) Encode(lat, lon float64, level int) (string, error) {
	if err := codec.ValidateLatLon(codec.S2, lat, lon); err != nil {
		return "", err
	}
	if level == Leaf {
		level = s2.MaxLevel
	}
	if level < 1 || level > s2.MaxLevel {
		return "", &codec.ValidationError{
			Codec: codec.S2,
			Field: "level",
			Msg:   fmt.Sprintf("%d must be 1..%d", level, s2.MaxLevel),
		}
	}
	id := s2.CellIDFromLatLng(s2.LatLngFromDegrees(lat, lon))
	if level < s2.MaxLevel {
		id = id.Parent(level)
	}
	return id.ToToken(), nil
}

// Decode returns the centre of the identified cell and its level.
func (c *Codec) Decode(token string) (codec.Point, error) {
	if strings.TrimSpace(token) == "" {
		return codec.Point{}, &codec.ValidationError{Codec: codec.S2, Field: "s2CellId", Msg: "empty token"}
	}
	id := s2.CellIDFromToken(token)
	if !id.IsValid() {
		return codec.Point{}, &codec.DecodeError{Codec: codec.S2, Token: token, Err: errors.New("not a valid cell id")}
	}
	ll := id.LatLng()
	return codec.Point{Lat: ll.Lat.Degrees(), Lon: ll.Lng.Degrees(), Precision: id.Level()}, nil
}
