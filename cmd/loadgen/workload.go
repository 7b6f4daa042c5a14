package main

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/golang/geo/s2"
)

const earthRadiusKm = 6371.01

type point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type codecRoutes struct {
	encode     string
	decode     string
	tokenField string
	encodeBody func(pts []point, precision int) any
}

func routesFor(name string) (codecRoutes, error) {
	switch name {
	case "geohash":
		return codecRoutes{"/geohash", "/decode-geohash", "geohash", func(pts []point, p int) any {
			type req struct {
				point
				Precision int `json:"precision"`
			}
			out := make([]req, len(pts))
			for i, pt := range pts {
				out[i] = req{pt, p}
			}
			return out
		}}, nil
	case "h3":
		return codecRoutes{"/h3", "/decode-h3", "h3Index", func(pts []point, p int) any {
			type req struct {
				point
				Resolution int `json:"resolution"`
			}
			out := make([]req, len(pts))
			for i, pt := range pts {
				out[i] = req{pt, p}
			}
			return out
		}}, nil
	case "s2":
		return codecRoutes{"/s2", "/decode-s2", "s2CellId", func(pts []point, _ int) any { return pts }}, nil
	default:
		return codecRoutes{}, fmt.Errorf("unknown codec %q (want geohash, h3 or s2)", name)
	}
}

// randomPoints draws points uniformly over the sphere's surface.
func randomPoints(r *rand.Rand, n int) []point {
	out := make([]point, n)
	for i := range out {
		lat := math.Asin(2*r.Float64()-1) * 180 / math.Pi
		lon := r.Float64()*360 - 180
		out[i] = point{Lat: lat, Lon: lon}
	}
	return out
}

func distanceKm(a, b point) float64 {
	d := s2.LatLngFromDegrees(a.Lat, a.Lon).Distance(s2.LatLngFromDegrees(b.Lat, b.Lon))
	return d.Radians() * earthRadiusKm
}

func percentile(sortedValues []float64, p float64) float64 {
	if len(sortedValues) == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sortedValues[0]
	}
	if p >= 100 {
		return sortedValues[len(sortedValues)-1]
	}
	k := (p / 100.0) * float64(len(sortedValues)-1)
	f := math.Floor(k)
	i := int(f)
	if i >= len(sortedValues)-1 {
		return sortedValues[len(sortedValues)-1]
	}
	d := k - f
	return sortedValues[i]*(1-d) + sortedValues[i+1]*d
}
