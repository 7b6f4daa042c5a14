package api

import (
	"math"
	"strconv"
	"strings"
)

type geohashEncodeRequest struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Precision int     `json:"precision"`
}

type h3EncodeRequest struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Resolution int     `json:"resolution"`
}

type s2EncodeRequest struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// encode responses carry every value as a string

type geohashEncodeResponse struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
	Precision string `json:"precision"`
	Geohash   string `json:"geohash"`
	Error     string `json:"error,omitempty"`
}

type h3EncodeResponse struct {
	Latitude   string `json:"latitude"`
	Longitude  string `json:"longitude"`
	Resolution string `json:"resolution"`
	H3Index    string `json:"h3Index"`
	Error      string `json:"error,omitempty"`
}

type s2EncodeResponse struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
	S2CellID  string `json:"s2CellId"`
	Error     string `json:"error,omitempty"`
}

// decode responses carry numbers; pointers let failed items in partial mode
// omit them

type geohashDecodeResponse struct {
	Geohash   string   `json:"geohash"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Precision *int     `json:"precision,omitempty"`
	Error     string   `json:"error,omitempty"`
}

type h3DecodeResponse struct {
	H3Index   string   `json:"h3Index"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Precision *int     `json:"precision,omitempty"`
	Error     string   `json:"error,omitempty"`
}

type s2DecodeResponse struct {
	S2CellID  string   `json:"s2CellId"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Error     string   `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Index *int   `json:"index,omitempty"`
}

func ptr[T any](v T) *T { return &v }

// formatDouble renders a float the way the encode endpoints have always
// echoed it: "37.0" rather than "37", and E-notation outside [1e-3, 1e7).
func formatDouble(f float64) string {
	if f == 0 {
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}
	abs := math.Abs(f)
	if abs >= 1e-3 && abs < 1e7 {
		s := strconv.FormatFloat(f, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}
	mant, exp, _ := strings.Cut(strconv.FormatFloat(f, 'E', -1, 64), "E")
	if !strings.Contains(mant, ".") {
		mant += ".0"
	}
	e, _ := strconv.Atoi(exp)
	return mant + "E" + strconv.Itoa(e)
}
