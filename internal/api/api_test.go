package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mohammed-shakir/geo-codec-gateway/internal/codec"
	geohashcodec "github.com/mohammed-shakir/geo-codec-gateway/internal/codec/geohash"
	h3codec "github.com/mohammed-shakir/geo-codec-gateway/internal/codec/h3"
	s2codec "github.com/mohammed-shakir/geo-codec-gateway/internal/codec/s2"
	"github.com/mohammed-shakir/geo-codec-gateway/internal/gateway"
)

func newHandler(t *testing.T, maxBody int64, opts ...gateway.Option) http.Handler {
	t.Helper()
	h, err := h3codec.New()
	if err != nil {
		t.Fatalf("h3 init: %v", err)
	}
	reg, err := codec.NewRegistry(geohashcodec.New(), h, s2codec.New())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	gw, err := gateway.New(reg, opts...)
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	return New(gw, slog.New(slog.NewTextHandler(io.Discard, nil)), maxBody).Routes()
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeList(t *testing.T, rr *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var out []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not a JSON array: %v body=%s", err, rr.Body.String())
	}
	return out
}

func TestEncodeGeohash_StringFields(t *testing.T) {
	h := newHandler(t, 0)
	rr := post(t, h, "/geohash", `[{"lat":37.7749,"lon":-122.4194,"precision":6},{"lat":37,"lon":-122,"precision":5}]`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type=%q", ct)
	}
	want := `[{"latitude":"37.7749","longitude":"-122.4194","precision":"6","geohash":"9q8yyk"},` +
		`{"latitude":"37.0","longitude":"-122.0","precision":"5","geohash":"9q94r"}]`
	if got := strings.TrimSpace(rr.Body.String()); got != want {
		t.Fatalf("body=%s\nwant=%s", got, want)
	}
}

func TestEncodeGeohash_NorthEastCorner(t *testing.T) {
	h := newHandler(t, 0)
	enc := decodeList(t, post(t, h, "/geohash", `[{"lat":90,"lon":180,"precision":6}]`))
	if enc[0]["geohash"] != "zzzzzz" {
		t.Fatalf("geohash=%v want zzzzzz", enc[0]["geohash"])
	}
	dec := decodeList(t, post(t, h, "/decode-geohash", `["zzzzzz"]`))
	if lat, _ := dec[0]["latitude"].(float64); lat < 89.9 {
		t.Fatalf("decoded latitude=%v, want near the north pole", lat)
	}
}

func TestDecodeGeohash_NumericFields(t *testing.T) {
	h := newHandler(t, 0)
	out := decodeList(t, post(t, h, "/decode-geohash", `["9q8yyk"]`))
	if len(out) != 1 {
		t.Fatalf("len=%d want 1", len(out))
	}
	item := out[0]
	if item["geohash"] != "9q8yyk" || item["precision"] != float64(6) {
		t.Fatalf("unexpected item: %v", item)
	}
	lat, ok := item["latitude"].(float64)
	if !ok || lat < 37.76 || lat > 37.79 {
		t.Fatalf("latitude=%v", item["latitude"])
	}
}

func TestH3_EncodeThenDecode(t *testing.T) {
	h := newHandler(t, 0)
	enc := decodeList(t, post(t, h, "/h3", `[{"lat":37.7749,"lon":-122.4194,"resolution":9}]`))
	if enc[0]["resolution"] != "9" || enc[0]["latitude"] != "37.7749" {
		t.Fatalf("unexpected encode item: %v", enc[0])
	}
	idx, _ := enc[0]["h3Index"].(string)
	if len(idx) != 15 {
		t.Fatalf("h3Index=%q", idx)
	}

	dec := decodeList(t, post(t, h, "/decode-h3", `["`+idx+`"]`))
	if dec[0]["h3Index"] != idx || dec[0]["precision"] != float64(9) {
		t.Fatalf("unexpected decode item: %v", dec[0])
	}
	if _, ok := dec[0]["resolution"]; ok {
		t.Fatalf("decode-h3 reports resolution under the precision key")
	}
}

func TestS2_NoPrecisionField(t *testing.T) {
	h := newHandler(t, 0)
	enc := decodeList(t, post(t, h, "/s2", `[{"lat":0,"lon":0}]`))
	if enc[0]["latitude"] != "0.0" || enc[0]["longitude"] != "0.0" {
		t.Fatalf("unexpected echo: %v", enc[0])
	}
	tok, _ := enc[0]["s2CellId"].(string)
	if want, _ := s2codec.New().Encode(0, 0, s2codec.Leaf); tok != want {
		t.Fatalf("s2CellId=%q want %q", tok, want)
	}

	dec := decodeList(t, post(t, h, "/decode-s2", `["`+tok+`"]`))
	if _, ok := dec[0]["precision"]; ok {
		t.Fatalf("decode-s2 must not report precision: %v", dec[0])
	}
	if lat, _ := dec[0]["latitude"].(float64); lat > 1e-6 || lat < -1e-6 {
		t.Fatalf("latitude=%v", lat)
	}
}

func TestEmptyAndNullBatches(t *testing.T) {
	h := newHandler(t, 0)
	for _, path := range []string{"/geohash", "/decode-geohash", "/h3", "/decode-h3", "/s2", "/decode-s2"} {
		for _, body := range []string{"[]", "null"} {
			rr := post(t, h, path, body)
			if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != "[]" {
				t.Fatalf("%s %s: status=%d body=%s", path, body, rr.Code, rr.Body.String())
			}
		}
	}
}

func TestStrictMode_FirstBadItemFailsRequest(t *testing.T) {
	h := newHandler(t, 0)
	rr := post(t, h, "/decode-h3", `["8928308280fffff","bogus"]`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", rr.Code)
	}
	var e struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
		Index *int   `json:"index"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil {
		t.Fatalf("error body: %v", err)
	}
	if e.Kind != "decode" || e.Index == nil || *e.Index != 1 || e.Error == "" {
		t.Fatalf("unexpected error body: %s", rr.Body.String())
	}
}

func TestStrictMode_ValidationError(t *testing.T) {
	h := newHandler(t, 0)
	rr := post(t, h, "/geohash", `[{"lat":91,"lon":0,"precision":5}]`)
	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), `"kind":"validation"`) {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestPartialMode_ReportsPerItemErrors(t *testing.T) {
	h := newHandler(t, 0)
	out := decodeList(t, post(t, h, "/decode-h3?partial=true", `["8928308280fffff","bogus"]`))
	if len(out) != 2 {
		t.Fatalf("len=%d want 2", len(out))
	}
	if _, ok := out[0]["error"]; ok {
		t.Fatalf("item 0 should succeed: %v", out[0])
	}
	if out[1]["h3Index"] != "bogus" || out[1]["error"] == nil {
		t.Fatalf("item 1 should carry an error: %v", out[1])
	}
	if _, ok := out[1]["latitude"]; ok {
		t.Fatalf("failed item must omit coordinates: %v", out[1])
	}

	enc := decodeList(t, post(t, h, "/h3?partial=1", `[{"lat":1,"lon":1,"resolution":99}]`))
	if enc[0]["h3Index"] != "" || enc[0]["resolution"] != "99" || enc[0]["error"] == nil {
		t.Fatalf("unexpected partial encode item: %v", enc[0])
	}
}

func TestMalformedBody(t *testing.T) {
	h := newHandler(t, 0)
	for _, body := range []string{
		`[{"lat":`,
		`{"lat":1}`,
		`["x", 3]`,
		`["9q8yyk"] trailing`,
		`["9q8yyk"]["u6sce"]`,
		`["9q8yyk"] {}`,
	} {
		rr := post(t, h, "/decode-geohash", body)
		if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), `"kind":"request"`) {
			t.Fatalf("body %q: status=%d resp=%s", body, rr.Code, rr.Body.String())
		}
	}
}

func TestTrailingWhitespaceAccepted(t *testing.T) {
	h := newHandler(t, 0)
	rr := post(t, h, "/decode-geohash", "[\"9q8yyk\"]\n\t ")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestBodyTooLarge(t *testing.T) {
	h := newHandler(t, 16)
	rr := post(t, h, "/decode-geohash", `["9q8yyk","9q8yym","9q8yyt"]`)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status=%d want 413", rr.Code)
	}
}

func TestBatchTooLarge(t *testing.T) {
	h := newHandler(t, 0, gateway.WithMaxBatch(1))
	rr := post(t, h, "/decode-geohash", `["9q8yyk","9q8yym"]`)
	if rr.Code != http.StatusRequestEntityTooLarge || !strings.Contains(rr.Body.String(), "batch_too_large") {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestGetNotAllowed(t *testing.T) {
	h := newHandler(t, 0)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/geohash", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d want 405", rr.Code)
	}
}

func TestFormatDouble(t *testing.T) {
	cases := map[float64]string{
		37:        "37.0",
		-122.4194: "-122.4194",
		0:         "0.0",
		0.001:     "0.001",
		1e-4:      "1.0E-4",
		-2.5e-5:   "-2.5E-5",
		1.5e7:     "1.5E7",
		9999999:   "9999999.0",
	}
	for in, want := range cases {
		if got := formatDouble(in); got != want {
			t.Fatalf("formatDouble(%v)=%q want %q", in, got, want)
		}
	}
}
