package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mohammed-shakir/geo-codec-gateway/internal/api"
	"github.com/mohammed-shakir/geo-codec-gateway/internal/codec"
	geohashcodec "github.com/mohammed-shakir/geo-codec-gateway/internal/codec/geohash"
	h3codec "github.com/mohammed-shakir/geo-codec-gateway/internal/codec/h3"
	s2codec "github.com/mohammed-shakir/geo-codec-gateway/internal/codec/s2"
	"github.com/mohammed-shakir/geo-codec-gateway/internal/gateway"
	"github.com/mohammed-shakir/geo-codec-gateway/internal/metrics"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h, err := h3codec.New()
	if err != nil {
		t.Fatalf("h3 init: %v", err)
	}
	reg, err := codec.NewRegistry(geohashcodec.New(), h, s2codec.New())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	gw, err := gateway.New(reg, gateway.WithLogger(logger))
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	p := metrics.Init(metrics.Config{Enabled: true})
	srv := httptest.NewServer(NewRouter(logger, Routes{
		API:         api.New(gw, logger, 1<<20),
		Ready:       reg,
		Metrics:     p.Handler(),
		MetricsPath: p.Path(),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestRouter_HealthAndReadiness(t *testing.T) {
	srv := newTestServer(t)

	if code, body := get(t, srv.URL+"/healthz"); code != http.StatusOK || body != "ok" {
		t.Fatalf("healthz: %d %q", code, body)
	}
	code, body := get(t, srv.URL+"/readyz")
	if code != http.StatusOK || !strings.Contains(body, `"status":"ready"`) {
		t.Fatalf("readyz: %d %s", code, body)
	}
	if code, body := get(t, srv.URL+"/metrics"); code != http.StatusOK || !strings.Contains(body, "app_build_info") {
		t.Fatalf("metrics: %d", code)
	}
}

func TestRouter_MountsBatchEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/geo/geohash", "application/json",
		strings.NewReader(`[{"lat":37.7749,"lon":-122.4194,"precision":6}]`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	b, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK || !strings.Contains(string(b), `"geohash":"9q8yyk"`) {
		t.Fatalf("status=%d body=%s", resp.StatusCode, b)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("missing X-Request-ID")
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	srv := newTestServer(t)
	if code, _ := get(t, srv.URL+"/api/geo/nope"); code != http.StatusNotFound {
		t.Fatalf("status=%d want 404", code)
	}
}
