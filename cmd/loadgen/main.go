package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mohammed-shakir/geo-codec-gateway/internal/core/httpclient"
)

type Config struct {
	BaseURL     string
	Codec       string
	Precision   int
	BatchSize   int
	Concurrency int
	Duration    time.Duration
	Timeout     time.Duration
	Output      string
}

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.BaseURL, "target", "http://localhost:8090/api/geo", "Gateway base URL")
	flag.StringVar(&cfg.Codec, "codec", "h3", "Codec: geohash|h3|s2")
	flag.IntVar(&cfg.Precision, "precision", 9, "Geohash precision or H3 resolution (ignored for s2)")
	flag.IntVar(&cfg.BatchSize, "batch", 100, "Points per request")
	flag.IntVar(&cfg.Concurrency, "concurrency", 8, "Concurrent workers")
	flag.DurationVar(&cfg.Duration, "duration", 30*time.Second, "Test duration")
	flag.DurationVar(&cfg.Timeout, "timeout", 10*time.Second, "Per-request timeout")
	flag.StringVar(&cfg.Output, "out", "", "Optional summary JSON path")
	flag.Parse()
	return cfg
}

func main() {
	cfg := loadConfig()
	route, err := routesFor(cfg.Codec)
	if err != nil {
		log.Fatal(err)
	}
	if cfg.BatchSize <= 0 || cfg.Concurrency <= 0 {
		log.Fatalf("batch and concurrency must be positive")
	}

	client := httpclient.NewOutbound(cfg.Concurrency, cfg.Timeout)
	base := strings.TrimRight(cfg.BaseURL, "/")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	seed := time.Now().UnixNano()
	var (
		mu       sync.Mutex
		lat      []float64
		maxErrKm float64
		points   atomic.Int64
		failures atomic.Int64
	)

	log.Printf("loadgen start target=%s codec=%s precision=%d batch=%d conc=%d dur=%s",
		base, cfg.Codec, cfg.Precision, cfg.BatchSize, cfg.Concurrency, cfg.Duration)
	start := time.Now()

	var wg sync.WaitGroup
	wg.Add(cfg.Concurrency)
	for id := range cfg.Concurrency {
		go func(id int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed + int64(id) + 1))
			for ctx.Err() == nil {
				pts := randomPoints(r, cfg.BatchSize)
				t0 := time.Now()
				errKm, err := roundTrip(ctx, client, base, route, pts, cfg.Precision)
				rt := float64(time.Since(t0).Microseconds()) / 1000
				if err != nil {
					if ctx.Err() == nil {
						failures.Add(1)
						log.Printf("worker %d: %v", id, err)
					}
					continue
				}
				points.Add(int64(len(pts)))
				mu.Lock()
				lat = append(lat, rt)
				if errKm > maxErrKm {
					maxErrKm = errKm
				}
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	elapsed := time.Since(start).Seconds()
	sort.Float64s(lat)
	s := summary{
		Codec:          cfg.Codec,
		Precision:      cfg.Precision,
		BatchSize:      cfg.BatchSize,
		Concurrency:    cfg.Concurrency,
		RoundTrips:     len(lat),
		Failures:       failures.Load(),
		Points:         points.Load(),
		PointsPerSec:   float64(points.Load()) / elapsed,
		P50Ms:          percentile(lat, 50),
		P95Ms:          percentile(lat, 95),
		P99Ms:          percentile(lat, 99),
		MaxRoundTripKm: maxErrKm,
	}
	log.Printf("done: round_trips=%d failures=%d points/s=%.0f p50=%.1fms p95=%.1fms p99=%.1fms max_err=%.4fkm",
		s.RoundTrips, s.Failures, s.PointsPerSec, s.P50Ms, s.P95Ms, s.P99Ms, s.MaxRoundTripKm)

	if cfg.Output != "" {
		if err := writeSummary(cfg.Output, s); err != nil {
			log.Printf("write summary: %v", err)
			os.Exit(1)
		}
		log.Printf("wrote %s", cfg.Output)
	}
}

// roundTrip encodes pts, decodes the returned tokens and reports the largest
// distance between an input point and its decoded centroid.
func roundTrip(ctx context.Context, c *http.Client, base string, rt codecRoutes, pts []point, precision int) (float64, error) {
	var encoded []map[string]any
	if err := postJSON(ctx, c, base+rt.encode, rt.encodeBody(pts, precision), &encoded); err != nil {
		return 0, fmt.Errorf("encode: %w", err)
	}
	if len(encoded) != len(pts) {
		return 0, fmt.Errorf("encode: got %d items for %d points", len(encoded), len(pts))
	}
	tokens := make([]string, len(encoded))
	for i, e := range encoded {
		tok, _ := e[rt.tokenField].(string)
		tokens[i] = tok
	}

	var decoded []struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := postJSON(ctx, c, base+rt.decode, tokens, &decoded); err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}
	if len(decoded) != len(pts) {
		return 0, fmt.Errorf("decode: got %d items for %d tokens", len(decoded), len(tokens))
	}

	var worst float64
	for i, d := range decoded {
		if km := distanceKm(pts[i], point{Lat: d.Latitude, Lon: d.Longitude}); km > worst {
			worst = km
		}
	}
	return worst, nil
}

func postJSON(ctx context.Context, c *http.Client, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type summary struct {
	Codec          string  `json:"codec"`
	Precision      int     `json:"precision"`
	BatchSize      int     `json:"batch_size"`
	Concurrency    int     `json:"concurrency"`
	RoundTrips     int     `json:"round_trips"`
	Failures       int64   `json:"failures"`
	Points         int64   `json:"points"`
	PointsPerSec   float64 `json:"points_per_sec"`
	P50Ms          float64 `json:"p50_ms"`
	P95Ms          float64 `json:"p95_ms"`
	P99Ms          float64 `json:"p99_ms"`
	MaxRoundTripKm float64 `json:"max_round_trip_km"`
}

func writeSummary(path string, s summary) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
