// Package config loads gateway settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	CacheNone  = "none"
	CacheLRU   = "lru"
	CacheRedis = "redis"
)

type CacheCfg struct {
	Driver    string
	Size      int
	TTL       time.Duration
	OpTimeout time.Duration
	RedisAddr string
	// RedisPrefix namespaces keys when gateways share one Redis.
	RedisPrefix string
}

type EventsCfg struct {
	Enabled bool
	Brokers []string
	Topic   string
	Queue   int
}

type MetricsCfg struct {
	Enabled bool
	Addr    string
	Path    string
}

type Config struct {
	Addr         string
	LogLevel     string
	LogConsole   bool
	LogSampleN   int
	MaxBatch     int
	MaxBodyBytes int64
	Cache        CacheCfg
	Events       EventsCfg
	Metrics      MetricsCfg
}

func FromEnv() Config {
	driver := strings.ToLower(getenv("CACHE_DRIVER", CacheNone))
	switch driver {
	case CacheNone, CacheLRU, CacheRedis:
	default:
		driver = CacheNone
	}

	maxBatch := getint("MAX_BATCH", 10000)
	if maxBatch < 0 {
		maxBatch = 0
	}

	return Config{
		Addr:         getenv("ADDR", ":8090"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		LogConsole:   getbool("LOG_CONSOLE", false),
		LogSampleN:   getint("LOG_SAMPLE_N", 0),
		MaxBatch:     maxBatch,
		MaxBodyBytes: int64(getint("MAX_BODY_BYTES", 8<<20)),
		Cache: CacheCfg{
			Driver:      driver,
			Size:        getint("CACHE_SIZE", 100_000),
			TTL:         getduration("CACHE_TTL", 24*time.Hour),
			OpTimeout:   getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
			RedisAddr:   getenv("REDIS_ADDR", "localhost:6379"),
			RedisPrefix: getenv("REDIS_PREFIX", ""),
		},
		Events: EventsCfg{
			Enabled: getbool("EVENTS_ENABLED", false),
			Brokers: splitList(getenv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getenv("EVENTS_TOPIC", "geo-codec-batches"),
			Queue:   getint("EVENTS_QUEUE", 1024),
		},
		Metrics: MetricsCfg{
			Enabled: getbool("METRICS_ENABLED", true),
			Addr:    getenv("METRICS_ADDR", ""),
			Path:    getenv("METRICS_PATH", "/metrics"),
		},
	}
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}

// parse "host1:9092, host2:9092" into a list, dropping blanks
func splitList(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
