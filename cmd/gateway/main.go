package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/mohammed-shakir/geo-codec-gateway/internal/api"
	"github.com/mohammed-shakir/geo-codec-gateway/internal/cache"
	"github.com/mohammed-shakir/geo-codec-gateway/internal/cache/memo"
	"github.com/mohammed-shakir/geo-codec-gateway/internal/cache/redisstore"
	"github.com/mohammed-shakir/geo-codec-gateway/internal/codec"
	geohashcodec "github.com/mohammed-shakir/geo-codec-gateway/internal/codec/geohash"
	h3codec "github.com/mohammed-shakir/geo-codec-gateway/internal/codec/h3"
	s2codec "github.com/mohammed-shakir/geo-codec-gateway/internal/codec/s2"
	"github.com/mohammed-shakir/geo-codec-gateway/internal/core/config"
	"github.com/mohammed-shakir/geo-codec-gateway/internal/core/observability"
	"github.com/mohammed-shakir/geo-codec-gateway/internal/core/server"
	"github.com/mohammed-shakir/geo-codec-gateway/internal/events"
	"github.com/mohammed-shakir/geo-codec-gateway/internal/gateway"
	"github.com/mohammed-shakir/geo-codec-gateway/internal/logger"
	"github.com/mohammed-shakir/geo-codec-gateway/internal/metrics"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	addrFlag := flag.String("addr", "", "listen address (overrides ADDR)")
	flag.Parse()

	cfg := config.FromEnv()
	if *addrFlag != "" {
		cfg.Addr = *addrFlag
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   "geo-codec-gateway",
		Component: "gateway",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	p := metrics.Init(metrics.Config{
		Enabled: cfg.Metrics.Enabled,
		Addr:    cfg.Metrics.Addr,
		Path:    cfg.Metrics.Path,
		Build: metrics.BuildInfo{
			Version:   Version,
			Revision:  os.Getenv("BUILD_REVISION"),
			Branch:    os.Getenv("BUILD_BRANCH"),
			BuildDate: os.Getenv("BUILD_DATE"),
		},
	})
	if cfg.Metrics.Enabled {
		observability.Init(p.Registerer(), true)
	} else {
		observability.Init(nil, false)
	}

	appLog.Info("starting gateway",
		"addr", cfg.Addr,
		"version", Version,
		"max_batch", cfg.MaxBatch,
		"cache", cfg.Cache.Driver,
		"events", cfg.Events.Enabled)

	// h3 is the only codec with a startup self-check; failing it is fatal
	h3c, err := h3codec.New()
	if err != nil {
		appLog.Error("h3 codec init failed", "err", err)
		return 1
	}
	reg, err := codec.NewRegistry(geohashcodec.New(), h3c, s2codec.New())
	if err != nil {
		appLog.Error("codec registry", "err", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []gateway.Option{
		gateway.WithMaxBatch(cfg.MaxBatch),
		gateway.WithLogger(appLog.With("component", "gateway")),
	}

	store, closeStore, err := openCache(ctx, cfg.Cache)
	if err != nil {
		appLog.Error("cache setup failed", "driver", cfg.Cache.Driver, "err", err)
		return 1
	}
	defer closeStore()
	if store != nil {
		opts = append(opts, gateway.WithCache(store, cfg.Cache.TTL, cfg.Cache.OpTimeout))
	}

	if cfg.Events.Enabled {
		pub, err := events.NewKafka(cfg.Events.Brokers, cfg.Events.Topic, cfg.Events.Queue, appLog.With("component", "events"))
		if err != nil {
			appLog.Error("events setup failed", "brokers", cfg.Events.Brokers, "err", err)
			return 1
		}
		defer func() { _ = pub.Close() }()
		opts = append(opts, gateway.WithEvents(pub))
	}

	gw, err := gateway.New(reg, opts...)
	if err != nil {
		appLog.Error("gateway setup failed", "err", err)
		return 1
	}

	go func() {
		if err := p.Serve(ctx, appLog); err != nil {
			appLog.Error("metrics server exited", "err", err)
		}
	}()

	routes := server.Routes{
		API:   api.New(gw, appLog, cfg.MaxBodyBytes),
		Ready: reg,
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		routes.Metrics = p.Handler()
		routes.MetricsPath = p.Path()
	}

	if err := server.Run(ctx, cfg.Addr, appLog, server.NewRouter(appLog, routes)); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

func openCache(ctx context.Context, c config.CacheCfg) (cache.Interface, func(), error) {
	switch c.Driver {
	case config.CacheLRU:
		s, err := memo.New(c.Size)
		return s, func() {}, err
	case config.CacheRedis:
		rc, err := redisstore.NewWithPrefix(ctx, c.RedisAddr, c.RedisPrefix)
		if err != nil {
			return nil, func() {}, err
		}
		return rc, func() { _ = rc.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}
