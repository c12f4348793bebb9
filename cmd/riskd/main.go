// Command riskd serves the goRisk engine over HTTP for services that cannot
// embed it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	goRisk "github.com/MrEthical07/goRisk"
	"github.com/MrEthical07/goRisk/geoip"
	"github.com/MrEthical07/goRisk/metrics/export/prometheus"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a TOML engine config")
		dev        = flag.Bool("dev", false, "development mode: in-process miniredis, console logs, insecure cookies")
	)
	flag.Parse()

	if err := run(*configPath, *dev); err != nil {
		fmt.Fprintf(os.Stderr, "riskd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, dev bool) error {
	cfg, err := loadConfig(configPath, dev)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.Dev)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	client, cleanup, err := newRedis(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	builder := goRisk.New().
		WithConfig(cfg.Engine).
		WithLogger(logger).
		WithAuditSink(goRisk.NewZapSink(logger)).
		WithSecretProvider(goRisk.EnvSecret(cfg.SecretEnv))
	if client != nil {
		builder.WithRedis(client)
	}
	if cfg.GeoIPPath != "" {
		locator, err := geoip.Open(cfg.GeoIPPath)
		if err != nil {
			return fmt.Errorf("open geoip database: %w", err)
		}
		defer locator.Close()
		builder.WithGeoLocator(locator)
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	var metrics http.Handler
	if cfg.Engine.Metrics.Enabled {
		reg := promclient.NewRegistry()
		if err := reg.Register(prometheus.NewCollector(engine)); err != nil {
			return fmt.Errorf("register collector: %w", err)
		}
		metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(engine, logger, metrics, cfg.TrustForwarded),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("riskd listening", zap.String("addr", cfg.HTTPAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("riskd shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newRedis returns nil without an address outside dev mode; the engine then
// keeps its state in process.
func newRedis(cfg appConfig, logger *zap.Logger) (redis.UniversalClient, func(), error) {
	addr := cfg.RedisAddr
	if addr == "" && !cfg.Dev {
		logger.Warn("REDIS_ADDR not set, using in-memory state")
		return nil, func() {}, nil
	}

	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		logger.Info("using miniredis", zap.String("addr", mr.Addr()))
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{addr},
		Password: cfg.RedisPass,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	logger.Info("using redis", zap.String("addr", addr))
	return client, func() { _ = client.Close() }, nil
}
