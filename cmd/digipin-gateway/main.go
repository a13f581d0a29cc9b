package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/arjunmehra/digipin-gateway/internal/batch"
	"github.com/arjunmehra/digipin-gateway/internal/cache/redisstore"
	"github.com/arjunmehra/digipin-gateway/internal/config"
	"github.com/arjunmehra/digipin-gateway/internal/convert"
	"github.com/arjunmehra/digipin-gateway/internal/health"
	"github.com/arjunmehra/digipin-gateway/internal/hotness/expdecay"
	"github.com/arjunmehra/digipin-gateway/internal/hotness/metricswrap"
	"github.com/arjunmehra/digipin-gateway/internal/logger"
	"github.com/arjunmehra/digipin-gateway/internal/metrics"
	"github.com/arjunmehra/digipin-gateway/internal/observability"
	"github.com/arjunmehra/digipin-gateway/internal/router"
	"github.com/arjunmehra/digipin-gateway/internal/server"
	"github.com/arjunmehra/digipin-gateway/internal/tagger"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func run() int {
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		SampleN:   envInt("LOG_SAMPLE_N", 0),
		Component: "gateway",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	appLog.Info("starting digipin-gateway", "addr", cfg.Addr, "version", Version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		p := metrics.Init(metrics.BuildInfo{
			Version:   Version,
			Revision:  os.Getenv("BUILD_REVISION"),
			Branch:    os.Getenv("BUILD_BRANCH"),
			BuildDate: os.Getenv("BUILD_DATE"),
		})
		observability.Init(p.Registerer(), true)
		metricsHandler = p.Handler()
	} else {
		observability.Init(nil, false)
	}

	tracker := expdecay.New(cfg.HotHalfLife)
	hot := metricswrap.New(tracker, "topN")

	handlers := &router.Handlers{
		Log:       appLog,
		Conv:      convert.New(cfg.H3Res, cfg.GeohashPrecision),
		Hot:       hot,
		Ranker:    hot,
		PrefixLen: cfg.HotPrefixLen,
		MaxBody:   cfg.BatchMaxBody,
	}

	var checks []health.Check

	if cfg.BatchEnabled {
		store, err := redisstore.New(ctx, cfg.RedisAddr)
		if err != nil {
			appLog.Error("redis connect failed", "err", err, "addr", cfg.RedisAddr)
			return 1
		}
		defer store.Close()

		mgr := batch.New(batch.Config{
			MaxItems:  cfg.BatchMaxItems,
			Workers:   cfg.BatchWorkers,
			QueueSize: cfg.BatchQueue,
			JobTTL:    cfg.BatchJobTTL,
			OpTimeout: cfg.CacheOpTimeout,
			PrefixLen: cfg.HotPrefixLen,
		}, store, hot, zl)
		mgr.Start(ctx)
		defer mgr.Stop()

		handlers.Batch = mgr
		checks = append(checks, health.Check{Name: "redis", Probe: store.Ping})
	}

	if cfg.Tagger.Enabled {
		pub, err := tagger.NewPublisher(cfg.Tagger.Brokers, cfg.Tagger.OutTopic, cfg.Tagger.QueueSize, zl)
		if err != nil {
			appLog.Error("kafka producer setup failed", "err", err)
			return 1
		}
		defer pub.Close()

		runner := tagger.New(cfg.Tagger, pub, hot, cfg.HotPrefixLen, zl)
		if err := runner.Start(ctx); err != nil {
			appLog.Error("tagger start failed", "err", err)
			return 1
		}
		defer runner.Stop()

		checks = append(checks, health.Check{Name: "tagger", Probe: func(context.Context) error {
			if ready, _ := runner.Readiness(); !ready {
				return errors.New("no partitions assigned")
			}
			return nil
		}})
	}

	if err := server.Run(ctx, cfg, appLog, server.Deps{
		Handlers: handlers,
		Metrics:  metricsHandler,
		Checks:   checks,
	}); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}
