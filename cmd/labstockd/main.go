package main

import (
	"context"
	"errors"
	"expvar"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"labstock/internal/blob"
	"labstock/internal/config"
	"labstock/internal/core"
	"labstock/internal/httpapi"
	"labstock/internal/logger"
)

func main() {
	configPath := flag.String("config", "config/labstock.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)

	store, err := core.OpenPersistentStore(core.StorageConfig{
		Driver:      core.StorageDriver(cfg.Storage.Driver),
		SQLitePath:  cfg.Storage.SQLitePath,
		PostgresDSN: cfg.Storage.PostgresDSN,
	}, core.DefaultRulesEngine())
	if err != nil {
		log.Error("open store failed", "driver", cfg.Storage.Driver, "err", err)
		return
	}
	defer func() { _ = store.Close() }()
	log.Info("store opened", "driver", cfg.Storage.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	blobs, err := blob.Open(ctx, blob.Config{
		Driver: blob.Driver(cfg.Blob.Driver),
		FSRoot: cfg.Blob.FSRoot,
		S3: blob.S3Config{
			Region:          cfg.Blob.S3.Region,
			Bucket:          cfg.Blob.S3.Bucket,
			Endpoint:        cfg.Blob.S3.Endpoint,
			AccessKeyID:     cfg.Blob.S3.AccessKeyID,
			SecretAccessKey: cfg.Blob.S3.SecretAccessKey,
			PathStyle:       cfg.Blob.S3.PathStyle,
		},
	})
	if err != nil {
		log.Error("open blob store failed", "driver", cfg.Blob.Driver, "err", err)
		return
	}
	log.Info("blob store opened", "driver", blobs.Driver())

	opts := []core.Option{core.WithLogger(log)}
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		switch cfg.Metrics.Driver {
		case "expvar":
			opts = append(opts, core.WithMetrics(core.NewExpvarMetricsRecorder("labstock")))
			metricsHandler = expvar.Handler()
		default:
			recorder := core.NewPrometheusMetricsRecorder("labstock")
			opts = append(opts, core.WithMetrics(recorder))
			metricsHandler = promhttp.HandlerFor(recorder.Registry(), promhttp.HandlerOpts{})
		}
	}

	svc := core.NewService(store, opts...)
	svc.SetBlobStore(blobs)

	router := httpapi.NewRouter(svc,
		httpapi.WithLogger(log),
		httpapi.WithMetricsHandler(metricsHandler),
	)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			stop()
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
