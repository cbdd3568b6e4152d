// Command server runs the space weather analysis service: an HTTP API for
// on-demand analysis runs, Prometheus metrics, and a websocket broadcast of
// completed runs.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/couchcryptid/space-weather-analysis/internal/adapter/donki"
	"github.com/couchcryptid/space-weather-analysis/internal/adapter/httpapi"
	kafkaadapter "github.com/couchcryptid/space-weather-analysis/internal/adapter/kafka"
	"github.com/couchcryptid/space-weather-analysis/internal/config"
	"github.com/couchcryptid/space-weather-analysis/internal/export"
	"github.com/couchcryptid/space-weather-analysis/internal/observability"
	"github.com/couchcryptid/space-weather-analysis/internal/pipeline"
)

func main() {
	configPath := pflag.String("config", "", "path to YAML config file (optional)")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.DONKI.APIKey == "" {
		slog.Error("NASA_API_KEY is not set")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	metrics := observability.NewMetrics()

	client := donki.NewClient(cfg.DONKI, metrics, logger)
	fetcher := donki.NewCachedFetcher(client, cfg.DONKI.CacheSize, cfg.DONKI.CacheTTL, metrics)
	logger.Info("donki client ready",
		"base_url", cfg.DONKI.BaseURL,
		"cache_size", cfg.DONKI.CacheSize,
		"cache_ttl", cfg.DONKI.CacheTTL,
	)

	exporter := export.New(cfg.Output.Dir, export.Options{
		Format:   export.FormatCSV,
		Workbook: cfg.Output.Workbook,
		Charts:   true,
	}, logger, metrics)

	var publisher pipeline.Publisher
	var writer *kafkaadapter.Writer
	if cfg.PublishEnabled() {
		writer = kafkaadapter.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.SinkTopic, logger)
		publisher = writer
		logger.Info("kafka publishing enabled", "topic", cfg.Kafka.SinkTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	p := pipeline.New(fetcher, exporter, publisher, logger, metrics)

	hub := httpapi.NewHub(logger, metrics)
	srv := httpapi.NewServer(cfg.HTTP.Addr, p, p, hub, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	hub.Close()
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
