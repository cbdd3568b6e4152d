// Command analyze fetches CME and GST events from NASA DONKI for a date
// range, cross-references them, and exports the linked dataset with summary
// statistics.
//
// Usage:
//
//	analyze --start-date 2024-01-01 --end-date 2024-01-31 \
//	  --data-type both --output-format csv --output-dir output --visualize
//
// The NASA_API_KEY environment variable must be set.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/couchcryptid/space-weather-analysis/internal/adapter/donki"
	kafkaadapter "github.com/couchcryptid/space-weather-analysis/internal/adapter/kafka"
	"github.com/couchcryptid/space-weather-analysis/internal/config"
	"github.com/couchcryptid/space-weather-analysis/internal/export"
	"github.com/couchcryptid/space-weather-analysis/internal/observability"
	"github.com/couchcryptid/space-weather-analysis/internal/pipeline"
)

const dateLayout = "2006-01-02"

func main() {
	now := time.Now().UTC()

	configPath := pflag.String("config", "", "path to YAML config file (optional)")
	startDate := pflag.String("start-date", now.AddDate(0, 0, -30).Format(dateLayout), "start date (YYYY-MM-DD)")
	endDate := pflag.String("end-date", now.Format(dateLayout), "end date (YYYY-MM-DD)")
	dataType := pflag.String("data-type", "both", "data to retrieve: cme, gst, or both")
	outputFormat := pflag.String("output-format", "csv", "tabular output format: csv or json")
	outputDir := pflag.String("output-dir", "", "output directory (overrides config)")
	visualize := pflag.Bool("visualize", false, "render charts of the linked dataset")
	pflag.Parse()

	os.Exit(run(*configPath, *startDate, *endDate, *dataType, *outputFormat, *outputDir, *visualize))
}

func run(configPath, startDate, endDate, dataType, outputFormat, outputDir string, visualize bool) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	if cfg.DONKI.APIKey == "" {
		slog.Error("NASA_API_KEY is not set")
		return 1
	}

	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		slog.Error("invalid --start-date, use YYYY-MM-DD", "value", startDate)
		return 1
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		slog.Error("invalid --end-date, use YYYY-MM-DD", "value", endDate)
		return 1
	}

	switch dataType {
	case "cme", "gst", "both":
	default:
		slog.Error("invalid --data-type, use cme, gst, or both", "value", dataType)
		return 1
	}
	switch outputFormat {
	case string(export.FormatCSV), string(export.FormatJSON):
	default:
		slog.Error("invalid --output-format, use csv or json", "value", outputFormat)
		return 1
	}

	logger := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	metrics := observability.NewMetrics()

	client := donki.NewClient(cfg.DONKI, metrics, logger)
	fetcher := donki.NewCachedFetcher(client, cfg.DONKI.CacheSize, cfg.DONKI.CacheTTL, metrics)

	exporter := export.New(cfg.Output.Dir, export.Options{
		Format:   export.Format(outputFormat),
		Workbook: cfg.Output.Workbook,
		Charts:   visualize,
	}, logger, metrics)

	var publisher pipeline.Publisher
	if cfg.PublishEnabled() {
		writer := kafkaadapter.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.SinkTopic, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		publisher = writer
	}

	p := pipeline.New(fetcher, exporter, publisher, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch dataType {
	case "cme":
		records, err := p.CollectCME(ctx, start, end)
		if err != nil {
			logger.Error("CME retrieval failed", "error", err)
			return 1
		}
		if err := exporter.ExportCMETable(records); err != nil {
			logger.Error("CME export failed", "error", err)
			return 1
		}
		logger.Info("CME retrieval complete", "records", len(records), "dir", cfg.Output.Dir)
	case "gst":
		records, err := p.CollectGST(ctx, start, end)
		if err != nil {
			logger.Error("GST retrieval failed", "error", err)
			return 1
		}
		if err := exporter.ExportGSTTable(records); err != nil {
			logger.Error("GST export failed", "error", err)
			return 1
		}
		logger.Info("GST retrieval complete", "records", len(records), "dir", cfg.Output.Dir)
	default:
		result, err := p.Run(ctx, start, end)
		if err != nil {
			logger.Error("analysis run failed", "error", err)
			return 1
		}
		fmt.Printf("Analysis complete: %d CMEs, %d GSTs, %d linked events. Results saved to %s/\n",
			result.Summary.EventCounts.TotalCMEs,
			result.Summary.EventCounts.TotalGSTs,
			result.Summary.EventCounts.LinkedEvents,
			cfg.Output.Dir,
		)
	}
	return 0
}
