// Package pipeline orchestrates one analysis run: fetch → validate →
// normalize → link → summarize → export. Stages run strictly in sequence;
// each stage fully consumes its input before the next begins, and every run
// works on its own record set, so concurrent invocations never share state.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/space-weather-analysis/internal/domain"
	"github.com/couchcryptid/space-weather-analysis/internal/observability"
)

// Exporter writes one run's results to durable storage.
type Exporter interface {
	Export(linked []domain.LinkedEvent, summary domain.Summary) error
}

// Publisher forwards linked events to downstream consumers. Optional.
type Publisher interface {
	PublishLinked(ctx context.Context, events []domain.LinkedEvent) error
}

// Result is the outcome of one analysis run.
type Result struct {
	Linked  []domain.LinkedEvent
	Summary domain.Summary

	CMERecords []domain.CMERecord
	GSTRecords []domain.GSTRecord
	LinkReport domain.LinkResult
}

// Pipeline wires the stages together with observability.
type Pipeline struct {
	fetcher   domain.EventFetcher
	exporter  Exporter
	publisher Publisher // nil disables publishing
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates a Pipeline. Pass a nil publisher to disable event publishing.
func New(fetcher domain.EventFetcher, exporter Exporter, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		fetcher:   fetcher,
		exporter:  exporter,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once at least one run has completed, or an
// error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no analysis run has completed yet")
	}
	return nil
}

// Run executes a full run including export and publishing.
func (p *Pipeline) Run(ctx context.Context, start, end time.Time) (*Result, error) {
	began := time.Now()

	result, err := p.Analyze(ctx, start, end)
	if err != nil {
		return nil, err
	}

	if err := p.exporter.Export(result.Linked, result.Summary); err != nil {
		return nil, err
	}

	if p.publisher != nil && len(result.Linked) > 0 {
		if err := p.publisher.PublishLinked(ctx, result.Linked); err != nil {
			// Publishing is best-effort: the exported files are the system
			// of record and stay valid without the sink.
			p.logger.Error("publish linked events failed", "error", err, "count", len(result.Linked))
		}
	}

	p.metrics.RunsCompleted.Inc()
	p.metrics.RunDuration.Observe(time.Since(began).Seconds())
	p.ready.Store(true)

	p.logger.Info("analysis run complete",
		"cmes", result.Summary.EventCounts.TotalCMEs,
		"gsts", result.Summary.EventCounts.TotalGSTs,
		"linked", result.Summary.EventCounts.LinkedEvents,
		"duration", time.Since(began),
	)
	return result, nil
}

// Analyze executes fetch through summarize without touching disk or the
// sink. The API server uses it for per-request runs.
func (p *Pipeline) Analyze(ctx context.Context, start, end time.Time) (*Result, error) {
	cmeRecords, err := p.CollectCME(ctx, start, end)
	if err != nil {
		return nil, err
	}
	gstRecords, err := p.CollectGST(ctx, start, end)
	if err != nil {
		return nil, err
	}

	report := domain.Link(gstRecords, cmeRecords, p.logger)
	p.metrics.LinkOutcomes.WithLabelValues(string(domain.OutcomeLinked)).Add(float64(report.Linked))
	p.metrics.LinkOutcomes.WithLabelValues(string(domain.OutcomeNoMatch)).Add(float64(report.SkippedNoMatch))
	p.metrics.LinkOutcomes.WithLabelValues(string(domain.OutcomeBadTimestamp)).Add(float64(report.SkippedBadTimestamp))
	p.metrics.LinkOutcomes.WithLabelValues(string(domain.OutcomeNotCMEReference)).Add(float64(report.IgnoredNonCME))

	summary := domain.Summarize(report.Events)

	return &Result{
		Linked:     report.Events,
		Summary:    summary,
		CMERecords: cmeRecords,
		GSTRecords: gstRecords,
		LinkReport: report,
	}, nil
}

// CollectCME fetches, validates, and normalizes the CME catalog for a range.
func (p *Pipeline) CollectCME(ctx context.Context, start, end time.Time) ([]domain.CMERecord, error) {
	raw, err := p.fetcher.FetchCME(ctx, start, end)
	if err != nil {
		return nil, err
	}
	events, err := domain.ValidateCME(raw)
	if err != nil {
		return nil, err
	}
	records := domain.NormalizeCME(events, p.logger)
	p.observeNormalization(domain.KindCME, len(events), len(records))
	return records, nil
}

// CollectGST fetches, validates, and normalizes the GST catalog for a range.
func (p *Pipeline) CollectGST(ctx context.Context, start, end time.Time) ([]domain.GSTRecord, error) {
	raw, err := p.fetcher.FetchGST(ctx, start, end)
	if err != nil {
		return nil, err
	}
	events, err := domain.ValidateGST(raw)
	if err != nil {
		return nil, err
	}
	records := domain.NormalizeGST(events, p.logger)
	p.observeNormalization(domain.KindGST, len(events), len(records))
	return records, nil
}

func (p *Pipeline) observeNormalization(kind domain.EventKind, raw, kept int) {
	p.metrics.RecordsNormalized.WithLabelValues(string(kind)).Add(float64(kept))
	if dropped := raw - kept; dropped > 0 {
		p.metrics.RecordsDropped.WithLabelValues(string(kind), "bad_timestamp").Add(float64(dropped))
	}
}
