package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/space-weather-analysis/internal/domain"
	"github.com/couchcryptid/space-weather-analysis/internal/observability"
)

type stubFetcher struct {
	cme    []json.RawMessage
	gst    []json.RawMessage
	cmeErr error
	gstErr error
}

func (f *stubFetcher) FetchCME(_ context.Context, _, _ time.Time) ([]json.RawMessage, error) {
	return f.cme, f.cmeErr
}

func (f *stubFetcher) FetchGST(_ context.Context, _, _ time.Time) ([]json.RawMessage, error) {
	return f.gst, f.gstErr
}

type stubExporter struct {
	calls   int
	linked  []domain.LinkedEvent
	summary domain.Summary
	err     error
}

func (e *stubExporter) Export(linked []domain.LinkedEvent, summary domain.Summary) error {
	e.calls++
	e.linked = linked
	e.summary = summary
	return e.err
}

type stubPublisher struct {
	calls  int
	events []domain.LinkedEvent
	err    error
}

func (p *stubPublisher) PublishLinked(_ context.Context, events []domain.LinkedEvent) error {
	p.calls++
	p.events = events
	return p.err
}

func rawCME() []json.RawMessage {
	return []json.RawMessage{
		json.RawMessage(`{"activityID":"2024-01-01T02:00:00-CME-001","startTime":"2024-01-01T02:00Z","cmeAnalyses":[{"speed":800,"type":"S"}]}`),
	}
}

func rawGST() []json.RawMessage {
	return []json.RawMessage{
		json.RawMessage(`{"gstID":"2024-01-01T14:00:00-GST-001","startTime":"2024-01-01T14:00Z","allKpIndex":[{"kpIndex":5}],"linkedEvents":[{"activityID":"2024-01-01T02:00:00-CME-001"}]}`),
	}
}

func testPipeline(fetcher domain.EventFetcher, exporter Exporter, publisher Publisher) *Pipeline {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(fetcher, exporter, publisher, logger, observability.NewMetricsForTesting())
}

func testRange() (time.Time, time.Time) {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
}

func TestPipeline_Run(t *testing.T) {
	fetcher := &stubFetcher{cme: rawCME(), gst: rawGST()}
	exporter := &stubExporter{}
	publisher := &stubPublisher{}
	p := testPipeline(fetcher, exporter, publisher)

	start, end := testRange()
	result, err := p.Run(context.Background(), start, end)
	require.NoError(t, err)

	require.Len(t, result.Linked, 1)
	ev := result.Linked[0]
	assert.Equal(t, "2024-01-01T02:00:00-CME-001", ev.CMEID)
	assert.InDelta(t, 12.0, float64(ev.TimeDifferenceHours), 1e-9)
	assert.Equal(t, domain.Float(5), ev.KpIndex)
	assert.Equal(t, domain.Float(800), ev.Speed)

	assert.Equal(t, 1, result.Summary.EventCounts.LinkedEvents)

	assert.Equal(t, 1, exporter.calls)
	assert.Equal(t, result.Linked, exporter.linked)
	assert.Equal(t, 1, publisher.calls)
	assert.Equal(t, result.Linked, publisher.events)

	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Analyze_NoSideEffects(t *testing.T) {
	fetcher := &stubFetcher{cme: rawCME(), gst: rawGST()}
	exporter := &stubExporter{}
	publisher := &stubPublisher{}
	p := testPipeline(fetcher, exporter, publisher)

	start, end := testRange()
	result, err := p.Analyze(context.Background(), start, end)
	require.NoError(t, err)

	require.Len(t, result.Linked, 1)
	assert.Equal(t, 0, exporter.calls)
	assert.Equal(t, 0, publisher.calls)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_FetchErrorPropagates(t *testing.T) {
	fetchErr := &domain.FetchError{Kind: domain.KindCME, StatusCode: 503, Retryable: true, Err: errors.New("down")}
	fetcher := &stubFetcher{cmeErr: fetchErr}
	exporter := &stubExporter{}
	p := testPipeline(fetcher, exporter, nil)

	start, end := testRange()
	_, err := p.Run(context.Background(), start, end)
	require.Error(t, err)

	var fe *domain.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 0, exporter.calls)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ValidationErrorPropagates(t *testing.T) {
	fetcher := &stubFetcher{
		cme: rawCME(),
		gst: []json.RawMessage{json.RawMessage(`{"startTime":"2024-01-01T14:00Z"}`)},
	}
	p := testPipeline(fetcher, &stubExporter{}, nil)

	start, end := testRange()
	_, err := p.Run(context.Background(), start, end)
	require.Error(t, err)

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, domain.KindGST, vErr.Kind)
}

func TestPipeline_Run_ExportErrorPropagates(t *testing.T) {
	fetcher := &stubFetcher{cme: rawCME(), gst: rawGST()}
	exporter := &stubExporter{err: errors.New("disk full")}
	p := testPipeline(fetcher, exporter, nil)

	start, end := testRange()
	_, err := p.Run(context.Background(), start, end)
	require.Error(t, err)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_PublishFailureTolerated(t *testing.T) {
	fetcher := &stubFetcher{cme: rawCME(), gst: rawGST()}
	publisher := &stubPublisher{err: errors.New("broker unreachable")}
	p := testPipeline(fetcher, &stubExporter{}, publisher)

	start, end := testRange()
	result, err := p.Run(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, result.Linked, 1)
	assert.Equal(t, 1, publisher.calls)
}

func TestPipeline_Run_NilPublisher(t *testing.T) {
	fetcher := &stubFetcher{cme: rawCME(), gst: rawGST()}
	p := testPipeline(fetcher, &stubExporter{}, nil)

	start, end := testRange()
	_, err := p.Run(context.Background(), start, end)
	require.NoError(t, err)
}

func TestPipeline_Run_EmptyCatalogs(t *testing.T) {
	fetcher := &stubFetcher{}
	exporter := &stubExporter{}
	p := testPipeline(fetcher, exporter, &stubPublisher{})

	start, end := testRange()
	result, err := p.Run(context.Background(), start, end)
	require.NoError(t, err)

	assert.Empty(t, result.Linked)
	assert.Equal(t, 0, result.Summary.EventCounts.LinkedEvents)
	// The exporter still runs so the empty artifacts are written.
	assert.Equal(t, 1, exporter.calls)
}

func TestPipeline_CollectCME(t *testing.T) {
	fetcher := &stubFetcher{cme: rawCME()}
	p := testPipeline(fetcher, &stubExporter{}, nil)

	start, end := testRange()
	records, err := p.CollectCME(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.Float(800), records[0].Speed)
}

func TestPipeline_CollectGST(t *testing.T) {
	fetcher := &stubFetcher{gst: rawGST()}
	p := testPipeline(fetcher, &stubExporter{}, nil)

	start, end := testRange()
	records, err := p.CollectGST(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.Float(5), records[0].KpIndex)
	assert.Equal(t, []string{"2024-01-01T02:00:00-CME-001"}, records[0].LinkedActivityIDs)
}
