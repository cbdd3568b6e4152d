// Package export serializes linked datasets and summary statistics to
// durable formats: CSV, JSON, a multi-sheet Excel workbook, and charts.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/space-weather-analysis/internal/domain"
	"github.com/couchcryptid/space-weather-analysis/internal/observability"
)

// Output file names.
const (
	CombinedCSVFile  = "combined_analysis.csv"
	CombinedJSONFile = "combined_analysis.json"
	SummaryJSONFile  = "summary_statistics.json"
	WorkbookFile     = "space_weather_analysis.xlsx"
	CMETableCSVFile  = "cme_events.csv"
	CMETableJSONFile = "cme_events.json"
	GSTTableCSVFile  = "gst_events.csv"
	GSTTableJSONFile = "gst_events.json"
)

// csvTimeLayout is ISO-8601 without a zone offset: timestamps are exported
// as naive UTC.
const csvTimeLayout = "2006-01-02T15:04:05"

// combinedHeader fixes the column order of the linked dataset across every
// export format.
var combinedHeader = []string{
	"cmeID", "cmeStartTime", "gstID", "gstStartTime", "timeDifferenceHours",
	"kpIndex", "speed", "type", "angle", "latitude", "longitude",
}

// Format selects the tabular serialization of the linked dataset.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Options controls which artifacts a run writes beyond the summary JSON.
type Options struct {
	Format   Format
	Workbook bool
	Charts   bool
}

// Exporter writes analysis results to a directory. Existing files are
// overwritten; the directory is created when absent.
type Exporter struct {
	dir     string
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates an Exporter rooted at dir.
func New(dir string, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Exporter {
	if opts.Format == "" {
		opts.Format = FormatCSV
	}
	return &Exporter{dir: dir, opts: opts, logger: logger, metrics: metrics}
}

// Export writes the linked dataset and its summary. An empty dataset still
// produces a header-only table and a zero-count summary.
func (e *Exporter) Export(linked []domain.LinkedEvent, summary domain.Summary) error {
	began := time.Now()
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	switch e.opts.Format {
	case FormatJSON:
		if err := writeJSONFile(filepath.Join(e.dir, CombinedJSONFile), linked); err != nil {
			return err
		}
	default:
		if err := e.writeCombinedCSV(linked); err != nil {
			return err
		}
	}

	if err := writeJSONFile(filepath.Join(e.dir, SummaryJSONFile), summary); err != nil {
		return err
	}

	if e.opts.Workbook {
		if err := e.writeWorkbook(linked, summary); err != nil {
			return err
		}
	}
	if e.opts.Charts {
		if err := e.writeCharts(linked); err != nil {
			return err
		}
	}

	e.metrics.ExportDuration.Observe(time.Since(began).Seconds())
	e.logger.Info("export complete", "dir", e.dir, "rows", len(linked), "format", e.opts.Format)
	return nil
}

func (e *Exporter) writeCombinedCSV(linked []domain.LinkedEvent) error {
	rows := make([][]string, 0, len(linked))
	for _, ev := range linked {
		rows = append(rows, []string{
			ev.CMEID,
			formatTime(ev.CMEStartTime),
			ev.GSTID,
			formatTime(ev.GSTStartTime),
			formatFloat(ev.TimeDifferenceHours),
			formatFloat(ev.KpIndex),
			formatFloat(ev.Speed),
			ev.Type,
			formatFloat(ev.Angle),
			formatFloat(ev.Latitude),
			formatFloat(ev.Longitude),
		})
	}
	return writeCSVFile(filepath.Join(e.dir, CombinedCSVFile), combinedHeader, rows)
}

// ExportCMETable writes a standalone CME table for single-catalog runs.
func (e *Exporter) ExportCMETable(records []domain.CMERecord) error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if e.opts.Format == FormatJSON {
		return writeJSONFile(filepath.Join(e.dir, CMETableJSONFile), records)
	}

	header := []string{"cmeID", "cmeStartTime", "speed", "type", "angle", "latitude", "longitude"}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.ID,
			formatTime(rec.StartTime),
			formatFloat(rec.Speed),
			rec.Type,
			formatFloat(rec.Angle),
			formatFloat(rec.Latitude),
			formatFloat(rec.Longitude),
		})
	}
	return writeCSVFile(filepath.Join(e.dir, CMETableCSVFile), header, rows)
}

// ExportGSTTable writes a standalone GST table for single-catalog runs.
func (e *Exporter) ExportGSTTable(records []domain.GSTRecord) error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if e.opts.Format == FormatJSON {
		return writeJSONFile(filepath.Join(e.dir, GSTTableJSONFile), records)
	}

	header := []string{"gstID", "gstStartTime", "kpIndex"}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.ID,
			formatTime(rec.StartTime),
			formatFloat(rec.KpIndex),
		})
	}
	return writeCSVFile(filepath.Join(e.dir, GSTTableCSVFile), header, rows)
}

func (e *Exporter) writeWorkbook(linked []domain.LinkedEvent, summary domain.Summary) error {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // flushed by SaveAs below

	const dataSheet = "Combined Data"
	if err := f.SetSheetName("Sheet1", dataSheet); err != nil {
		return fmt.Errorf("workbook: %w", err)
	}

	headerRow := make([]any, len(combinedHeader))
	for i, h := range combinedHeader {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(dataSheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("workbook: %w", err)
	}
	for i, ev := range linked {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("workbook: %w", err)
		}
		row := []any{
			ev.CMEID,
			formatTime(ev.CMEStartTime),
			ev.GSTID,
			formatTime(ev.GSTStartTime),
			workbookFloat(ev.TimeDifferenceHours),
			workbookFloat(ev.KpIndex),
			workbookFloat(ev.Speed),
			ev.Type,
			workbookFloat(ev.Angle),
			workbookFloat(ev.Latitude),
			workbookFloat(ev.Longitude),
		}
		if err := f.SetSheetRow(dataSheet, cell, &row); err != nil {
			return fmt.Errorf("workbook: %w", err)
		}
	}

	const statsSheet = "Summary Stats"
	if _, err := f.NewSheet(statsSheet); err != nil {
		return fmt.Errorf("workbook: %w", err)
	}
	for i, row := range summaryRows(summary) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("workbook: %w", err)
		}
		if err := f.SetSheetRow(statsSheet, cell, &row); err != nil {
			return fmt.Errorf("workbook: %w", err)
		}
	}

	if err := f.SaveAs(filepath.Join(e.dir, WorkbookFile)); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// summaryRows flattens a Summary into (metric, value) rows in stable order.
func summaryRows(summary domain.Summary) [][]any {
	rows := [][]any{{"metric", "value"}}

	for _, col := range []string{"speed", "kpIndex", "angle", "latitude", "longitude"} {
		stats := summary.CMEStatistics[col]
		rows = append(rows,
			[]any{col + ".mean", workbookFloat(stats.Mean)},
			[]any{col + ".median", workbookFloat(stats.Median)},
			[]any{col + ".std", workbookFloat(stats.Std)},
			[]any{col + ".min", workbookFloat(stats.Min)},
			[]any{col + ".max", workbookFloat(stats.Max)},
		)
	}

	rows = append(rows,
		[]any{"total_cmes", summary.EventCounts.TotalCMEs},
		[]any{"total_gsts", summary.EventCounts.TotalGSTs},
		[]any{"linked_events", summary.EventCounts.LinkedEvents},
		[]any{"speed_kp_correlation", workbookFloat(summary.Correlations.SpeedKp)},
		[]any{"time_diff_kp_correlation", workbookFloat(summary.Correlations.TimeDiffKp)},
		[]any{"speed_time_diff_correlation", workbookFloat(summary.Correlations.SpeedTimeDiff)},
		[]any{"mean_propagation_time", workbookFloat(summary.PropagationTimes.Mean)},
		[]any{"median_propagation_time", workbookFloat(summary.PropagationTimes.Median)},
		[]any{"std_propagation_time", workbookFloat(summary.PropagationTimes.Std)},
		[]any{"min_propagation_time", workbookFloat(summary.PropagationTimes.Min)},
		[]any{"max_propagation_time", workbookFloat(summary.PropagationTimes.Max)},
	)
	return rows
}

func writeCSVFile(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close() //nolint:errcheck // close error surfaced via writer flush

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func writeJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close() //nolint:errcheck // close error surfaced below

	enc := json.NewEncoder(f)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(csvTimeLayout)
}

// formatFloat renders a value for CSV; NaN becomes an empty field.
func formatFloat(f domain.Float) string {
	if f.IsNaN() {
		return ""
	}
	return strconv.FormatFloat(float64(f), 'g', -1, 64)
}

// workbookFloat renders a value for a workbook cell; NaN becomes an empty cell.
func workbookFloat(f domain.Float) any {
	if f.IsNaN() {
		return ""
	}
	return float64(f)
}
