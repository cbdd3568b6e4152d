package export

import (
	"fmt"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/couchcryptid/space-weather-analysis/internal/domain"
)

// Chart file names.
const (
	SpeedKpChartFile     = "speed_kp_correlation.png"
	PropagationChartFile = "propagation_times.png"
)

const propagationBins = 30

// writeCharts renders the scatter and histogram views of the linked dataset.
// Rows with NaN in a plotted column are skipped per chart; a dataset with no
// plottable points skips the chart with a warning rather than failing the run.
func (e *Exporter) writeCharts(linked []domain.LinkedEvent) error {
	if err := e.writeSpeedKpScatter(linked); err != nil {
		return err
	}
	return e.writePropagationHistogram(linked)
}

func (e *Exporter) writeSpeedKpScatter(linked []domain.LinkedEvent) error {
	pts := make(plotter.XYs, 0, len(linked))
	for _, ev := range linked {
		if ev.Speed.IsNaN() || ev.KpIndex.IsNaN() {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(ev.Speed), Y: float64(ev.KpIndex)})
	}
	if len(pts) == 0 {
		e.logger.Warn("no plottable points, skipping chart", "chart", SpeedKpChartFile)
		return nil
	}

	p := plot.New()
	p.Title.Text = "CME Speed vs Geomagnetic Storm Strength"
	p.X.Label.Text = "CME Speed (km/s)"
	p.Y.Label.Text = "Kp Index"

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("scatter chart: %w", err)
	}
	p.Add(scatter)
	p.Add(plotter.NewGrid())

	if err := p.Save(10*vg.Inch, 6*vg.Inch, filepath.Join(e.dir, SpeedKpChartFile)); err != nil {
		return fmt.Errorf("save scatter chart: %w", err)
	}
	return nil
}

func (e *Exporter) writePropagationHistogram(linked []domain.LinkedEvent) error {
	values := make(plotter.Values, 0, len(linked))
	for _, ev := range linked {
		if ev.TimeDifferenceHours.IsNaN() {
			continue
		}
		values = append(values, float64(ev.TimeDifferenceHours))
	}
	if len(values) == 0 {
		e.logger.Warn("no plottable points, skipping chart", "chart", PropagationChartFile)
		return nil
	}

	p := plot.New()
	p.Title.Text = "Distribution of CME-to-GST Propagation Times"
	p.X.Label.Text = "Propagation Time (hours)"
	p.Y.Label.Text = "Count"

	hist, err := plotter.NewHist(values, propagationBins)
	if err != nil {
		return fmt.Errorf("histogram chart: %w", err)
	}
	p.Add(hist)

	if err := p.Save(10*vg.Inch, 6*vg.Inch, filepath.Join(e.dir, PropagationChartFile)); err != nil {
		return fmt.Errorf("save histogram chart: %w", err)
	}
	return nil
}
