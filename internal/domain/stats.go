package domain

import (
	"math"
	"sort"
)

// numericColumns lists the per-column statistics targets in stable order.
var numericColumns = []string{"speed", "kpIndex", "angle", "latitude", "longitude"}

// Summarize computes the descriptive statistics for a linked dataset.
// NaN values are excluded column-wise; correlations are pairwise-complete.
// An empty dataset yields zero counts and NaN statistics, never a panic.
func Summarize(linked []LinkedEvent) Summary {
	columns := map[string][]float64{
		"speed":     column(linked, func(ev LinkedEvent) Float { return ev.Speed }),
		"kpIndex":   column(linked, func(ev LinkedEvent) Float { return ev.KpIndex }),
		"angle":     column(linked, func(ev LinkedEvent) Float { return ev.Angle }),
		"latitude":  column(linked, func(ev LinkedEvent) Float { return ev.Latitude }),
		"longitude": column(linked, func(ev LinkedEvent) Float { return ev.Longitude }),
	}
	timeDiffs := column(linked, func(ev LinkedEvent) Float { return ev.TimeDifferenceHours })

	stats := make(map[string]ColumnStats, len(numericColumns))
	for _, name := range numericColumns {
		stats[name] = describe(columns[name])
	}

	prop := describe(timeDiffs)

	return Summary{
		CMEStatistics: stats,
		EventCounts: EventCounts{
			TotalCMEs:    distinct(linked, func(ev LinkedEvent) string { return ev.CMEID }),
			TotalGSTs:    distinct(linked, func(ev LinkedEvent) string { return ev.GSTID }),
			LinkedEvents: len(linked),
		},
		Correlations: Correlations{
			SpeedKp:       pearson(columns["speed"], columns["kpIndex"]),
			TimeDiffKp:    pearson(timeDiffs, columns["kpIndex"]),
			SpeedTimeDiff: pearson(columns["speed"], timeDiffs),
		},
		PropagationTimes: PropagationStats{
			Mean:   prop.Mean,
			Median: prop.Median,
			Std:    prop.Std,
			Min:    prop.Min,
			Max:    prop.Max,
		},
		GeneratedAt: clock.Now().UTC(),
	}
}

func column(linked []LinkedEvent, get func(LinkedEvent) Float) []float64 {
	values := make([]float64, len(linked))
	for i, ev := range linked {
		values[i] = float64(get(ev))
	}
	return values
}

func distinct(linked []LinkedEvent, key func(LinkedEvent) string) int {
	seen := make(map[string]struct{}, len(linked))
	for _, ev := range linked {
		seen[key(ev)] = struct{}{}
	}
	return len(seen)
}

// describe computes mean/median/std/min/max over the non-NaN values of a
// column. Std uses the sample (n-1) divisor; a column with fewer than two
// usable values reports NaN there.
func describe(values []float64) ColumnStats {
	clean := dropNaN(values)
	return ColumnStats{
		Mean:   Float(mean(clean)),
		Median: Float(median(clean)),
		Std:    Float(stddev(clean)),
		Min:    Float(minOf(clean)),
		Max:    Float(maxOf(clean)),
	}
}

func dropNaN(values []float64) []float64 {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	return clean
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

func minOf(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// pearson computes the Pearson correlation coefficient over the pairwise-
// complete subset: rows where either value is NaN are excluded for that pair
// only. Fewer than two complete pairs, or a zero-variance column, yields NaN.
func pearson(xs, ys []float64) Float {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}

	var cx, cy []float64
	for i := 0; i < n; i++ {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			continue
		}
		cx = append(cx, xs[i])
		cy = append(cy, ys[i])
	}
	if len(cx) < 2 {
		return NaN()
	}

	mx, my := mean(cx), mean(cy)
	var cov, varX, varY float64
	for i := range cx {
		dx := cx[i] - mx
		dy := cy[i] - my
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return NaN()
	}
	return Float(cov / math.Sqrt(varX*varY))
}
