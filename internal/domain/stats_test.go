package domain

import (
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linkedEvent(cmeID, gstID string, speed, kp, timeDiff float64) LinkedEvent {
	return LinkedEvent{
		CMEID:               cmeID,
		GSTID:               gstID,
		Speed:               Float(speed),
		KpIndex:             Float(kp),
		TimeDifferenceHours: Float(timeDiff),
		Angle:               Float(120),
		Latitude:            Float(-10),
		Longitude:           Float(40),
	}
}

func TestSummarize(t *testing.T) {
	frozen := time.Date(2024, 2, 1, 6, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(frozen))
	defer SetClock(nil)

	t.Run("two-event dataset", func(t *testing.T) {
		linked := []LinkedEvent{
			linkedEvent("cme-1", "gst-1", 400, 3, 10),
			linkedEvent("cme-2", "gst-2", 800, 7, 20),
		}

		s := Summarize(linked)

		speed := s.CMEStatistics["speed"]
		assert.InDelta(t, 600, float64(speed.Mean), 1e-6)
		assert.InDelta(t, 600, float64(speed.Median), 1e-6)
		assert.InDelta(t, math.Sqrt(80000), float64(speed.Std), 1e-6)
		assert.InDelta(t, 400, float64(speed.Min), 1e-6)
		assert.InDelta(t, 800, float64(speed.Max), 1e-6)

		assert.Equal(t, 2, s.EventCounts.TotalCMEs)
		assert.Equal(t, 2, s.EventCounts.TotalGSTs)
		assert.Equal(t, 2, s.EventCounts.LinkedEvents)

		// Both columns move together, so the coefficient is exactly 1.
		assert.InDelta(t, 1.0, float64(s.Correlations.SpeedKp), 1e-6)
		assert.InDelta(t, 1.0, float64(s.Correlations.TimeDiffKp), 1e-6)
		assert.InDelta(t, 1.0, float64(s.Correlations.SpeedTimeDiff), 1e-6)

		assert.InDelta(t, 15, float64(s.PropagationTimes.Mean), 1e-6)
		assert.InDelta(t, 15, float64(s.PropagationTimes.Median), 1e-6)
		assert.InDelta(t, math.Sqrt(50), float64(s.PropagationTimes.Std), 1e-6)
		assert.InDelta(t, 10, float64(s.PropagationTimes.Min), 1e-6)
		assert.InDelta(t, 20, float64(s.PropagationTimes.Max), 1e-6)

		assert.Equal(t, frozen, s.GeneratedAt)
	})

	t.Run("NaN values excluded column-wise", func(t *testing.T) {
		withNaNSpeed := linkedEvent("cme-3", "gst-3", 0, 5, 15)
		withNaNSpeed.Speed = NaN()

		linked := []LinkedEvent{
			linkedEvent("cme-1", "gst-1", 400, 3, 10),
			linkedEvent("cme-2", "gst-2", 800, 7, 20),
			withNaNSpeed,
		}

		s := Summarize(linked)

		// Speed stats skip the NaN row; the row still counts elsewhere.
		assert.InDelta(t, 600, float64(s.CMEStatistics["speed"].Mean), 1e-6)
		assert.InDelta(t, 5, float64(s.CMEStatistics["kpIndex"].Mean), 1e-6)
		assert.Equal(t, 3, s.EventCounts.LinkedEvents)

		// Speed-Kp drops the incomplete pair; TimeDiff-Kp keeps all three.
		assert.InDelta(t, 1.0, float64(s.Correlations.SpeedKp), 1e-6)
		assert.InDelta(t, 1.0, float64(s.Correlations.TimeDiffKp), 1e-6)
	})

	t.Run("distinct counts with repeated CME", func(t *testing.T) {
		linked := []LinkedEvent{
			linkedEvent("cme-1", "gst-1", 400, 3, 10),
			linkedEvent("cme-1", "gst-2", 400, 7, 20),
		}

		s := Summarize(linked)
		assert.Equal(t, 1, s.EventCounts.TotalCMEs)
		assert.Equal(t, 2, s.EventCounts.TotalGSTs)
		assert.Equal(t, 2, s.EventCounts.LinkedEvents)
	})

	t.Run("zero variance yields NaN correlation", func(t *testing.T) {
		linked := []LinkedEvent{
			linkedEvent("cme-1", "gst-1", 400, 5, 10),
			linkedEvent("cme-2", "gst-2", 800, 5, 20),
		}

		s := Summarize(linked)
		assert.True(t, s.Correlations.SpeedKp.IsNaN())
	})

	t.Run("single event", func(t *testing.T) {
		linked := []LinkedEvent{linkedEvent("cme-1", "gst-1", 400, 3, 10)}

		s := Summarize(linked)
		assert.InDelta(t, 400, float64(s.CMEStatistics["speed"].Mean), 1e-6)
		assert.True(t, s.CMEStatistics["speed"].Std.IsNaN())
		assert.True(t, s.Correlations.SpeedKp.IsNaN())
	})

	t.Run("empty dataset", func(t *testing.T) {
		s := Summarize(nil)

		assert.Equal(t, 0, s.EventCounts.TotalCMEs)
		assert.Equal(t, 0, s.EventCounts.TotalGSTs)
		assert.Equal(t, 0, s.EventCounts.LinkedEvents)
		assert.True(t, s.CMEStatistics["speed"].Mean.IsNaN())
		assert.True(t, s.Correlations.SpeedKp.IsNaN())
		assert.True(t, s.PropagationTimes.Mean.IsNaN())
		assert.Equal(t, frozen, s.GeneratedAt)
	})

	t.Run("deterministic over repeated runs", func(t *testing.T) {
		linked := []LinkedEvent{
			linkedEvent("cme-1", "gst-1", 412.5, 3.33, 10.2),
			linkedEvent("cme-2", "gst-2", 801.25, 6.67, 19.8),
			linkedEvent("cme-3", "gst-3", 655, 5.1, 14.4),
		}

		first := Summarize(linked)
		second := Summarize(linked)
		assert.Equal(t, float64(first.CMEStatistics["speed"].Std), float64(second.CMEStatistics["speed"].Std))
		assert.Equal(t, float64(first.Correlations.SpeedKp), float64(second.Correlations.SpeedKp))
	})

	t.Run("all statistics columns present", func(t *testing.T) {
		s := Summarize([]LinkedEvent{linkedEvent("cme-1", "gst-1", 400, 3, 10)})
		for _, col := range []string{"speed", "kpIndex", "angle", "latitude", "longitude"} {
			_, ok := s.CMEStatistics[col]
			require.True(t, ok, "missing column %s", col)
		}
	})
}
