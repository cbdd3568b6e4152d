// Command genmock generates DONKI-shaped CME and GST JSON fixtures for the
// test suites and for running the service without a NASA API key. It pushes
// the generated payloads through the actual domain pipeline so the fixtures
// are guaranteed to validate, and prints the resulting stats for updating
// test assertions.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock -cmes 40 -gsts 12 -seed 1
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/space-weather-analysis/internal/domain"
)

var windowStart = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "data/mock", "output directory for fixture files")
	numCMEs := flag.Int("cmes", 40, "number of CME events to generate")
	numGSTs := flag.Int("gsts", 12, "number of GST events to generate")
	seed := flag.Int64("seed", 1, "random seed, fixed for reproducible fixtures")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	cmes := generateCMEs(rng, *numCMEs)
	gsts := generateGSTs(rng, *numGSTs, cmes)

	if err := writeJSON(filepath.Join(*outDir, "cme.json"), cmes); err != nil {
		return fmt.Errorf("writing CME fixture: %w", err)
	}
	log.Printf("wrote CME fixture: %s (%d events)", filepath.Join(*outDir, "cme.json"), len(cmes))

	if err := writeJSON(filepath.Join(*outDir, "gst.json"), gsts); err != nil {
		return fmt.Errorf("writing GST fixture: %w", err)
	}
	log.Printf("wrote GST fixture: %s (%d events)", filepath.Join(*outDir, "gst.json"), len(gsts))

	return printStats(cmes, gsts)
}

// mockCME mirrors the subset of the DONKI /CME response shape the pipeline
// reads. A nil Analyses slice exercises the missing-analysis path.
type mockCME struct {
	ActivityID  string         `json:"activityID"`
	StartTime   string         `json:"startTime"`
	CMEAnalyses []mockAnalysis `json:"cmeAnalyses,omitempty"`
}

type mockAnalysis struct {
	Speed          float64 `json:"speed"`
	Type           string  `json:"type"`
	PrincipalAngle float64 `json:"principalAngle"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
}

type mockGST struct {
	GSTID        string       `json:"gstID"`
	StartTime    string       `json:"startTime"`
	AllKpIndex   []mockKp     `json:"allKpIndex"`
	LinkedEvents []mockLinked `json:"linkedEvents,omitempty"`
}

type mockKp struct {
	KpIndex    float64 `json:"kpIndex"`
	Source     string  `json:"source"`
	ObservedAt string  `json:"observedTime"`
}

type mockLinked struct {
	ActivityID string `json:"activityID"`
}

var cmeTypes = []string{"S", "C", "O", "R"}

func generateCMEs(rng *rand.Rand, n int) []mockCME {
	events := make([]mockCME, 0, n)
	for i := 0; i < n; i++ {
		start := windowStart.Add(time.Duration(rng.Intn(30*24)) * time.Hour)
		ev := mockCME{
			ActivityID: fmt.Sprintf("%s-CME-%03d", start.Format("2006-01-02T15:04:05"), i+1),
			StartTime:  start.Format("2006-01-02T15:04Z"),
		}
		// Roughly one in ten CMEs arrives without an analysis sub-record.
		if rng.Intn(10) != 0 {
			ev.CMEAnalyses = []mockAnalysis{{
				Speed:          300 + rng.Float64()*1700,
				Type:           cmeTypes[rng.Intn(len(cmeTypes))],
				PrincipalAngle: rng.Float64() * 360,
				Latitude:       -45 + rng.Float64()*90,
				Longitude:      -120 + rng.Float64()*240,
			}}
		}
		events = append(events, ev)
	}
	return events
}

func generateGSTs(rng *rand.Rand, n int, cmes []mockCME) []mockGST {
	events := make([]mockGST, 0, n)
	for i := 0; i < n; i++ {
		start := windowStart.Add(time.Duration(rng.Intn(30*24)) * time.Hour)
		ev := mockGST{
			GSTID:     fmt.Sprintf("%s-GST-%03d", start.Format("2006-01-02T15:04:05"), i+1),
			StartTime: start.Format("2006-01-02T15:04Z"),
			AllKpIndex: []mockKp{{
				KpIndex:    3 + rng.Float64()*6,
				Source:     "NOAA",
				ObservedAt: start.Format("2006-01-02T15:04Z"),
			}},
		}
		// Most storms reference a CME; some carry an unrelated flare link or
		// no cross-reference at all, exercising the non-link paths.
		switch rng.Intn(4) {
		case 0:
			ev.LinkedEvents = []mockLinked{{
				ActivityID: fmt.Sprintf("%s-FLR-001", start.Format("2006-01-02T15:04:05")),
			}}
		case 1:
			// no linked events
		default:
			cme := cmes[rng.Intn(len(cmes))]
			ev.LinkedEvents = []mockLinked{{ActivityID: cme.ActivityID}}
		}
		events = append(events, ev)
	}
	return events
}

// printStats runs the generated fixtures through validation, normalization,
// linking, and summarization so the printed numbers match what tests see.
func printStats(cmes []mockCME, gsts []mockGST) error {
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.February, 1, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	rawCME, err := toRawMessages(cmes)
	if err != nil {
		return err
	}
	rawGST, err := toRawMessages(gsts)
	if err != nil {
		return err
	}

	cmeEvents, err := domain.ValidateCME(rawCME)
	if err != nil {
		return fmt.Errorf("generated CME fixture failed validation: %w", err)
	}
	gstEvents, err := domain.ValidateGST(rawGST)
	if err != nil {
		return fmt.Errorf("generated GST fixture failed validation: %w", err)
	}

	cmeRecords := domain.NormalizeCME(cmeEvents, logger)
	gstRecords := domain.NormalizeGST(gstEvents, logger)
	report := domain.Link(gstRecords, cmeRecords, logger)
	summary := domain.Summarize(report.Events)

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("CMEs: %d, GSTs: %d, linked: %d\n",
		summary.EventCounts.TotalCMEs, summary.EventCounts.TotalGSTs, summary.EventCounts.LinkedEvents)
	fmt.Printf("Link outcomes: no_match=%d, bad_timestamp=%d, non_cme=%d\n",
		report.SkippedNoMatch, report.SkippedBadTimestamp, report.IgnoredNonCME)
	fmt.Printf("Speed stats: mean=%v, median=%v, std=%v, min=%v, max=%v\n",
		summary.CMEStatistics["speed"].Mean,
		summary.CMEStatistics["speed"].Median,
		summary.CMEStatistics["speed"].Std,
		summary.CMEStatistics["speed"].Min,
		summary.CMEStatistics["speed"].Max)
	fmt.Printf("Correlations: speed_kp=%v, time_diff_kp=%v, speed_time_diff=%v\n",
		summary.Correlations.SpeedKp,
		summary.Correlations.TimeDiffKp,
		summary.Correlations.SpeedTimeDiff)
	fmt.Printf("Propagation: mean=%v h, min=%v h, max=%v h\n",
		summary.PropagationTimes.Mean,
		summary.PropagationTimes.Min,
		summary.PropagationTimes.Max)
	return nil
}

func toRawMessages(v any) ([]json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}
