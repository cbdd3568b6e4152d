package domain

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// eventTimeLayouts covers the timestamp shapes DONKI emits: minute precision
// with a zone suffix is the common case, second precision and naive
// timestamps appear in older records.
var eventTimeLayouts = []string{
	"2006-01-02T15:04Z",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseEventTime parses a DONKI timestamp into a UTC instant.
func ParseEventTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable event time %q", s)
}

// SafeFloat coerces an arbitrary decoded JSON value to float64, returning
// NaN when the value is absent or not numeric. One malformed field must
// never abort a batch.
func SafeFloat(v any) Float {
	switch x := v.(type) {
	case float64:
		return Float(x)
	case int:
		return Float(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return NaN()
		}
		return Float(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return NaN()
		}
		return Float(f)
	default:
		return NaN()
	}
}

// NormalizeCME converts validated raw CME events into canonical records.
// Only the first analysis sub-record is consulted; a CME without analyses
// keeps type "Unknown" and all-NaN numerics. Records with unparsable start
// times are skipped with a warning.
func NormalizeCME(events []RawCMEEvent, logger *slog.Logger) []CMERecord {
	records := make([]CMERecord, 0, len(events))
	for _, ev := range events {
		start, err := ParseEventTime(ev.StartTime)
		if err != nil {
			logger.Warn("skipping CME record with unparsable start time",
				"activity_id", ev.ActivityID, "start_time", ev.StartTime)
			continue
		}

		rec := CMERecord{
			ID:        ev.ActivityID,
			StartTime: start,
			Speed:     NaN(),
			Type:      "Unknown",
			Angle:     NaN(),
			Latitude:  NaN(),
			Longitude: NaN(),
		}

		if len(ev.CMEAnalyses) > 0 {
			var a RawCMEAnalysis
			if err := json.Unmarshal(ev.CMEAnalyses[0], &a); err != nil {
				logger.Warn("ignoring undecodable CME analysis", "activity_id", ev.ActivityID)
			} else {
				rec.Speed = SafeFloat(a.Speed)
				rec.Angle = SafeFloat(a.PrincipalAngle)
				rec.Latitude = SafeFloat(a.Latitude)
				rec.Longitude = SafeFloat(a.Longitude)
				if a.Type != "" {
					rec.Type = a.Type
				}
			}
		}

		records = append(records, rec)
	}
	return records
}

// NormalizeGST converts validated raw GST events into canonical records.
// KpIndex is the first Kp sample, or 0 when the list is empty. The raw
// linked-activity IDs are carried alongside for the linker. Records with
// unparsable start times are skipped with a warning.
func NormalizeGST(events []RawGSTEvent, logger *slog.Logger) []GSTRecord {
	records := make([]GSTRecord, 0, len(events))
	for _, ev := range events {
		start, err := ParseEventTime(ev.StartTime)
		if err != nil {
			logger.Warn("skipping GST record with unparsable start time",
				"gst_id", ev.GSTID, "start_time", ev.StartTime)
			continue
		}

		rec := GSTRecord{
			ID:        ev.GSTID,
			StartTime: start,
			KpIndex:   firstKpIndex(ev.AllKpIndex),
		}
		for _, link := range ev.LinkedEvents {
			rec.LinkedActivityIDs = append(rec.LinkedActivityIDs, link.ActivityID)
		}

		records = append(records, rec)
	}
	return records
}

// firstKpIndex extracts the first sample of an allKpIndex array, defaulting
// to 0 for an empty list or a sample without a kpIndex value.
func firstKpIndex(raw json.RawMessage) Float {
	var samples []RawKpSample
	if err := json.Unmarshal(raw, &samples); err != nil || len(samples) == 0 {
		return 0
	}
	if samples[0].KpIndex == nil {
		return 0
	}
	return SafeFloat(samples[0].KpIndex)
}
