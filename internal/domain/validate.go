package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// MaxRangeDays caps a single query window; EarliestYear is the first year
// DONKI serves data for.
const (
	MaxRangeDays = 365
	EarliestYear = 2010
)

// ValidateDateRange enforces the query window policy. It runs before any
// network call.
func ValidateDateRange(start, end time.Time) error {
	if start.After(end) {
		return &DateRangeError{Start: start, End: end, Reason: "start date must be before or equal to end date"}
	}
	if end.Sub(start) > MaxRangeDays*24*time.Hour {
		return &DateRangeError{Start: start, End: end, Reason: "date range cannot exceed one year"}
	}
	if start.Year() < EarliestYear {
		return &DateRangeError{Start: start, End: end, Reason: "data is only available from 2010 onwards"}
	}
	return nil
}

// ValidateCME checks the structural invariants of a raw CME payload and
// decodes it into typed records. It fails fast on the first violation:
// every element must be a JSON object carrying activityID and startTime,
// and a present first analysis must itself be an object.
func ValidateCME(raw []json.RawMessage) ([]RawCMEEvent, error) {
	events := make([]RawCMEEvent, 0, len(raw))
	for i, el := range raw {
		if !isJSONObject(el) {
			return nil, &ValidationError{Kind: KindCME, Index: i, Reason: "record must be a JSON object"}
		}
		var ev RawCMEEvent
		if err := json.Unmarshal(el, &ev); err != nil {
			return nil, &ValidationError{Kind: KindCME, Index: i, Reason: "malformed record: " + err.Error()}
		}

		var missing []string
		if ev.ActivityID == "" {
			missing = append(missing, "activityID")
		}
		if ev.StartTime == "" {
			missing = append(missing, "startTime")
		}
		if len(missing) > 0 {
			return nil, &ValidationError{Kind: KindCME, Index: i, Missing: missing}
		}

		if len(ev.CMEAnalyses) > 0 && !isJSONNull(ev.CMEAnalyses[0]) && !isJSONObject(ev.CMEAnalyses[0]) {
			return nil, &ValidationError{Kind: KindCME, Index: i, Reason: "cmeAnalyses entry must be a JSON object"}
		}
		events = append(events, ev)
	}
	return events, nil
}

// ValidateGST checks the structural invariants of a raw GST payload and
// decodes it into typed records: every element must be a JSON object with
// gstID, startTime, and an allKpIndex that is a JSON array (possibly empty).
func ValidateGST(raw []json.RawMessage) ([]RawGSTEvent, error) {
	events := make([]RawGSTEvent, 0, len(raw))
	for i, el := range raw {
		if !isJSONObject(el) {
			return nil, &ValidationError{Kind: KindGST, Index: i, Reason: "record must be a JSON object"}
		}
		var ev RawGSTEvent
		if err := json.Unmarshal(el, &ev); err != nil {
			return nil, &ValidationError{Kind: KindGST, Index: i, Reason: "malformed record: " + err.Error()}
		}

		var missing []string
		if ev.GSTID == "" {
			missing = append(missing, "gstID")
		}
		if ev.StartTime == "" {
			missing = append(missing, "startTime")
		}
		if ev.AllKpIndex == nil {
			missing = append(missing, "allKpIndex")
		}
		if len(missing) > 0 {
			return nil, &ValidationError{Kind: KindGST, Index: i, Missing: missing}
		}

		if !isJSONArray(ev.AllKpIndex) {
			return nil, &ValidationError{Kind: KindGST, Index: i, Reason: "allKpIndex must be a JSON array"}
		}
		events = append(events, ev)
	}
	return events, nil
}

func isJSONObject(raw json.RawMessage) bool { return firstByte(raw) == '{' }
func isJSONArray(raw json.RawMessage) bool  { return firstByte(raw) == '[' }
func isJSONNull(raw json.RawMessage) bool   { return bytes.Equal(bytes.TrimSpace(raw), []byte("null")) }

func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
