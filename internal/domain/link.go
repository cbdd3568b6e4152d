package domain

import (
	"log/slog"
	"sort"
	"strings"
	"time"
)

// LinkOutcome tags the fate of a single linked-event entry so skip reasons
// are countable instead of buried in control flow.
type LinkOutcome string

const (
	OutcomeLinked          LinkOutcome = "linked"
	OutcomeNoMatch         LinkOutcome = "no_match"
	OutcomeBadTimestamp    LinkOutcome = "bad_timestamp"
	OutcomeNotCMEReference LinkOutcome = "not_cme_reference"
)

// LinkResult carries the linked rows plus per-outcome counts for one run.
type LinkResult struct {
	Events []LinkedEvent

	Linked              int
	SkippedNoMatch      int
	SkippedBadTimestamp int
	IgnoredNonCME       int
}

// Link cross-references GST records against the CME table. For each GST, in
// input order, every linked activity ID bearing the CME marker is resolved
// by exact ID against the table (top-down scan, first row wins — the data
// volume is hundreds to low thousands of rows, no index needed). Resolved
// pairs fan out to one row each; unresolved links are skipped individually
// with a warning; GSTs with no resolvable CME produce no output at all.
func Link(gsts []GSTRecord, cmes []CMERecord, logger *slog.Logger) LinkResult {
	var res LinkResult
	res.Events = make([]LinkedEvent, 0, len(gsts))

	for _, gst := range gsts {
		for _, activityID := range gst.LinkedActivityIDs {
			switch outcome := linkOne(&res, gst, activityID, cmes); outcome {
			case OutcomeNoMatch:
				logger.Warn("linked CME not found in CME table",
					"gst_id", gst.ID, "activity_id", activityID)
			case OutcomeBadTimestamp:
				logger.Warn("skipping link with zero timestamp",
					"gst_id", gst.ID, "activity_id", activityID)
			}
		}
	}
	return res
}

// linkOne resolves a single linked-event entry, appending a row on success
// and bumping the matching counter either way.
func linkOne(res *LinkResult, gst GSTRecord, activityID string, cmes []CMERecord) LinkOutcome {
	if !strings.Contains(activityID, CMEMarker) {
		res.IgnoredNonCME++
		return OutcomeNotCMEReference
	}

	cme, ok := findCME(cmes, activityID)
	if !ok {
		res.SkippedNoMatch++
		return OutcomeNoMatch
	}
	if cme.StartTime.IsZero() || gst.StartTime.IsZero() {
		res.SkippedBadTimestamp++
		return OutcomeBadTimestamp
	}

	res.Events = append(res.Events, LinkedEvent{
		CMEID:               cme.ID,
		CMEStartTime:        cme.StartTime,
		GSTID:               gst.ID,
		GSTStartTime:        gst.StartTime,
		TimeDifferenceHours: propagationHours(cme.StartTime, gst.StartTime),
		KpIndex:             gst.KpIndex,
		Speed:               cme.Speed,
		Type:                cme.Type,
		Angle:               cme.Angle,
		Latitude:            cme.Latitude,
		Longitude:           cme.Longitude,
	})
	res.Linked++
	return OutcomeLinked
}

// findCME scans the table top-down for an exact ID match; with duplicate IDs
// the first row wins.
func findCME(cmes []CMERecord, id string) (CMERecord, bool) {
	for _, cme := range cmes {
		if cme.ID == id {
			return cme, true
		}
	}
	return CMERecord{}, false
}

// propagationHours is the signed interval from CME start to GST start.
// Negative values (GST preceding its linked CME) occur in the raw data and
// are passed through unfiltered.
func propagationHours(cmeTime, gstTime time.Time) Float {
	return Float(gstTime.Sub(cmeTime).Hours())
}

// SortByCMETime orders linked events chronologically by CME start time,
// preserving the original order among equal timestamps. Link itself never
// re-sorts; this is the explicit downstream sort step.
func SortByCMETime(events []LinkedEvent) []LinkedEvent {
	sorted := make([]LinkedEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CMEStartTime.Before(sorted[j].CMEStartTime)
	})
	return sorted
}
