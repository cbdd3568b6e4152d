package domain

import (
	"encoding/json"
	"math"
	"time"
)

// EventKind identifies the two DONKI event catalogs this service consumes.
type EventKind string

const (
	KindCME EventKind = "CME"
	KindGST EventKind = "GST"
)

// CMEMarker is the substring that tags an activity ID as a CME reference,
// e.g. "2020-01-01T12:00:00-CME-001".
const CMEMarker = "-CME-"

// Float is a float64 that survives JSON round trips when NaN. Absent or
// unparsable numeric fields are carried as NaN through the whole pipeline,
// and encoding/json refuses to marshal NaN, so every exported float field
// uses this type and emits null instead.
type Float float64

// NaN returns the missing-value sentinel used throughout the pipeline.
func NaN() Float { return Float(math.NaN()) }

// IsNaN reports whether the value is the missing-value sentinel.
func (f Float) IsNaN() bool { return math.IsNaN(float64(f)) }

func (f Float) MarshalJSON() ([]byte, error) {
	if f.IsNaN() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(f))
}

func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = NaN()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// RawCMEEvent is a single element of the DONKI /CME response. Analyses are
// kept as raw JSON so the validator can reject non-object entries and the
// normalizer can decode them leniently.
type RawCMEEvent struct {
	ActivityID  string            `json:"activityID"`
	StartTime   string            `json:"startTime"`
	CMEAnalyses []json.RawMessage `json:"cmeAnalyses"`
}

// RawCMEAnalysis is the first analysis sub-record of a CME. Numeric fields
// are declared as any because the upstream feed mixes numbers, strings, and
// nulls; SafeFloat owns the coercion.
type RawCMEAnalysis struct {
	Speed          any    `json:"speed"`
	Type           string `json:"type"`
	PrincipalAngle any    `json:"principalAngle"`
	Latitude       any    `json:"latitude"`
	Longitude      any    `json:"longitude"`
}

// RawGSTEvent is a single element of the DONKI /GST response. AllKpIndex
// stays raw so the validator can enforce that it is a JSON array.
type RawGSTEvent struct {
	GSTID        string           `json:"gstID"`
	StartTime    string           `json:"startTime"`
	AllKpIndex   json.RawMessage  `json:"allKpIndex"`
	LinkedEvents []RawLinkedEvent `json:"linkedEvents"`
}

// RawKpSample is one Kp-index observation within a GST record.
type RawKpSample struct {
	KpIndex any `json:"kpIndex"`
}

// RawLinkedEvent is a cross-reference entry inside a GST record pointing at
// another activity by identifier.
type RawLinkedEvent struct {
	ActivityID string `json:"activityID"`
}

// CMERecord is the canonical tabular shape of a CME event. Numeric fields
// default to NaN when the analysis sub-record is absent or unparsable.
type CMERecord struct {
	ID        string    `json:"cmeID"`
	StartTime time.Time `json:"cmeStartTime"`
	Speed     Float     `json:"speed"`
	Type      string    `json:"type"`
	Angle     Float     `json:"angle"`
	Latitude  Float     `json:"latitude"`
	Longitude Float     `json:"longitude"`
}

// GSTRecord is the canonical tabular shape of a GST event. KpIndex is the
// first sample of the raw Kp list, or 0 when the list is empty. The raw
// linked-activity IDs ride along for the linker.
type GSTRecord struct {
	ID        string    `json:"gstID"`
	StartTime time.Time `json:"gstStartTime"`
	KpIndex   Float     `json:"kpIndex"`

	LinkedActivityIDs []string `json:"-"`
}

// LinkedEvent is one GST↔CME pair. TimeDifferenceHours is signed: a GST that
// precedes its linked CME in the raw data is passed through as-is.
type LinkedEvent struct {
	CMEID               string    `json:"cmeID"`
	CMEStartTime        time.Time `json:"cmeStartTime"`
	GSTID               string    `json:"gstID"`
	GSTStartTime        time.Time `json:"gstStartTime"`
	TimeDifferenceHours Float     `json:"timeDifferenceHours"`
	KpIndex             Float     `json:"kpIndex"`
	Speed               Float     `json:"speed"`
	Type                string    `json:"type"`
	Angle               Float     `json:"angle"`
	Latitude            Float     `json:"latitude"`
	Longitude           Float     `json:"longitude"`
}

// ColumnStats holds the descriptive statistics computed per numeric column.
type ColumnStats struct {
	Mean   Float `json:"mean"`
	Median Float `json:"median"`
	Std    Float `json:"std"`
	Min    Float `json:"min"`
	Max    Float `json:"max"`
}

// EventCounts holds distinct-event and link totals for a run.
type EventCounts struct {
	TotalCMEs    int `json:"total_cmes"`
	TotalGSTs    int `json:"total_gsts"`
	LinkedEvents int `json:"linked_events"`
}

// Correlations holds the pairwise Pearson coefficients between the three
// headline column pairs.
type Correlations struct {
	SpeedKp       Float `json:"speed_kp_correlation"`
	TimeDiffKp    Float `json:"time_diff_kp_correlation"`
	SpeedTimeDiff Float `json:"speed_time_diff_correlation"`
}

// PropagationStats describes the distribution of CME-to-GST travel times.
type PropagationStats struct {
	Mean   Float `json:"mean_propagation_time"`
	Median Float `json:"median_propagation_time"`
	Std    Float `json:"std_propagation_time"`
	Min    Float `json:"min_propagation_time"`
	Max    Float `json:"max_propagation_time"`
}

// Summary is the aggregate view over one run's linked dataset. It is
// recomputed fresh on every run and never mutated afterwards.
type Summary struct {
	CMEStatistics    map[string]ColumnStats `json:"cme_statistics"`
	EventCounts      EventCounts            `json:"event_counts"`
	Correlations     Correlations           `json:"correlations"`
	PropagationTimes PropagationStats       `json:"propagation_times"`
	GeneratedAt      time.Time              `json:"generated_at"`
}
