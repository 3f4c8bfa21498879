package telemetry

import (
	"encoding/json"
	"time"
)

// NoDataSentinel is reported in place of a mean altitude when no point survived normalization.
const NoDataSentinel = "No Data"

// NoDataSummary is the summary text used when there is nothing to summarize.
const NoDataSummary = "No flight data available."

// UnknownHour marks points that did not come from a feed shard (e.g. posted by a client).
const UnknownHour = -1

// RawRecord is one untyped JSON value from a shard. Numbers are json.Number.
type RawRecord = any

// Point is a validated (latitude, longitude, altitude) triple.
// It serialises as the JSON array [lat, lon, alt].
type Point struct {
	Latitude  float64
	Longitude float64
	Altitude  float64

	// Hour is the shard index the point came from, or UnknownHour.
	Hour int
}

// MarshalJSON encodes the point as a [lat, lon, alt] triple.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{p.Latitude, p.Longitude, p.Altitude})
}

// Position is a (lat, lon) pair used for distinct position counting.
type Position struct {
	Latitude  float64
	Longitude float64
}

// Position returns the point's horizontal position.
func (p Point) Position() Position {
	return Position{Latitude: p.Latitude, Longitude: p.Longitude}
}

// MeanAltitude is either a mean value or the "no data" sentinel.
type MeanAltitude struct {
	Value float64
	Valid bool
}

// MarshalJSON emits a number, or NoDataSentinel when the mean is undefined.
func (m MeanAltitude) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return json.Marshal(NoDataSentinel)
	}
	return json.Marshal(m.Value)
}

// ShardResult is the outcome of fetching and parsing one hourly shard.
type ShardResult struct {
	Hour    int
	URL     string
	Records []RawRecord
	Err     error
}

// DiagnosticKind classifies a non-fatal failure.
type DiagnosticKind string

const (
	DiagnosticNetwork DiagnosticKind = "network"
	DiagnosticDecode  DiagnosticKind = "decode"
	DiagnosticShape   DiagnosticKind = "shape"
	DiagnosticRecord  DiagnosticKind = "record"
	DiagnosticSummary DiagnosticKind = "summary"
)

// Diagnostic records a shard, record or summary failure that was downgraded
// instead of aborting the pipeline. Index is -1 for shard-level diagnostics.
type Diagnostic struct {
	Hour    int            `json:"hour"`
	Index   int            `json:"index"`
	Kind    DiagnosticKind `json:"kind"`
	Message string         `json:"message"`
}

// ShardStats counts shard outcomes for one fetch cycle.
type ShardStats struct {
	OK          int `json:"shards_ok"`
	Failed      int `json:"shards_failed"`
	RecordsSeen int `json:"records_seen"`
}

// FlightSummary is the result of one analysis cycle.
type FlightSummary struct {
	RunID             string       `json:"run_id"`
	GeneratedAt       time.Time    `json:"generated_at"` // always UTC
	MeanAltitude      MeanAltitude `json:"mean_altitude"`
	AISummary         string       `json:"ai_summary"`
	Points            []Point      `json:"balloon_data"`
	DistinctPositions int          `json:"distinct_positions"`
	Stats             ShardStats   `json:"stats"`
	Diagnostics       []Diagnostic `json:"diagnostics,omitempty"`
}

// HasData reports whether any point was retained.
func (s FlightSummary) HasData() bool {
	return len(s.Points) > 0
}

// Insight is an AI description of a single retained point.
type Insight struct {
	Index   int    `json:"index"`
	Point   Point  `json:"point"`
	Hour    int    `json:"hour"`
	Place   string `json:"place,omitempty"`
	Summary string `json:"ai_summary"`
}
