package telemetry

import (
	"encoding/json"
	"fmt"
	"math"
)

// NormalizeRecord validates one raw record and converts it into a Point.
//
// The record must be an array of at least three elements. Latitude and
// longitude must be finite numbers; they are never substituted. A null or
// non-finite altitude becomes 0, while a non-numeric altitude rejects the
// record. Elements past the third are ignored.
func NormalizeRecord(raw RawRecord) (Point, error) {
	fields, ok := raw.([]any)
	if !ok {
		return Point{}, fmt.Errorf("%w: record is %s, want array", ErrShape, jsonKind(raw))
	}
	if len(fields) < 3 {
		return Point{}, fmt.Errorf("%w: record has %d elements, want at least 3", ErrShape, len(fields))
	}

	lat, ok := finiteNumber(fields[0])
	if !ok {
		return Point{}, fmt.Errorf("%w: latitude %s is not a finite number", ErrShape, describe(fields[0]))
	}
	lon, ok := finiteNumber(fields[1])
	if !ok {
		return Point{}, fmt.Errorf("%w: longitude %s is not a finite number", ErrShape, describe(fields[1]))
	}
	alt, ok := altitude(fields[2])
	if !ok {
		return Point{}, fmt.Errorf("%w: altitude %s is not numeric", ErrShape, describe(fields[2]))
	}

	return Point{
		Latitude:  lat,
		Longitude: lon,
		Altitude:  alt,
		Hour:      UnknownHour,
	}, nil
}

// NormalizeRecords normalizes a shard's records in order. Rejected records
// produce one diagnostic each and are left out of the result.
func NormalizeRecords(hour int, records []RawRecord) ([]Point, []Diagnostic) {
	points := make([]Point, 0, len(records))
	var diags []Diagnostic

	for i, rec := range records {
		p, err := NormalizeRecord(rec)
		if err != nil {
			diags = append(diags, Diagnostic{
				Hour:    hour,
				Index:   i,
				Kind:    DiagnosticRecord,
				Message: err.Error(),
			})
			continue
		}
		p.Hour = hour
		points = append(points, p)
	}
	return points, diags
}

// numberValue extracts a float from a decoded JSON number.
func numberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			// Out of float64 range.
			return math.Inf(1), true
		}
		return f, true
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func finiteNumber(v any) (float64, bool) {
	f, ok := numberValue(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// altitude accepts a number or null; null and non-finite values become 0.
func altitude(v any) (float64, bool) {
	if v == nil {
		return 0, true
	}
	f, ok := numberValue(v)
	if !ok {
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, true
	}
	return f, true
}

func describe(v any) string {
	if v == nil {
		return "null"
	}
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v)
}
