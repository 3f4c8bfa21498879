package telemetry

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func num(s string) json.Number { return json.Number(s) }

func TestNormalizeRecord(t *testing.T) {
	p, err := NormalizeRecord([]any{num("40.7"), num("-73.9"), num("12000.5")})
	require.NoError(t, err)
	assert.Equal(t, 40.7, p.Latitude)
	assert.Equal(t, -73.9, p.Longitude)
	assert.Equal(t, 12000.5, p.Altitude)
	assert.Equal(t, UnknownHour, p.Hour)
}

func TestNormalizeRecordIgnoresExtraElements(t *testing.T) {
	p, err := NormalizeRecord([]any{num("1"), num("2"), num("3"), "extra"})
	require.NoError(t, err)
	assert.Equal(t, Point{Latitude: 1, Longitude: 2, Altitude: 3, Hour: UnknownHour}, p)
}

func TestNormalizeRecordAltitudeSubstitution(t *testing.T) {
	tests := []struct {
		name string
		alt  any
	}{
		{name: "null from NaN literal", alt: nil},
		{name: "NaN float", alt: math.NaN()},
		{name: "infinite float", alt: math.Inf(1)},
		{name: "out of range number", alt: num("1e400")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NormalizeRecord([]any{num("10"), num("20"), tt.alt})
			require.NoError(t, err)
			assert.Equal(t, 0.0, p.Altitude)
			assert.False(t, math.IsNaN(p.Altitude))
		})
	}
}

func TestNormalizeRecordRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  RawRecord
	}{
		{name: "not a list", raw: map[string]any{"lat": num("1")}},
		{name: "scalar", raw: num("5")},
		{name: "too short", raw: []any{num("1"), num("2")}},
		{name: "empty", raw: []any{}},
		{name: "null latitude", raw: []any{nil, num("2"), num("3")}},
		{name: "NaN latitude", raw: []any{math.NaN(), num("2"), num("3")}},
		{name: "NaN longitude", raw: []any{num("1"), math.NaN(), num("3")}},
		{name: "string latitude", raw: []any{"40.1", num("2"), num("3")}},
		{name: "bool longitude", raw: []any{num("1"), true, num("3")}},
		{name: "string altitude", raw: []any{num("1"), num("2"), "high"}},
		{name: "object altitude", raw: []any{num("1"), num("2"), map[string]any{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeRecord(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrShape)
		})
	}
}

func TestNormalizeRecordsKeepsOrderAndReportsRejects(t *testing.T) {
	records := []RawRecord{
		[]any{num("1"), num("1"), num("100")},
		"garbage",
		[]any{num("2"), num("2"), nil},
		[]any{nil, num("3"), num("300")},
		[]any{num("4"), num("4"), num("400")},
	}

	points, diags := NormalizeRecords(7, records)

	require.Len(t, points, 3)
	assert.Equal(t, []Point{
		{Latitude: 1, Longitude: 1, Altitude: 100, Hour: 7},
		{Latitude: 2, Longitude: 2, Altitude: 0, Hour: 7},
		{Latitude: 4, Longitude: 4, Altitude: 400, Hour: 7},
	}, points)

	require.Len(t, diags, 2)
	assert.Equal(t, 1, diags[0].Index)
	assert.Equal(t, 3, diags[1].Index)
	for _, d := range diags {
		assert.Equal(t, 7, d.Hour)
		assert.Equal(t, DiagnosticRecord, d.Kind)
	}
}
