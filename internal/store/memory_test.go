package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/balloon-tracker/internal/telemetry"
)

func TestMemoryStoreEmpty(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Latest()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreReplacesWholesale(t *testing.T) {
	s := NewMemoryStore()

	s.Save(telemetry.FlightSummary{RunID: "a", Points: []telemetry.Point{{Latitude: 1}, {Latitude: 2}}})
	s.Save(telemetry.FlightSummary{RunID: "b", Points: []telemetry.Point{{Latitude: 3}}})

	latest, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, "b", latest.RunID)
	assert.Equal(t, []telemetry.Point{{Latitude: 3}}, latest.Points)
}

func TestMemoryStoreCopiesPoints(t *testing.T) {
	s := NewMemoryStore()
	points := []telemetry.Point{{Latitude: 1}}

	s.Save(telemetry.FlightSummary{RunID: "a", Points: points})
	points[0].Latitude = 99

	latest, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, 1.0, latest.Points[0].Latitude)
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Save(telemetry.FlightSummary{RunID: "x"})
		}()
		go func() {
			defer wg.Done()
			_, _ = s.Latest()
		}()
	}
	wg.Wait()

	latest, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, "x", latest.RunID)
}
