package store

import (
	"errors"
	"sync"

	"github.com/i474232898/balloon-tracker/internal/telemetry"
)

var (
	// ErrNotFound is returned when no analysis has been stored yet.
	ErrNotFound = errors.New("no balloon analysis available")
)

// MemoryStore is a concurrency-safe holder for the latest analysis.
// Each Save replaces the previous summary wholesale.
type MemoryStore struct {
	mu sync.RWMutex

	latest *telemetry.FlightSummary
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save replaces the stored summary. The point and diagnostic slices are
// copied so later changes by the caller do not leak in.
func (s *MemoryStore) Save(summary telemetry.FlightSummary) {
	summary.Points = append([]telemetry.Point(nil), summary.Points...)
	summary.Diagnostics = append([]telemetry.Diagnostic(nil), summary.Diagnostics...)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest = &summary
}

// Latest returns the most recent summary.
func (s *MemoryStore) Latest() (telemetry.FlightSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest == nil {
		return telemetry.FlightSummary{}, ErrNotFound
	}
	return *s.latest, nil
}
