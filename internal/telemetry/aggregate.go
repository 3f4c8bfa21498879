package telemetry

import "math"

// Aggregation is the deterministic reduction of an ordered point list.
type Aggregation struct {
	Points            []Point
	MeanAltitude      MeanAltitude
	DistinctPositions int
}

// AggregatePoints keeps the first maxPoints points (all of them when
// maxPoints <= 0), then computes the mean altitude and the number of distinct
// (lat, lon) positions over what was kept.
func AggregatePoints(points []Point, maxPoints int) Aggregation {
	kept := points
	if maxPoints > 0 && len(kept) > maxPoints {
		kept = kept[:maxPoints:maxPoints]
	}

	if len(kept) == 0 {
		return Aggregation{Points: []Point{}}
	}

	seen := make(map[Position]struct{}, len(kept))
	for _, p := range kept {
		seen[p.Position()] = struct{}{}
	}

	return Aggregation{
		Points: kept,
		MeanAltitude: MeanAltitude{
			Value: meanAltitude(kept),
			Valid: true,
		},
		DistinctPositions: len(seen),
	}
}

// meanAltitude averages finite altitudes. When the plain sum overflows, the
// terms are divided before summing, which keeps the result finite.
func meanAltitude(points []Point) float64 {
	n := float64(len(points))

	var sum float64
	for _, p := range points {
		sum += p.Altitude
	}
	if !math.IsInf(sum, 0) {
		return sum / n
	}

	var mean float64
	for _, p := range points {
		mean += p.Altitude / n
	}
	return mean
}
