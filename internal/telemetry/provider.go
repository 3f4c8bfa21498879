package telemetry

import "context"

// Feed abstracts the hourly balloon feed.
type Feed interface {
	Name() string
	// FetchShards returns one result per shard, ordered by hour.
	FetchShards(ctx context.Context) []ShardResult
}

// Summarizer abstracts the hosted text-generation service.
type Summarizer interface {
	Summarize(ctx context.Context, sample []Point) (string, error)
	DescribePoint(ctx context.Context, p Point, place string) (string, error)
}

// PlaceResolver turns a point into a human-readable place name.
type PlaceResolver interface {
	PlaceName(ctx context.Context, p Point) (string, error)
}

// Store holds the last successful analysis.
type Store interface {
	Save(summary FlightSummary)
	Latest() (FlightSummary, error)
}
