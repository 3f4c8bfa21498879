package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultSampleSize     = 5
	defaultAnalyzeTimeout = 2 * time.Minute
)

// ServiceConfig tunes the pipeline.
type ServiceConfig struct {
	// MaxPoints truncates the retained points (0 = unlimited).
	MaxPoints int

	// SampleSize is the number of leading points handed to the summarizer.
	SampleSize int

	// AnalyzeTimeout bounds a full fetch/normalize/summarize cycle.
	AnalyzeTimeout time.Duration
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithPlaceResolver enables place names in point insights.
func WithPlaceResolver(r PlaceResolver) Option {
	return func(s *Service) {
		s.places = r
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service runs the ingestion pipeline and keeps the latest result in a Store.
type Service struct {
	feed       Feed
	summarizer Summarizer
	places     PlaceResolver
	store      Store
	cfg        ServiceConfig
	logger     zerolog.Logger
	now        func() time.Time
}

// NewService creates a new Service.
func NewService(feed Feed, summarizer Summarizer, store Store, cfg ServiceConfig, logger zerolog.Logger, opts ...Option) *Service {
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = defaultSampleSize
	}
	if cfg.AnalyzeTimeout <= 0 {
		cfg.AnalyzeTimeout = defaultAnalyzeTimeout
	}

	s := &Service{
		feed:       feed,
		summarizer: summarizer,
		store:      store,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchAndNormalize fetches every shard and normalizes the records in shard
// order. Shard and record failures are returned as diagnostics.
func (s *Service) FetchAndNormalize(ctx context.Context) ([]Point, []Diagnostic, ShardStats) {
	var (
		points []Point
		diags  []Diagnostic
		stats  ShardStats
	)

	for _, res := range s.feed.FetchShards(ctx) {
		if res.Err != nil {
			stats.Failed++
			diags = append(diags, Diagnostic{
				Hour:    res.Hour,
				Index:   -1,
				Kind:    kindOf(res.Err),
				Message: res.Err.Error(),
			})
			s.logger.Warn().Err(res.Err).Int("hour", res.Hour).Str("url", res.URL).Msg("shard skipped")
			continue
		}

		stats.OK++
		stats.RecordsSeen += len(res.Records)

		shardPoints, shardDiags := NormalizeRecords(res.Hour, res.Records)
		points = append(points, shardPoints...)
		diags = append(diags, shardDiags...)
	}

	s.logger.Info().
		Str("feed", s.feed.Name()).
		Int("shards_ok", stats.OK).
		Int("shards_failed", stats.Failed).
		Str("records", humanize.Comma(int64(stats.RecordsSeen))).
		Str("points", humanize.Comma(int64(len(points)))).
		Msg("feed normalized")

	return points, diags, stats
}

// Analyze runs the full fetch/normalize/summarize cycle. A positive limit
// overrides the configured MaxPoints. Results with data replace the stored one.
func (s *Service) Analyze(ctx context.Context, limit int) FlightSummary {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.AnalyzeTimeout)
	defer cancel()

	points, diags, stats := s.FetchAndNormalize(ctx)
	summary := s.build(ctx, points, diags, stats, limit)

	if summary.HasData() {
		s.store.Save(summary)
	} else {
		s.logger.Warn().Str("run_id", summary.RunID).Err(ErrNoData).Msg("keeping last good analysis")
	}
	return summary
}

// AnalyzeRecords normalizes and summarizes client-provided records without
// touching the feed or the store.
func (s *Service) AnalyzeRecords(ctx context.Context, records []RawRecord, limit int) FlightSummary {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.AnalyzeTimeout)
	defer cancel()

	points, diags := NormalizeRecords(UnknownHour, records)
	stats := ShardStats{RecordsSeen: len(records)}
	return s.build(ctx, points, diags, stats, limit)
}

// Summarize returns the AI summary of the leading sample of points. Failures
// are turned into a descriptive string.
func (s *Service) Summarize(ctx context.Context, points []Point) string {
	text, _ := s.summarize(ctx, points)
	return text
}

// Latest returns the last stored analysis.
func (s *Service) Latest() (FlightSummary, error) {
	return s.store.Latest()
}

// MapView builds map data for the last stored analysis.
func (s *Service) MapView() (MapView, error) {
	latest, err := s.store.Latest()
	if err != nil {
		return MapView{}, err
	}
	return BuildMapView(latest), nil
}

// PointInsight asks the summarizer about one point of the last stored analysis.
func (s *Service) PointInsight(ctx context.Context, index int) (Insight, error) {
	latest, err := s.store.Latest()
	if err != nil {
		return Insight{}, err
	}
	if index < 0 || index >= len(latest.Points) {
		return Insight{}, fmt.Errorf("%w: index %d, have %d points", ErrPointNotFound, index, len(latest.Points))
	}

	p := latest.Points[index]
	insight := Insight{Index: index, Point: p, Hour: p.Hour}

	if s.places != nil {
		place, err := s.places.PlaceName(ctx, p)
		if err != nil {
			s.logger.Warn().Err(err).Int("index", index).Msg("reverse geocoding failed")
		} else {
			insight.Place = place
		}
	}

	text, err := s.summarizer.DescribePoint(ctx, p, insight.Place)
	if err != nil {
		s.logger.Error().Err(err).Int("index", index).Msg("point insight failed")
		text = summaryErrorText(err)
	}
	insight.Summary = text
	return insight, nil
}

func (s *Service) build(ctx context.Context, points []Point, diags []Diagnostic, stats ShardStats, limit int) FlightSummary {
	maxPoints := s.cfg.MaxPoints
	if limit > 0 {
		maxPoints = limit
	}
	agg := AggregatePoints(points, maxPoints)

	summary := FlightSummary{
		RunID:             uuid.NewString(),
		GeneratedAt:       s.now().UTC(),
		MeanAltitude:      agg.MeanAltitude,
		Points:            agg.Points,
		DistinctPositions: agg.DistinctPositions,
		Stats:             stats,
		Diagnostics:       diags,
	}

	if len(agg.Points) == 0 {
		summary.AISummary = NoDataSummary
		return summary
	}

	text, diag := s.summarize(ctx, agg.Points)
	summary.AISummary = text
	if diag != nil {
		summary.Diagnostics = append(summary.Diagnostics, *diag)
	}
	return summary
}

func (s *Service) summarize(ctx context.Context, points []Point) (string, *Diagnostic) {
	sample := points
	if len(sample) > s.cfg.SampleSize {
		sample = sample[:s.cfg.SampleSize]
	}

	text, err := s.summarizer.Summarize(ctx, sample)
	if err != nil {
		s.logger.Error().Err(err).Int("sample", len(sample)).Msg("summary generation failed")
		return summaryErrorText(err), &Diagnostic{
			Hour:    UnknownHour,
			Index:   -1,
			Kind:    DiagnosticSummary,
			Message: err.Error(),
		}
	}
	return text, nil
}

func summaryErrorText(err error) string {
	return fmt.Sprintf("Error generating summary: %v", err)
}
