package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"github.com/i474232898/balloon-tracker/internal/telemetry"
)

// Analyzer runs one analysis cycle.
type Analyzer interface {
	Analyze(ctx context.Context, limit int) telemetry.FlightSummary
}

// Scheduler periodically refreshes the balloon analysis.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Analyzer
	interval  time.Duration
	logger    zerolog.Logger
}

// New creates a new Scheduler. A non-positive interval disables it.
func New(interval time.Duration, service Analyzer, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		service:   service,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run happens immediately; runs never overlap.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info().Msg("scheduler: refresh interval not set; manual refresh only")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info().Dur("interval", s.interval).Msg("scheduler: started")
	return nil
}

func (s *Scheduler) run() {
	s.logger.Info().Msg("scheduler: running balloon refresh job")

	summary := s.service.Analyze(context.Background(), 0)

	s.logger.Info().
		Str("run_id", summary.RunID).
		Int("points", len(summary.Points)).
		Int("diagnostics", len(summary.Diagnostics)).
		Msg("scheduler: completed balloon refresh job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
