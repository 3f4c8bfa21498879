package main

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	httpapi "github.com/i474232898/balloon-tracker/internal/api/http"
	"github.com/i474232898/balloon-tracker/internal/config"
	"github.com/i474232898/balloon-tracker/internal/geo"
	"github.com/i474232898/balloon-tracker/internal/scheduler"
	"github.com/i474232898/balloon-tracker/internal/store"
	"github.com/i474232898/balloon-tracker/internal/summary"
	"github.com/i474232898/balloon-tracker/internal/telemetry"
	"github.com/i474232898/balloon-tracker/internal/telemetry/feed"
)

func main() {
	dotenvErr := godotenv.Load()

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("failed to load config")
	}

	log := newLogger(cfg)
	if dotenvErr != nil && !errors.Is(dotenvErr, fs.ErrNotExist) {
		log.Warn().Err(dotenvErr).Msg("could not load .env file")
	}

	// Shared HTTP client for feed calls.
	httpClient := &http.Client{
		Timeout: cfg.Feed.HTTPTimeout,
	}

	balloonFeed := feed.NewClient(feed.ClientConfig{
		BaseURL: cfg.Feed.BaseURL,
		Shards:  cfg.Feed.Shards,
		Workers: cfg.Feed.Workers,
		HTTP: feed.HTTPClientConfig{
			Client: httpClient,
			Backoff: feed.BackoffConfig{
				MaxRetries:      cfg.Feed.MaxRetries,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		Logger: log.With().Str("component", "feed").Logger(),
	})

	summarizer := summary.NewOpenAISummarizer(summary.Config{
		APIKey:  cfg.OpenAI.APIKey,
		Model:   cfg.OpenAI.Model,
		BaseURL: cfg.OpenAI.BaseURL,
		Logger:  log.With().Str("component", "summary").Logger(),
	})
	if cfg.OpenAI.APIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY not set; summaries will report an error")
	}

	var opts []telemetry.Option
	if cfg.GeocoderAPIKey != "" {
		opts = append(opts, telemetry.WithPlaceResolver(geo.NewReverseGeocoder(cfg.GeocoderAPIKey)))
	}

	// Session state: the last successful analysis.
	memStore := store.NewMemoryStore()

	service := telemetry.NewService(balloonFeed, summarizer, memStore, telemetry.ServiceConfig{
		MaxPoints:      cfg.MaxPoints,
		SampleSize:     cfg.SummarySampleSize,
		AnalyzeTimeout: cfg.AnalyzeTimeout,
	}, log.With().Str("component", "pipeline").Logger(), opts...)

	sched := scheduler.New(cfg.RefreshInterval, service, log.With().Str("component", "scheduler").Logger())
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "balloon-tracker",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// /analyze waits for the whole feed and the summary call.
		WriteTimeout: cfg.AnalyzeTimeout + 10*time.Second,
		ErrorHandler: httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "balloon-tracker",
		})
	})

	httpapi.RegisterRoutes(app, service)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("fiber server stopped")
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
}

func newLogger(cfg *config.AppConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	if cfg.LogFormat == "console" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", "balloon-tracker").
		Logger()
}
