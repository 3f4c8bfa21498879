package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FeedConfig configures the hourly shard fetcher.
type FeedConfig struct {
	BaseURL     string        `yaml:"base_url" validate:"required,url"`
	Shards      int           `yaml:"shards" validate:"min=1,max=100"`
	HTTPTimeout time.Duration `yaml:"http_timeout" validate:"gte=0"` // 0 = no timeout
	MaxRetries  int           `yaml:"max_retries" validate:"min=0,max=10"`
	Workers     int           `yaml:"workers" validate:"min=1,max=24"`
}

// OpenAIConfig configures the summarizer.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model" validate:"required"`
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
}

type AppConfig struct {
	Port string `yaml:"port" validate:"required,numeric"`

	Feed FeedConfig `yaml:"feed"`

	// MaxPoints truncates retained points per analysis (0 = unlimited).
	MaxPoints int `yaml:"max_points" validate:"min=0"`

	// SummarySampleSize is how many leading points the summarizer sees.
	SummarySampleSize int `yaml:"summary_sample_size" validate:"min=1,max=50"`

	OpenAI OpenAIConfig `yaml:"openai"`

	// GeocoderAPIKey enables place names in point insights when set.
	GeocoderAPIKey string `yaml:"geocoder_api_key"`

	// RefreshInterval controls the background refresh (0 = disabled).
	RefreshInterval time.Duration `yaml:"refresh_interval" validate:"gte=0"`

	AnalyzeTimeout time.Duration `yaml:"analyze_timeout" validate:"gt=0"`

	LogLevel  string `yaml:"log_level" validate:"oneof=trace debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"oneof=json console"`
}

var validate = validator.New()

// Defaults returns the configuration used when nothing is set.
func Defaults() AppConfig {
	return AppConfig{
		Port: "8080",
		Feed: FeedConfig{
			BaseURL:     "https://a.windbornesystems.com/treasure",
			Shards:      24,
			HTTPTimeout: 10 * time.Second,
			MaxRetries:  0,
			Workers:     1,
		},
		MaxPoints:         200,
		SummarySampleSize: 5,
		OpenAI: OpenAIConfig{
			Model: "gpt-3.5-turbo",
		},
		AnalyzeTimeout: 2 * time.Minute,
		LogLevel:       "info",
		LogFormat:      "json",
	}
}

// Load reads configuration from an optional YAML file (CONFIG_FILE) and then
// from the environment, which takes precedence.
func Load() (*AppConfig, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading CONFIG_FILE: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parsing CONFIG_FILE: %w", err)
		}
	}

	cfg.Port = getenvDefault("PORT", cfg.Port)

	cfg.Feed.BaseURL = getenvDefault("FEED_BASE_URL", cfg.Feed.BaseURL)
	cfg.Feed.Shards = getenvInt("FEED_SHARDS", cfg.Feed.Shards)
	cfg.Feed.MaxRetries = getenvInt("FEED_MAX_RETRIES", cfg.Feed.MaxRetries)
	cfg.Feed.Workers = getenvInt("FEED_WORKERS", cfg.Feed.Workers)

	var err error
	if cfg.Feed.HTTPTimeout, err = getenvDuration("FEED_HTTP_TIMEOUT", cfg.Feed.HTTPTimeout); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", cfg.RefreshInterval); err != nil {
		return nil, err
	}
	if cfg.AnalyzeTimeout, err = getenvDuration("ANALYZE_TIMEOUT", cfg.AnalyzeTimeout); err != nil {
		return nil, err
	}

	cfg.MaxPoints = getenvInt("MAX_POINTS", cfg.MaxPoints)
	cfg.SummarySampleSize = getenvInt("SUMMARY_SAMPLE_SIZE", cfg.SummarySampleSize)

	cfg.OpenAI.APIKey = getenvDefault("OPENAI_API_KEY", cfg.OpenAI.APIKey)
	cfg.OpenAI.Model = getenvDefault("OPENAI_MODEL", cfg.OpenAI.Model)
	cfg.OpenAI.BaseURL = getenvDefault("OPENAI_BASE_URL", cfg.OpenAI.BaseURL)
	cfg.GeocoderAPIKey = getenvDefault("GEOCODER_API_KEY", cfg.GeocoderAPIKey)

	cfg.LogLevel = getenvDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getenvDefault("LOG_FORMAT", cfg.LogFormat)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
