package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"CONFIG_FILE", "PORT", "FEED_BASE_URL", "FEED_SHARDS", "FEED_HTTP_TIMEOUT", "FEED_MAX_RETRIES",
	"FEED_WORKERS", "MAX_POINTS", "SUMMARY_SAMPLE_SIZE", "OPENAI_API_KEY", "OPENAI_MODEL",
	"OPENAI_BASE_URL", "GEOCODER_API_KEY", "REFRESH_INTERVAL", "ANALYZE_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Defaults(), *cfg)
	assert.Equal(t, "https://a.windbornesystems.com/treasure", cfg.Feed.BaseURL)
	assert.Equal(t, 24, cfg.Feed.Shards)
	assert.Equal(t, 200, cfg.MaxPoints)
	assert.Equal(t, 5, cfg.SummarySampleSize)
	assert.Equal(t, time.Duration(0), cfg.RefreshInterval)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("FEED_WORKERS", "4")
	t.Setenv("FEED_HTTP_TIMEOUT", "3s")
	t.Setenv("MAX_POINTS", "0")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("REFRESH_INTERVAL", "15m")
	t.Setenv("LOG_FORMAT", "console")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 4, cfg.Feed.Workers)
	assert.Equal(t, 3*time.Second, cfg.Feed.HTTPTimeout)
	assert.Equal(t, 0, cfg.MaxPoints)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, 15*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoadYAMLFileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "7000"
max_points: 50
feed:
  base_url: http://localhost:9999/treasure
  workers: 2
  http_timeout: 5s
openai:
  model: gpt-4o-mini
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7001")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7001", cfg.Port)
	assert.Equal(t, 50, cfg.MaxPoints)
	assert.Equal(t, "http://localhost:9999/treasure", cfg.Feed.BaseURL)
	assert.Equal(t, 2, cfg.Feed.Workers)
	assert.Equal(t, 5*time.Second, cfg.Feed.HTTPTimeout)
	assert.Equal(t, 24, cfg.Feed.Shards)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"FEED_HTTP_TIMEOUT": "soon",
		"FEED_WORKERS":      "0",
		"FEED_BASE_URL":     "not a url",
		"LOG_LEVEL":         "loud",
		"PORT":              "http",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}
