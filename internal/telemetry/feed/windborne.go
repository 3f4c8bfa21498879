package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/i474232898/balloon-tracker/internal/telemetry"
)

const (
	// DefaultBaseURL is the public WindBorne treasure feed.
	DefaultBaseURL = "https://a.windbornesystems.com/treasure"

	// DefaultShards is the number of hourly snapshots published by the feed.
	DefaultShards = 24

	// maxBodyBytes guards against runaway responses.
	maxBodyBytes = 32 << 20

	// circuitTripFailures is the number of consecutive failed attempts on a
	// shard tolerated before its breaker opens.
	circuitTripFailures = 5
)

// ClientConfig holds configuration for the WindBorne feed client.
type ClientConfig struct {
	// BaseURL is the directory holding the NN.json shards.
	BaseURL string

	// Shards is the number of hourly shards to fetch.
	Shards int

	// Workers bounds concurrent shard fetches (1 = sequential).
	Workers int

	// HTTP is the HTTP client and retry policy.
	HTTP HTTPClientConfig

	Logger zerolog.Logger
}

// Client fetches hourly shards from the WindBorne feed.
type Client struct {
	name    string
	baseURL string
	shards  int
	workers int
	httpCfg HTTPClientConfig
	logger  zerolog.Logger
}

// NewClient creates a new feed client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	shards := cfg.Shards
	if shards <= 0 {
		shards = DefaultShards
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > shards {
		workers = shards
	}

	httpCfg := cfg.HTTP
	if httpCfg.Client == nil {
		httpCfg.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if httpCfg.Backoff.InitialInterval <= 0 {
		httpCfg.Backoff.InitialInterval = 500 * time.Millisecond
	}
	if httpCfg.Backoff.MaxInterval <= 0 {
		httpCfg.Backoff.MaxInterval = 5 * time.Second
	}

	return &Client{
		name:    "windborne",
		baseURL: baseURL,
		shards:  shards,
		workers: workers,
		httpCfg: httpCfg,
		logger:  cfg.Logger,
	}
}

// newCircuit returns a breaker scoped to one shard of one fetch cycle. It only
// guards the retry loop of that shard; other shards and later cycles start
// closed.
func (c *Client) newCircuit(hour int) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        fmt.Sprintf("%s-%02d", c.name, hour),
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > circuitTripFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit state changed")
		},
	})
}

// Name returns the feed name.
func (c *Client) Name() string {
	return c.name
}

// ShardURL returns the URL of the shard for the given hour.
func (c *Client) ShardURL(hour int) string {
	return fmt.Sprintf("%s/%02d.json", c.baseURL, hour)
}

// FetchShards fetches all shards using at most Workers concurrent requests.
// Results are ordered by hour regardless of completion order, and a failed
// shard never prevents the others from being fetched.
func (c *Client) FetchShards(ctx context.Context) []telemetry.ShardResult {
	results := make([]telemetry.ShardResult, c.shards)

	hours := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < c.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for hour := range hours {
				results[hour] = c.fetchShard(ctx, hour)
			}
		}()
	}

	for hour := 0; hour < c.shards; hour++ {
		hours <- hour
	}
	close(hours)
	wg.Wait()

	return results
}

func (c *Client) fetchShard(ctx context.Context, hour int) telemetry.ShardResult {
	u := c.ShardURL(hour)
	res := telemetry.ShardResult{Hour: hour, URL: u}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.newCircuit(hour), buildRequest)
	if err != nil {
		res.Err = fmt.Errorf("%w: %s: %v", telemetry.ErrShardUnavailable, u, err)
		return res
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		res.Err = fmt.Errorf("%w: %s returned status %d", telemetry.ErrShardUnavailable, u, resp.StatusCode)
		return res
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		res.Err = fmt.Errorf("%w: %s: reading body: %v", telemetry.ErrShardUnavailable, u, err)
		return res
	}

	records, err := telemetry.ParseRecords(body)
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", u, err)
		return res
	}

	c.logger.Debug().
		Int("hour", hour).
		Str("size", humanize.Bytes(uint64(len(body)))).
		Int("records", len(records)).
		Msg("shard fetched")

	res.Records = records
	return res
}
