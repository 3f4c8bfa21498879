package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/balloon-tracker/internal/telemetry"
)

func newTestClient(baseURL string, workers, retries int) *Client {
	return NewClient(ClientConfig{
		BaseURL: baseURL,
		Workers: workers,
		HTTP: HTTPClientConfig{
			Client: &http.Client{Timeout: 2 * time.Second},
			Backoff: BackoffConfig{
				MaxRetries:      retries,
				InitialInterval: time.Millisecond,
				MaxInterval:     5 * time.Millisecond,
			},
		},
		Logger: zerolog.Nop(),
	})
}

// treasureServer serves /NN.json with a well-formed two-record shard unless
// overridden.
func treasureServer(t *testing.T, overrides map[string]http.HandlerFunc) (*httptest.Server, *sync.Map) {
	t.Helper()
	hits := &sync.Map{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, _ := hits.LoadOrStore(r.URL.Path, new(atomic.Int32))
		n.(*atomic.Int32).Add(1)

		if h, ok := overrides[r.URL.Path]; ok {
			h(w, r)
			return
		}
		hour, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), ".json"))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `[[%d.5, 10, 1000], [%d.5, 20, NaN]]`, hour, hour)
	}))
	t.Cleanup(srv.Close)
	return srv, hits
}

func hitCount(hits *sync.Map, path string) int32 {
	n, ok := hits.Load(path)
	if !ok {
		return 0
	}
	return n.(*atomic.Int32).Load()
}

func TestShardURL(t *testing.T) {
	c := newTestClient("https://example.com/treasure/", 1, 0)
	assert.Equal(t, "https://example.com/treasure/00.json", c.ShardURL(0))
	assert.Equal(t, "https://example.com/treasure/07.json", c.ShardURL(7))
	assert.Equal(t, "https://example.com/treasure/23.json", c.ShardURL(23))
}

func TestFetchShardsAllHealthy(t *testing.T) {
	srv, hits := treasureServer(t, nil)

	results := newTestClient(srv.URL, 1, 0).FetchShards(context.Background())

	require.Len(t, results, 24)
	for h, res := range results {
		require.NoError(t, res.Err, "hour %d", h)
		assert.Equal(t, h, res.Hour)
		assert.Len(t, res.Records, 2)
		assert.Equal(t, int32(1), hitCount(hits, fmt.Sprintf("/%02d.json", h)))
	}

	points, diags := telemetry.NormalizeRecords(5, results[5].Records)
	assert.Empty(t, diags)
	require.Len(t, points, 2)
	assert.Equal(t, 5.5, points[0].Latitude)
	assert.Equal(t, 0.0, points[1].Altitude)
}

func TestFetchShardsDegradesPerShard(t *testing.T) {
	srv, hits := treasureServer(t, map[string]http.HandlerFunc{
		"/03.json": func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		},
		"/04.json": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"error": "not a list"}`)
		},
		"/05.json": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[[1, 2, 3], [4, 5`)
		},
	})

	results := newTestClient(srv.URL, 1, 3).FetchShards(context.Background())

	require.Len(t, results, 24)
	assert.ErrorIs(t, results[3].Err, telemetry.ErrShardUnavailable)
	assert.Contains(t, results[3].Err.Error(), "404")
	assert.Empty(t, results[3].Records)
	assert.Equal(t, int32(1), hitCount(hits, "/03.json"), "4xx must not be retried")

	assert.ErrorIs(t, results[4].Err, telemetry.ErrShape)
	assert.ErrorIs(t, results[5].Err, telemetry.ErrDecode)

	ok := 0
	for _, res := range results {
		if res.Err == nil {
			ok++
		}
	}
	assert.Equal(t, 21, ok)
}

func TestFetchShardsRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv, _ := treasureServer(t, map[string]http.HandlerFunc{
		"/00.json": func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			fmt.Fprint(w, `[[1, 2, 3]]`)
		},
	})

	results := newTestClient(srv.URL, 1, 3).FetchShards(context.Background())

	require.NoError(t, results[0].Err)
	assert.Len(t, results[0].Records, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchShardsWithoutRetriesReportsServerError(t *testing.T) {
	srv, hits := treasureServer(t, map[string]http.HandlerFunc{
		"/10.json": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
	})

	results := newTestClient(srv.URL, 1, 0).FetchShards(context.Background())

	assert.ErrorIs(t, results[10].Err, telemetry.ErrShardUnavailable)
	assert.Equal(t, int32(1), hitCount(hits, "/10.json"))
	assert.NoError(t, results[11].Err)
}

func TestFetchShardsConcurrentKeepsOrder(t *testing.T) {
	srv, _ := treasureServer(t, map[string]http.HandlerFunc{
		"/00.json": func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(50 * time.Millisecond)
			fmt.Fprint(w, `[[0.5, 1, 1]]`)
		},
	})

	results := newTestClient(srv.URL, 6, 0).FetchShards(context.Background())

	require.Len(t, results, 24)
	for h, res := range results {
		require.NoError(t, res.Err)
		assert.Equal(t, h, res.Hour)
		assert.Equal(t, fmt.Sprintf("%s/%02d.json", srv.URL, h), res.URL)
	}
	assert.Len(t, results[0].Records, 1)
}

func TestFetchShardsNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	results := newTestClient(url, 2, 0).FetchShards(context.Background())

	require.Len(t, results, 24)
	for _, res := range results {
		assert.ErrorIs(t, res.Err, telemetry.ErrShardUnavailable)
	}
}

func TestFetchShardsFailuresDoNotShortCircuitOtherShards(t *testing.T) {
	healthy := atomic.Bool{}
	failing := func(w http.ResponseWriter, r *http.Request) {
		if healthy.Load() {
			fmt.Fprint(w, `[[1, 2, 3]]`)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}
	overrides := map[string]http.HandlerFunc{}
	for h := 0; h < 6; h++ {
		overrides[fmt.Sprintf("/%02d.json", h)] = failing
	}
	srv, hits := treasureServer(t, overrides)
	client := newTestClient(srv.URL, 1, 0)

	results := client.FetchShards(context.Background())

	require.Len(t, results, 24)
	for h := 0; h < 6; h++ {
		assert.ErrorIs(t, results[h].Err, telemetry.ErrShardUnavailable)
	}
	for h := 6; h < 24; h++ {
		require.NoError(t, results[h].Err, "hour %d", h)
		assert.Equal(t, int32(1), hitCount(hits, fmt.Sprintf("/%02d.json", h)))
	}

	healthy.Store(true)
	for h, res := range client.FetchShards(context.Background()) {
		assert.NoError(t, res.Err, "hour %d", h)
	}
}

func TestFetchShardsCircuitStopsRetryingOneShard(t *testing.T) {
	srv, hits := treasureServer(t, map[string]http.HandlerFunc{
		"/02.json": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		},
	})

	results := newTestClient(srv.URL, 1, 9).FetchShards(context.Background())

	assert.ErrorIs(t, results[2].Err, telemetry.ErrShardUnavailable)
	assert.Contains(t, results[2].Err.Error(), "circuit breaker open")
	assert.Equal(t, int32(circuitTripFailures+1), hitCount(hits, "/02.json"))
	assert.NoError(t, results[1].Err)
	assert.NoError(t, results[3].Err)
}
