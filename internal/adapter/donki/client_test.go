package donki

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/space-weather-analysis/internal/config"
	"github.com/couchcryptid/space-weather-analysis/internal/domain"
	"github.com/couchcryptid/space-weather-analysis/internal/observability"
)

const testAPIKey = "test-key"

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func testClient(baseURL string) *Client {
	return NewClient(config.DONKIConfig{
		APIKey:         testAPIKey,
		BaseURL:        baseURL,
		RequestTimeout: 5 * time.Second,
		MaxRetries:     2,
		RetryBaseDelay: time.Millisecond,
		RatePerSecond:  1000,
		RateBurst:      1000,
	}, testMetrics(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testRange() (time.Time, time.Time) {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
}

func TestClient_FetchCME_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/CME", r.URL.Path)
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("startDate"))
		assert.Equal(t, "2024-01-31", r.URL.Query().Get("endDate"))
		assert.Equal(t, testAPIKey, r.URL.Query().Get("api_key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"activityID":"2024-01-01T02:00:00-CME-001","startTime":"2024-01-01T02:00Z"}]`))
	}))
	defer srv.Close()

	start, end := testRange()
	events, err := testClient(srv.URL).FetchCME(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Contains(t, string(events[0]), "2024-01-01T02:00:00-CME-001")
}

func TestClient_FetchGST_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/GST", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	start, end := testRange()
	events, err := testClient(srv.URL).FetchGST(context.Background(), start, end)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestClient_Fetch_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	start, end := testRange()
	_, err := testClient(srv.URL).FetchCME(context.Background(), start, end)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_Fetch_RetryExhaustion(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	start, end := testRange()
	_, err := testClient(srv.URL).FetchCME(context.Background(), start, end)
	require.Error(t, err)

	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusTooManyRequests, fetchErr.StatusCode)
	assert.True(t, fetchErr.Retryable)
	// initial attempt plus MaxRetries
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Fetch_RejectionNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer srv.Close()

	start, end := testRange()
	_, err := testClient(srv.URL).FetchCME(context.Background(), start, end)
	require.Error(t, err)

	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusForbidden, fetchErr.StatusCode)
	assert.False(t, fetchErr.Retryable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Fetch_MalformedBodyNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	}))
	defer srv.Close()

	start, end := testRange()
	_, err := testClient(srv.URL).FetchCME(context.Background(), start, end)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Fetch_InvalidRangeBeforeNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("no request should be made for an invalid range")
	}))
	defer srv.Close()

	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := testClient(srv.URL).FetchCME(context.Background(), start, end)
	var dateErr *domain.DateRangeError
	require.ErrorAs(t, err, &dateErr)
}
