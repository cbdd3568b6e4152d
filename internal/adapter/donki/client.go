// Package donki implements the NASA DONKI REST client with bounded retry,
// client-side rate limiting, and an optional response cache.
package donki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/space-weather-analysis/internal/config"
	"github.com/couchcryptid/space-weather-analysis/internal/domain"
	"github.com/couchcryptid/space-weather-analysis/internal/observability"
)

const dateLayout = "2006-01-02"

// Client implements domain.EventFetcher against the DONKI API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries uint64
	baseDelay  time.Duration
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a DONKI client. The API key is held by the client
// instance; nothing is read from ambient process state.
func NewClient(cfg config.DONKIConfig, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		maxRetries: uint64(cfg.MaxRetries),
		baseDelay:  cfg.RetryBaseDelay,
		metrics:    metrics,
		logger:     logger,
	}
}

// FetchCME retrieves raw CME events for the date range.
func (c *Client) FetchCME(ctx context.Context, start, end time.Time) ([]json.RawMessage, error) {
	return c.fetch(ctx, domain.KindCME, start, end)
}

// FetchGST retrieves raw GST events for the date range.
func (c *Client) FetchGST(ctx context.Context, start, end time.Time) ([]json.RawMessage, error) {
	return c.fetch(ctx, domain.KindGST, start, end)
}

// fetch validates the range, then performs the request under the retry
// policy: transient failures (429, 5xx, transport errors) back off
// exponentially up to maxRetries; rejections (4xx) fail immediately.
func (c *Client) fetch(ctx context.Context, kind domain.EventKind, start, end time.Time) ([]json.RawMessage, error) {
	if err := domain.ValidateDateRange(start, end); err != nil {
		return nil, err
	}

	began := time.Now()
	var events []json.RawMessage

	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		result, err := c.doRequest(ctx, kind, start, end)
		if err != nil {
			return err
		}
		events = result
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	notify := func(err error, wait time.Duration) {
		c.metrics.FetchRetries.WithLabelValues(string(kind)).Inc()
		c.logger.Warn("fetch failed, retrying", "kind", kind, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		c.metrics.FetchRequests.WithLabelValues(string(kind), "error").Inc()
		var fe *domain.FetchError
		if errors.As(err, &fe) {
			return nil, fe
		}
		return nil, &domain.FetchError{Kind: kind, Retryable: true, Err: err}
	}

	c.metrics.FetchRequests.WithLabelValues(string(kind), "success").Inc()
	c.metrics.FetchDuration.WithLabelValues(string(kind)).Observe(time.Since(began).Seconds())
	c.logger.Info("fetched events", "kind", kind, "count", len(events),
		"start", start.Format(dateLayout), "end", end.Format(dateLayout))
	return events, nil
}

func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.baseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0 // attempts are bounded by count, not elapsed time
	return b
}

// doRequest performs one HTTP round trip. Errors are wrapped as
// *domain.FetchError; non-retryable ones are marked backoff.Permanent.
func (c *Client) doRequest(ctx context.Context, kind domain.EventKind, start, end time.Time) ([]json.RawMessage, error) {
	params := url.Values{
		"startDate": {start.Format(dateLayout)},
		"endDate":   {end.Format(dateLayout)},
		"api_key":   {c.apiKey},
	}
	fullURL := fmt.Sprintf("%s/%s?%s", c.baseURL, kind, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, backoff.Permanent(&domain.FetchError{Kind: kind, Err: err})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.FetchError{Kind: kind, Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &domain.FetchError{
			Kind:       kind,
			StatusCode: resp.StatusCode,
			Retryable:  true,
			Err:        fmt.Errorf("service error: %s", body),
		}
	default:
		// 401/403 and other 4xx: the request itself is wrong, retrying
		// cannot help.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, backoff.Permanent(&domain.FetchError{
			Kind:       kind,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("request rejected: %s", body),
		})
	}

	var events []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, backoff.Permanent(&domain.FetchError{
			Kind: kind,
			Err:  fmt.Errorf("decode response: %w", err),
		})
	}
	return events, nil
}
