// Package upstream reads the species nutrition dataset over HTTP.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hpungsan/fishfacts/internal/errors"
	"github.com/hpungsan/fishfacts/internal/metrics"
	"github.com/hpungsan/fishfacts/internal/species"
)

const (
	// maxBodyBytes bounds the response body; the full dataset is a few MB.
	maxBodyBytes = 64 << 20

	// DefaultTimeout applies when Options.Timeout is not positive.
	DefaultTimeout = 15 * time.Second
)

// Client fetches the full species record set. It never retries and never
// caches: every call is one GET against the live endpoint.
type Client struct {
	httpClient *http.Client
	url        string
	userAgent  string
	limiter    *rate.Limiter
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// Options configures a Client. Zero values fall back to sane defaults.
type Options struct {
	URL       string
	UserAgent string
	Timeout   time.Duration // <= 0 means DefaultTimeout
	RPS       int
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// NewClient creates a Client.
func NewClient(opts Options) *Client {
	rps := opts.RPS
	if rps <= 0 {
		rps = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "fishfacts"
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		url:       opts.URL,
		userAgent: userAgent,
		limiter:   rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), 1),
		metrics:   opts.Metrics,
		logger:    logger.Named("upstream"),
	}
}

// FetchSpecies issues one GET and decodes the response as a JSON array of
// records. Records are returned exactly as received, invalid ones included.
// Every failure is reported as a FETCH_FAILURE error.
func (c *Client) FetchSpecies(ctx context.Context) ([]species.Record, error) {
	start := time.Now()
	records, err := c.fetch(ctx)
	elapsed := time.Since(start)

	c.metrics.ObserveFetch(elapsed, len(records), err)
	if err != nil {
		c.logger.Warn("species fetch failed",
			zap.String("url", c.url),
			zap.Duration("duration", elapsed),
			zap.Error(err))
		return nil, errors.NewFetchFailure(err)
	}

	c.logger.Debug("species fetched",
		zap.String("url", c.url),
		zap.Int("records", len(records)),
		zap.Duration("duration", elapsed))
	return records, nil
}

func (c *Client) fetch(ctx context.Context) ([]species.Record, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var records []species.Record
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode species: %w", err)
	}
	if records == nil {
		// A literal JSON null is not an array.
		return nil, fmt.Errorf("decode species: response is not a JSON array")
	}
	return records, nil
}
