// Package esi is the market-data adapter for the EVE Swagger Interface. It
// implements ports.HistoryProvider and ports.BookProvider.
package esi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL    = "https://esi.evetech.net/latest"
	defaultDatasource = "tranquility"
	defaultUserAgent  = "flipscan/1.0"

	// ESI error budget is 100 errors per minute; stay well under the
	// undocumented request ceiling too.
	defaultRatePerSec = 20
	defaultBurst      = 10

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Options configure a Client. Zero values fall back to production defaults.
type Options struct {
	BaseURL    string
	Datasource string
	UserAgent  string
	RatePerSec float64
	Timeout    time.Duration
	// RetryWait is the first backoff step; it doubles on every retry.
	RetryWait time.Duration
}

// Client is the ESI HTTP client with rate limiting and retries.
type Client struct {
	http       *http.Client
	baseURL    string
	datasource string
	userAgent  string
	retryWait  time.Duration
	limiter    *rate.Limiter
}

// NewClient builds a Client from opts.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Datasource == "" {
		opts.Datasource = defaultDatasource
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = defaultRatePerSec
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = baseRetryWait
	}
	return &Client{
		http:       &http.Client{Timeout: opts.Timeout},
		baseURL:    opts.BaseURL,
		datasource: opts.Datasource,
		userAgent:  opts.UserAgent,
		retryWait:  opts.RetryWait,
		limiter:    rate.NewLimiter(rate.Limit(opts.RatePerSec), defaultBurst),
	}
}

// get does a rate-limited GET with retries, decodes the JSON body into out and
// returns the response headers.
func (c *Client) get(ctx context.Context, url string, out any) (http.Header, error) {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt == maxRetries || ctx.Err() != nil {
				return nil, fmt.Errorf("request failed after %d retries: %w", attempt, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		// 420 is ESI's "error limited" status.
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == 420 {
			resp.Body.Close()
			slog.Warn("rate limited by ESI", "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return nil, fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return resp.Header, nil
	}
	return nil, fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep waits with exponential backoff, honouring ctx.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.retryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}

// pages reads the X-Pages header. A missing or malformed header means one page.
func pages(h http.Header) int {
	n, err := strconv.Atoi(h.Get("X-Pages"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
