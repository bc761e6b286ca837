// Package scrapingdog implements the ScrapingDog YouTube Channel API
// client. It fetches channel statistics and recent uploads for the
// competitor watchlist, normalizing the loosely typed payloads into
// clean structs.
package scrapingdog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/uclone1/yt-competitor-monitor/internal/config"
)

// ErrAPIStatus indicates a non-200 response from the API.
var ErrAPIStatus = errors.New("unexpected API status")

// Client calls the ScrapingDog YouTube Channel API with retries and
// request pacing.
type Client struct {
	cfg        config.ScraperConfig
	httpClient *http.Client
	log        *slog.Logger

	// sleep is swappable so tests run without real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client using the given scraper settings.
func NewClient(cfg config.ScraperConfig, log *slog.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log.With("component", "scrapingdog_client"),
		sleep:      sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FetchChannel retrieves and parses one channel, retrying failed attempts
// with exponential backoff (the configured backoff doubles before each
// retry).
func (c *Client) FetchChannel(ctx context.Context, handle string) (*Channel, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			wait := c.cfg.RetryBackoff * time.Duration(1<<(attempt-2))
			c.log.WarnContext(ctx, "Retrying channel fetch",
				"handle", handle, "attempt", attempt, "max_retries", c.cfg.MaxRetries, "wait", wait)
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		c.log.InfoContext(ctx, "Fetching channel data", "handle", handle, "attempt", attempt)
		ch, err := c.fetchOnce(ctx, handle)
		if err == nil {
			c.log.InfoContext(ctx, "Parsed channel",
				"name", ch.Name, "videos", len(ch.Videos), "subscribers", ch.Subscribers)
			return ch, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}

		lastErr = err
		c.log.WarnContext(ctx, "Channel fetch attempt failed", "handle", handle, "error", err)
	}

	return nil, fmt.Errorf("all %d attempts failed for %s: %w", c.cfg.MaxRetries, handle, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, handle string) (*Channel, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/channel/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	q := req.URL.Query()
	q.Set("api_key", c.cfg.APIKey)
	q.Set("channel_id", handle)
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrAPIStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var data channelResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return parseChannelResponse(&data, handle), nil
}

// FetchAll walks the watchlist sequentially with the configured delay
// between requests. Channels that fail after all retries are skipped with
// a warning; the returned slice holds whatever subset succeeded. A non-nil
// error is returned only when the context is cancelled mid-pass.
func (c *Client) FetchAll(ctx context.Context, handles []string) ([]*Channel, error) {
	results := make([]*Channel, 0, len(handles))
	for i, handle := range handles {
		ch, err := c.FetchChannel(ctx, handle)
		switch {
		case err != nil && ctx.Err() != nil:
			return results, err
		case err != nil:
			c.log.WarnContext(ctx, "Skipping channel after failed fetch", "handle", handle, "error", err)
		default:
			results = append(results, ch)
		}

		if i < len(handles)-1 {
			if err := c.sleep(ctx, c.cfg.RequestDelay); err != nil {
				return results, err
			}
		}
	}

	c.log.InfoContext(ctx, "Channel fetch pass complete", "fetched", len(results), "requested", len(handles))
	return results, nil
}
