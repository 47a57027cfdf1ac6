// Package scrapecreators adapts the Scrape Creators search API to source.Adapter.
package scrapecreators

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/reelvault/internal/config"
	"github.com/timmy/reelvault/internal/logger"
	"github.com/timmy/reelvault/internal/source"
)

const maxErrorBody = 300

// Client calls the Scrape Creators REST API.
type Client struct {
	client *resty.Client
}

// NewClient creates a client authenticated with cfg.APIKey.
func NewClient(cfg *config.ScrapeCreatorsConfig) *Client {
	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/"))
	client.SetHeader("x-api-key", cfg.APIKey)
	client.SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	} else {
		client.SetTimeout(30 * time.Second)
	}
	return &Client{client: client}
}

// get issues GET path with params, dropping empty values, and returns the raw body.
func (c *Client) get(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	query := make(map[string]string, len(params))
	for k, v := range params {
		if v != "" {
			query[k] = v
		}
	}

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("scrape creators request %s failed: %w", path, err)
	}

	logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		logger.FieldStatus:     resp.StatusCode(),
	}).Debug(ctx, "Scrape Creators %s", path)

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		body := string(resp.Body())
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, fmt.Errorf("scrape creators error (%d): %s", resp.StatusCode(), body)
	}
	return resp.Body(), nil
}

// Adapters returns the TikTok, YouTube and Instagram adapters sharing c.
func (c *Client) Adapters() []source.Adapter {
	return []source.Adapter{
		&TikTokAdapter{client: c},
		&YouTubeAdapter{client: c},
		&InstagramAdapter{client: c},
	}
}
