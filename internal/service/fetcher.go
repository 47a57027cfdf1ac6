package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/reelvault/internal/domain"
)

// Fetcher downloads a remote file into memory.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchedFile, error)
}

// FetchedFile is a downloaded body and the content type the server declared.
type FetchedFile struct {
	Data        []byte
	ContentType string
}

// HTTPFetcher downloads media over HTTP(S).
type HTTPFetcher struct {
	client *resty.Client
}

// NewHTTPFetcher creates a fetcher whose requests are bounded by timeout.
// Parameters:
//   - timeout: per-request deadline; zero uses two minutes.
//
// Returns:
//   - *HTTPFetcher: ready to use.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	client := resty.New()
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	client.SetTimeout(timeout)
	// Platform CDNs reject requests without a browser-like agent.
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; reelvault/1.0)")
	return &HTTPFetcher{client: client}
}

// Fetch downloads url. A non-2xx answer yields a *domain.DownloadError; transport
// failures are wrapped with domain.ErrUpstreamFetch.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*FetchedFile, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrUpstreamFetch, url, err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &domain.DownloadError{URL: url, StatusCode: resp.StatusCode()}
	}
	return &FetchedFile{
		Data:        resp.Body(),
		ContentType: resp.Header().Get("Content-Type"),
	}, nil
}
