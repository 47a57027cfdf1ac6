package trigger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// WorkerPath is the route that runs one worker invocation.
const WorkerPath = "/api/v1/worker/download"

// HTTP invokes the worker endpoint of an API server.
type HTTP struct {
	client *resty.Client
}

// NewHTTP creates a trigger posting to baseURL + WorkerPath.
// The request timeout only covers the hand-off: the worker endpoint runs the
// invocation detached from the request, so it keeps running when the timeout
// expires.
func NewHTTP(baseURL string, timeout time.Duration) *HTTP {
	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(baseURL, "/"))
	client.SetHeader("Content-Type", "application/json")
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client.SetTimeout(timeout)
	return &HTTP{client: client}
}

// Fire posts inv to the worker endpoint.
func (h *HTTP) Fire(ctx context.Context, inv Invocation) error {
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(inv).
		Post(WorkerPath)
	if err != nil {
		return fmt.Errorf("worker trigger request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("worker trigger error (%d): %s", resp.StatusCode(), resp.String())
	}
	return nil
}
