package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/timmy/reelvault/internal/domain"
	"github.com/timmy/reelvault/internal/logger"
	"github.com/timmy/reelvault/internal/source"
)

// MessageNoMorePages is returned by LoadMore when no platform has a page left.
const MessageNoMorePages = "No additional pages available"

const defaultPlatformTimeout = 30 * time.Second

// SearchServiceConfig holds configuration for the search service.
type SearchServiceConfig struct {
	// PlatformTimeout bounds each adapter call; zero means 30s.
	PlatformTimeout time.Duration
}

// SearchLoader reads stored searches.
type SearchLoader interface {
	GetByID(ctx context.Context, id string) (*domain.SearchQuery, error)
}

// SearchService fans keyword searches out to the platform adapters and
// persists every page through the ingest coordinator.
type SearchService struct {
	adapters    *source.Registry
	coordinator *IngestCoordinator
	searches    SearchLoader
	timeout     time.Duration
}

// NewSearchService creates a new search service.
// Parameters:
//   - adapters: platform adapters keyed by platform.
//   - coordinator: persists pages and queues downloads.
//   - searches: stored search lookup used by LoadMore.
//   - cfg: optional settings; nil uses defaults.
//
// Returns:
//   - *SearchService: initialized search service.
func NewSearchService(adapters *source.Registry, coordinator *IngestCoordinator, searches SearchLoader, cfg *SearchServiceConfig) *SearchService {
	timeout := defaultPlatformTimeout
	if cfg != nil && cfg.PlatformTimeout > 0 {
		timeout = cfg.PlatformTimeout
	}
	return &SearchService{
		adapters:    adapters,
		coordinator: coordinator,
		searches:    searches,
		timeout:     timeout,
	}
}

// PlatformSelection picks the platforms to query. A nil field means "not set".
type PlatformSelection struct {
	TikTok    *bool `json:"tiktok,omitempty"`
	YouTube   *bool `json:"youtube,omitempty"`
	Instagram *bool `json:"instagram,omitempty"`
}

func (s *PlatformSelection) get(p domain.Platform) *bool {
	if s == nil {
		return nil
	}
	switch p {
	case domain.PlatformTikTok:
		return s.TikTok
	case domain.PlatformYouTube:
		return s.YouTube
	case domain.PlatformInstagram:
		return s.Instagram
	}
	return nil
}

// SearchRequest represents a keyword search request.
type SearchRequest struct {
	Keyword   string             `json:"keyword"`
	Platforms *PlatformSelection `json:"platforms,omitempty"`
	source.Filters
	RequestedBy string `json:"-"`
}

// Validate trims the keyword and checks the filters.
func (r *SearchRequest) Validate() error {
	r.Keyword = strings.TrimSpace(r.Keyword)
	if r.Keyword == "" {
		return fmt.Errorf("%w: keyword is required", domain.ErrValidation)
	}
	return r.Filters.Validate()
}

// storedRequest is the part of a SearchRequest kept on the search row.
type storedRequest struct {
	Platforms *PlatformSelection `json:"platforms,omitempty"`
	source.Filters
}

// SearchMedia is one result record with the id it was stored under.
type SearchMedia struct {
	ID string `json:"id,omitempty"`
	domain.NormalizedMedia
}

// SearchResponse represents the search response.
type SearchResponse struct {
	SearchID       string                   `json:"search_id"`
	Keyword        string                   `json:"keyword"`
	Message        string                   `json:"message,omitempty"`
	PlatformStatus domain.PlatformStatusMap `json:"platform_status"`
	Media          []SearchMedia            `json:"media"`
	QueuedJobs     int                      `json:"queued_jobs"`
}

// platformCall is one adapter request planned by a fan-out.
type platformCall struct {
	platform domain.Platform
	cursor   string
}

// platformResult is the outcome of one platformCall.
type platformResult struct {
	platform domain.Platform
	page     *source.Page
	err      error
}

// Search runs the first page of a keyword search.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - req: keyword, platform selection and filters.
//
// Returns:
//   - *SearchResponse: merged results; SearchID is empty when the page could not be stored.
//   - error: wraps domain.ErrValidation for bad input.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	selected := make(map[domain.Platform]bool, len(domain.AllPlatforms))
	for _, p := range domain.AllPlatforms {
		selected[p] = boolOr(req.Platforms.get(p), p == domain.PlatformTikTok)
	}
	if !selected[domain.PlatformTikTok] && !selected[domain.PlatformYouTube] && !selected[domain.PlatformInstagram] {
		selected[domain.PlatformTikTok] = true
	}

	status := make(domain.PlatformStatusMap, len(domain.AllPlatforms))
	var calls []platformCall
	for _, p := range domain.AllPlatforms {
		if selected[p] {
			calls = append(calls, platformCall{platform: p})
			continue
		}
		status[p] = domain.PlatformStatus{Status: domain.PlatformSkipped}
	}

	batch := s.fanOut(ctx, req.Keyword, req.Filters, calls, status)
	resp := &SearchResponse{
		Keyword:        req.Keyword,
		PlatformStatus: batch.PlatformStatus,
		Media:          toSearchMedia(batch.Media, nil),
	}

	result, err := s.coordinator.Initiate(ctx, InitiateInput{
		Keyword:     req.Keyword,
		Filters:     storedRequest{Platforms: req.Platforms, Filters: req.Filters},
		RequestedBy: req.RequestedBy,
		PageBatch:   *batch,
	})
	if err != nil {
		logger.CtxError(ctx, "Failed to persist search %q: %v", req.Keyword, err)
		return resp, nil
	}

	resp.SearchID = result.SearchID
	resp.Media = toSearchMedia(batch.Media, result.MediaIDs())
	resp.QueuedJobs = result.QueuedJobs
	return resp, nil
}

// LoadMore fetches the next page of a stored search.
// Platforms are re-queried only when selected, holding a stored cursor and not
// already exhausted. selection overrides the stored selection per platform.
// Returns domain.ErrNotFound when the search does not exist.
func (s *SearchService) LoadMore(ctx context.Context, searchID string, selection *PlatformSelection) (*SearchResponse, error) {
	search, err := s.searches.GetByID(ctx, searchID)
	if err != nil {
		return nil, err
	}
	ctx = logger.SetSearchID(ctx, search.ID)

	var stored storedRequest
	if len(search.Filters) > 0 {
		if err := json.Unmarshal(search.Filters, &stored); err != nil {
			logger.CtxWarn(ctx, "Stored filters unreadable, continuing without them: %v", err)
			stored = storedRequest{}
		}
	}

	status := make(domain.PlatformStatusMap, len(domain.AllPlatforms))
	var calls []platformCall
	for _, p := range domain.AllPlatforms {
		exhausted := search.PlatformStatus[p].Status == domain.PlatformExhausted
		want := selection.get(p)
		if want == nil {
			want = stored.Platforms.get(p)
		}
		if !boolOr(want, true) {
			if exhausted {
				status[p] = domain.PlatformStatus{Status: domain.PlatformExhausted}
			} else {
				status[p] = domain.PlatformStatus{Status: domain.PlatformSkipped}
			}
			continue
		}
		cursor, ok := search.CursorState.Cursor(p)
		if !ok || exhausted {
			status[p] = domain.PlatformStatus{Status: domain.PlatformExhausted}
			continue
		}
		calls = append(calls, platformCall{platform: p, cursor: cursor})
	}

	if len(calls) == 0 {
		return &SearchResponse{
			SearchID:       search.ID,
			Keyword:        search.Keyword,
			Message:        MessageNoMorePages,
			PlatformStatus: status,
			Media:          []SearchMedia{},
		}, nil
	}

	batch := s.fanOut(ctx, search.Keyword, stored.Filters, calls, status)
	result, err := s.coordinator.Continue(ctx, ContinueInput{SearchID: search.ID, PageBatch: *batch})
	if err != nil {
		return nil, fmt.Errorf("failed to persist page for search %s: %w", search.ID, err)
	}

	return &SearchResponse{
		SearchID:       search.ID,
		Keyword:        search.Keyword,
		PlatformStatus: batch.PlatformStatus,
		Media:          toSearchMedia(batch.Media, result.MediaIDs()),
		QueuedJobs:     result.QueuedJobs,
	}, nil
}

// fanOut queries every planned platform concurrently and merges the pages in
// platform display order. status already holds the entries of platforms not called.
func (s *SearchService) fanOut(ctx context.Context, keyword string, filters source.Filters, calls []platformCall, status domain.PlatformStatusMap) *PageBatch {
	start := time.Now()
	results := make([]platformResult, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call platformCall) {
			defer wg.Done()
			page, err := s.query(ctx, call, source.Query{Keyword: keyword, Filters: filters, Cursor: call.cursor})
			results[i] = platformResult{platform: call.platform, page: page, err: err}
		}(i, call)
	}
	wg.Wait()

	batch := &PageBatch{
		PlatformStatus: status,
		Cursors:        make(domain.CursorState, len(calls)),
		Payloads:       make(map[domain.Platform]json.RawMessage, len(calls)),
		Media:          []domain.NormalizedMedia{},
	}
	for _, res := range results {
		if res.err != nil {
			logger.With(logger.Fields{logger.FieldPlatform: res.platform}).
				Warn(ctx, "Platform search failed: %v", res.err)
			batch.PlatformStatus[res.platform] = domain.PlatformStatus{Status: domain.PlatformRejected, Error: res.err.Error()}
			continue
		}
		state := domain.PlatformFulfilled
		if res.page.NextCursor == "" {
			state = domain.PlatformExhausted
		}
		batch.PlatformStatus[res.platform] = domain.PlatformStatus{Status: state}
		batch.Cursors[res.platform] = domain.StringCursor(res.page.NextCursor)
		if len(res.page.Raw) > 0 {
			batch.Payloads[res.platform] = res.page.Raw
		}
		batch.Media = append(batch.Media, res.page.Media...)
	}
	batch.Duration = time.Since(start)

	logger.With(logger.Fields{
		logger.FieldCount:      len(batch.Media),
		logger.FieldDurationMs: batch.Duration.Milliseconds(),
	}).Info(ctx, "Queried %d platforms for %q", len(calls), keyword)
	return batch
}

func (s *SearchService) query(ctx context.Context, call platformCall, q source.Query) (*source.Page, error) {
	adapter, err := s.adapters.Get(call.platform)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	page, err := adapter.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	if page == nil {
		page = &source.Page{}
	}
	return page, nil
}

func toSearchMedia(media []domain.NormalizedMedia, ids []string) []SearchMedia {
	out := make([]SearchMedia, len(media))
	for i, m := range media {
		out[i] = SearchMedia{NormalizedMedia: m}
		if i < len(ids) {
			out[i].ID = ids[i]
		}
	}
	return out
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
