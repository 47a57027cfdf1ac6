package source

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/timmy/reelvault/internal/domain"
)

// Query is one page request against a platform.
type Query struct {
	Keyword string
	Filters Filters
	// Cursor is the opaque token of the page to fetch; empty for the first page.
	Cursor string
}

// Page is one page of normalized results.
type Page struct {
	Media []domain.NormalizedMedia
	// NextCursor is empty when the platform reported no further page.
	NextCursor string
	// Raw is the upstream response body, kept for audit.
	Raw json.RawMessage
}

// Adapter searches one upstream platform.
type Adapter interface {
	// Platform returns the platform this adapter serves.
	Platform() domain.Platform

	// Search fetches one page of results.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - q: keyword, platform filters and optional cursor.
	// Returns:
	//   - *Page: normalized records and the next cursor.
	//   - err: non-nil if the upstream request or decoding fails.
	Search(ctx context.Context, q Query) (*Page, error)
}

// Registry looks adapters up by platform.
type Registry struct {
	adapters map[domain.Platform]Adapter
}

// NewRegistry indexes adapters by their platform; later duplicates win.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[domain.Platform]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Platform()] = a
	}
	return r
}

// Get returns the adapter for p.
func (r *Registry) Get(p domain.Platform) (Adapter, error) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for platform %s", p)
	}
	return a, nil
}
