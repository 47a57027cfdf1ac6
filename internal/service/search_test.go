package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/timmy/reelvault/internal/domain"
	"github.com/timmy/reelvault/internal/source"
)

type fakeAdapter struct {
	platform domain.Platform
	pages    map[string]*source.Page // by cursor
	err      error

	mu      sync.Mutex
	queries []source.Query
}

func (f *fakeAdapter) Platform() domain.Platform { return f.platform }

func (f *fakeAdapter) Search(ctx context.Context, q source.Query) (*source.Page, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	page, ok := f.pages[q.Cursor]
	if !ok {
		return &source.Page{}, nil
	}
	return page, nil
}

func (f *fakeAdapter) calls() []source.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]source.Query(nil), f.queries...)
}

func mediaPage(platform domain.Platform, next string, ids ...string) *source.Page {
	page := &source.Page{NextCursor: next, Raw: json.RawMessage(`{"ok":true}`)}
	for _, id := range ids {
		page.Media = append(page.Media, record(platform, id, "", ""))
	}
	return page
}

func boolPtr(v bool) *bool { return &v }

func newSearchService(t *testing.T, p *pipeline, adapters ...source.Adapter) *SearchService {
	t.Helper()
	return NewSearchService(source.NewRegistry(adapters...), p.coordinator, p.store.Searches, nil)
}

func TestSearchDefaultsToTikTok(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	tiktok := &fakeAdapter{platform: domain.PlatformTikTok, pages: map[string]*source.Page{
		"": mediaPage(domain.PlatformTikTok, "t2", "a", "b"),
	}}
	youtube := &fakeAdapter{platform: domain.PlatformYouTube}
	svc := newSearchService(t, p, tiktok, youtube)

	resp, err := svc.Search(ctx, SearchRequest{Keyword: "  cats "})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if resp.SearchID == "" {
		t.Fatal("SearchID is empty")
	}
	if resp.Keyword != "cats" {
		t.Errorf("Keyword = %q, want trimmed", resp.Keyword)
	}
	if len(resp.Media) != 2 {
		t.Errorf("media = %d, want 2", len(resp.Media))
	}
	want := map[domain.Platform]domain.PlatformState{
		domain.PlatformTikTok:    domain.PlatformFulfilled,
		domain.PlatformYouTube:   domain.PlatformSkipped,
		domain.PlatformInstagram: domain.PlatformSkipped,
	}
	for platform, state := range want {
		if got := resp.PlatformStatus[platform].Status; got != state {
			t.Errorf("%s status = %s, want %s", platform, got, state)
		}
	}
	if len(youtube.calls()) != 0 {
		t.Error("youtube queried without being selected")
	}

	search, err := p.store.Searches.GetByID(ctx, resp.SearchID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if c, _ := search.CursorState.Cursor(domain.PlatformTikTok); c != "t2" {
		t.Errorf("stored cursor = %q, want t2", c)
	}
}

func TestSearchAllDeselectedFallsBackToTikTok(t *testing.T) {
	p := newPipeline(t)
	tiktok := &fakeAdapter{platform: domain.PlatformTikTok}
	svc := newSearchService(t, p, tiktok)

	_, err := svc.Search(context.Background(), SearchRequest{
		Keyword:   "x",
		Platforms: &PlatformSelection{TikTok: boolPtr(false)},
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(tiktok.calls()) != 1 {
		t.Errorf("tiktok calls = %d, want 1", len(tiktok.calls()))
	}
}

func TestSearchRecordsPlatformOutcomes(t *testing.T) {
	p := newPipeline(t)
	tiktok := &fakeAdapter{platform: domain.PlatformTikTok, err: errors.New("quota exceeded")}
	youtube := &fakeAdapter{platform: domain.PlatformYouTube, pages: map[string]*source.Page{
		"": mediaPage(domain.PlatformYouTube, "", "y1"),
	}}
	svc := newSearchService(t, p, tiktok, youtube)

	resp, err := svc.Search(context.Background(), SearchRequest{
		Keyword:   "x",
		Platforms: &PlatformSelection{YouTube: boolPtr(true)},
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	tt := resp.PlatformStatus[domain.PlatformTikTok]
	if tt.Status != domain.PlatformRejected || tt.Error != "quota exceeded" {
		t.Errorf("tiktok status = %+v", tt)
	}
	if got := resp.PlatformStatus[domain.PlatformYouTube].Status; got != domain.PlatformExhausted {
		t.Errorf("youtube status = %s, want exhausted", got)
	}
	if len(resp.Media) != 1 {
		t.Errorf("media = %d, want 1", len(resp.Media))
	}
}

func TestSearchRejectsInvalidInput(t *testing.T) {
	p := newPipeline(t)
	svc := newSearchService(t, p)

	tests := []struct {
		name string
		req  SearchRequest
	}{
		{name: "empty keyword", req: SearchRequest{Keyword: "   "}},
		{name: "bad tiktok sort", req: SearchRequest{Keyword: "x", Filters: source.Filters{
			TikTok: &source.TikTokFilters{SortBy: "random"},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Search(context.Background(), tt.req); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestLoadMoreUsesStoredCursor(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	tiktok := &fakeAdapter{platform: domain.PlatformTikTok, pages: map[string]*source.Page{
		"":   mediaPage(domain.PlatformTikTok, "t2", "a", "b", "c"),
		"t2": mediaPage(domain.PlatformTikTok, "", "d", "e", "f"),
	}}
	svc := newSearchService(t, p, tiktok)

	first, err := svc.Search(ctx, SearchRequest{
		Keyword: "cats",
		Filters: source.Filters{TikTok: &source.TikTokFilters{SortBy: "most-liked"}},
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	more, err := svc.LoadMore(ctx, first.SearchID, nil)
	if err != nil {
		t.Fatalf("LoadMore() error = %v", err)
	}
	if len(more.Media) != 3 {
		t.Errorf("media = %d, want 3", len(more.Media))
	}
	calls := tiktok.calls()
	last := calls[len(calls)-1]
	if last.Cursor != "t2" || last.Keyword != "cats" {
		t.Errorf("query = %+v", last)
	}
	if last.Filters.TikTok == nil || last.Filters.TikTok.SortBy != "most-liked" {
		t.Errorf("stored filters not reused: %+v", last.Filters.TikTok)
	}
	// YouTube has no stored cursor, so it is reported exhausted.
	if got := more.PlatformStatus[domain.PlatformYouTube].Status; got != domain.PlatformExhausted {
		t.Errorf("youtube status = %s, want exhausted (no cursor)", got)
	}

	search, err := p.store.Searches.GetByID(ctx, first.SearchID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if search.ResultCounts[domain.PlatformTikTok] != 6 {
		t.Errorf("count = %d, want 6", search.ResultCounts[domain.PlatformTikTok])
	}

	// TikTok reported no further cursor: nothing left to page.
	done, err := svc.LoadMore(ctx, first.SearchID, nil)
	if err != nil {
		t.Fatalf("LoadMore() error = %v", err)
	}
	if done.Message != MessageNoMorePages || len(done.Media) != 0 {
		t.Errorf("response = %+v", done)
	}
	if n := len(tiktok.calls()); n != 2 {
		t.Errorf("tiktok calls = %d, want 2", n)
	}
}

func TestLoadMoreUnknownSearch(t *testing.T) {
	p := newPipeline(t)
	svc := newSearchService(t, p)
	if _, err := svc.LoadMore(context.Background(), "nope", nil); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
