package service

import (
	"context"
	"fmt"
	"time"

	"github.com/timmy/reelvault/internal/domain"
	"github.com/timmy/reelvault/internal/repository"
	"github.com/timmy/reelvault/internal/storage"
)

// HistoryFilter narrows a search history listing.
type HistoryFilter struct {
	Keyword  string
	Platform string
	From     *time.Time
	To       *time.Time
	Limit    int
}

// SearchDetail is a stored search with every media item it last observed.
type SearchDetail struct {
	Search *domain.SearchQuery `json:"search"`
	Media  []MediaView         `json:"media"`
}

// MediaView is a media item with the URLs of its stored copy, if any.
type MediaView struct {
	domain.MediaItem
	// ThumbnailURL prefers the stored thumbnail over the platform's.
	ThumbnailURL string `json:"thumbnail_url"`
	VideoURL     string `json:"video_url,omitempty"`
	Downloaded   bool   `json:"downloaded"`
}

// AssetLinks are the public URLs of a media item's stored files.
type AssetLinks struct {
	MediaItemID  string `json:"media_item_id"`
	VideoURL     string `json:"video_url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	SizeBytes    int64  `json:"size_bytes"`
	Checksum     string `json:"checksum"`
}

// HistoryService reads past searches and their stored assets.
type HistoryService struct {
	store        *repository.Store
	storage      storage.ObjectStorage
	defaultLimit int
}

// NewHistoryService creates a history reader. defaultLimit applies when a
// listing does not set one; zero means 25.
func NewHistoryService(store *repository.Store, objectStorage storage.ObjectStorage, defaultLimit int) *HistoryService {
	if defaultLimit <= 0 {
		defaultLimit = 25
	}
	return &HistoryService{store: store, storage: objectStorage, defaultLimit: defaultLimit}
}

// ListSearches returns searches newest first. An unknown platform is rejected.
func (s *HistoryService) ListSearches(ctx context.Context, f HistoryFilter) ([]domain.SearchQuery, error) {
	filter := repository.SearchFilter{
		Keyword: f.Keyword,
		From:    f.From,
		To:      f.To,
		Limit:   f.Limit,
	}
	if filter.Limit <= 0 {
		filter.Limit = s.defaultLimit
	}
	if f.Platform != "" {
		p, ok := domain.ParsePlatform(f.Platform)
		if !ok {
			return nil, fmt.Errorf("%w: unknown platform %q", domain.ErrValidation, f.Platform)
		}
		filter.Platform = p
	}

	searches, err := s.store.Searches.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list searches: %w", err)
	}
	return searches, nil
}

// GetSearch returns a search and its media in the order they were first stored.
// Returns domain.ErrNotFound for an unknown search.
func (s *HistoryService) GetSearch(ctx context.Context, id string) (*SearchDetail, error) {
	search, err := s.store.Searches.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	items, err := s.store.Media.ListBySearch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	assets, err := s.store.Assets.ListByMediaItemIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}

	views := make([]MediaView, len(items))
	for i, item := range items {
		view := MediaView{MediaItem: item, ThumbnailURL: item.ThumbnailURL}
		if asset, ok := assets[item.ID]; ok {
			view.Downloaded = true
			view.VideoURL = s.storage.GetURL(asset.VideoPath)
			if asset.ThumbnailPath != nil {
				view.ThumbnailURL = s.storage.GetURL(*asset.ThumbnailPath)
			}
		}
		views[i] = view
	}
	return &SearchDetail{Search: search, Media: views}, nil
}

// GetAsset returns the stored file URLs of a media item.
// Returns domain.ErrNotFound when the item has no asset.
func (s *HistoryService) GetAsset(ctx context.Context, mediaItemID string) (*AssetLinks, error) {
	asset, err := s.store.Assets.GetByMediaItemID(ctx, mediaItemID)
	if err != nil {
		return nil, err
	}
	links := &AssetLinks{
		MediaItemID: mediaItemID,
		VideoURL:    s.storage.GetURL(asset.VideoPath),
		SizeBytes:   asset.SizeBytes,
		Checksum:    asset.Checksum,
	}
	if asset.ThumbnailPath != nil {
		links.ThumbnailURL = s.storage.GetURL(*asset.ThumbnailPath)
	}
	return links, nil
}
