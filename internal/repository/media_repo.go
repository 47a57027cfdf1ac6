package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/timmy/reelvault/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// mediaUpsertColumns are overwritten with the latest observation on conflict.
var mediaUpsertColumns = []string{
	"search_id", "title", "description", "author_handle", "author_name",
	"author_avatar_url", "stats", "duration_seconds", "published_at",
	"thumbnail_url", "updated_at",
}

// MediaRepository handles media item persistence.
type MediaRepository struct {
	db *gorm.DB
}

// NewMediaRepository creates a new MediaRepository.
func NewMediaRepository(db *gorm.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

// UpsertBatch persists records as media items owned by searchID, merging on
// (platform, external_id). The batch is written in one transaction: either every
// record is stored or none is.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - searchID: search that observed the records; overwrites the previous owner.
//   - records: normalized records; duplicates by natural key keep the last one.
// Returns:
//   - []domain.MediaRef: one reference per input record, in input order.
//   - error: wraps domain.ErrStoreWrite when any write fails.
func (r *MediaRepository) UpsertBatch(ctx context.Context, searchID string, records []domain.NormalizedMedia) ([]domain.MediaRef, error) {
	if len(records) == 0 {
		return []domain.MediaRef{}, nil
	}

	items := dedupeRecords(searchID, records)
	stored := make(map[domain.MediaKey]string, len(items))
	withAsset := make(map[string]bool)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "platform"}, {Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns(mediaUpsertColumns),
		}).CreateInBatches(items, 100).Error; err != nil {
			return fmt.Errorf("failed to upsert media items: %w", err)
		}

		// IDs of rows that already existed are not the ones generated above.
		byPlatform := make(map[domain.Platform][]string)
		for _, item := range items {
			byPlatform[item.Platform] = append(byPlatform[item.Platform], item.ExternalID)
		}
		for platform, externalIDs := range byPlatform {
			var rows []domain.MediaItem
			if err := tx.Select("id", "platform", "external_id").
				Where("platform = ? AND external_id IN ?", platform, externalIDs).
				Find(&rows).Error; err != nil {
				return fmt.Errorf("failed to reload media ids: %w", err)
			}
			for _, row := range rows {
				stored[row.Key()] = row.ID
			}
		}

		ids := make([]string, 0, len(stored))
		for _, id := range stored {
			ids = append(ids, id)
		}
		var assetOwners []string
		if err := tx.Model(&domain.MediaAsset{}).
			Where("media_item_id IN ?", ids).
			Pluck("media_item_id", &assetOwners).Error; err != nil {
			return fmt.Errorf("failed to check existing assets: %w", err)
		}
		for _, id := range assetOwners {
			withAsset[id] = true
		}
		return nil
	})
	if err != nil {
		return nil, domain.StoreWriteError("upsert media batch", err)
	}

	refs := make([]domain.MediaRef, 0, len(records))
	for _, rec := range records {
		id, ok := stored[rec.NaturalKey()]
		if !ok {
			return nil, domain.StoreWriteError("upsert media batch",
				fmt.Errorf("media %s/%s missing after upsert", rec.Platform, rec.ExternalID))
		}
		refs = append(refs, domain.MediaRef{
			StoreID:          id,
			Platform:         rec.Platform,
			ExternalID:       rec.ExternalID,
			HasExistingAsset: withAsset[id],
		})
	}
	return refs, nil
}

// dedupeRecords converts records into rows, keeping the last occurrence of each natural key
// at the position of its first occurrence.
func dedupeRecords(searchID string, records []domain.NormalizedMedia) []domain.MediaItem {
	index := make(map[domain.MediaKey]int, len(records))
	items := make([]domain.MediaItem, 0, len(records))
	for _, rec := range records {
		item := domain.MediaItem{
			ID:              uuid.NewString(),
			Platform:        rec.Platform,
			ExternalID:      rec.ExternalID,
			SearchID:        searchID,
			Title:           rec.Title,
			Description:     rec.Description,
			AuthorHandle:    rec.AuthorHandle,
			AuthorName:      rec.AuthorName,
			AuthorAvatarURL: rec.AuthorAvatarURL,
			Stats:           rec.Stats,
			DurationSeconds: rec.DurationSeconds,
			PublishedAt:     rec.PublishedAt,
			ThumbnailURL:    rec.ThumbnailURL,
		}
		if i, ok := index[rec.NaturalKey()]; ok {
			item.ID = items[i].ID
			items[i] = item
			continue
		}
		index[rec.NaturalKey()] = len(items)
		items = append(items, item)
	}
	return items
}

// GetByID retrieves a media item by ID.
func (r *MediaRepository) GetByID(ctx context.Context, id string) (*domain.MediaItem, error) {
	var item domain.MediaItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// GetByKey retrieves a media item by its natural key.
func (r *MediaRepository) GetByKey(ctx context.Context, key domain.MediaKey) (*domain.MediaItem, error) {
	var item domain.MediaItem
	err := r.db.WithContext(ctx).
		First(&item, "platform = ? AND external_id = ?", key.Platform, key.ExternalID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// ListBySearch returns the media items currently owned by searchID, oldest first.
func (r *MediaRepository) ListBySearch(ctx context.Context, searchID string) ([]domain.MediaItem, error) {
	var items []domain.MediaItem
	if err := r.db.WithContext(ctx).
		Where("search_id = ?", searchID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Count returns the total number of media items.
func (r *MediaRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.MediaItem{}).Count(&count).Error
	return count, err
}
