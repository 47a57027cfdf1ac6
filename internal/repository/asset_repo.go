package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/timmy/reelvault/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssetRepository handles media asset persistence.
type AssetRepository struct {
	db *gorm.DB
}

// NewAssetRepository creates a new AssetRepository.
func NewAssetRepository(db *gorm.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// Upsert creates or replaces the asset of asset.MediaItemID.
// Repeated completions for the same item overwrite paths, size and checksum.
func (r *AssetRepository) Upsert(ctx context.Context, asset *domain.MediaAsset) error {
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "media_item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"video_path", "thumbnail_path", "thumbnail_width", "thumbnail_height",
			"download_status", "size_bytes", "checksum", "retries",
			"last_downloaded_at", "updated_at",
		}),
	}).Create(asset).Error
}

// GetByMediaItemID retrieves the asset for a media item.
// Returns domain.ErrNotFound when the item has not been downloaded.
func (r *AssetRepository) GetByMediaItemID(ctx context.Context, mediaItemID string) (*domain.MediaAsset, error) {
	var asset domain.MediaAsset
	if err := r.db.WithContext(ctx).First(&asset, "media_item_id = ?", mediaItemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &asset, nil
}

// ListByMediaItemIDs returns the assets of the given items keyed by media item ID.
func (r *AssetRepository) ListByMediaItemIDs(ctx context.Context, ids []string) (map[string]domain.MediaAsset, error) {
	out := make(map[string]domain.MediaAsset, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var assets []domain.MediaAsset
	if err := r.db.WithContext(ctx).Where("media_item_id IN ?", ids).Find(&assets).Error; err != nil {
		return nil, err
	}
	for _, a := range assets {
		out[a.MediaItemID] = a
	}
	return out, nil
}
