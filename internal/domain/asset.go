package domain

import "time"

// AssetStatus represents the download state of a stored media asset.
type AssetStatus string

const (
	AssetStatusComplete AssetStatus = "complete"
)

// MediaAsset is the durably stored copy of a media item's video and thumbnail.
// There is at most one asset per media item; a re-download overwrites it.
type MediaAsset struct {
	ID               string      `gorm:"type:text;primaryKey" json:"id"`
	MediaItemID      string      `gorm:"type:text;not null;uniqueIndex:idx_media_assets_media_item" json:"media_item_id"`
	VideoPath        string      `gorm:"type:text;not null" json:"video_path"`
	ThumbnailPath    *string     `gorm:"type:text" json:"thumbnail_path,omitempty"`
	ThumbnailWidth   int         `json:"thumbnail_width,omitempty"`
	ThumbnailHeight  int         `json:"thumbnail_height,omitempty"`
	DownloadStatus   AssetStatus `gorm:"type:text;not null" json:"download_status"`
	SizeBytes        int64       `json:"size_bytes"`
	Checksum         string      `gorm:"type:text" json:"checksum"`
	Retries          int         `gorm:"default:0" json:"retries"`
	LastDownloadedAt time.Time   `json:"last_downloaded_at"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// TableName returns the database table name for MediaAsset.
func (MediaAsset) TableName() string {
	return "media_assets"
}
