package domain

import (
	"database/sql/driver"
	"time"
)

// MediaStats holds platform-specific numeric counters such as views or likes.
// A missing key means the platform did not report it, not zero.
type MediaStats map[string]float64

// Value implements the driver.Valuer interface for database serialization.
func (s MediaStats) Value() (driver.Value, error) {
	return marshalColumn(map[string]float64(s), s == nil, "{}")
}

// Scan implements the sql.Scanner interface for database deserialization.
func (s *MediaStats) Scan(value interface{}) error {
	out := MediaStats{}
	if value != nil {
		if err := scanColumn(value, &out, "MediaStats"); err != nil {
			return err
		}
	}
	*s = out
	return nil
}

// NormalizedMedia is the platform-agnostic record every adapter produces.
type NormalizedMedia struct {
	Platform        Platform   `json:"platform"`
	ExternalID      string     `json:"external_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	AuthorHandle    string     `json:"author_handle"`
	AuthorName      string     `json:"author_name"`
	AuthorAvatarURL string     `json:"author_avatar_url"`
	Stats           MediaStats `json:"stats"`
	DurationSeconds *float64   `json:"duration_seconds,omitempty"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	ThumbnailURL    string     `json:"thumbnail_url"`
	VideoURL        string     `json:"video_url,omitempty"`
}

// NaturalKey returns the (platform, external id) identity of the record.
func (n NormalizedMedia) NaturalKey() MediaKey {
	return MediaKey{Platform: n.Platform, ExternalID: n.ExternalID}
}

// MediaKey is the global natural key of a media item.
type MediaKey struct {
	Platform   Platform
	ExternalID string
}

// MediaItem is one piece of content observed on one platform.
// (platform, external_id) is unique across all searches.
type MediaItem struct {
	ID              string     `gorm:"type:text;primaryKey" json:"id"`
	Platform        Platform   `gorm:"type:text;not null;uniqueIndex:idx_media_items_natural_key" json:"platform"`
	ExternalID      string     `gorm:"type:text;not null;uniqueIndex:idx_media_items_natural_key" json:"external_id"`
	SearchID        string     `gorm:"type:text;index:idx_media_items_search" json:"search_id"`
	Title           string     `gorm:"type:text" json:"title"`
	Description     string     `gorm:"type:text" json:"description"`
	AuthorHandle    string     `gorm:"type:text" json:"author_handle"`
	AuthorName      string     `gorm:"type:text" json:"author_name"`
	AuthorAvatarURL string     `gorm:"type:text" json:"author_avatar_url"`
	Stats           MediaStats `gorm:"type:text" json:"stats"`
	DurationSeconds *float64   `json:"duration_seconds,omitempty"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	ThumbnailURL    string     `gorm:"type:text" json:"thumbnail_url"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName returns the database table name for MediaItem.
func (MediaItem) TableName() string {
	return "media_items"
}

// Key returns the natural key of the item.
func (m MediaItem) Key() MediaKey {
	return MediaKey{Platform: m.Platform, ExternalID: m.ExternalID}
}

// MediaRef correlates an input record with its persisted media item.
type MediaRef struct {
	StoreID          string   `json:"store_id"`
	Platform         Platform `json:"platform"`
	ExternalID       string   `json:"external_id"`
	HasExistingAsset bool     `json:"has_existing_asset"`
}

// Key returns the natural key the reference was produced for.
func (r MediaRef) Key() MediaKey {
	return MediaKey{Platform: r.Platform, ExternalID: r.ExternalID}
}
