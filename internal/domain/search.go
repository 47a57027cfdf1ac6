package domain

import (
	"database/sql/driver"
	"time"

	"gorm.io/datatypes"
)

// PlatformStatusMap stores per-platform request outcomes as a JSON column.
type PlatformStatusMap map[Platform]PlatformStatus

// Value implements the driver.Valuer interface for database serialization.
func (m PlatformStatusMap) Value() (driver.Value, error) {
	return marshalColumn(map[Platform]PlatformStatus(m), m == nil, "{}")
}

// Scan implements the sql.Scanner interface for database deserialization.
func (m *PlatformStatusMap) Scan(value interface{}) error {
	out := PlatformStatusMap{}
	if value != nil {
		if err := scanColumn(value, &out, "PlatformStatusMap"); err != nil {
			return err
		}
	}
	*m = out
	return nil
}

// CursorState stores the opaque next-page token for each platform.
// A nil entry means the platform has no known continuation point.
type CursorState map[Platform]*string

// Value implements the driver.Valuer interface for database serialization.
func (c CursorState) Value() (driver.Value, error) {
	return marshalColumn(map[Platform]*string(c), c == nil, "{}")
}

// Scan implements the sql.Scanner interface for database deserialization.
func (c *CursorState) Scan(value interface{}) error {
	out := CursorState{}
	if value != nil {
		if err := scanColumn(value, &out, "CursorState"); err != nil {
			return err
		}
	}
	*c = out
	return nil
}

// Cursor returns the stored token for p, if any.
func (c CursorState) Cursor(p Platform) (string, bool) {
	v, ok := c[p]
	if !ok || v == nil || *v == "" {
		return "", false
	}
	return *v, true
}

// Merge combines a stored cursor state with the cursors observed on a new page.
// For every platform the new cursor wins when present, otherwise the stored one
// is kept, otherwise the entry is null. Cursors are never cleared by a merge.
// Parameters:
//   - next: cursors reported by the latest page; nil or empty values mean "none".
// Returns:
//   - CursorState: a new map, neither input is modified.
func (c CursorState) Merge(next CursorState) CursorState {
	merged := make(CursorState, len(c)+len(next))
	for p, cur := range c {
		merged[p] = copyCursor(cur)
	}
	for p, cur := range next {
		if cur != nil && *cur != "" {
			merged[p] = copyCursor(cur)
			continue
		}
		if _, ok := merged[p]; !ok {
			merged[p] = nil
		}
	}
	return merged
}

func copyCursor(cur *string) *string {
	if cur == nil || *cur == "" {
		return nil
	}
	v := *cur
	return &v
}

// StringCursor is a convenience constructor for a non-empty cursor value.
func StringCursor(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ResultCounts stores the cumulative number of results seen per platform.
type ResultCounts map[Platform]int

// Value implements the driver.Valuer interface for database serialization.
func (r ResultCounts) Value() (driver.Value, error) {
	return marshalColumn(map[Platform]int(r), r == nil, "{}")
}

// Scan implements the sql.Scanner interface for database deserialization.
func (r *ResultCounts) Scan(value interface{}) error {
	out := ResultCounts{}
	if value != nil {
		if err := scanColumn(value, &out, "ResultCounts"); err != nil {
			return err
		}
	}
	*r = out
	return nil
}

// Add returns the per-platform sum of r and delta. Missing platforms count as zero.
func (r ResultCounts) Add(delta ResultCounts) ResultCounts {
	merged := make(ResultCounts, len(r)+len(delta))
	for p, n := range r {
		merged[p] = n
	}
	for p, n := range delta {
		merged[p] += n
	}
	return merged
}

// CountByPlatform tallies records per platform.
func CountByPlatform(records []NormalizedMedia) ResultCounts {
	counts := ResultCounts{}
	for _, rec := range records {
		counts[rec.Platform]++
	}
	return counts
}

// SearchQuery is one ingestion lineage: an initial search plus every "load more" page.
type SearchQuery struct {
	ID             string            `gorm:"type:text;primaryKey" json:"id"`
	Keyword        string            `gorm:"type:text;not null;index:idx_search_queries_keyword" json:"keyword"`
	Filters        datatypes.JSON    `json:"filters,omitempty"`
	RequestedBy    string            `gorm:"type:text" json:"requested_by,omitempty"`
	RequestedAt    time.Time         `gorm:"index:idx_search_queries_requested_at" json:"requested_at"`
	PlatformStatus PlatformStatusMap `gorm:"type:text" json:"platform_status"`
	CursorState    CursorState       `gorm:"type:text" json:"cursor_state"`
	ResultCounts   ResultCounts      `gorm:"type:text" json:"result_counts"`
	DurationMs     int64             `json:"duration_ms"`
	RawPayload     datatypes.JSON    `json:"-"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// TableName returns the database table name for SearchQuery.
func (SearchQuery) TableName() string {
	return "search_queries"
}
