package source

import (
	"fmt"
	"regexp"

	"github.com/timmy/reelvault/internal/domain"
)

// Filters holds optional per-platform search filters.
type Filters struct {
	TikTok    *TikTokFilters    `json:"tiktok,omitempty"`
	YouTube   *YouTubeFilters   `json:"youtube,omitempty"`
	Instagram *InstagramFilters `json:"instagram,omitempty"`
}

type TikTokFilters struct {
	DatePosted string `json:"date_posted,omitempty"`
	SortBy     string `json:"sort_by,omitempty"`
	Region     string `json:"region,omitempty"`
	Trim       *bool  `json:"trim,omitempty"`
}

type YouTubeFilters struct {
	UploadDate    string `json:"uploadDate,omitempty"`
	SortBy        string `json:"sortBy,omitempty"`
	Filter        string `json:"filter,omitempty"`
	IncludeExtras *bool  `json:"includeExtras,omitempty"`
}

type InstagramFilters struct {
	Amount int `json:"amount,omitempty"`
}

var (
	tiktokDatePosted = set("yesterday", "this-week", "this-month", "last-3-months", "last-6-months", "all-time")
	tiktokSortBy     = set("relevance", "most-liked", "date-posted")
	youtubeUpload    = set("last_hour", "today", "this_week", "this_month", "this_year")
	youtubeSortBy    = set("relevance", "upload_date")
	regionPattern    = regexp.MustCompile(`^[A-Za-z]{2}$`)
)

func set(values ...string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

// Validate checks filter values against what the upstream API accepts.
// Errors wrap domain.ErrValidation.
func (f Filters) Validate() error {
	if t := f.TikTok; t != nil {
		if t.DatePosted != "" && !tiktokDatePosted[t.DatePosted] {
			return invalid("tiktok.date_posted", t.DatePosted)
		}
		if t.SortBy != "" && !tiktokSortBy[t.SortBy] {
			return invalid("tiktok.sort_by", t.SortBy)
		}
		if t.Region != "" && !regionPattern.MatchString(t.Region) {
			return invalid("tiktok.region", t.Region)
		}
	}
	if y := f.YouTube; y != nil {
		if y.UploadDate != "" && !youtubeUpload[y.UploadDate] {
			return invalid("youtube.uploadDate", y.UploadDate)
		}
		if y.SortBy != "" && !youtubeSortBy[y.SortBy] {
			return invalid("youtube.sortBy", y.SortBy)
		}
		if y.Filter != "" && y.Filter != "shorts" {
			return invalid("youtube.filter", y.Filter)
		}
		if y.Filter != "" && (y.UploadDate != "" || y.SortBy != "") {
			return fmt.Errorf("%w: youtube filter cannot be combined with uploadDate or sortBy", domain.ErrValidation)
		}
	}
	if i := f.Instagram; i != nil && i.Amount != 0 && (i.Amount < 1 || i.Amount > 60) {
		return fmt.Errorf("%w: instagram.amount must be between 1 and 60", domain.ErrValidation)
	}
	return nil
}

func invalid(field, value string) error {
	return fmt.Errorf("%w: unsupported %s %q", domain.ErrValidation, field, value)
}
