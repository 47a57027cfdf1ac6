package scrapecreators

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/timmy/reelvault/internal/domain"
	"github.com/timmy/reelvault/internal/source"
)

const defaultInstagramAmount = 30

// InstagramAdapter searches Instagram reels. The endpoint is not paginated,
// so pages never carry a next cursor.
type InstagramAdapter struct {
	client *Client
}

func (a *InstagramAdapter) Platform() domain.Platform {
	return domain.PlatformInstagram
}

type instagramResponse struct {
	Reels []struct {
		ID        string `json:"id"`
		Shortcode string `json:"shortcode"`
		Caption   string `json:"caption"`
		Owner     struct {
			Username      string `json:"username"`
			FullName      string `json:"full_name"`
			ProfilePicURL string `json:"profile_pic_url"`
		} `json:"owner"`
		LikeCount     number    `json:"like_count"`
		CommentCount  number    `json:"comment_count"`
		PlayCount     number    `json:"video_play_count"`
		VideoDuration number    `json:"video_duration"`
		TakenAt       timestamp `json:"taken_at"`
		ThumbnailSrc  string    `json:"thumbnail_src"`
		VideoURL      string    `json:"video_url"`
	} `json:"reels"`
}

func (a *InstagramAdapter) Search(ctx context.Context, q source.Query) (*source.Page, error) {
	amount := defaultInstagramAmount
	if f := q.Filters.Instagram; f != nil && f.Amount > 0 {
		amount = f.Amount
	}
	body, err := a.client.get(ctx, "/v1/instagram/reels/search", map[string]string{
		"query":  q.Keyword,
		"amount": strconv.Itoa(amount),
	})
	if err != nil {
		return nil, err
	}
	return parseInstagram(body)
}

func parseInstagram(body []byte) (*source.Page, error) {
	var resp instagramResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode instagram response: %w", err)
	}

	page := &source.Page{Raw: body}
	for _, r := range resp.Reels {
		id := firstNonEmpty(r.Shortcode, r.ID)
		if id == "" {
			continue
		}
		page.Media = append(page.Media, domain.NormalizedMedia{
			Platform:        domain.PlatformInstagram,
			ExternalID:      id,
			Title:           r.Caption,
			Description:     r.Caption,
			AuthorHandle:    r.Owner.Username,
			AuthorName:      r.Owner.FullName,
			AuthorAvatarURL: r.Owner.ProfilePicURL,
			Stats: stats(
				"likes", r.LikeCount,
				"comments", r.CommentCount,
				"views", r.PlayCount,
			),
			DurationSeconds: r.VideoDuration.ptr(),
			PublishedAt:     r.TakenAt.t,
			ThumbnailURL:    r.ThumbnailSrc,
			VideoURL:        r.VideoURL,
		})
	}
	return page, nil
}
