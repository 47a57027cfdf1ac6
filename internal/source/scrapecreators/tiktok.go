package scrapecreators

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/timmy/reelvault/internal/domain"
	"github.com/timmy/reelvault/internal/source"
)

// TikTokAdapter searches TikTok videos by keyword.
type TikTokAdapter struct {
	client *Client
}

func (a *TikTokAdapter) Platform() domain.Platform {
	return domain.PlatformTikTok
}

type tiktokResponse struct {
	Cursor         cursor `json:"cursor"`
	SearchItemList []struct {
		AwemeInfo *tiktokAweme `json:"aweme_info"`
	} `json:"search_item_list"`
}

type tiktokAweme struct {
	AwemeID string `json:"aweme_id"`
	Desc    string `json:"desc"`
	Author  struct {
		UniqueID    string   `json:"unique_id"`
		Nickname    string   `json:"nickname"`
		AvatarThumb *urlList `json:"avatar_thumb"`
	} `json:"author"`
	Statistics struct {
		PlayCount    number `json:"play_count"`
		DiggCount    number `json:"digg_count"`
		CommentCount number `json:"comment_count"`
		ShareCount   number `json:"share_count"`
	} `json:"statistics"`
	Duration   number    `json:"duration"`
	CreateTime timestamp `json:"create_time"`
	Video      struct {
		Cover        *urlList `json:"cover"`
		DownloadAddr *urlList `json:"download_addr"`
		PlayAddr     *urlList `json:"play_addr"`
	} `json:"video"`
}

func (a *TikTokAdapter) Search(ctx context.Context, q source.Query) (*source.Page, error) {
	params := map[string]string{"query": q.Keyword, "cursor": q.Cursor}
	if f := q.Filters.TikTok; f != nil {
		params["date_posted"] = f.DatePosted
		params["sort_by"] = f.SortBy
		params["region"] = f.Region
		if f.Trim != nil {
			params["trim"] = strconv.FormatBool(*f.Trim)
		}
	}

	body, err := a.client.get(ctx, "/v1/tiktok/search/keyword", params)
	if err != nil {
		return nil, err
	}
	return parseTikTok(body)
}

func parseTikTok(body []byte) (*source.Page, error) {
	var resp tiktokResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode tiktok response: %w", err)
	}

	page := &source.Page{NextCursor: string(resp.Cursor), Raw: body}
	for _, item := range resp.SearchItemList {
		aw := item.AwemeInfo
		if aw == nil || aw.AwemeID == "" {
			continue
		}
		page.Media = append(page.Media, domain.NormalizedMedia{
			Platform:        domain.PlatformTikTok,
			ExternalID:      aw.AwemeID,
			Title:           aw.Desc,
			Description:     aw.Desc,
			AuthorHandle:    aw.Author.UniqueID,
			AuthorName:      aw.Author.Nickname,
			AuthorAvatarURL: aw.Author.AvatarThumb.first(),
			Stats: stats(
				"views", aw.Statistics.PlayCount,
				"likes", aw.Statistics.DiggCount,
				"comments", aw.Statistics.CommentCount,
				"shares", aw.Statistics.ShareCount,
			),
			DurationSeconds: aw.Duration.ptr(),
			PublishedAt:     aw.CreateTime.t,
			ThumbnailURL:    aw.Video.Cover.first(),
			VideoURL:        firstNonEmpty(aw.Video.DownloadAddr.first(), aw.Video.PlayAddr.first()),
		})
	}
	return page, nil
}
