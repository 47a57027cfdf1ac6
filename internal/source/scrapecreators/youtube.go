package scrapecreators

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/timmy/reelvault/internal/domain"
	"github.com/timmy/reelvault/internal/source"
)

// YouTubeAdapter searches YouTube videos and shorts.
// Results carry no VideoURL: the API only returns watch-page links, which are
// not downloadable media files.
type YouTubeAdapter struct {
	client *Client
}

func (a *YouTubeAdapter) Platform() domain.Platform {
	return domain.PlatformYouTube
}

type youtubeResponse struct {
	ContinuationToken string         `json:"continuationToken"`
	Videos            []youtubeVideo `json:"videos"`
	Shorts            []youtubeVideo `json:"shorts"`
}

type youtubeVideo struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Channel     struct {
		Handle    string `json:"handle"`
		Title     string `json:"title"`
		Thumbnail string `json:"thumbnail"`
	} `json:"channel"`
	ViewCountInt  number    `json:"viewCountInt"`
	PublishedTime timestamp `json:"publishedTime"`
	LengthSeconds number    `json:"lengthSeconds"`
	Thumbnail     string    `json:"thumbnail"`
}

func (a *YouTubeAdapter) Search(ctx context.Context, q source.Query) (*source.Page, error) {
	params := map[string]string{
		"query":             q.Keyword,
		"filter":            "shorts",
		"includeExtras":     "true",
		"continuationToken": q.Cursor,
	}
	if f := q.Filters.YouTube; f != nil {
		if f.UploadDate != "" || f.SortBy != "" {
			delete(params, "filter")
		}
		if f.Filter != "" {
			params["filter"] = f.Filter
		}
		params["uploadDate"] = f.UploadDate
		params["sortBy"] = f.SortBy
		if f.IncludeExtras != nil {
			params["includeExtras"] = strconv.FormatBool(*f.IncludeExtras)
		}
	}

	body, err := a.client.get(ctx, "/v1/youtube/search", params)
	if err != nil {
		return nil, err
	}
	return parseYouTube(body)
}

func parseYouTube(body []byte) (*source.Page, error) {
	var resp youtubeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode youtube response: %w", err)
	}

	page := &source.Page{NextCursor: resp.ContinuationToken, Raw: body}
	for _, v := range append(resp.Videos, resp.Shorts...) {
		id := firstNonEmpty(v.ID, v.URL)
		if id == "" {
			continue
		}
		page.Media = append(page.Media, domain.NormalizedMedia{
			Platform:        domain.PlatformYouTube,
			ExternalID:      id,
			Title:           v.Title,
			Description:     v.Description,
			AuthorHandle:    v.Channel.Handle,
			AuthorName:      v.Channel.Title,
			AuthorAvatarURL: v.Channel.Thumbnail,
			Stats:           stats("views", v.ViewCountInt),
			DurationSeconds: v.LengthSeconds.ptr(),
			PublishedAt:     v.PublishedTime.t,
			ThumbnailURL:    v.Thumbnail,
		})
	}
	return page, nil
}
