package service

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/webp"
)

const videoContentType = "video/mp4"

func calculateMD5(data []byte) string {
	hash := md5.Sum(data)
	return hex.EncodeToString(hash[:])
}

// thumbnailInfo is what the worker learns from a thumbnail's header.
type thumbnailInfo struct {
	Format string
	Width  int
	Height int
}

// probeThumbnail decodes only the image header to find its format and size.
func probeThumbnail(data []byte) (*thumbnailInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unrecognized thumbnail image: %w", err)
	}
	return &thumbnailInfo{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// thumbnailExt maps a decoded image format to a file extension. Unknown formats
// fall back to the declared content type, then to jpg.
func thumbnailExt(format, contentType string) string {
	switch format {
	case "jpeg":
		return "jpg"
	case "png", "gif", "webp":
		return format
	}
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "png"):
		return "png"
	case strings.Contains(ct, "webp"):
		return "webp"
	case strings.Contains(ct, "gif"):
		return "gif"
	default:
		return "jpg"
	}
}

func getContentType(ext string) string {
	switch ext {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "mp4":
		return videoContentType
	default:
		return "application/octet-stream"
	}
}
