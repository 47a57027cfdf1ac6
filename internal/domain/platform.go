package domain

import "strings"

// Platform identifies an upstream content platform.
type Platform string

const (
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
)

// AllPlatforms lists the supported platforms in display order.
var AllPlatforms = []Platform{PlatformTikTok, PlatformYouTube, PlatformInstagram}

// ParsePlatform resolves a case-insensitive platform name.
func ParsePlatform(s string) (Platform, bool) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllPlatforms {
		if p == known {
			return p, true
		}
	}
	return "", false
}

// PlatformState is the outcome of the most recent request against one platform.
type PlatformState string

const (
	PlatformPending   PlatformState = "pending"
	PlatformFulfilled PlatformState = "fulfilled"
	PlatformRejected  PlatformState = "rejected"
	PlatformSkipped   PlatformState = "skipped"
	PlatformExhausted PlatformState = "exhausted"
)

// PlatformStatus is the per-platform status entry stored on a search.
type PlatformStatus struct {
	Status PlatformState `json:"status"`
	Error  string        `json:"error,omitempty"`
}
