package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestCursorStateMerge(t *testing.T) {
	tests := []struct {
		name string
		prev CursorState
		next CursorState
		want map[Platform]string // empty string means null
	}{
		{
			name: "new cursor replaces stored",
			prev: CursorState{PlatformTikTok: StringCursor("10")},
			next: CursorState{PlatformTikTok: StringCursor("20")},
			want: map[Platform]string{PlatformTikTok: "20"},
		},
		{
			name: "missing cursor keeps stored",
			prev: CursorState{PlatformTikTok: StringCursor("10"), PlatformYouTube: StringCursor("yt")},
			next: CursorState{PlatformTikTok: nil},
			want: map[Platform]string{PlatformTikTok: "10", PlatformYouTube: "yt"},
		},
		{
			name: "empty cursor keeps stored",
			prev: CursorState{PlatformYouTube: StringCursor("yt")},
			next: CursorState{PlatformYouTube: new(string)},
			want: map[Platform]string{PlatformYouTube: "yt"},
		},
		{
			name: "unknown platform without cursor is null",
			prev: nil,
			next: CursorState{PlatformInstagram: nil},
			want: map[Platform]string{PlatformInstagram: ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.prev.Merge(tt.next)
			if len(got) != len(tt.want) {
				t.Fatalf("Merge() len = %d, want %d (%v)", len(got), len(tt.want), got)
			}
			for p, want := range tt.want {
				cur, ok := got[p]
				if !ok {
					t.Fatalf("Merge() missing platform %s", p)
				}
				if want == "" {
					if cur != nil {
						t.Fatalf("Merge()[%s] = %q, want null", p, *cur)
					}
					continue
				}
				if cur == nil || *cur != want {
					t.Fatalf("Merge()[%s] = %v, want %q", p, cur, want)
				}
			}
		})
	}
}

func TestCursorStateMergeDoesNotAlias(t *testing.T) {
	prev := CursorState{PlatformTikTok: StringCursor("a")}
	merged := prev.Merge(nil)
	*merged[PlatformTikTok] = "b"
	if got, _ := prev.Cursor(PlatformTikTok); got != "a" {
		t.Fatalf("stored cursor mutated to %q", got)
	}
}

func TestResultCountsAdd(t *testing.T) {
	base := ResultCounts{PlatformTikTok: 3, PlatformYouTube: 1}
	got := base.Add(ResultCounts{PlatformTikTok: 3, PlatformInstagram: 2})

	want := ResultCounts{PlatformTikTok: 6, PlatformYouTube: 1, PlatformInstagram: 2}
	for p, n := range want {
		if got[p] != n {
			t.Fatalf("Add()[%s] = %d, want %d", p, got[p], n)
		}
	}
	if base[PlatformTikTok] != 3 {
		t.Fatalf("Add() modified receiver")
	}
}

func TestCountByPlatform(t *testing.T) {
	got := CountByPlatform([]NormalizedMedia{
		{Platform: PlatformTikTok}, {Platform: PlatformTikTok}, {Platform: PlatformYouTube},
	})
	if got[PlatformTikTok] != 2 || got[PlatformYouTube] != 1 || len(got) != 2 {
		t.Fatalf("CountByPlatform() = %v", got)
	}
}

func TestJSONColumnsRoundTrip(t *testing.T) {
	stats := MediaStats{"views": 10}
	v, err := stats.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	var scanned MediaStats
	if err := scanned.Scan([]byte(v.(string))); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if _, ok := scanned["likes"]; ok {
		t.Fatalf("absent stat should stay absent")
	}
	if scanned["views"] != 10 {
		t.Fatalf("views = %v, want 10", scanned["views"])
	}

	var counts ResultCounts
	if err := counts.Scan(nil); err != nil || counts == nil {
		t.Fatalf("Scan(nil) = %v, %v", counts, err)
	}
	if err := counts.Scan(42); err == nil {
		t.Fatalf("Scan(int) should fail")
	}
}

func TestDownloadErrorMatchesUpstreamFetch(t *testing.T) {
	err := fmt.Errorf("failed to fetch video: %w", &DownloadError{URL: "http://x", StatusCode: 404})
	if !errors.Is(err, ErrUpstreamFetch) {
		t.Fatalf("errors.Is(ErrUpstreamFetch) = false")
	}
	var dlErr *DownloadError
	if !errors.As(err, &dlErr) || dlErr.StatusCode != 404 {
		t.Fatalf("errors.As() did not expose status code")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("DownloadError should not match ErrNotFound")
	}
}

func TestStoreWriteError(t *testing.T) {
	cause := errors.New("disk full")
	err := StoreWriteError("upsert media", cause)
	if !errors.Is(err, ErrStoreWrite) || !errors.Is(err, cause) {
		t.Fatalf("StoreWriteError() = %v, want both sentinel and cause", err)
	}
	if StoreWriteError("noop", nil) != nil {
		t.Fatalf("StoreWriteError(nil) should be nil")
	}
}

func TestJobStatusHelpers(t *testing.T) {
	if !JobStatusQueued.IsActive() || !JobStatusProcessing.IsActive() {
		t.Fatalf("queued/processing should be active")
	}
	if JobStatusFailed.IsActive() || !JobStatusFailed.IsFinished() || !JobStatusComplete.IsFinished() {
		t.Fatalf("terminal status helpers wrong")
	}
}
