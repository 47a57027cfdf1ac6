package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/timmy/reelvault/internal/domain"
)

func TestThumbnailExt(t *testing.T) {
	tests := []struct {
		format      string
		contentType string
		want        string
	}{
		{format: "jpeg", want: "jpg"},
		{format: "png", want: "png"},
		{format: "webp", want: "webp"},
		{format: "gif", contentType: "image/png", want: "gif"},
		{contentType: "image/webp", want: "webp"},
		{contentType: "IMAGE/PNG", want: "png"},
		{contentType: "application/octet-stream", want: "jpg"},
		{want: "jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.format+"|"+tt.contentType, func(t *testing.T) {
			if got := thumbnailExt(tt.format, tt.contentType); got != tt.want {
				t.Errorf("thumbnailExt(%q, %q) = %q, want %q", tt.format, tt.contentType, got, tt.want)
			}
		})
	}
}

func TestProbeThumbnail(t *testing.T) {
	info, err := probeThumbnail(pngBytes(t, 7, 5))
	if err != nil {
		t.Fatalf("probeThumbnail() error = %v", err)
	}
	if info.Format != "png" || info.Width != 7 || info.Height != 5 {
		t.Errorf("info = %+v", info)
	}
	if _, err := probeThumbnail([]byte("not an image")); err == nil {
		t.Error("expected error for non-image data")
	}
}

func TestCalculateMD5(t *testing.T) {
	if got := calculateMD5([]byte("hello")); got != "5d41402abc4b2a76b9719d911017c592" {
		t.Errorf("calculateMD5() = %s", got)
	}
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ok" {
			w.Header().Set("Content-Type", "video/mp4")
			w.Write([]byte("payload"))
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(time.Second)
	file, err := f.Fetch(context.Background(), srv.URL+"/ok")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(file.Data) != "payload" || file.ContentType != "video/mp4" {
		t.Errorf("file = %q %q", file.Data, file.ContentType)
	}

	_, err = f.Fetch(context.Background(), srv.URL+"/denied")
	var dlErr *domain.DownloadError
	if !errors.As(err, &dlErr) || dlErr.StatusCode != http.StatusForbidden {
		t.Fatalf("err = %v, want DownloadError 403", err)
	}
	if !errors.Is(err, domain.ErrUpstreamFetch) {
		t.Error("DownloadError should match ErrUpstreamFetch")
	}

	_, err = f.Fetch(context.Background(), "http://127.0.0.1:1/unreachable")
	if !errors.Is(err, domain.ErrUpstreamFetch) {
		t.Errorf("err = %v, want ErrUpstreamFetch", err)
	}
}
