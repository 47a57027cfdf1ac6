package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/timmy/reelvault/internal/config"
)

func TestDetectStorageType(t *testing.T) {
	tests := []struct {
		endpoint string
		want     StorageType
	}{
		{"", StorageTypeLocal},
		{"https://acct.r2.cloudflarestorage.com", StorageTypeR2},
		{"s3.us-west-2.amazonaws.com", StorageTypeS3},
		{"localhost:9000", StorageTypeS3Compatible},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			if got := detectStorageType(tt.endpoint); got != tt.want {
				t.Fatalf("detectStorageType(%q) = %s, want %s", tt.endpoint, got, tt.want)
			}
		})
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := map[string]string{
		"https://minio.local:9000/":     "minio.local:9000",
		"http://host/bucket/path":       "host",
		"acct.r2.cloudflarestorage.com": "acct.r2.cloudflarestorage.com",
	}
	for in, want := range tests {
		if got := normalizeEndpoint(in); got != want {
			t.Errorf("normalizeEndpoint(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestS3StorageURL(t *testing.T) {
	s, err := NewS3Storage(&config.StorageConfig{
		Type: string(StorageTypeS3Compatible), Endpoint: "localhost:9000", Bucket: "media",
		AccessKey: "k", SecretKey: "s",
	})
	if err != nil {
		t.Fatalf("NewS3Storage() error = %v", err)
	}
	if got := s.GetURL("videos/a.mp4"); got != "http://localhost:9000/media/videos/a.mp4" {
		t.Fatalf("GetURL() = %q", got)
	}

	s, _ = NewS3Storage(&config.StorageConfig{
		Type: string(StorageTypeR2), Endpoint: "acct.r2.cloudflarestorage.com", UseSSL: true,
		Bucket: "media", PublicURL: "https://cdn.example.com/",
	})
	if got := s.GetURL("/thumbnails/a.jpg"); got != "https://cdn.example.com/thumbnails/a.jpg" {
		t.Fatalf("GetURL() with public URL = %q", got)
	}
}

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewStorage(&config.StorageConfig{LocalPath: t.TempDir(), PublicURL: "http://media.local/"})
	if err != nil {
		t.Fatalf("NewStorage() error = %v", err)
	}
	if _, ok := store.(*LocalStorage); !ok {
		t.Fatalf("NewStorage() without endpoint = %T, want *LocalStorage", store)
	}

	payload := []byte("fake mp4 bytes")
	if err := store.Upload(ctx, "videos/m1-1.mp4", bytes.NewReader(payload), int64(len(payload)), "video/mp4"); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	ok, err := store.Exists(ctx, "videos/m1-1.mp4")
	if err != nil || !ok {
		t.Fatalf("Exists() = %v, %v", ok, err)
	}

	rc, err := store.Download(ctx, "videos/m1-1.mp4")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close()
	if !bytes.Equal(got, payload) {
		t.Fatalf("Download() = %q", got)
	}

	if url := store.GetURL("videos/m1-1.mp4"); url != "http://media.local/videos/m1-1.mp4" {
		t.Fatalf("GetURL() = %q", url)
	}

	if err := store.Delete(ctx, "videos/m1-1.mp4"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if ok, _ := store.Exists(ctx, "videos/m1-1.mp4"); ok {
		t.Fatalf("object still exists after Delete()")
	}
	if err := store.Delete(ctx, "videos/m1-1.mp4"); err != nil {
		t.Fatalf("Delete() of missing object error = %v", err)
	}
}

func TestLocalStorageKeysStayInsideBase(t *testing.T) {
	base := t.TempDir()
	s, err := NewLocalStorage(base, "")
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}
	p, err := s.path("../../etc/passwd")
	if err != nil {
		t.Fatalf("path() error = %v", err)
	}
	if !strings.HasPrefix(p, base) {
		t.Fatalf("path() = %q escapes %q", p, base)
	}
	if _, err := s.path("/"); err == nil {
		t.Fatalf("path(\"/\") should be rejected")
	}
	if url := s.GetURL("videos/a.mp4"); !strings.HasPrefix(url, "file://") {
		t.Fatalf("GetURL() without public URL = %q", url)
	}
}
