package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/timmy/reelvault/internal/domain"
	"github.com/timmy/reelvault/internal/repository"
	"github.com/timmy/reelvault/internal/testutil"
	"github.com/timmy/reelvault/internal/trigger"
)

// memoryStorage is an in-memory storage.ObjectStorage.
type memoryStorage struct {
	mu          sync.Mutex
	objects     map[string][]byte
	contentType map[string]string
	failPrefix  string
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string][]byte{}, contentType: map[string]string{}}
}

func (m *memoryStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if m.failPrefix != "" && strings.HasPrefix(key, m.failPrefix) {
		return fmt.Errorf("bucket rejected %s", key)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.contentType[key] = contentType
	return nil
}

func (m *memoryStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryStorage) GetURL(key string) string {
	return "https://media.example/" + key
}

func (m *memoryStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryStorage) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memoryStorage) keys(prefix string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}

// recordingTrigger captures fired invocations without running anything.
type recordingTrigger struct {
	fired chan trigger.Invocation
}

func newRecordingTrigger() *recordingTrigger {
	return &recordingTrigger{fired: make(chan trigger.Invocation, 32)}
}

func (r *recordingTrigger) Fire(ctx context.Context, inv trigger.Invocation) error {
	r.fired <- inv
	return nil
}

func (r *recordingTrigger) expectFired(t *testing.T) trigger.Invocation {
	t.Helper()
	select {
	case inv := <-r.fired:
		return inv
	case <-time.After(2 * time.Second):
		t.Fatal("expected a worker trigger")
		return trigger.Invocation{}
	}
}

func (r *recordingTrigger) expectQuiet(t *testing.T) {
	t.Helper()
	select {
	case inv := <-r.fired:
		t.Fatalf("unexpected worker trigger %+v", inv)
	case <-time.After(100 * time.Millisecond):
	}
}

// pngBytes encodes a w x h image.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

// newMediaServer serves /video/<name> as "video:<name>", /thumb.png as a 4x3
// PNG and 404 for everything else.
func newMediaServer(t *testing.T) *httptest.Server {
	t.Helper()
	thumb := pngBytes(t, 4, 3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/video/"):
			w.Header().Set("Content-Type", "video/mp4")
			w.Write([]byte("video:" + strings.TrimPrefix(r.URL.Path, "/video/")))
		case r.URL.Path == "/thumb.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(thumb)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// pipeline wires the persistence side of the service package against a test DB.
type pipeline struct {
	store       *repository.Store
	storage     *memoryStorage
	trigger     *recordingTrigger
	queue       *JobQueue
	coordinator *IngestCoordinator
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	store := testutil.NewTestStore(t)
	rec := newRecordingTrigger()
	queue := NewJobQueue(store.Jobs, rec)
	return &pipeline{
		store:       store,
		storage:     newMemoryStorage(),
		trigger:     rec,
		queue:       queue,
		coordinator: NewIngestCoordinator(store, queue),
	}
}

func (p *pipeline) worker(cfg *WorkerConfig) *DownloadWorker {
	w := NewDownloadWorker(p.store, p.storage, NewHTTPFetcher(5*time.Second), cfg)
	w.SetTrigger(p.trigger)
	return w
}

func record(platform domain.Platform, id, videoURL, thumbURL string) domain.NormalizedMedia {
	return domain.NormalizedMedia{
		Platform:     platform,
		ExternalID:   id,
		Title:        "clip " + id,
		Stats:        domain.MediaStats{"views": 10},
		VideoURL:     videoURL,
		ThumbnailURL: thumbURL,
	}
}

func cursorOf(s string) *string {
	return domain.StringCursor(s)
}
