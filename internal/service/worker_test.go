package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/timmy/reelvault/internal/config"
	"github.com/timmy/reelvault/internal/domain"
	"github.com/timmy/reelvault/internal/trigger"
)

// seed persists records under a new search and queues their downloads.
func seed(t *testing.T, p *pipeline, records ...domain.NormalizedMedia) *IngestResult {
	t.Helper()
	res, err := p.coordinator.Initiate(context.Background(), InitiateInput{
		Keyword:   "seed",
		PageBatch: PageBatch{Media: records},
	})
	if err != nil {
		t.Fatalf("Initiate() error = %v", err)
	}
	if res.QueuedJobs > 0 {
		p.trigger.expectFired(t)
	}
	return res
}

func TestWorkerNoJobs(t *testing.T) {
	p := newPipeline(t)
	res, err := p.worker(nil).Run(context.Background(), trigger.Invocation{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Message != RunNoJobs || res.Count != 0 {
		t.Errorf("result = %+v", res)
	}
	p.trigger.expectQuiet(t)
}

func TestWorkerEndToEnd(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	srv := newMediaServer(t)

	res := seed(t, p,
		record(domain.PlatformTikTok, "ok1", srv.URL+"/video/ok1", srv.URL+"/thumb.png"),
		record(domain.PlatformTikTok, "broken", srv.URL+"/gone", ""),
		record(domain.PlatformTikTok, "ok2", srv.URL+"/video/ok2", ""),
	)
	if res.QueuedJobs != 3 {
		t.Fatalf("queued = %d, want 3", res.QueuedJobs)
	}

	run, err := p.worker(nil).Run(ctx, trigger.Invocation{Depth: 2})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if run.Message != RunProcessed || run.Count != 3 {
		t.Fatalf("result = %+v", run)
	}
	if inv := p.trigger.expectFired(t); inv.Depth != 3 {
		t.Errorf("chained depth = %d, want 3", inv.Depth)
	}

	ids := map[string]string{}
	for _, ref := range res.Refs {
		ids[ref.ExternalID] = ref.StoreID
	}

	asset, err := p.store.Assets.GetByMediaItemID(ctx, ids["ok1"])
	if err != nil {
		t.Fatalf("GetByMediaItemID(ok1) error = %v", err)
	}
	if !strings.HasPrefix(asset.VideoPath, "videos/"+ids["ok1"]+"-") || !strings.HasSuffix(asset.VideoPath, ".mp4") {
		t.Errorf("VideoPath = %s", asset.VideoPath)
	}
	if asset.ThumbnailPath == nil || !strings.HasSuffix(*asset.ThumbnailPath, ".png") {
		t.Errorf("ThumbnailPath = %v, want a .png key", asset.ThumbnailPath)
	}
	if asset.ThumbnailWidth != 4 || asset.ThumbnailHeight != 3 {
		t.Errorf("thumbnail size = %dx%d, want 4x3", asset.ThumbnailWidth, asset.ThumbnailHeight)
	}
	if asset.SizeBytes != int64(len("video:ok1")) || asset.Checksum != calculateMD5([]byte("video:ok1")) {
		t.Errorf("size/checksum = %d/%s", asset.SizeBytes, asset.Checksum)
	}
	if asset.DownloadStatus != domain.AssetStatusComplete || asset.Retries != 0 {
		t.Errorf("asset = %+v", asset)
	}
	if p.storage.contentType[asset.VideoPath] != "video/mp4" {
		t.Errorf("video content type = %s", p.storage.contentType[asset.VideoPath])
	}

	if _, err := p.store.Assets.GetByMediaItemID(ctx, ids["ok2"]); err != nil {
		t.Errorf("ok2 asset missing: %v", err)
	}
	if _, err := p.store.Assets.GetByMediaItemID(ctx, ids["broken"]); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("broken asset err = %v, want ErrNotFound", err)
	}

	jobs, err := p.store.Jobs.ListByMediaItem(ctx, ids["broken"])
	if err != nil || len(jobs) != 1 {
		t.Fatalf("ListByMediaItem(broken) = %d, %v", len(jobs), err)
	}
	if jobs[0].Status != domain.JobStatusFailed || jobs[0].FailureReason == nil {
		t.Fatalf("broken job = %+v", jobs[0])
	}
	if !strings.Contains(*jobs[0].FailureReason, "404") {
		t.Errorf("FailureReason = %q", *jobs[0].FailureReason)
	}
	if jobs[0].AttemptedAt == nil {
		t.Error("AttemptedAt not set")
	}

	stats, err := p.store.Jobs.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus() error = %v", err)
	}
	if stats[domain.JobStatusComplete] != 2 || stats[domain.JobStatusFailed] != 1 {
		t.Errorf("stats = %v", stats)
	}

	// Stored items are not queued again by a later page.
	again, err := p.coordinator.Initiate(ctx, InitiateInput{Keyword: "again", PageBatch: PageBatch{Media: []domain.NormalizedMedia{
		record(domain.PlatformTikTok, "ok1", srv.URL+"/video/ok1", ""),
	}}})
	if err != nil {
		t.Fatalf("Initiate() error = %v", err)
	}
	if again.QueuedJobs != 0 || !again.Refs[0].HasExistingAsset {
		t.Errorf("re-observed item: queued=%d ref=%+v", again.QueuedJobs, again.Refs[0])
	}
}

func TestWorkerBoundedRounds(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	srv := newMediaServer(t)

	var records []domain.NormalizedMedia
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		records = append(records, record(domain.PlatformTikTok, id, srv.URL+"/video/"+id, ""))
	}
	seed(t, p, records...)

	run, err := p.worker(&WorkerConfig{BatchSize: 2, MaxRounds: 2}).Run(ctx, trigger.Invocation{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if run.Count != 4 {
		t.Errorf("Count = %d, want 4", run.Count)
	}
	p.trigger.expectFired(t)

	stats, err := p.store.Jobs.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus() error = %v", err)
	}
	if stats[domain.JobStatusQueued] != 1 {
		t.Errorf("queued = %d, want 1 left for the next run", stats[domain.JobStatusQueued])
	}
}

func TestWorkerStopsChainAtMaxDepth(t *testing.T) {
	p := newPipeline(t)
	srv := newMediaServer(t)
	seed(t, p, record(domain.PlatformTikTok, "a", srv.URL+"/video/a", ""))

	w := p.worker(&WorkerConfig{MaxChainDepth: 4})
	run, err := w.Run(context.Background(), trigger.Invocation{Depth: 4})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if run.Count != 1 {
		t.Errorf("Count = %d, want 1", run.Count)
	}
	p.trigger.expectQuiet(t)
}

func TestWorkerThumbnailPolicy(t *testing.T) {
	tests := []struct {
		name       string
		policy     string
		wantStatus domain.JobStatus
	}{
		{name: "required fails the job", policy: config.ThumbnailRequired, wantStatus: domain.JobStatusFailed},
		{name: "best effort completes", policy: config.ThumbnailBestEffort, wantStatus: domain.JobStatusComplete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			p := newPipeline(t)
			srv := newMediaServer(t)
			res := seed(t, p, record(domain.PlatformTikTok, "a", srv.URL+"/video/a", srv.URL+"/missing.jpg"))

			if _, err := p.worker(&WorkerConfig{ThumbnailPolicy: tt.policy}).Run(ctx, trigger.Invocation{}); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			jobs, err := p.store.Jobs.ListByMediaItem(ctx, res.Refs[0].StoreID)
			if err != nil || len(jobs) != 1 {
				t.Fatalf("ListByMediaItem() = %d, %v", len(jobs), err)
			}
			if jobs[0].Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", jobs[0].Status, tt.wantStatus)
			}
			if tt.wantStatus == domain.JobStatusComplete {
				asset, err := p.store.Assets.GetByMediaItemID(ctx, res.Refs[0].StoreID)
				if err != nil {
					t.Fatalf("GetByMediaItemID() error = %v", err)
				}
				if asset.ThumbnailPath != nil {
					t.Errorf("ThumbnailPath = %s, want nil", *asset.ThumbnailPath)
				}
			}
		})
	}
}

func TestWorkerStorageFailureFailsJob(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	p.storage.failPrefix = "videos/"
	srv := newMediaServer(t)
	res := seed(t, p, record(domain.PlatformTikTok, "a", srv.URL+"/video/a", ""))

	if _, err := p.worker(nil).Run(ctx, trigger.Invocation{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	jobs, err := p.store.Jobs.ListByMediaItem(ctx, res.Refs[0].StoreID)
	if err != nil || len(jobs) != 1 {
		t.Fatalf("ListByMediaItem() = %d, %v", len(jobs), err)
	}
	if jobs[0].Status != domain.JobStatusFailed {
		t.Errorf("status = %s, want failed", jobs[0].Status)
	}
	if len(p.storage.keys("videos/")) != 0 {
		t.Error("video stored despite failure")
	}
}

func TestWorkerCancelledRunStillSettlesJobs(t *testing.T) {
	p := newPipeline(t)
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(slow.Close)
	res := seed(t, p, record(domain.PlatformTikTok, "slow", slow.URL+"/video/slow", ""))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)
	// The next claim sees the cancelled context, so the run itself may fail.
	_, _ = p.worker(nil).Run(ctx, trigger.Invocation{})

	jobs, err := p.store.Jobs.ListByMediaItem(context.Background(), res.Refs[0].StoreID)
	if err != nil || len(jobs) != 1 {
		t.Fatalf("ListByMediaItem() = %d, %v", len(jobs), err)
	}
	if jobs[0].Status != domain.JobStatusFailed {
		t.Fatalf("status = %s, want failed", jobs[0].Status)
	}
	if jobs[0].FailureReason == nil || !strings.Contains(*jobs[0].FailureReason, "context canceled") {
		t.Errorf("reason = %v", jobs[0].FailureReason)
	}
}

func TestWorkerPersistRetries(t *testing.T) {
	p := newPipeline(t)
	w := p.worker(nil)
	w.retryDelay = 0
	errWrite := errors.New("database is locked")

	tests := []struct {
		name      string
		failures  int
		failWith  error
		wantCalls int
		wantErr   error
	}{
		{name: "first try", failures: 0, wantCalls: 1},
		{name: "recovers after retries", failures: 2, failWith: errWrite, wantCalls: 3},
		{name: "gives up", failures: 5, failWith: errWrite, wantCalls: statusWriteAttempts, wantErr: errWrite},
		{name: "job gone is final", failures: 5, failWith: domain.ErrNotFound, wantCalls: 1, wantErr: domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			calls := 0
			err := w.persist(ctx, func(ctx context.Context) error {
				calls++
				if ctx.Err() != nil {
					t.Errorf("write saw cancelled context: %v", ctx.Err())
				}
				if calls <= tt.failures {
					return tt.failWith
				}
				return nil
			})
			if !errors.Is(err, tt.wantErr) || (tt.wantErr == nil && err != nil) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}
