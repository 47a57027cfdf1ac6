package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/timmy/reelvault/internal/domain"
)

func TestJobAdminRequeueAndStats(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	if _, err := p.store.Jobs.CreateBatch(ctx, []domain.DownloadJob{{MediaItemID: "m1", VideoURL: "u"}}); err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}
	claimed, err := p.store.Jobs.ClaimNext(ctx, 1)
	if err != nil || len(claimed) != 1 {
		t.Fatalf("ClaimNext() = %d, %v", len(claimed), err)
	}
	if err := p.store.Jobs.MarkFailed(ctx, claimed[0].ID, "timeout"); err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}

	admin := NewJobAdmin(p.store.Jobs, p.trigger, 3, 0)
	stats, err := admin.Stats(ctx)
	if err != nil || stats.Failed != 1 {
		t.Fatalf("Stats() = %+v, %v", stats, err)
	}

	n, err := admin.Requeue(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Requeue() = %d, %v", n, err)
	}
	p.trigger.expectFired(t)

	stats, err = admin.Stats(ctx)
	if err != nil || stats.Queued != 1 || stats.Failed != 0 {
		t.Fatalf("Stats() after requeue = %+v, %v", stats, err)
	}
}

func TestJobAdminReclaim(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)

	disabled := NewJobAdmin(p.store.Jobs, nil, 3, 0)
	if _, err := disabled.Reclaim(ctx); !errors.Is(err, ErrReclaimDisabled) {
		t.Fatalf("err = %v, want ErrReclaimDisabled", err)
	}
	if err := disabled.Sweep(ctx); err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}

	if _, err := p.store.Jobs.CreateBatch(ctx, []domain.DownloadJob{{MediaItemID: "m1", VideoURL: "u"}}); err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}
	if _, err := p.store.Jobs.ClaimNext(ctx, 1); err != nil {
		t.Fatalf("ClaimNext() error = %v", err)
	}

	admin := NewJobAdmin(p.store.Jobs, nil, 3, time.Nanosecond)
	time.Sleep(5 * time.Millisecond)
	res, err := admin.Reclaim(ctx)
	if err != nil {
		t.Fatalf("Reclaim() error = %v", err)
	}
	if res.Requeued != 1 || res.Failed != 0 {
		t.Errorf("result = %+v", res)
	}
}
