package service

import (
	"context"
	"errors"
	"time"

	"github.com/timmy/reelvault/internal/domain"
	"github.com/timmy/reelvault/internal/logger"
	"github.com/timmy/reelvault/internal/repository"
	"github.com/timmy/reelvault/internal/trigger"
)

// JobStats is a snapshot of the download queue.
type JobStats struct {
	Queued     int64 `json:"queued"`
	Processing int64 `json:"processing"`
	Complete   int64 `json:"complete"`
	Failed     int64 `json:"failed"`
}

// ReclaimResult reports what a stale-lease sweep did.
type ReclaimResult struct {
	Requeued int64 `json:"requeued"`
	Failed   int64 `json:"failed"`
}

// JobAdmin exposes queue maintenance: statistics, requeueing of failed jobs and
// reclaiming of jobs whose worker disappeared.
type JobAdmin struct {
	jobs         *repository.DownloadJobRepository
	trigger      trigger.Trigger
	maxAttempts  int
	leaseTimeout time.Duration
}

// NewJobAdmin creates the maintenance service. leaseTimeout of zero disables
// Reclaim.
func NewJobAdmin(jobs *repository.DownloadJobRepository, t trigger.Trigger, maxAttempts int, leaseTimeout time.Duration) *JobAdmin {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &JobAdmin{jobs: jobs, trigger: t, maxAttempts: maxAttempts, leaseTimeout: leaseTimeout}
}

// ErrReclaimDisabled is returned by Reclaim when no lease timeout is configured.
var ErrReclaimDisabled = errors.New("stale job reclaim is disabled")

// Stats counts jobs by status.
func (a *JobAdmin) Stats(ctx context.Context) (*JobStats, error) {
	counts, err := a.jobs.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	return &JobStats{
		Queued:     counts[domain.JobStatusQueued],
		Processing: counts[domain.JobStatusProcessing],
		Complete:   counts[domain.JobStatusComplete],
		Failed:     counts[domain.JobStatusFailed],
	}, nil
}

// Requeue returns failed jobs below the attempt limit to the queue and wakes
// the worker when any were requeued.
func (a *JobAdmin) Requeue(ctx context.Context) (int64, error) {
	n, err := a.jobs.RequeueFailed(ctx, a.maxAttempts)
	if err != nil {
		return 0, err
	}
	logger.With(logger.Fields{logger.FieldCount: n}).Info(ctx, "Requeued failed download jobs")
	if n > 0 {
		trigger.FireAsync(ctx, a.trigger, trigger.Invocation{Reason: "requeue"})
	}
	return n, nil
}

// Reclaim moves jobs stuck in processing longer than the lease timeout back to
// the queue, or to failed once they used up their attempts.
func (a *JobAdmin) Reclaim(ctx context.Context) (*ReclaimResult, error) {
	if a.leaseTimeout <= 0 {
		return nil, ErrReclaimDisabled
	}
	requeued, failed, err := a.jobs.ReclaimStale(ctx, time.Now().Add(-a.leaseTimeout), a.maxAttempts)
	if err != nil {
		return nil, err
	}
	if requeued > 0 || failed > 0 {
		logger.CtxInfo(ctx, "Reclaimed stale download jobs: %d requeued, %d failed", requeued, failed)
	}
	return &ReclaimResult{Requeued: requeued, Failed: failed}, nil
}

// Sweep is Reclaim for the scheduler: a disabled reclaim is not an error.
func (a *JobAdmin) Sweep(ctx context.Context) error {
	if a.leaseTimeout <= 0 {
		return nil
	}
	_, err := a.Reclaim(ctx)
	return err
}
