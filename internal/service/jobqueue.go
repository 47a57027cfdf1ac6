package service

import (
	"context"

	"github.com/timmy/reelvault/internal/domain"
	"github.com/timmy/reelvault/internal/logger"
	"github.com/timmy/reelvault/internal/repository"
	"github.com/timmy/reelvault/internal/trigger"
)

// JobQueue turns freshly persisted media into queued download jobs and wakes
// the worker when anything new was queued.
type JobQueue struct {
	jobs    *repository.DownloadJobRepository
	trigger trigger.Trigger
}

// NewJobQueue creates a queue writing through jobs. t may be nil, in which case
// jobs wait for the next scheduled or external worker run.
func NewJobQueue(jobs *repository.DownloadJobRepository, t trigger.Trigger) *JobQueue {
	return &JobQueue{jobs: jobs, trigger: t}
}

// Enqueue queues one job per media item that has a video URL, has no stored
// asset and has no active job yet.
// Parameters:
//   - records: normalized records of the page, supplying the download URLs.
//   - refs: the persisted items the records were upserted into.
//
// Returns:
//   - int: number of jobs inserted.
//   - error: non-nil when the insert itself fails.
func (q *JobQueue) Enqueue(ctx context.Context, records []domain.NormalizedMedia, refs []domain.MediaRef) (int, error) {
	byKey := make(map[domain.MediaKey]domain.NormalizedMedia, len(records))
	for _, rec := range records {
		byKey[rec.NaturalKey()] = rec
	}

	seen := make(map[string]bool, len(refs))
	candidates := make([]domain.DownloadJob, 0, len(refs))
	for _, ref := range refs {
		if ref.HasExistingAsset || seen[ref.StoreID] {
			continue
		}
		rec, ok := byKey[ref.Key()]
		if !ok || rec.VideoURL == "" {
			continue
		}
		seen[ref.StoreID] = true

		job := domain.DownloadJob{
			MediaItemID: ref.StoreID,
			VideoURL:    rec.VideoURL,
		}
		if rec.ThumbnailURL != "" {
			thumb := rec.ThumbnailURL
			job.ThumbnailURL = &thumb
		}
		candidates = append(candidates, job)
	}
	if len(candidates) == 0 {
		logger.CtxDebug(ctx, "No media eligible for download")
		return 0, nil
	}

	ids := make([]string, len(candidates))
	for i, job := range candidates {
		ids[i] = job.MediaItemID
	}
	active, err := q.jobs.ActiveMediaItemIDs(ctx, ids)
	if err != nil {
		// The active-job index still rejects duplicates on insert.
		logger.FromContext(ctx).WithError(err).Warn("Failed to check active download jobs")
		active = nil
	}

	toQueue := candidates[:0]
	for _, job := range candidates {
		if !active[job.MediaItemID] {
			toQueue = append(toQueue, job)
		}
	}
	if len(toQueue) == 0 {
		logger.CtxDebug(ctx, "Every eligible media item already has an active job")
		return 0, nil
	}

	inserted, err := q.jobs.CreateBatch(ctx, toQueue)
	if err != nil {
		return 0, domain.StoreWriteError("queue download jobs", err)
	}

	logger.With(logger.Fields{logger.FieldCount: inserted}).Info(ctx, "Queued download jobs")

	if inserted > 0 {
		trigger.FireAsync(ctx, q.trigger, trigger.Invocation{Reason: "enqueue"})
	}
	return int(inserted), nil
}
