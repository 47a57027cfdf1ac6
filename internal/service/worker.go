package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/reelvault/internal/config"
	"github.com/timmy/reelvault/internal/domain"
	"github.com/timmy/reelvault/internal/logger"
	"github.com/timmy/reelvault/internal/repository"
	"github.com/timmy/reelvault/internal/storage"
	"github.com/timmy/reelvault/internal/trigger"
)

// Run outcomes reported in RunResult.Message.
const (
	RunNoJobs    = "no-jobs"
	RunProcessed = "processed"
)

// statusWriteAttempts bounds the retries of a job's final status write.
const statusWriteAttempts = 3

// RunResult summarizes one worker invocation.
type RunResult struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// WorkerConfig bounds one worker invocation.
type WorkerConfig struct {
	BatchSize       int
	MaxRounds       int
	MaxChainDepth   int
	ThumbnailPolicy string
	DownloadTimeout time.Duration
}

// WorkerConfigFrom maps the worker section of the application config.
func WorkerConfigFrom(cfg *config.WorkerConfig) *WorkerConfig {
	return &WorkerConfig{
		BatchSize:       cfg.BatchSize,
		MaxRounds:       cfg.MaxRounds,
		MaxChainDepth:   cfg.MaxChainDepth,
		ThumbnailPolicy: cfg.ThumbnailPolicy,
		DownloadTimeout: cfg.DownloadTimeout,
	}
}

// DownloadWorker claims queued download jobs, copies their media into object
// storage and records the resulting assets.
type DownloadWorker struct {
	store      *repository.Store
	storage    storage.ObjectStorage
	fetcher    Fetcher
	trigger    trigger.Trigger
	cfg        WorkerConfig
	now        func() time.Time
	// retryDelay is the base backoff between status write attempts.
	retryDelay time.Duration
}

// NewDownloadWorker creates a worker. Zero config values fall back to a batch
// of 5, 3 rounds, a chain depth of 20 and a required thumbnail.
func NewDownloadWorker(store *repository.Store, objectStorage storage.ObjectStorage, fetcher Fetcher, cfg *WorkerConfig) *DownloadWorker {
	w := &DownloadWorker{
		store:      store,
		storage:    objectStorage,
		fetcher:    fetcher,
		now:        time.Now,
		retryDelay: 200 * time.Millisecond,
	}
	if cfg != nil {
		w.cfg = *cfg
	}
	if w.cfg.BatchSize <= 0 {
		w.cfg.BatchSize = 5
	}
	if w.cfg.MaxRounds <= 0 {
		w.cfg.MaxRounds = 3
	}
	if w.cfg.MaxChainDepth <= 0 {
		w.cfg.MaxChainDepth = 20
	}
	if w.cfg.ThumbnailPolicy == "" {
		w.cfg.ThumbnailPolicy = config.ThumbnailRequired
	}
	return w
}

// SetTrigger sets the trigger used to chain the next invocation. The trigger
// usually wraps this worker, so it is wired after construction.
func (w *DownloadWorker) SetTrigger(t trigger.Trigger) {
	w.trigger = t
}

// RunInvocation adapts Run to trigger.RunFunc.
func (w *DownloadWorker) RunInvocation(ctx context.Context, inv trigger.Invocation) error {
	_, err := w.Run(ctx, inv)
	return err
}

// Run processes up to MaxRounds batches of queued jobs. Every job ends the run
// either complete or failed; one job's failure never affects its siblings.
// When any job was processed, another invocation is fired before returning.
// Parameters:
//   - ctx: context for the run; chained invocations are detached from it.
//   - inv: the request, carrying the chain depth.
//
// Returns:
//   - *RunResult: RunNoJobs when the first claim was empty, otherwise RunProcessed with the count.
//   - error: non-nil only when claiming fails; the run stops there.
func (w *DownloadWorker) Run(ctx context.Context, inv trigger.Invocation) (*RunResult, error) {
	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldComponent:    "download_worker",
		logger.FieldInvocationID: uuid.NewString(),
		logger.FieldChainDepth:   inv.Depth,
	})
	start := time.Now()

	processed := 0
	for round := 0; round < w.cfg.MaxRounds; round++ {
		jobs, err := w.store.Jobs.ClaimNext(ctx, w.cfg.BatchSize)
		if err != nil {
			logger.FromContext(ctx).WithError(err).Error("Failed to claim download jobs")
			return nil, fmt.Errorf("failed to claim download jobs: %w", err)
		}
		if len(jobs) == 0 {
			if round == 0 {
				logger.CtxDebug(ctx, "No queued download jobs")
				return &RunResult{Message: RunNoJobs}, nil
			}
			break
		}

		w.processBatch(ctx, jobs)
		processed += len(jobs)
		logger.CtxInfo(ctx, "Processed batch %d, items: %d, total: %d", round+1, len(jobs), processed)
	}

	logger.With(logger.Fields{
		logger.FieldCount:      processed,
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Info(ctx, "Download worker run finished")

	w.chain(ctx, inv)
	return &RunResult{Message: RunProcessed, Count: processed}, nil
}

// chain fires the next invocation unless the depth bound is reached. Queued
// jobs left at the bound wait for the scheduler or the next enqueue.
func (w *DownloadWorker) chain(ctx context.Context, inv trigger.Invocation) {
	if w.trigger == nil {
		return
	}
	next := inv.Next()
	if next.Depth > w.cfg.MaxChainDepth {
		logger.CtxWarn(ctx, "Chain depth %d reached, not triggering another run", inv.Depth)
		return
	}
	trigger.FireAsync(ctx, w.trigger, next)
}

func (w *DownloadWorker) processBatch(ctx context.Context, jobs []domain.DownloadJob) {
	var wg sync.WaitGroup
	for i := range jobs {
		wg.Add(1)
		go func(job domain.DownloadJob) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					w.fail(ctx, job, fmt.Errorf("panic: %v", r))
				}
			}()
			w.processJob(ctx, job)
		}(jobs[i])
	}
	wg.Wait()
}

func (w *DownloadWorker) processJob(ctx context.Context, job domain.DownloadJob) {
	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldJobID:       job.ID,
		logger.FieldMediaItemID: job.MediaItemID,
	})

	jobCtx := ctx
	if w.cfg.DownloadTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, w.cfg.DownloadTimeout)
		defer cancel()
	}

	asset, err := w.download(jobCtx, job)
	if err != nil {
		w.fail(ctx, job, err)
		return
	}
	err = w.persist(ctx, func(ctx context.Context) error {
		return w.store.Assets.Upsert(ctx, asset)
	})
	if err != nil {
		w.fail(ctx, job, domain.StoreWriteError("upsert asset", err))
		return
	}
	err = w.persist(ctx, func(ctx context.Context) error {
		return w.store.Jobs.MarkComplete(ctx, job.ID)
	})
	if err != nil {
		// The asset is stored; only ReclaimStale can move this job out of processing.
		logger.FromContext(ctx).WithError(err).Error("Failed to mark download job complete")
		return
	}

	logger.With(logger.Fields{logger.FieldSize: asset.SizeBytes}).Info(ctx, "Stored media asset %s", asset.VideoPath)
}

// download copies the job's video and thumbnail into object storage and returns
// the asset row describing them.
func (w *DownloadWorker) download(ctx context.Context, job domain.DownloadJob) (*domain.MediaAsset, error) {
	video, err := w.fetcher.Fetch(ctx, job.VideoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download video: %w", err)
	}
	videoPath := fmt.Sprintf("videos/%s-%d.mp4", job.MediaItemID, w.now().UnixMilli())
	if err := w.upload(ctx, videoPath, video.Data, videoContentType); err != nil {
		return nil, err
	}

	now := w.now().UTC()
	asset := &domain.MediaAsset{
		MediaItemID:      job.MediaItemID,
		VideoPath:        videoPath,
		DownloadStatus:   domain.AssetStatusComplete,
		SizeBytes:        int64(len(video.Data)),
		Checksum:         calculateMD5(video.Data),
		Retries:          0,
		LastDownloadedAt: now,
	}

	if job.ThumbnailURL == nil || *job.ThumbnailURL == "" {
		return asset, nil
	}
	if err := w.storeThumbnail(ctx, job, asset); err != nil {
		if w.cfg.ThumbnailPolicy != config.ThumbnailBestEffort {
			return nil, err
		}
		logger.FromContext(ctx).WithError(err).Warn("Thumbnail skipped")
	}
	return asset, nil
}

func (w *DownloadWorker) storeThumbnail(ctx context.Context, job domain.DownloadJob, asset *domain.MediaAsset) error {
	thumb, err := w.fetcher.Fetch(ctx, *job.ThumbnailURL)
	if err != nil {
		return fmt.Errorf("failed to download thumbnail: %w", err)
	}

	format := ""
	if info, err := probeThumbnail(thumb.Data); err != nil {
		logger.CtxDebug(ctx, "Thumbnail header not decoded: %v", err)
	} else {
		format = info.Format
		asset.ThumbnailWidth = info.Width
		asset.ThumbnailHeight = info.Height
	}

	ext := thumbnailExt(format, thumb.ContentType)
	path := fmt.Sprintf("thumbnails/%s-%d.%s", job.MediaItemID, w.now().UnixMilli(), ext)
	if err := w.upload(ctx, path, thumb.Data, getContentType(ext)); err != nil {
		return err
	}
	asset.ThumbnailPath = &path
	return nil
}

func (w *DownloadWorker) upload(ctx context.Context, key string, data []byte, contentType string) error {
	if err := w.storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return domain.StoreWriteError("upload "+key, err)
	}
	return nil
}

// fail marks the job failed with err as its reason. A job that cannot be marked
// stays processing until reclaimed.
func (w *DownloadWorker) fail(ctx context.Context, job domain.DownloadJob, err error) {
	logger.FromContext(ctx).WithError(err).Warn("Download job failed")
	markErr := w.persist(ctx, func(ctx context.Context) error {
		return w.store.Jobs.MarkFailed(ctx, job.ID, err.Error())
	})
	if markErr != nil {
		logger.FromContext(ctx).WithError(markErr).Error("Failed to mark download job failed")
	}
}

// persist runs a post-download write on a context that neither the caller nor
// the download timeout can cancel, retrying with linear backoff.
// domain.ErrNotFound is final: the job is no longer processing.
func (w *DownloadWorker) persist(ctx context.Context, write func(ctx context.Context) error) error {
	ctx = context.WithoutCancel(ctx)
	var err error
	for attempt := 1; attempt <= statusWriteAttempts; attempt++ {
		if err = write(ctx); err == nil || errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if attempt < statusWriteAttempts {
			logger.FromContext(ctx).WithError(err).Warnf("Job write failed, retrying (attempt %d)", attempt)
			time.Sleep(w.retryDelay * time.Duration(attempt))
		}
	}
	return err
}
