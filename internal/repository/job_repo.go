package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/reelvault/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// claimSQL flips up to N queued jobs to processing and returns their IDs in a
// single statement. PostgreSQL adds SKIP LOCKED so concurrent claimers never
// wait on or double-claim the same rows; SQLite serializes writers instead.
const (
	claimSQLPostgres = `UPDATE download_jobs
SET status = 'processing', claimed_at = ?, attempts = attempts + 1, updated_at = ?
WHERE id IN (
	SELECT id FROM download_jobs
	WHERE status = 'queued'
	ORDER BY created_at
	LIMIT ?
	FOR UPDATE SKIP LOCKED
)
RETURNING id`

	claimSQLSQLite = `UPDATE download_jobs
SET status = 'processing', claimed_at = ?, attempts = attempts + 1, updated_at = ?
WHERE id IN (
	SELECT id FROM download_jobs
	WHERE status = 'queued'
	ORDER BY created_at
	LIMIT ?
)
RETURNING id`
)

// DownloadJobRepository handles download job persistence.
type DownloadJobRepository struct {
	db *gorm.DB
}

// NewDownloadJobRepository creates a new DownloadJobRepository.
func NewDownloadJobRepository(db *gorm.DB) *DownloadJobRepository {
	return &DownloadJobRepository{db: db}
}

// ActiveMediaItemIDs returns which of ids already have a queued or processing job.
func (r *DownloadJobRepository) ActiveMediaItemIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if len(ids) == 0 {
		return out, nil
	}
	var owners []string
	if err := r.db.WithContext(ctx).Model(&domain.DownloadJob{}).
		Where("media_item_id IN ? AND status IN ?", ids, domain.ActiveJobStatuses).
		Distinct().
		Pluck("media_item_id", &owners).Error; err != nil {
		return nil, err
	}
	for _, id := range owners {
		out[id] = true
	}
	return out, nil
}

// CreateBatch inserts jobs as queued. Rows that would give a media item a second
// active job are skipped by the active-job unique index.
// Returns:
//   - int64: number of rows actually inserted.
//   - error: non-nil if the insert fails for any other reason.
func (r *DownloadJobRepository) CreateBatch(ctx context.Context, jobs []domain.DownloadJob) (int64, error) {
	if len(jobs) == 0 {
		return 0, nil
	}
	for i := range jobs {
		if jobs[i].ID == "" {
			jobs[i].ID = uuid.NewString()
		}
		jobs[i].Status = domain.JobStatusQueued
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&jobs)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ClaimNext atomically moves up to limit queued jobs to processing, oldest first,
// and returns them. Each claim increments the job's attempt counter.
func (r *DownloadJobRepository) ClaimNext(ctx context.Context, limit int) ([]domain.DownloadJob, error) {
	if limit <= 0 {
		return nil, nil
	}
	query := claimSQLSQLite
	if isPostgres(r.db) {
		query = claimSQLPostgres
	}

	now := time.Now().UTC()
	var ids []string
	if err := r.db.WithContext(ctx).Raw(query, now, now, limit).Scan(&ids).Error; err != nil {
		return nil, fmt.Errorf("failed to claim jobs: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var jobs []domain.DownloadJob
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("created_at").
		Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to load claimed jobs: %w", err)
	}
	return jobs, nil
}

// MarkComplete records a successful download.
func (r *DownloadJobRepository) MarkComplete(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return r.finish(ctx, id, map[string]interface{}{
		"status":         domain.JobStatusComplete,
		"failure_reason": nil,
		"attempted_at":   now,
	})
}

// MarkFailed records a terminal failure with its reason.
func (r *DownloadJobRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	now := time.Now().UTC()
	return r.finish(ctx, id, map[string]interface{}{
		"status":         domain.JobStatusFailed,
		"failure_reason": reason,
		"attempted_at":   now,
	})
}

func (r *DownloadJobRepository) finish(ctx context.Context, id string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&domain.DownloadJob{}).
		Where("id = ? AND status = ?", id, domain.JobStatusProcessing).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("job %s is not processing: %w", id, domain.ErrNotFound)
	}
	return nil
}

// RequeueFailed returns failed jobs with fewer than maxAttempts claims to the queue.
// Jobs at or above the threshold stay failed permanently. A job is skipped when its
// media item already has an active job or a stored asset.
func (r *DownloadJobRepository) RequeueFailed(ctx context.Context, maxAttempts int) (int64, error) {
	var requeued int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidates []domain.DownloadJob
		if err := tx.Where("status = ? AND attempts < ?", domain.JobStatusFailed, maxAttempts).
			Order("created_at DESC").
			Find(&candidates).Error; err != nil {
			return err
		}
		for _, job := range candidates {
			result := tx.Model(&domain.DownloadJob{}).
				Where("id = ? AND status = ?", job.ID, domain.JobStatusFailed).
				Where("NOT EXISTS (?)", tx.Model(&domain.DownloadJob{}).Select("1").
					Where("media_item_id = ? AND status IN ?", job.MediaItemID, domain.ActiveJobStatuses)).
				Where("NOT EXISTS (?)", tx.Model(&domain.MediaAsset{}).Select("1").
					Where("media_item_id = ?", job.MediaItemID)).
				Updates(map[string]interface{}{
					"status":         domain.JobStatusQueued,
					"failure_reason": nil,
					"claimed_at":     nil,
				})
			if result.Error != nil {
				return result.Error
			}
			requeued += result.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to requeue jobs: %w", err)
	}
	return requeued, nil
}

// ReclaimStale handles jobs left in processing since before cutoff, typically by a
// crashed worker. Jobs still under maxAttempts go back to queued; the rest are
// marked failed.
// Returns:
//   - requeued: jobs returned to the queue.
//   - failed: jobs dead-lettered.
func (r *DownloadJobRepository) ReclaimStale(ctx context.Context, cutoff time.Time, maxAttempts int) (requeued, failed int64, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := func() *gorm.DB {
			return tx.Model(&domain.DownloadJob{}).
				Where("status = ? AND claimed_at < ?", domain.JobStatusProcessing, cutoff.UTC())
		}
		res := stale().Where("attempts >= ?", maxAttempts).Updates(map[string]interface{}{
			"status":         domain.JobStatusFailed,
			"failure_reason": "lease expired after maximum attempts",
			"attempted_at":   time.Now().UTC(),
		})
		if res.Error != nil {
			return res.Error
		}
		failed = res.RowsAffected

		res = stale().Updates(map[string]interface{}{
			"status":     domain.JobStatusQueued,
			"claimed_at": nil,
		})
		if res.Error != nil {
			return res.Error
		}
		requeued = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to reclaim stale jobs: %w", err)
	}
	return requeued, failed, nil
}

// GetByID retrieves a job by ID.
func (r *DownloadJobRepository) GetByID(ctx context.Context, id string) (*domain.DownloadJob, error) {
	var job domain.DownloadJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// ListByMediaItem returns every job recorded for a media item, oldest first.
func (r *DownloadJobRepository) ListByMediaItem(ctx context.Context, mediaItemID string) ([]domain.DownloadJob, error) {
	var jobs []domain.DownloadJob
	err := r.db.WithContext(ctx).Where("media_item_id = ?", mediaItemID).Order("created_at").Find(&jobs).Error
	return jobs, err
}

// CountByStatus returns the number of jobs in each status.
func (r *DownloadJobRepository) CountByStatus(ctx context.Context) (map[domain.JobStatus]int64, error) {
	var rows []struct {
		Status domain.JobStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).Model(&domain.DownloadJob{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[domain.JobStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}
