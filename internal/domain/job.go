package domain

import "time"

// JobStatus represents the status of a download job.
// Values include JobStatusQueued, JobStatusProcessing, JobStatusComplete, and JobStatusFailed.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusComplete   JobStatus = "complete"
	JobStatusFailed     JobStatus = "failed"
)

// ActiveJobStatuses are the statuses in which a job still owns its media item.
var ActiveJobStatuses = []JobStatus{JobStatusQueued, JobStatusProcessing}

// IsActive reports whether the job is waiting for or undergoing processing.
func (s JobStatus) IsActive() bool {
	return s == JobStatusQueued || s == JobStatusProcessing
}

// IsFinished reports whether the job reached a terminal state.
func (s JobStatus) IsFinished() bool {
	return s == JobStatusComplete || s == JobStatusFailed
}

// DownloadJob is one unit of download work for one media item.
type DownloadJob struct {
	ID            string     `gorm:"type:text;primaryKey" json:"id"`
	MediaItemID   string     `gorm:"type:text;not null;index:idx_download_jobs_media_item" json:"media_item_id"`
	VideoURL      string     `gorm:"type:text;not null" json:"video_url"`
	ThumbnailURL  *string    `gorm:"type:text" json:"thumbnail_url,omitempty"`
	Status        JobStatus  `gorm:"type:text;not null;default:queued;index:idx_download_jobs_status" json:"status"`
	FailureReason *string    `gorm:"type:text" json:"failure_reason,omitempty"`
	Attempts      int        `gorm:"not null;default:0" json:"attempts"`
	ClaimedAt     *time.Time `json:"claimed_at,omitempty"`
	AttemptedAt   *time.Time `json:"attempted_at,omitempty"`
	CreatedAt     time.Time  `gorm:"index:idx_download_jobs_created" json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName returns the database table name for DownloadJob.
func (DownloadJob) TableName() string {
	return "download_jobs"
}
