package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks caller input that cannot be processed.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a referenced search, media item or asset that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUpstreamFetch marks a download source that was unreachable or returned a non-success status.
	ErrUpstreamFetch = errors.New("upstream fetch failed")
	// ErrStoreWrite marks a failed relational or blob write.
	ErrStoreWrite = errors.New("store write failed")
)

// DownloadError is returned when a source URL answers with a non-success status.
type DownloadError struct {
	URL        string
	StatusCode int
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: unexpected status %d", e.URL, e.StatusCode)
}

// Is lets errors.Is(err, ErrUpstreamFetch) match a DownloadError.
func (e *DownloadError) Is(target error) bool {
	return target == ErrUpstreamFetch
}

// StoreWriteError wraps err so that it matches ErrStoreWrite while keeping the cause.
func StoreWriteError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreWrite, op, err)
}
