package storage

import (
	"context"
	"io"
)

// ObjectStorage stores downloaded media blobs under slash-separated keys
// such as "videos/<media_item_id>-<unix_ms>.mp4".
type ObjectStorage interface {
	// Upload writes size bytes from reader to key, replacing any existing object.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Download opens the object at key. The caller closes the reader.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// GetURL returns the URL clients use to fetch the object.
	GetURL(key string) string

	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)
}

// StorageType selects the ObjectStorage implementation.
type StorageType string

const (
	StorageTypeR2           StorageType = "r2"
	StorageTypeS3           StorageType = "s3"
	StorageTypeS3Compatible StorageType = "s3compatible"
	StorageTypeLocal        StorageType = "local"
)
