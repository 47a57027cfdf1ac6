package storage

import (
	"strings"

	"github.com/timmy/reelvault/internal/config"
)

// NewStorage creates an ObjectStorage instance based on the configuration.
// Parameters:
//   - cfg: storage configuration; an empty type is detected from the endpoint.
// Returns:
//   - ObjectStorage: initialized storage client implementation.
//   - error: non-nil if the storage client cannot be created.
func NewStorage(cfg *config.StorageConfig) (ObjectStorage, error) {
	resolved := *cfg
	if resolved.Type == "" {
		resolved.Type = string(detectStorageType(resolved.Endpoint))
	}

	if StorageType(resolved.Type) == StorageTypeLocal {
		return NewLocalStorage(resolved.LocalPath, resolved.PublicURL)
	}
	return NewS3Storage(&resolved)
}

// detectStorageType guesses the backend from the endpoint host.
// No endpoint means local filesystem storage.
func detectStorageType(endpoint string) StorageType {
	endpoint = strings.ToLower(endpoint)

	switch {
	case endpoint == "":
		return StorageTypeLocal
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return StorageTypeR2
	case strings.Contains(endpoint, "amazonaws.com"):
		return StorageTypeS3
	default:
		return StorageTypeS3Compatible
	}
}
