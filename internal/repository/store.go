package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that share one database handle, so callers
// can run several of them inside a single transaction.
type Store struct {
	db       *gorm.DB
	Searches *SearchRepository
	Media    *MediaRepository
	Assets   *AssetRepository
	Jobs     *DownloadJobRepository
}

// NewStore binds every repository to db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:       db,
		Searches: NewSearchRepository(db),
		Media:    NewMediaRepository(db),
		Assets:   NewAssetRepository(db),
		Jobs:     NewDownloadJobRepository(db),
	}
}

// DB returns the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn with a Store bound to a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
