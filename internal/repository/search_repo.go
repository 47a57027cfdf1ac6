package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/timmy/reelvault/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SearchRepository handles search query persistence.
type SearchRepository struct {
	db *gorm.DB
}

// NewSearchRepository creates a new SearchRepository.
func NewSearchRepository(db *gorm.DB) *SearchRepository {
	return &SearchRepository{db: db}
}

// SearchFilter narrows a history listing.
type SearchFilter struct {
	Keyword  string
	Platform domain.Platform
	From     *time.Time
	To       *time.Time
	Limit    int
}

// Create inserts a new search query.
func (r *SearchRepository) Create(ctx context.Context, q *domain.SearchQuery) error {
	return r.db.WithContext(ctx).Create(q).Error
}

// GetByID retrieves a search query by ID.
// Returns:
//   - *domain.SearchQuery: the stored search.
//   - error: domain.ErrNotFound when no row matches.
func (r *SearchRepository) GetByID(ctx context.Context, id string) (*domain.SearchQuery, error) {
	return r.get(r.db.WithContext(ctx), id)
}

// GetForUpdate retrieves a search query and, on PostgreSQL, row-locks it until
// the surrounding transaction ends so concurrent continuations serialize.
func (r *SearchRepository) GetForUpdate(ctx context.Context, id string) (*domain.SearchQuery, error) {
	tx := r.db.WithContext(ctx)
	if isPostgres(r.db) {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.get(tx, id)
}

func (r *SearchRepository) get(tx *gorm.DB, id string) (*domain.SearchQuery, error) {
	var q domain.SearchQuery
	if err := tx.First(&q, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

// UpdateProgress writes the mutable pagination fields back onto an existing search.
func (r *SearchRepository) UpdateProgress(ctx context.Context, q *domain.SearchQuery) error {
	result := r.db.WithContext(ctx).Model(q).
		Select("platform_status", "cursor_state", "result_counts", "duration_ms", "raw_payload", "updated_at").
		Updates(q)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns searches newest first.
func (r *SearchRepository) List(ctx context.Context, f SearchFilter) ([]domain.SearchQuery, error) {
	tx := r.db.WithContext(ctx).Model(&domain.SearchQuery{})
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		tx = tx.Where("LOWER(keyword) LIKE ?", "%"+strings.ToLower(kw)+"%")
	}
	if f.From != nil {
		tx = tx.Where("requested_at >= ?", f.From.UTC())
	}
	if f.To != nil {
		tx = tx.Where("requested_at <= ?", f.To.UTC())
	}
	if f.Platform != "" {
		// result_counts only carries keys for platforms that returned results.
		tx = tx.Where("result_counts LIKE ?", `%"`+string(f.Platform)+`":%`)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 25
	}

	var out []domain.SearchQuery
	if err := tx.Order("requested_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
