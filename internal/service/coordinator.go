package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/reelvault/internal/domain"
	"github.com/timmy/reelvault/internal/logger"
	"github.com/timmy/reelvault/internal/repository"
	"gorm.io/datatypes"
)

// IngestCoordinator persists search pages: the search row, its media and the
// download jobs for new media.
type IngestCoordinator struct {
	store *repository.Store
	queue *JobQueue
}

// NewIngestCoordinator creates a coordinator.
func NewIngestCoordinator(store *repository.Store, queue *JobQueue) *IngestCoordinator {
	return &IngestCoordinator{store: store, queue: queue}
}

// PageBatch is the merged outcome of one fan-out across platforms.
type PageBatch struct {
	PlatformStatus domain.PlatformStatusMap
	// Cursors holds the next cursor each platform reported; absent or nil means none.
	Cursors  domain.CursorState
	Payloads map[domain.Platform]json.RawMessage
	Media    []domain.NormalizedMedia
	Duration time.Duration
}

// InitiateInput starts a new search lineage.
type InitiateInput struct {
	Keyword string
	// Filters is stored verbatim so later pages can reuse it.
	Filters     interface{}
	RequestedBy string
	PageBatch
}

// ContinueInput appends a page to an existing search.
type ContinueInput struct {
	SearchID string
	PageBatch
}

// IngestResult reports what one persisted page produced.
type IngestResult struct {
	SearchID   string
	Refs       []domain.MediaRef
	QueuedJobs int
}

// MediaIDs returns the stored ids of the page's media in input order.
func (r *IngestResult) MediaIDs() []string {
	ids := make([]string, len(r.Refs))
	for i, ref := range r.Refs {
		ids[i] = ref.StoreID
	}
	return ids
}

// Initiate records a new search with its first page.
// The cursor state comes only from this page.
func (c *IngestCoordinator) Initiate(ctx context.Context, in InitiateInput) (*IngestResult, error) {
	if in.Keyword == "" {
		return nil, fmt.Errorf("%w: keyword is required", domain.ErrValidation)
	}
	filters, err := json.Marshal(in.Filters)
	if err != nil {
		return nil, fmt.Errorf("%w: filters: %v", domain.ErrValidation, err)
	}
	raw, err := marshalPayloads(in.Payloads)
	if err != nil {
		return nil, err
	}

	requester := in.RequestedBy
	if requester == "" {
		requester = "anonymous"
	}
	search := &domain.SearchQuery{
		ID:             uuid.NewString(),
		Keyword:        in.Keyword,
		Filters:        datatypes.JSON(filters),
		RequestedBy:    requester,
		RequestedAt:    time.Now().UTC(),
		PlatformStatus: in.PlatformStatus,
		CursorState:    emptyCursorState().Merge(in.Cursors),
		ResultCounts:   domain.CountByPlatform(in.Media),
		DurationMs:     in.Duration.Milliseconds(),
		RawPayload:     raw,
	}
	ctx = logger.SetSearchID(ctx, search.ID)

	var refs []domain.MediaRef
	err = c.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Searches.Create(ctx, search); err != nil {
			return domain.StoreWriteError("insert search", err)
		}
		refs, err = tx.Media.UpsertBatch(ctx, search.ID, in.Media)
		return err
	})
	if err != nil {
		return nil, err
	}

	return c.finish(ctx, search.ID, in.Media, refs)
}

// Continue appends a page to an existing search. Cursors are sticky: a platform
// without a new cursor keeps its stored one. Counts accumulate.
// Returns domain.ErrNotFound when the search does not exist.
func (c *IngestCoordinator) Continue(ctx context.Context, in ContinueInput) (*IngestResult, error) {
	raw, err := marshalPayloads(in.Payloads)
	if err != nil {
		return nil, err
	}
	ctx = logger.SetSearchID(ctx, in.SearchID)

	var refs []domain.MediaRef
	err = c.store.Transaction(ctx, func(tx *repository.Store) error {
		search, err := tx.Searches.GetForUpdate(ctx, in.SearchID)
		if err != nil {
			return err
		}

		refs, err = tx.Media.UpsertBatch(ctx, search.ID, in.Media)
		if err != nil {
			return err
		}

		search.PlatformStatus = in.PlatformStatus
		search.CursorState = search.CursorState.Merge(in.Cursors)
		search.ResultCounts = search.ResultCounts.Add(domain.CountByPlatform(in.Media))
		search.DurationMs = in.Duration.Milliseconds()
		search.RawPayload = raw
		if err := tx.Searches.UpdateProgress(ctx, search); err != nil {
			return domain.StoreWriteError("update search", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return c.finish(ctx, in.SearchID, in.Media, refs)
}

// finish queues downloads once the page is committed, so a worker never claims
// a job whose media row is not yet visible.
func (c *IngestCoordinator) finish(ctx context.Context, searchID string, media []domain.NormalizedMedia, refs []domain.MediaRef) (*IngestResult, error) {
	queued, err := c.queue.Enqueue(ctx, media, refs)
	if err != nil {
		return nil, fmt.Errorf("failed to queue downloads for search %s: %w", searchID, err)
	}

	logger.With(logger.Fields{
		logger.FieldCount: len(refs),
	}).Info(ctx, "Persisted search page, %d downloads queued", queued)

	return &IngestResult{SearchID: searchID, Refs: refs, QueuedJobs: queued}, nil
}

func emptyCursorState() domain.CursorState {
	state := make(domain.CursorState, len(domain.AllPlatforms))
	for _, p := range domain.AllPlatforms {
		state[p] = nil
	}
	return state
}

func marshalPayloads(payloads map[domain.Platform]json.RawMessage) (datatypes.JSON, error) {
	if len(payloads) == 0 {
		return datatypes.JSON("{}"), nil
	}
	raw, err := json.Marshal(payloads)
	if err != nil {
		return nil, fmt.Errorf("failed to encode raw payload: %w", err)
	}
	return datatypes.JSON(raw), nil
}
