package reviews

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores reviews in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu      sync.RWMutex
	byID    map[string]Review
	ordered []string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID: make(map[string]Review),
	}
}

// Create appends the review.
func (r *MemoryRepo) Create(ctx context.Context, review Review) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[review.ID] = review
	r.ordered = append(r.ordered, review.ID)
	return nil
}

// GetByID returns a review by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, reviewID string) (Review, error) {
	if err := ctx.Err(); err != nil {
		return Review{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	review, ok := r.byID[reviewID]
	if !ok {
		return Review{}, ErrNotFound
	}
	return review, nil
}

// List returns reviews newest-first with limit/offset.
func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 20
	}

	r.mu.RLock()
	out := make([]Review, 0, len(r.ordered))
	for _, id := range r.ordered {
		out = append(out, r.byID[id])
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return []Review{}, nil
	}
	end := len(out)
	if offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

// ListRecords returns completed reviews' records in append order.
func (r *MemoryRepo) ListRecords(ctx context.Context) ([]CaseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []CaseRecord
	for _, id := range r.ordered {
		review := r.byID[id]
		if review.Status != StatusCompleted {
			continue
		}
		out = append(out, review.Record)
	}
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
