package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/labops-api/internal/model"
	apperrors "github.com/jwalitptl/labops-api/pkg/errors"
)

type RawResultRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]model.RawResult
}

func NewRawResultRepository() *RawResultRepository {
	return &RawResultRepository{items: make(map[uuid.UUID]model.RawResult)}
}

func (r *RawResultRepository) Create(ctx context.Context, result *model.RawResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	result.Version = 1
	r.items[result.ID] = *result
	return nil
}

func (r *RawResultRepository) Get(ctx context.Context, id uuid.UUID) (*model.RawResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, apperrors.NewNotFound("raw result", nil)
	}
	out := item
	return &out, nil
}

func (r *RawResultRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return apperrors.NewNotFound("raw result", nil)
	}
	delete(r.items, id)
	return nil
}

func (r *RawResultRepository) List(ctx context.Context) ([]*model.RawResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.RawResult, 0, len(r.items))
	for _, item := range r.items {
		c := item
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CapturedAt.Before(out[j].CapturedAt) })
	return out, nil
}

func (r *RawResultRepository) ListUnsynced(ctx context.Context) ([]*model.RawResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.RawResult
	for _, item := range r.items {
		if item.BackedUp && item.SyncedToMonitoring {
			continue
		}
		c := item
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CapturedAt.Before(out[j].CapturedAt) })
	return out, nil
}

// MarkSynced flips both flags under one lock acquisition so no reader ever
// observes a half-synced record.
func (r *RawResultRepository) MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return apperrors.NewNotFound("raw result", nil)
	}
	item.BackedUp = true
	item.SyncedToMonitoring = true
	item.SyncedAt = &at
	item.Version++
	item.UpdatedAt = at
	r.items[id] = item
	return nil
}
