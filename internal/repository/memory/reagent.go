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

type ReagentRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]model.Reagent
}

func NewReagentRepository() *ReagentRepository {
	return &ReagentRepository{items: make(map[uuid.UUID]model.Reagent)}
}

func (r *ReagentRepository) Create(ctx context.Context, reagent *model.Reagent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reagent.Version = 1
	r.items[reagent.ID] = *reagent
	return nil
}

func (r *ReagentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Reagent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, apperrors.NewNotFound("reagent", nil)
	}
	out := item
	return &out, nil
}

func (r *ReagentRepository) Update(ctx context.Context, reagent *model.Reagent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[reagent.ID]
	if !ok {
		return apperrors.NewNotFound("reagent", nil)
	}
	if current.Version != reagent.Version {
		return apperrors.NewConflict("reagent")
	}
	reagent.Version++
	reagent.UpdatedAt = time.Now()
	r.items[reagent.ID] = *reagent
	return nil
}

func (r *ReagentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return apperrors.NewNotFound("reagent", nil)
	}
	delete(r.items, id)
	return nil
}

func (r *ReagentRepository) List(ctx context.Context) ([]*model.Reagent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Reagent, 0, len(r.items))
	for _, item := range r.items {
		c := item
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
