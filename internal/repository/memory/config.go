package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/labops-api/internal/model"
	apperrors "github.com/jwalitptl/labops-api/pkg/errors"
)

type ConfigRepository struct {
	mu         sync.RWMutex
	items      map[uuid.UUID]model.ConfigurationItem
	generation int64
}

func NewConfigRepository() *ConfigRepository {
	return &ConfigRepository{items: make(map[uuid.UUID]model.ConfigurationItem)}
}

func (r *ConfigRepository) Create(ctx context.Context, item *model.ConfigurationItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item.Version = 1
	r.items[item.ID] = *item
	return nil
}

func (r *ConfigRepository) Get(ctx context.Context, id uuid.UUID) (*model.ConfigurationItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok || item.DeletedAt != nil {
		return nil, apperrors.NewNotFound("configuration", nil)
	}
	out := item
	return &out, nil
}

func (r *ConfigRepository) GetByNormalizedKey(ctx context.Context, key string) (*model.ConfigurationItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	normalized := model.NormalizeConfigKey(key)
	for _, item := range r.items {
		if item.DeletedAt == nil && model.NormalizeConfigKey(item.Key) == normalized {
			out := item
			return &out, nil
		}
	}
	return nil, apperrors.NewNotFound("configuration", nil)
}

func (r *ConfigRepository) Update(ctx context.Context, item *model.ConfigurationItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[item.ID]
	if !ok || current.DeletedAt != nil {
		return apperrors.NewNotFound("configuration", nil)
	}
	if current.Version != item.Version {
		return apperrors.NewConflict("configuration")
	}
	item.Version++
	item.UpdatedAt = time.Now()
	r.items[item.ID] = *item
	return nil
}

// SoftDelete keeps the row for export history; listings filter it out.
func (r *ConfigRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok || item.DeletedAt != nil {
		return apperrors.NewNotFound("configuration", nil)
	}
	now := time.Now()
	item.DeletedAt = &now
	item.Version++
	r.items[id] = item
	return nil
}

func (r *ConfigRepository) List(ctx context.Context, filter *model.ConfigFilter) ([]*model.ConfigurationItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.ConfigurationItem, 0, len(r.items))
	for _, item := range r.items {
		if item.DeletedAt != nil {
			continue
		}
		if filter != nil && filter.Scope != "" && item.Scope != filter.Scope {
			continue
		}
		if filter != nil && filter.SearchTerm != "" &&
			!strings.Contains(model.NormalizeConfigKey(item.Key), model.NormalizeConfigKey(filter.SearchTerm)) {
			continue
		}
		c := item
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r *ConfigRepository) BumpGeneration(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.generation++
	return r.generation, nil
}

func (r *ConfigRepository) Generation(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.generation, nil
}
