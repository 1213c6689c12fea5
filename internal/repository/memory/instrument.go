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

// InstrumentRepository is the in-memory store used by tests and local runs.
// Entities are stored by value so callers never share memory with the store.
type InstrumentRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]model.Instrument
}

func NewInstrumentRepository() *InstrumentRepository {
	return &InstrumentRepository{items: make(map[uuid.UUID]model.Instrument)}
}

func (r *InstrumentRepository) Create(ctx context.Context, instrument *model.Instrument) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	instrument.Version = 1
	r.items[instrument.ID] = cloneInstrument(*instrument)
	return nil
}

func (r *InstrumentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Instrument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok || item.DeletedAt != nil {
		return nil, apperrors.NewNotFound("instrument", nil)
	}
	out := cloneInstrument(item)
	return &out, nil
}

func (r *InstrumentRepository) GetBySerialNumber(ctx context.Context, serial string) (*model.Instrument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.items {
		if item.DeletedAt == nil && item.SerialNumber == serial {
			out := cloneInstrument(item)
			return &out, nil
		}
	}
	return nil, apperrors.NewNotFound("instrument", nil)
}

func (r *InstrumentRepository) Update(ctx context.Context, instrument *model.Instrument) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[instrument.ID]
	if !ok || current.DeletedAt != nil {
		return apperrors.NewNotFound("instrument", nil)
	}
	if current.Version != instrument.Version {
		return apperrors.NewConflict("instrument")
	}
	instrument.Version++
	instrument.UpdatedAt = time.Now()
	r.items[instrument.ID] = cloneInstrument(*instrument)
	return nil
}

func (r *InstrumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return apperrors.NewNotFound("instrument", nil)
	}
	delete(r.items, id)
	return nil
}

func (r *InstrumentRepository) List(ctx context.Context) ([]*model.Instrument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Instrument, 0, len(r.items))
	for _, item := range r.items {
		if item.DeletedAt != nil {
			continue
		}
		c := cloneInstrument(item)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func cloneInstrument(in model.Instrument) model.Instrument {
	in.ReagentProfiles = append([]string(nil), in.ReagentProfiles...)
	in.ConfigProfiles = append([]string(nil), in.ConfigProfiles...)
	if in.DeactivatedAt != nil {
		t := *in.DeactivatedAt
		in.DeactivatedAt = &t
	}
	if in.PurgeAfter != nil {
		t := *in.PurgeAfter
		in.PurgeAfter = &t
	}
	return in
}
