package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jwalitptl/labops-api/internal/model"
	apperrors "github.com/jwalitptl/labops-api/pkg/errors"
)

type SyncTargetRepository struct {
	mu      sync.RWMutex
	targets map[model.ServiceScope]model.SyncTarget
}

// NewSyncTargetRepository seeds one target per downstream scope, initially
// synced at generation zero.
func NewSyncTargetRepository() *SyncTargetRepository {
	targets := make(map[model.ServiceScope]model.SyncTarget)
	for _, scope := range model.AllScopes() {
		targets[scope] = model.SyncTarget{Scope: scope, Status: model.SyncSynced}
	}
	return &SyncTargetRepository{targets: targets}
}

func (r *SyncTargetRepository) Get(ctx context.Context, scope model.ServiceScope) (*model.SyncTarget, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	target, ok := r.targets[scope]
	if !ok {
		return nil, apperrors.NewNotFound("sync target", nil)
	}
	out := target
	return &out, nil
}

func (r *SyncTargetRepository) List(ctx context.Context) ([]*model.SyncTarget, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.SyncTarget, 0, len(r.targets))
	for _, target := range r.targets {
		c := target
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Scope < out[j].Scope })
	return out, nil
}

func (r *SyncTargetRepository) MarkAllPending(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for scope, target := range r.targets {
		target.Status = model.SyncPending
		r.targets[scope] = target
	}
	return nil
}

func (r *SyncTargetRepository) Update(ctx context.Context, target *model.SyncTarget) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.targets[target.Scope]; !ok {
		return apperrors.NewNotFound("sync target", nil)
	}
	r.targets[target.Scope] = *target
	return nil
}
