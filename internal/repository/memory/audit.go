package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jwalitptl/labops-api/internal/model"
)

type entityKey struct {
	entityType string
	entityID   string
}

type AuditRepository struct {
	mu      sync.RWMutex
	records []model.AuditRecord
	seqs    map[entityKey]int64
}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{seqs: make(map[entityKey]int64)}
}

// Create assigns the next per-entity sequence number under the same lock
// that appends the record, so sequence order always matches append order.
func (r *AuditRepository) Create(ctx context.Context, record *model.AuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := entityKey{record.EntityType, record.EntityID.String()}
	r.seqs[key]++
	record.Sequence = r.seqs[key]
	r.records = append(r.records, *record)
	return nil
}

func (r *AuditRepository) List(ctx context.Context, filter *model.AuditFilter) ([]*model.AuditRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.AuditRecord
	for i := range r.records {
		record := r.records[i]
		if filter != nil {
			if filter.EntityType != "" && record.EntityType != filter.EntityType {
				continue
			}
			if filter.EntityID != nil && record.EntityID != *filter.EntityID {
				continue
			}
			if filter.ActorID != nil && record.ActorID != *filter.ActorID {
				continue
			}
			if filter.Action != "" && record.Action != filter.Action {
				continue
			}
		}
		c := record
		out = append(out, &c)
	}
	return out, nil
}

func (r *AuditRepository) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.records[:0]
	var removed int64
	for _, record := range r.records {
		if record.CreatedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, record)
	}
	r.records = kept
	return removed, nil
}
