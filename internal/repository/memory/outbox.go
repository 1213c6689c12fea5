package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/labops-api/internal/model"
	apperrors "github.com/jwalitptl/labops-api/pkg/errors"
)

type OutboxRepository struct {
	mu     sync.Mutex
	events []model.OutboxEvent
}

func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{}
}

func (r *OutboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, *event)
	return nil
}

func (r *OutboxRepository) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.OutboxEvent
	for i := range r.events {
		if r.events[i].Status != string(model.OutboxStatusPending) {
			continue
		}
		c := r.events[i]
		out = append(out, &c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *OutboxRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.events {
		if r.events[i].ID == id {
			now := time.Now()
			r.events[i].Status = string(status)
			r.events[i].ErrorMessage = errMsg
			r.events[i].UpdatedAt = now
			if status == model.OutboxStatusProcessed {
				r.events[i].ProcessedAt = &now
			}
			return nil
		}
	}
	return apperrors.NewNotFound("outbox event", nil)
}
