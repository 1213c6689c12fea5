package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/labops-api/internal/model"
	"github.com/jwalitptl/labops-api/internal/repository"
)

type outboxRepository struct {
	BaseRepository
}

func NewOutboxRepository(base BaseRepository) repository.OutboxRepository {
	return &outboxRepository{base}
}

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	query := `
        INSERT INTO outbox_events (
            id, event_type, payload, status, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6)
    `
	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.Payload,
		event.Status,
		event.CreatedAt,
		event.UpdatedAt,
	)
	return err
}

// GetPendingEvents locks the claimed rows so concurrent processors never
// double-publish.
func (r *outboxRepository) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	query := `
        SELECT id, event_type, payload, status, error_message,
               created_at, processed_at, updated_at, retry_count, retry_at
        FROM outbox_events
        WHERE status = $1
        ORDER BY created_at
        LIMIT $2
        FOR UPDATE SKIP LOCKED
    `
	var out []*model.OutboxEvent
	if err := r.db.SelectContext(ctx, &out, query, model.OutboxStatusPending, limit); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *outboxRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error {
	query := `
        UPDATE outbox_events SET
            status = $1, error_message = $2, updated_at = NOW(),
            processed_at = CASE WHEN $1 = 'PROCESSED' THEN NOW() ELSE processed_at END
        WHERE id = $3
    `
	res, err := r.db.ExecContext(ctx, query, status, errMsg, id)
	if err != nil {
		return err
	}
	return checkFound(res, "outbox event")
}
