package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/labops-api/internal/model"
	"github.com/jwalitptl/labops-api/internal/repository"
)

type auditRepository struct {
	BaseRepository
}

func NewAuditRepository(base BaseRepository) repository.AuditRepository {
	return &auditRepository{base}
}

// Create reserves the next per-entity sequence inside the insert
// transaction, keeping append order and sequence order identical. The
// sequence comes from a counter row upserted under its row lock; two
// concurrent writers for the same entity serialize on that row. A unique
// index on (entity_type, entity_id, sequence) backs the invariant.
func (r *auditRepository) Create(ctx context.Context, record *model.AuditRecord) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &record.Sequence, `
            INSERT INTO audit_sequences (entity_type, entity_id, seq)
            VALUES ($1, $2, 1)
            ON CONFLICT (entity_type, entity_id)
            DO UPDATE SET seq = audit_sequences.seq + 1
            RETURNING seq
        `, record.EntityType, record.EntityID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
            INSERT INTO audit_records (
                id, sequence, actor_id, actor_role, action, entity_type,
                entity_id, before, after, reason, created_at
            ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        `,
			record.ID,
			record.Sequence,
			record.ActorID,
			record.ActorRole,
			record.Action,
			record.EntityType,
			record.EntityID,
			record.Before,
			record.After,
			record.Reason,
			record.CreatedAt,
		)
		return err
	})
}

func (r *auditRepository) List(ctx context.Context, filter *model.AuditFilter) ([]*model.AuditRecord, error) {
	query := `SELECT * FROM audit_records WHERE 1=1`
	var args []interface{}

	if filter != nil {
		if filter.EntityType != "" {
			args = append(args, filter.EntityType)
			query += fmt.Sprintf(" AND entity_type = $%d", len(args))
		}
		if filter.EntityID != nil {
			args = append(args, *filter.EntityID)
			query += fmt.Sprintf(" AND entity_id = $%d", len(args))
		}
		if filter.ActorID != nil {
			args = append(args, *filter.ActorID)
			query += fmt.Sprintf(" AND actor_id = $%d", len(args))
		}
		if filter.Action != "" {
			args = append(args, filter.Action)
			query += fmt.Sprintf(" AND action = $%d", len(args))
		}
	}
	query += ` ORDER BY entity_type, entity_id, sequence`

	var out []*model.AuditRecord
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *auditRepository) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM audit_records WHERE created_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
