package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jwalitptl/labops-api/internal/model"
	"github.com/jwalitptl/labops-api/internal/repository"
	apperrors "github.com/jwalitptl/labops-api/pkg/errors"
)

type syncTargetRepository struct {
	BaseRepository
}

func NewSyncTargetRepository(base BaseRepository) repository.SyncTargetRepository {
	return &syncTargetRepository{base}
}

func (r *syncTargetRepository) Get(ctx context.Context, scope model.ServiceScope) (*model.SyncTarget, error) {
	var target model.SyncTarget
	err := r.db.GetContext(ctx, &target, `SELECT * FROM sync_targets WHERE scope = $1`, scope)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("sync target", err)
	}
	if err != nil {
		return nil, err
	}
	return &target, nil
}

func (r *syncTargetRepository) List(ctx context.Context) ([]*model.SyncTarget, error) {
	var out []*model.SyncTarget
	if err := r.db.SelectContext(ctx, &out, `SELECT * FROM sync_targets ORDER BY scope`); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *syncTargetRepository) MarkAllPending(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sync_targets SET status = $1`, model.SyncPending)
	return err
}

func (r *syncTargetRepository) Update(ctx context.Context, target *model.SyncTarget) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE sync_targets SET
            status = $1, last_sync_at = $2, error_log = $3, generation = $4
        WHERE scope = $5
    `, target.Status, target.LastSyncAt, target.ErrorLog, target.Generation, target.Scope)
	if err != nil {
		return err
	}
	return checkFound(res, "sync target")
}
