package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/labops-api/internal/model"
	"github.com/jwalitptl/labops-api/internal/repository"
	apperrors "github.com/jwalitptl/labops-api/pkg/errors"
)

type configRepository struct {
	BaseRepository
}

func NewConfigRepository(base BaseRepository) repository.ConfigRepository {
	return &configRepository{base}
}

func (r *configRepository) Create(ctx context.Context, item *model.ConfigurationItem) error {
	item.Version = 1
	query := `
        INSERT INTO configurations (
            id, version, key, normalized_key, value, scope, description,
            updated_by, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `
	_, err := r.db.ExecContext(ctx, query,
		item.ID,
		item.Version,
		item.Key,
		model.NormalizeConfigKey(item.Key),
		item.Value,
		item.Scope,
		item.Description,
		item.UpdatedBy,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return apperrors.NewDuplicate("configuration key", model.NormalizeConfigKey(item.Key))
	}
	return err
}

func (r *configRepository) Get(ctx context.Context, id uuid.UUID) (*model.ConfigurationItem, error) {
	return r.getWhere(ctx, `id = $1`, id)
}

func (r *configRepository) GetByNormalizedKey(ctx context.Context, key string) (*model.ConfigurationItem, error) {
	return r.getWhere(ctx, `normalized_key = $1`, model.NormalizeConfigKey(key))
}

func (r *configRepository) getWhere(ctx context.Context, where string, arg interface{}) (*model.ConfigurationItem, error) {
	var item model.ConfigurationItem
	query := `
        SELECT id, version, created_at, updated_at, deleted_at, key, value,
               scope, description, updated_by
        FROM configurations WHERE deleted_at IS NULL AND ` + where
	err := r.db.GetContext(ctx, &item, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("configuration", err)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *configRepository) Update(ctx context.Context, item *model.ConfigurationItem) error {
	query := `
        UPDATE configurations SET
            version = version + 1,
            value = $1, description = $2, updated_by = $3, updated_at = NOW()
        WHERE id = $4 AND version = $5 AND deleted_at IS NULL
    `
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, query,
			item.Value,
			item.Description,
			item.UpdatedBy,
			item.ID,
			item.Version,
		)
		if err != nil {
			return err
		}
		return checkVersionedUpdate(res, "configuration")
	})
}

func (r *configRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE configurations SET deleted_at = NOW(), version = version + 1 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	return checkFound(res, "configuration")
}

func (r *configRepository) List(ctx context.Context, filter *model.ConfigFilter) ([]*model.ConfigurationItem, error) {
	query := `
        SELECT id, version, created_at, updated_at, deleted_at, key, value,
               scope, description, updated_by
        FROM configurations WHERE deleted_at IS NULL
    `
	var args []interface{}
	if filter != nil && filter.Scope != "" {
		args = append(args, filter.Scope)
		query += fmt.Sprintf(" AND scope = $%d", len(args))
	}
	if filter != nil && filter.SearchTerm != "" {
		args = append(args, "%"+model.NormalizeConfigKey(filter.SearchTerm)+"%")
		query += fmt.Sprintf(" AND normalized_key LIKE $%d", len(args))
	}
	query += ` ORDER BY key`

	var out []*model.ConfigurationItem
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// The generation counter lives in a single-row table; UPDATE ... RETURNING
// makes the bump atomic across writers.
func (r *configRepository) BumpGeneration(ctx context.Context) (int64, error) {
	var generation int64
	err := r.db.GetContext(ctx, &generation,
		`UPDATE config_generation SET generation = generation + 1 RETURNING generation`)
	return generation, err
}

func (r *configRepository) Generation(ctx context.Context) (int64, error) {
	var generation int64
	err := r.db.GetContext(ctx, &generation, `SELECT generation FROM config_generation`)
	return generation, err
}
