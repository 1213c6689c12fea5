package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/labops-api/internal/model"
	"github.com/jwalitptl/labops-api/internal/repository"
	apperrors "github.com/jwalitptl/labops-api/pkg/errors"
)

type reagentRepository struct {
	BaseRepository
}

func NewReagentRepository(base BaseRepository) repository.ReagentRepository {
	return &reagentRepository{base}
}

func (r *reagentRepository) Create(ctx context.Context, reagent *model.Reagent) error {
	reagent.Version = 1
	query := `
        INSERT INTO reagents (
            id, version, name, quantity, expiration_date, lot_number,
            vendor_name, vendor_id, contact_info, usage_status, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `
	_, err := r.db.ExecContext(ctx, query,
		reagent.ID,
		reagent.Version,
		reagent.Name,
		reagent.Quantity,
		reagent.ExpirationDate,
		reagent.LotNumber,
		reagent.VendorName,
		reagent.VendorID,
		reagent.ContactInfo,
		reagent.UsageStatus,
		reagent.CreatedAt,
		reagent.UpdatedAt,
	)
	return err
}

func (r *reagentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Reagent, error) {
	var reagent model.Reagent
	err := r.db.GetContext(ctx, &reagent, `SELECT * FROM reagents WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("reagent", err)
	}
	if err != nil {
		return nil, err
	}
	return &reagent, nil
}

func (r *reagentRepository) Update(ctx context.Context, reagent *model.Reagent) error {
	query := `
        UPDATE reagents SET
            version = version + 1,
            quantity = $1, usage_status = $2, updated_at = NOW()
        WHERE id = $3 AND version = $4
    `
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, query,
			reagent.Quantity,
			reagent.UsageStatus,
			reagent.ID,
			reagent.Version,
		)
		if err != nil {
			return err
		}
		return checkVersionedUpdate(res, "reagent")
	})
}

func (r *reagentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reagents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkFound(res, "reagent")
}

func (r *reagentRepository) List(ctx context.Context) ([]*model.Reagent, error) {
	var out []*model.Reagent
	if err := r.db.SelectContext(ctx, &out, `SELECT * FROM reagents ORDER BY created_at`); err != nil {
		return nil, err
	}
	return out, nil
}
