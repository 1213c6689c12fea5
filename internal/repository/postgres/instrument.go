package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/labops-api/internal/model"
	"github.com/jwalitptl/labops-api/internal/repository"
	apperrors "github.com/jwalitptl/labops-api/pkg/errors"
)

type instrumentRepository struct {
	BaseRepository
}

func NewInstrumentRepository(base BaseRepository) repository.InstrumentRepository {
	return &instrumentRepository{base}
}

func (r *instrumentRepository) Create(ctx context.Context, instrument *model.Instrument) error {
	instrument.Version = 1
	query := `
        INSERT INTO instruments (
            id, version, name, serial_number, type, operational_status,
            activation, reagent_profiles, config_profiles, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `
	_, err := r.db.ExecContext(ctx, query,
		instrument.ID,
		instrument.Version,
		instrument.Name,
		instrument.SerialNumber,
		instrument.Type,
		instrument.OperationalStatus,
		instrument.Activation,
		pq.Array(instrument.ReagentProfiles),
		pq.Array(instrument.ConfigProfiles),
		instrument.CreatedAt,
		instrument.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return apperrors.NewDuplicate("serial number", instrument.SerialNumber)
	}
	return err
}

func (r *instrumentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Instrument, error) {
	query := `SELECT id, version, created_at, updated_at, deleted_at, name, serial_number, type, operational_status, activation, deactivated_at, purge_after, reagent_profiles, config_profiles FROM instruments WHERE id = $1 AND deleted_at IS NULL`
	return r.scanOne(ctx, query, id)
}

func (r *instrumentRepository) GetBySerialNumber(ctx context.Context, serial string) (*model.Instrument, error) {
	query := `SELECT id, version, created_at, updated_at, deleted_at, name, serial_number, type, operational_status, activation, deactivated_at, purge_after, reagent_profiles, config_profiles FROM instruments WHERE serial_number = $1 AND deleted_at IS NULL`
	return r.scanOne(ctx, query, serial)
}

func (r *instrumentRepository) scanOne(ctx context.Context, query string, arg interface{}) (*model.Instrument, error) {
	var instrument model.Instrument
	var reagentProfiles, configProfiles pq.StringArray
	row := r.db.QueryRowxContext(ctx, query, arg)
	if err := row.Scan(
		&instrument.ID, &instrument.Version, &instrument.CreatedAt, &instrument.UpdatedAt,
		&instrument.DeletedAt, &instrument.Name, &instrument.SerialNumber, &instrument.Type,
		&instrument.OperationalStatus, &instrument.Activation,
		&instrument.DeactivatedAt, &instrument.PurgeAfter,
		&reagentProfiles, &configProfiles,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("instrument", err)
		}
		return nil, err
	}
	instrument.ReagentProfiles = reagentProfiles
	instrument.ConfigProfiles = configProfiles
	return &instrument, nil
}

func (r *instrumentRepository) Update(ctx context.Context, instrument *model.Instrument) error {
	query := `
        UPDATE instruments SET
            version = version + 1,
            name = $1, operational_status = $2, activation = $3,
            deactivated_at = $4, purge_after = $5,
            reagent_profiles = $6, config_profiles = $7, updated_at = NOW()
        WHERE id = $8 AND version = $9 AND deleted_at IS NULL
    `
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, query,
			instrument.Name,
			instrument.OperationalStatus,
			instrument.Activation,
			instrument.DeactivatedAt,
			instrument.PurgeAfter,
			pq.Array(instrument.ReagentProfiles),
			pq.Array(instrument.ConfigProfiles),
			instrument.ID,
			instrument.Version,
		)
		if err != nil {
			return err
		}
		return checkVersionedUpdate(res, "instrument")
	})
}

func (r *instrumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE instruments SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	return checkFound(res, "instrument")
}

func (r *instrumentRepository) List(ctx context.Context) ([]*model.Instrument, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT id, version, created_at, updated_at, deleted_at, name, serial_number, type, operational_status, activation, deactivated_at, purge_after, reagent_profiles, config_profiles FROM instruments WHERE deleted_at IS NULL ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Instrument
	for rows.Next() {
		var instrument model.Instrument
		var reagentProfiles, configProfiles pq.StringArray
		if err := rows.Scan(
			&instrument.ID, &instrument.Version, &instrument.CreatedAt, &instrument.UpdatedAt,
			&instrument.DeletedAt, &instrument.Name, &instrument.SerialNumber, &instrument.Type,
			&instrument.OperationalStatus, &instrument.Activation,
			&instrument.DeactivatedAt, &instrument.PurgeAfter,
			&reagentProfiles, &configProfiles,
		); err != nil {
			return nil, err
		}
		instrument.ReagentProfiles = reagentProfiles
		instrument.ConfigProfiles = configProfiles
		out = append(out, &instrument)
	}
	return out, rows.Err()
}

func checkVersionedUpdate(res sql.Result, resource string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.NewConflict(resource)
	}
	return nil
}

func checkFound(res sql.Result, resource string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.NewNotFound(resource, nil)
	}
	return nil
}
