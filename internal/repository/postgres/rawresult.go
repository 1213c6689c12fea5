package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/labops-api/internal/model"
	"github.com/jwalitptl/labops-api/internal/repository"
	apperrors "github.com/jwalitptl/labops-api/pkg/errors"
)

type rawResultRepository struct {
	BaseRepository
}

func NewRawResultRepository(base BaseRepository) repository.RawResultRepository {
	return &rawResultRepository{base}
}

func (r *rawResultRepository) Create(ctx context.Context, result *model.RawResult) error {
	result.Version = 1
	query := `
        INSERT INTO raw_results (
            id, version, instrument_serial, sample_code, backed_up,
            synced_to_monitoring, captured_at, synced_at, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `
	_, err := r.db.ExecContext(ctx, query,
		result.ID,
		result.Version,
		result.InstrumentSerial,
		result.SampleCode,
		result.BackedUp,
		result.SyncedToMonitoring,
		result.CapturedAt,
		result.SyncedAt,
		result.CreatedAt,
		result.UpdatedAt,
	)
	return err
}

func (r *rawResultRepository) Get(ctx context.Context, id uuid.UUID) (*model.RawResult, error) {
	var result model.RawResult
	err := r.db.GetContext(ctx, &result, `SELECT * FROM raw_results WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("raw result", err)
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete re-checks the backup gate in the statement itself so a concurrent
// writer can never slip an unsynced record through.
func (r *rawResultRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM raw_results WHERE id = $1 AND backed_up AND synced_to_monitoring`, id)
	if err != nil {
		return err
	}
	return checkFound(res, "raw result")
}

func (r *rawResultRepository) List(ctx context.Context) ([]*model.RawResult, error) {
	var out []*model.RawResult
	if err := r.db.SelectContext(ctx, &out, `SELECT * FROM raw_results ORDER BY captured_at`); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *rawResultRepository) ListUnsynced(ctx context.Context) ([]*model.RawResult, error) {
	var out []*model.RawResult
	query := `SELECT * FROM raw_results WHERE NOT (backed_up AND synced_to_monitoring) ORDER BY captured_at`
	if err := r.db.SelectContext(ctx, &out, query); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkSynced sets both flags in a single statement; there is no observable
// intermediate state.
func (r *rawResultRepository) MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
        UPDATE raw_results SET
            backed_up = TRUE, synced_to_monitoring = TRUE,
            synced_at = $1, version = version + 1, updated_at = $1
        WHERE id = $2
    `
	res, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return err
	}
	return checkFound(res, "raw result")
}
