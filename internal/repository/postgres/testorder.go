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

type testOrderRepository struct {
	BaseRepository
}

func NewTestOrderRepository(base BaseRepository) repository.TestOrderRepository {
	return &testOrderRepository{base}
}

func (r *testOrderRepository) Create(ctx context.Context, order *model.TestOrder) error {
	order.Version = 1
	query := `
        INSERT INTO test_orders (
            id, version, patient_ref, panel_name, review_status,
            completed_at, reviewed_at, ai_reviewed_at, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `
	_, err := r.db.ExecContext(ctx, query,
		order.ID,
		order.Version,
		order.PatientRef,
		order.PanelName,
		order.ReviewStatus,
		order.CompletedAt,
		order.ReviewedAt,
		order.AIReviewedAt,
		order.CreatedAt,
		order.UpdatedAt,
	)
	return err
}

func (r *testOrderRepository) Get(ctx context.Context, id uuid.UUID) (*model.TestOrder, error) {
	var order model.TestOrder
	err := r.db.GetContext(ctx, &order, `SELECT * FROM test_orders WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("test order", err)
	}
	if err != nil {
		return nil, err
	}

	results, err := r.ListResults(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Results = results

	comments, err := r.ListComments(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Comments = comments
	return &order, nil
}

func (r *testOrderRepository) Update(ctx context.Context, order *model.TestOrder) error {
	query := `
        UPDATE test_orders SET
            version = version + 1,
            review_status = $1, completed_at = $2, reviewed_at = $3,
            ai_reviewed_at = $4, updated_at = NOW()
        WHERE id = $5 AND version = $6
    `
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, query,
			order.ReviewStatus,
			order.CompletedAt,
			order.ReviewedAt,
			order.AIReviewedAt,
			order.ID,
			order.Version,
		)
		if err != nil {
			return err
		}
		return checkVersionedUpdate(res, "test order")
	})
}

func (r *testOrderRepository) List(ctx context.Context) ([]*model.TestOrder, error) {
	var out []*model.TestOrder
	if err := r.db.SelectContext(ctx, &out, `SELECT * FROM test_orders ORDER BY created_at`); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *testOrderRepository) AttachResults(ctx context.Context, orderID uuid.UUID, results []model.TestResult) error {
	query := `
        INSERT INTO test_results (
            id, test_order_id, name, value, unit, reference_range, abnormal
        ) VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, result := range results {
			if _, err := tx.ExecContext(ctx, query,
				result.ID,
				orderID,
				result.Name,
				result.Value,
				result.Unit,
				result.ReferenceRange,
				result.Abnormal,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *testOrderRepository) ListResults(ctx context.Context, orderID uuid.UUID) ([]model.TestResult, error) {
	var out []model.TestResult
	if err := r.db.SelectContext(ctx, &out, `SELECT * FROM test_results WHERE test_order_id = $1`, orderID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *testOrderRepository) AddComment(ctx context.Context, comment *model.Comment) error {
	query := `
        INSERT INTO test_order_comments (
            id, test_order_id, author_id, author_name, message, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	_, err := r.db.ExecContext(ctx, query,
		comment.ID,
		comment.TestOrderID,
		comment.AuthorID,
		comment.AuthorName,
		comment.Message,
		comment.CreatedAt,
		comment.UpdatedAt,
	)
	return err
}

func (r *testOrderRepository) GetComment(ctx context.Context, orderID, commentID uuid.UUID) (*model.Comment, error) {
	var comment model.Comment
	err := r.db.GetContext(ctx, &comment,
		`SELECT * FROM test_order_comments WHERE test_order_id = $1 AND id = $2`, orderID, commentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("comment", err)
	}
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *testOrderRepository) UpdateComment(ctx context.Context, comment *model.Comment) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE test_order_comments SET message = $1, updated_at = NOW() WHERE id = $2 AND test_order_id = $3`,
		comment.Message, comment.ID, comment.TestOrderID)
	if err != nil {
		return err
	}
	return checkFound(res, "comment")
}

func (r *testOrderRepository) DeleteComment(ctx context.Context, orderID, commentID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM test_order_comments WHERE id = $1 AND test_order_id = $2`, commentID, orderID)
	if err != nil {
		return err
	}
	return checkFound(res, "comment")
}

func (r *testOrderRepository) ListComments(ctx context.Context, orderID uuid.UUID) ([]model.Comment, error) {
	var out []model.Comment
	if err := r.db.SelectContext(ctx, &out,
		`SELECT * FROM test_order_comments WHERE test_order_id = $1 ORDER BY created_at`, orderID); err != nil {
		return nil, err
	}
	return out, nil
}
