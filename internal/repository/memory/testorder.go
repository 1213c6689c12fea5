package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/labops-api/internal/model"
	apperrors "github.com/jwalitptl/labops-api/pkg/errors"
)

type TestOrderRepository struct {
	mu       sync.RWMutex
	orders   map[uuid.UUID]model.TestOrder
	results  map[uuid.UUID][]model.TestResult
	comments map[uuid.UUID][]model.Comment
}

func NewTestOrderRepository() *TestOrderRepository {
	return &TestOrderRepository{
		orders:   make(map[uuid.UUID]model.TestOrder),
		results:  make(map[uuid.UUID][]model.TestResult),
		comments: make(map[uuid.UUID][]model.Comment),
	}
}

func (r *TestOrderRepository) Create(ctx context.Context, order *model.TestOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order.Version = 1
	r.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (r *TestOrderRepository) Get(ctx context.Context, id uuid.UUID) (*model.TestOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, apperrors.NewNotFound("test order", nil)
	}
	out := cloneOrder(order)
	out.Results = append([]model.TestResult(nil), r.results[id]...)
	out.Comments = append([]model.Comment(nil), r.comments[id]...)
	return &out, nil
}

func (r *TestOrderRepository) Update(ctx context.Context, order *model.TestOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.orders[order.ID]
	if !ok {
		return apperrors.NewNotFound("test order", nil)
	}
	if current.Version != order.Version {
		return apperrors.NewConflict("test order")
	}
	order.Version++
	order.UpdatedAt = time.Now()
	r.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (r *TestOrderRepository) List(ctx context.Context) ([]*model.TestOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.TestOrder, 0, len(r.orders))
	for id, order := range r.orders {
		c := cloneOrder(order)
		c.Comments = append([]model.Comment(nil), r.comments[id]...)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *TestOrderRepository) AttachResults(ctx context.Context, orderID uuid.UUID, results []model.TestResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[orderID]; !ok {
		return apperrors.NewNotFound("test order", nil)
	}
	r.results[orderID] = append([]model.TestResult(nil), results...)
	return nil
}

func (r *TestOrderRepository) ListResults(ctx context.Context, orderID uuid.UUID) ([]model.TestResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.orders[orderID]; !ok {
		return nil, apperrors.NewNotFound("test order", nil)
	}
	return append([]model.TestResult(nil), r.results[orderID]...), nil
}

func (r *TestOrderRepository) AddComment(ctx context.Context, comment *model.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[comment.TestOrderID]; !ok {
		return apperrors.NewNotFound("test order", nil)
	}
	r.comments[comment.TestOrderID] = append(r.comments[comment.TestOrderID], *comment)
	return nil
}

func (r *TestOrderRepository) GetComment(ctx context.Context, orderID, commentID uuid.UUID) (*model.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.comments[orderID] {
		if c.ID == commentID {
			out := c
			return &out, nil
		}
	}
	return nil, apperrors.NewNotFound("comment", nil)
}

func (r *TestOrderRepository) UpdateComment(ctx context.Context, comment *model.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.comments[comment.TestOrderID]
	for i, c := range list {
		if c.ID == comment.ID {
			comment.UpdatedAt = time.Now()
			list[i] = *comment
			return nil
		}
	}
	return apperrors.NewNotFound("comment", nil)
}

func (r *TestOrderRepository) DeleteComment(ctx context.Context, orderID, commentID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.comments[orderID]
	for i, c := range list {
		if c.ID == commentID {
			r.comments[orderID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return apperrors.NewNotFound("comment", nil)
}

func (r *TestOrderRepository) ListComments(ctx context.Context, orderID uuid.UUID) ([]model.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.orders[orderID]; !ok {
		return nil, apperrors.NewNotFound("test order", nil)
	}
	return append([]model.Comment(nil), r.comments[orderID]...), nil
}

func cloneOrder(in model.TestOrder) model.TestOrder {
	in.Results = nil
	in.Comments = nil
	if in.CompletedAt != nil {
		t := *in.CompletedAt
		in.CompletedAt = &t
	}
	if in.ReviewedAt != nil {
		t := *in.ReviewedAt
		in.ReviewedAt = &t
	}
	if in.AIReviewedAt != nil {
		t := *in.AIReviewedAt
		in.AIReviewedAt = &t
	}
	return in
}
