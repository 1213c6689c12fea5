package testorder

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/labops-api/internal/model"
	"github.com/jwalitptl/labops-api/internal/repository"
	"github.com/jwalitptl/labops-api/internal/service/audit"
	"github.com/jwalitptl/labops-api/internal/service/rbac"
	apperrors "github.com/jwalitptl/labops-api/pkg/errors"
)

type Service struct {
	repo    repository.TestOrderRepository
	rbac    *rbac.Service
	auditor *audit.Service
}

func NewService(repo repository.TestOrderRepository, rbacSvc *rbac.Service, auditor *audit.Service) *Service {
	return &Service{repo: repo, rbac: rbacSvc, auditor: auditor}
}

// Create registers a pending order.
func (s *Service) Create(ctx context.Context, actor *model.User, patientRef, panelName string) (*model.TestOrder, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermReviewTestResults); err != nil {
		return nil, err
	}
	if patientRef == "" {
		return nil, apperrors.NewValidationField("patient_ref", "patient reference is required")
	}

	now := time.Now()
	order := &model.TestOrder{
		Base:         model.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		PatientRef:   patientRef,
		PanelName:    panelName,
		ReviewStatus: model.OrderPending,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, audit.Entry{
		Actor:      actor,
		Action:     model.AuditActionCreate,
		EntityType: model.AuditEntityTestOrder,
		EntityID:   order.ID,
		After:      order,
	})
	return order, nil
}

// Complete attaches the immutable result rows and unlocks their visibility.
func (s *Service) Complete(ctx context.Context, actor *model.User, id uuid.UUID, results []model.TestResult) (*model.TestOrder, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermReviewTestResults); err != nil {
		return nil, err
	}

	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.DeriveReviewStatus() != model.OrderPending {
		return nil, apperrors.NewPreconditionFailed("only a pending order can be completed")
	}

	before := *order
	now := time.Now()
	order.CompletedAt = &now
	order.ReviewStatus = model.OrderCompleted
	order.Results = nil
	order.Comments = nil
	if err := s.repo.Update(ctx, order); err != nil {
		return nil, err
	}

	for i := range results {
		results[i].ID = uuid.New()
		results[i].TestOrderID = id
	}
	if err := s.repo.AttachResults(ctx, id, results); err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, audit.Entry{
		Actor:      actor,
		Action:     model.AuditActionUpdate,
		EntityType: model.AuditEntityTestOrder,
		EntityID:   id,
		Before:     &before,
		After:      order,
	})
	return s.repo.Get(ctx, id)
}

// Cancel is only reachable from pending.
func (s *Service) Cancel(ctx context.Context, actor *model.User, id uuid.UUID) (*model.TestOrder, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermReviewTestResults); err != nil {
		return nil, err
	}

	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.DeriveReviewStatus() != model.OrderPending {
		return nil, apperrors.NewPreconditionFailed("only a pending order can be cancelled")
	}

	before := *order
	order.ReviewStatus = model.OrderCancelled
	order.Results = nil
	order.Comments = nil
	if err := s.repo.Update(ctx, order); err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, audit.Entry{
		Actor:      actor,
		Action:     model.AuditActionUpdate,
		EntityType: model.AuditEntityTestOrder,
		EntityID:   id,
		Before:     &before,
		After:      order,
	})
	return order, nil
}

// MarkReviewed records a human review. Human and AI reviews are independent
// timestamps; repeating either is a no-op that keeps the reached state.
func (s *Service) MarkReviewed(ctx context.Context, actor *model.User, id uuid.UUID) (*model.TestOrder, error) {
	return s.review(ctx, actor, id, false)
}

// MarkAIReviewed records an automated review.
func (s *Service) MarkAIReviewed(ctx context.Context, actor *model.User, id uuid.UUID) (*model.TestOrder, error) {
	return s.review(ctx, actor, id, true)
}

func (s *Service) review(ctx context.Context, actor *model.User, id uuid.UUID, ai bool) (*model.TestOrder, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermReviewTestResults); err != nil {
		return nil, err
	}

	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.CompletedAt == nil {
		return nil, apperrors.NewPreconditionFailed("order has no results to review")
	}
	if (ai && order.AIReviewedAt != nil) || (!ai && order.ReviewedAt != nil) {
		return order, nil
	}

	before := *order
	now := time.Now()
	if ai {
		order.AIReviewedAt = &now
	} else {
		order.ReviewedAt = &now
	}
	order.ReviewStatus = order.DeriveReviewStatus()
	order.Results = nil
	order.Comments = nil
	if err := s.repo.Update(ctx, order); err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, audit.Entry{
		Actor:      actor,
		Action:     model.AuditActionReview,
		EntityType: model.AuditEntityTestOrder,
		EntityID:   id,
		Before:     &before,
		After:      order,
	})
	return order, nil
}

// PrintResults returns the export payload; allowed only once the order is
// completed or human reviewed.
func (s *Service) PrintResults(ctx context.Context, actor *model.User, id uuid.UUID) (*model.TestOrder, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermReviewTestResults); err != nil {
		return nil, err
	}

	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Printable() {
		return nil, apperrors.NewPreconditionFailed("results cannot be printed in status " + string(order.DeriveReviewStatus()))
	}
	return order, nil
}

// AddComment attaches a review comment to the order.
func (s *Service) AddComment(ctx context.Context, actor *model.User, orderID uuid.UUID, message string) (*model.Comment, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermManageComments); err != nil {
		return nil, err
	}
	if message == "" {
		return nil, apperrors.NewValidationField("message", "message is required")
	}

	now := time.Now()
	comment := &model.Comment{
		ID:          uuid.New(),
		TestOrderID: orderID,
		AuthorID:    actor.ID,
		AuthorName:  actor.FullName,
		Message:     message,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.AddComment(ctx, comment); err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, audit.Entry{
		Actor:      actor,
		Action:     model.AuditActionCreate,
		EntityType: model.AuditEntityComment,
		EntityID:   comment.ID,
		After:      comment,
		Reason:     "test_order=" + orderID.String(),
	})
	return comment, nil
}

func (s *Service) EditComment(ctx context.Context, actor *model.User, orderID, commentID uuid.UUID, message string) (*model.Comment, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermManageComments); err != nil {
		return nil, err
	}
	if message == "" {
		return nil, apperrors.NewValidationField("message", "message is required")
	}

	comment, err := s.repo.GetComment(ctx, orderID, commentID)
	if err != nil {
		return nil, err
	}
	before := *comment
	comment.Message = message
	if err := s.repo.UpdateComment(ctx, comment); err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, audit.Entry{
		Actor:      actor,
		Action:     model.AuditActionUpdate,
		EntityType: model.AuditEntityComment,
		EntityID:   commentID,
		Before:     &before,
		After:      comment,
		Reason:     "test_order=" + orderID.String(),
	})
	return comment, nil
}

func (s *Service) DeleteComment(ctx context.Context, actor *model.User, orderID, commentID uuid.UUID) error {
	if err := s.rbac.Authorize(actor.Role, model.PermManageComments); err != nil {
		return err
	}

	comment, err := s.repo.GetComment(ctx, orderID, commentID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteComment(ctx, orderID, commentID); err != nil {
		return err
	}

	s.auditor.Log(ctx, audit.Entry{
		Actor:      actor,
		Action:     model.AuditActionDelete,
		EntityType: model.AuditEntityComment,
		EntityID:   commentID,
		Before:     comment,
		Reason:     "test_order=" + orderID.String(),
	})
	return nil
}

func (s *Service) Get(ctx context.Context, actor *model.User, id uuid.UUID) (*model.TestOrder, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermReviewTestResults); err != nil {
		return nil, err
	}
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	// Result rows stay hidden until the order has completed.
	if order.CompletedAt == nil {
		order.Results = nil
	}
	return order, nil
}

func (s *Service) List(ctx context.Context, actor *model.User) ([]*model.TestOrder, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermReviewTestResults); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}
