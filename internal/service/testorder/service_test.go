package testorder

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/labops-api/internal/model"
	"github.com/jwalitptl/labops-api/internal/repository/memory"
	"github.com/jwalitptl/labops-api/internal/service/audit"
	"github.com/jwalitptl/labops-api/internal/service/rbac"
	apperrors "github.com/jwalitptl/labops-api/pkg/errors"
)

func newTestService() (*Service, *memory.AuditRepository) {
	auditRepo := memory.NewAuditRepository()
	return NewService(memory.NewTestOrderRepository(), rbac.NewService(), audit.NewService(auditRepo)), auditRepo
}

func reviewer() *model.User {
	return &model.User{ID: uuid.New(), Email: "reviewer@lab.test", FullName: "Reviewer", Role: model.RoleLabUser}
}

func sampleResults() []model.TestResult {
	return []model.TestResult{
		{Name: "WBC", Value: "6.1", Unit: "10^9/L", ReferenceRange: "4.0-11.0"},
		{Name: "HGB", Value: "14.2", Unit: "g/dL", ReferenceRange: "13.5-17.5"},
	}
}

func completedOrder(t *testing.T, svc *Service, actor *model.User) *model.TestOrder {
	t.Helper()
	order, err := svc.Create(context.Background(), actor, "PAT-007", "CBC")
	require.NoError(t, err)
	order, err = svc.Complete(context.Background(), actor, order.ID, sampleResults())
	require.NoError(t, err)
	return order
}

func TestCreateAndComplete(t *testing.T) {
	svc, _ := newTestService()
	actor := reviewer()

	order, err := svc.Create(context.Background(), actor, "PAT-007", "CBC")
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, order.DeriveReviewStatus())

	completed, err := svc.Complete(context.Background(), actor, order.ID, sampleResults())
	require.NoError(t, err)
	assert.Equal(t, model.OrderCompleted, completed.DeriveReviewStatus())
	assert.Len(t, completed.Results, 2)
}

func TestCompleteOnlyFromPending(t *testing.T) {
	svc, _ := newTestService()
	actor := reviewer()
	order := completedOrder(t, svc, actor)

	_, err := svc.Complete(context.Background(), actor, order.ID, sampleResults())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrPreconditionFailed))
}

func TestCancelOnlyFromPending(t *testing.T) {
	svc, _ := newTestService()
	actor := reviewer()

	order, err := svc.Create(context.Background(), actor, "PAT-007", "CBC")
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), actor, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, cancelled.DeriveReviewStatus())

	completed := completedOrder(t, svc, actor)
	_, err = svc.Cancel(context.Background(), actor, completed.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrPreconditionFailed))
}

func TestResultsHiddenUntilCompleted(t *testing.T) {
	svc, _ := newTestService()
	actor := reviewer()

	order, err := svc.Create(context.Background(), actor, "PAT-007", "CBC")
	require.NoError(t, err)

	fetched, err := svc.Get(context.Background(), actor, order.ID)
	require.NoError(t, err)
	assert.Empty(t, fetched.Results)
}

func TestReviewRequiresResults(t *testing.T) {
	svc, _ := newTestService()
	actor := reviewer()

	order, err := svc.Create(context.Background(), actor, "PAT-007", "CBC")
	require.NoError(t, err)

	_, err = svc.MarkReviewed(context.Background(), actor, order.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrPreconditionFailed))
}

func TestHumanAndAIReviewAreIndependent(t *testing.T) {
	svc, _ := newTestService()
	actor := reviewer()
	order := completedOrder(t, svc, actor)

	aiReviewed, err := svc.MarkAIReviewed(context.Background(), actor, order.ID)
	require.NoError(t, err)
	assert.NotNil(t, aiReviewed.AIReviewedAt)
	assert.Nil(t, aiReviewed.ReviewedAt)
	assert.Equal(t, model.OrderAIReviewed, aiReviewed.DeriveReviewStatus())

	reviewed, err := svc.MarkReviewed(context.Background(), actor, order.ID)
	require.NoError(t, err)
	assert.NotNil(t, reviewed.ReviewedAt)
	assert.NotNil(t, reviewed.AIReviewedAt)
	// Human review outranks automated review in the derived status.
	assert.Equal(t, model.OrderReviewed, reviewed.DeriveReviewStatus())
}

func TestReviewIsIdempotent(t *testing.T) {
	svc, auditRepo := newTestService()
	actor := reviewer()
	order := completedOrder(t, svc, actor)

	first, err := svc.MarkReviewed(context.Background(), actor, order.ID)
	require.NoError(t, err)

	second, err := svc.MarkReviewed(context.Background(), actor, order.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ReviewedAt, second.ReviewedAt)

	records, err := auditRepo.List(context.Background(), &model.AuditFilter{
		EntityType: model.AuditEntityTestOrder,
		EntityID:   &order.ID,
		Action:     model.AuditActionReview,
	})
	require.NoError(t, err)
	assert.Len(t, records, 1, "a repeated review must not append another audit record")
}

func TestPrintResultsGate(t *testing.T) {
	svc, _ := newTestService()
	actor := reviewer()

	pending, err := svc.Create(context.Background(), actor, "PAT-001", "CBC")
	require.NoError(t, err)
	_, err = svc.PrintResults(context.Background(), actor, pending.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrPreconditionFailed))

	completed := completedOrder(t, svc, actor)
	printable, err := svc.PrintResults(context.Background(), actor, completed.ID)
	require.NoError(t, err)
	assert.Len(t, printable.Results, 2)

	_, err = svc.MarkReviewed(context.Background(), actor, completed.ID)
	require.NoError(t, err)
	_, err = svc.PrintResults(context.Background(), actor, completed.ID)
	require.NoError(t, err, "reviewed orders stay printable")

	cancelled, err := svc.Create(context.Background(), actor, "PAT-002", "CBC")
	require.NoError(t, err)
	_, err = svc.Cancel(context.Background(), actor, cancelled.ID)
	require.NoError(t, err)
	_, err = svc.PrintResults(context.Background(), actor, cancelled.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrPreconditionFailed))
}

func TestCommentLifecycle(t *testing.T) {
	svc, auditRepo := newTestService()
	actor := reviewer()
	order := completedOrder(t, svc, actor)

	comment, err := svc.AddComment(context.Background(), actor, order.ID, "hemolysis suspected")
	require.NoError(t, err)
	assert.Equal(t, actor.FullName, comment.AuthorName)

	edited, err := svc.EditComment(context.Background(), actor, order.ID, comment.ID, "hemolysis confirmed")
	require.NoError(t, err)
	assert.Equal(t, "hemolysis confirmed", edited.Message)

	require.NoError(t, svc.DeleteComment(context.Background(), actor, order.ID, comment.ID))

	_, err = svc.EditComment(context.Background(), actor, order.ID, comment.ID, "gone")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))

	records, err := auditRepo.List(context.Background(), &model.AuditFilter{
		EntityType: model.AuditEntityComment,
		EntityID:   &comment.ID,
	})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, model.AuditActionCreate, records[0].Action)
	assert.Equal(t, model.AuditActionUpdate, records[1].Action)
	assert.Equal(t, model.AuditActionDelete, records[2].Action)
	for _, record := range records {
		assert.Equal(t, "test_order="+order.ID.String(), record.Reason)
	}
}

func TestCommentsDeniedWithoutPermission(t *testing.T) {
	svc, _ := newTestService()
	actor := reviewer()
	order := completedOrder(t, svc, actor)

	serviceUser := &model.User{ID: uuid.New(), Role: model.RoleServiceUser}
	_, err := svc.AddComment(context.Background(), serviceUser, order.ID, "nope")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrPermissionDenied))
}
