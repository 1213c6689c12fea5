package reagent

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/labops-api/internal/model"
	"github.com/jwalitptl/labops-api/internal/repository/memory"
	"github.com/jwalitptl/labops-api/internal/service/audit"
	"github.com/jwalitptl/labops-api/internal/service/rbac"
	apperrors "github.com/jwalitptl/labops-api/pkg/errors"
)

func newTestService() *Service {
	return NewService(memory.NewReagentRepository(), rbac.NewService(), audit.NewService(memory.NewAuditRepository()))
}

func manager() *model.User {
	return &model.User{ID: uuid.New(), Email: "mgr@lab.test", FullName: "Manager", Role: model.RoleManager}
}

func validRequest() *model.InstallReagentRequest {
	return &model.InstallReagentRequest{
		Name:           "Glucose Reagent",
		Quantity:       12,
		ExpirationDate: time.Now().Add(90 * 24 * time.Hour),
		LotNumber:      "LOT-42",
		VendorName:     "BioSupply",
		VendorID:       "BS-001",
		ContactInfo:    "orders@biosupply.test",
	}
}

func TestInstallReagent(t *testing.T) {
	svc := newTestService()

	installed, err := svc.Install(context.Background(), manager(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, model.ReagentNotInUse, installed.UsageStatus)
	assert.Equal(t, int64(1), installed.Version)
}

func TestInstallReportsAllFieldErrorsTogether(t *testing.T) {
	svc := newTestService()

	_, err := svc.Install(context.Background(), manager(), &model.InstallReagentRequest{
		Quantity:       0,
		ExpirationDate: time.Now().Add(-24 * time.Hour),
	})
	require.Error(t, err)

	appErr := apperrors.From(err)
	assert.Equal(t, apperrors.ErrValidation, appErr.Code)
	assert.Contains(t, appErr.Fields, "name")
	assert.Contains(t, appErr.Fields, "quantity")
	assert.Contains(t, appErr.Fields, "expiration_date")
	assert.Contains(t, appErr.Fields, "lot_number")
	assert.Contains(t, appErr.Fields, "vendor_name")
	assert.Contains(t, appErr.Fields, "vendor_id")
}

func TestInstallRejectsPastExpiration(t *testing.T) {
	svc := newTestService()

	req := validRequest()
	req.ExpirationDate = time.Now().Add(-time.Hour)
	_, err := svc.Install(context.Background(), manager(), req)
	require.Error(t, err)
	appErr := apperrors.From(err)
	assert.Equal(t, "expiration date must be in the future", appErr.Fields["expiration_date"])
}

func TestInstallDeniedForLabUser(t *testing.T) {
	svc := newTestService()

	_, err := svc.Install(context.Background(), &model.User{ID: uuid.New(), Role: model.RoleLabUser}, validRequest())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrPermissionDenied))
}

func TestSetUsageStatusTransition(t *testing.T) {
	svc := newTestService()
	actor := manager()

	installed, err := svc.Install(context.Background(), actor, validRequest())
	require.NoError(t, err)

	updated, err := svc.SetUsageStatus(context.Background(), actor, installed.ID, model.ReagentInUse)
	require.NoError(t, err)
	assert.Equal(t, model.ReagentInUse, updated.UsageStatus)
}

func TestSetUsageStatusRejectsNoOp(t *testing.T) {
	svc := newTestService()
	actor := manager()

	installed, err := svc.Install(context.Background(), actor, validRequest())
	require.NoError(t, err)

	_, err = svc.SetUsageStatus(context.Background(), actor, installed.ID, model.ReagentNotInUse)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrPreconditionFailed))

	// The reached state is untouched.
	current, err := svc.Get(context.Background(), actor, installed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReagentNotInUse, current.UsageStatus)
}

func TestSetUsageStatusUnknownValue(t *testing.T) {
	svc := newTestService()
	actor := manager()

	installed, err := svc.Install(context.Background(), actor, validRequest())
	require.NoError(t, err)

	_, err = svc.SetUsageStatus(context.Background(), actor, installed.ID, "BROKEN")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestDeleteIsUnconditional(t *testing.T) {
	svc := newTestService()
	actor := manager()

	installed, err := svc.Install(context.Background(), actor, validRequest())
	require.NoError(t, err)

	_, err = svc.SetUsageStatus(context.Background(), actor, installed.ID, model.ReagentInUse)
	require.NoError(t, err)

	// In-use reagents delete fine; there is no gate on reagents.
	require.NoError(t, svc.Delete(context.Background(), actor, installed.ID))

	_, err = svc.Get(context.Background(), actor, installed.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}
