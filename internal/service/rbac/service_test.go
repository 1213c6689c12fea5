package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/labops-api/internal/model"
	apperrors "github.com/jwalitptl/labops-api/pkg/errors"
)

func TestHasPermissionFailsClosed(t *testing.T) {
	svc := NewService()

	assert.False(t, svc.HasPermission("auditor", model.PermViewDashboard), "unknown role must be denied")
	assert.False(t, svc.HasPermission(model.RoleAdmin, "LAUNCH_MISSILES"), "unknown permission must be denied")
	assert.False(t, svc.HasPermission("", ""), "empty pair must be denied")
}

func TestAdminHasEveryPermission(t *testing.T) {
	svc := NewService()

	all := []model.Permission{
		model.PermViewDashboard,
		model.PermViewWarehouse,
		model.PermManageWarehouse,
		model.PermViewInstruments,
		model.PermAddInstrument,
		model.PermManageInstruments,
		model.PermReviewTestResults,
		model.PermManageComments,
		model.PermManageRawResults,
		model.PermViewConfiguration,
		model.PermManageConfiguration,
		model.PermForceSync,
		model.PermViewAuditLogs,
	}
	for _, p := range all {
		assert.True(t, svc.HasPermission(model.RoleAdmin, p), "admin should have %s", p)
	}
}

func TestRoleBoundaries(t *testing.T) {
	svc := NewService()

	assert.True(t, svc.HasPermission(model.RoleManager, model.PermManageWarehouse))
	assert.False(t, svc.HasPermission(model.RoleManager, model.PermManageConfiguration))
	assert.False(t, svc.HasPermission(model.RoleManager, model.PermForceSync))

	assert.True(t, svc.HasPermission(model.RoleLabUser, model.PermReviewTestResults))
	assert.False(t, svc.HasPermission(model.RoleLabUser, model.PermManageWarehouse))
	assert.False(t, svc.HasPermission(model.RoleLabUser, model.PermManageRawResults))

	assert.True(t, svc.HasPermission(model.RoleServiceUser, model.PermForceSync))
	assert.False(t, svc.HasPermission(model.RoleServiceUser, model.PermManageWarehouse))
	assert.False(t, svc.HasPermission(model.RoleServiceUser, model.PermReviewTestResults))
}

func TestAuthorizeReturnsPermissionDenied(t *testing.T) {
	svc := NewService()

	err := svc.Authorize(model.RoleLabUser, model.PermManageConfiguration)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrPermissionDenied))

	assert.NoError(t, svc.Authorize(model.RoleAdmin, model.PermManageConfiguration))
}

func TestPermissionsListing(t *testing.T) {
	svc := NewService()

	assert.Nil(t, svc.Permissions("ghost"))
	assert.Len(t, svc.Permissions(model.RoleAdmin), 13)
	assert.Contains(t, svc.Permissions(model.RoleLabUser), model.PermManageComments)
}
