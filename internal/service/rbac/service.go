package rbac

import (
	"github.com/jwalitptl/labops-api/internal/model"
	apperrors "github.com/jwalitptl/labops-api/pkg/errors"
)

// Service answers permission checks against a fixed policy table. The table
// is built once at startup and never mutated; role management happens in a
// separate system. Lookups for unknown roles or tags are denied.
type Service struct {
	policy map[model.Role]map[model.Permission]struct{}
}

func NewService() *Service {
	return &Service{policy: defaultPolicy()}
}

// HasPermission is pure and total: it returns false for any pair not
// explicitly granted and never errors.
func (s *Service) HasPermission(role model.Role, permission model.Permission) bool {
	grants, ok := s.policy[role]
	if !ok {
		return false
	}
	_, ok = grants[permission]
	return ok
}

// Authorize is the gate every command calls before touching state.
func (s *Service) Authorize(role model.Role, permission model.Permission) error {
	if !s.HasPermission(role, permission) {
		return apperrors.NewPermissionDenied(string(permission))
	}
	return nil
}

// Permissions returns the granted set for a role, for the UI to branch on.
func (s *Service) Permissions(role model.Role) []model.Permission {
	grants, ok := s.policy[role]
	if !ok {
		return nil
	}
	out := make([]model.Permission, 0, len(grants))
	for p := range grants {
		out = append(out, p)
	}
	return out
}

func defaultPolicy() map[model.Role]map[model.Permission]struct{} {
	grant := func(perms ...model.Permission) map[model.Permission]struct{} {
		set := make(map[model.Permission]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		return set
	}

	return map[model.Role]map[model.Permission]struct{}{
		model.RoleAdmin: grant(
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
		),
		model.RoleManager: grant(
			model.PermViewDashboard,
			model.PermViewWarehouse,
			model.PermManageWarehouse,
			model.PermViewInstruments,
			model.PermAddInstrument,
			model.PermManageInstruments,
			model.PermReviewTestResults,
			model.PermManageComments,
			model.PermViewConfiguration,
			model.PermViewAuditLogs,
		),
		model.RoleLabUser: grant(
			model.PermViewDashboard,
			model.PermViewWarehouse,
			model.PermViewInstruments,
			model.PermReviewTestResults,
			model.PermManageComments,
		),
		model.RoleServiceUser: grant(
			model.PermViewDashboard,
			model.PermViewInstruments,
			model.PermManageInstruments,
			model.PermManageRawResults,
			model.PermViewConfiguration,
			model.PermManageConfiguration,
			model.PermForceSync,
			model.PermViewAuditLogs,
		),
	}
}
