package instrument

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

type fakeDiagnostic struct {
	recovered bool
	err       error
	probes    int
}

func (d *fakeDiagnostic) Probe(ctx context.Context, serial string) (bool, error) {
	d.probes++
	return d.recovered, d.err
}

func newTestService(diag DiagnosticPort) (*Service, *memory.AuditRepository) {
	auditRepo := memory.NewAuditRepository()
	if diag == nil {
		diag = &fakeDiagnostic{}
	}
	svc := NewService(memory.NewInstrumentRepository(), rbac.NewService(), audit.NewService(auditRepo), diag)
	return svc, auditRepo
}

func admin() *model.User {
	return &model.User{ID: uuid.New(), Email: "admin@lab.test", FullName: "Admin", Role: model.RoleAdmin}
}

func labUser() *model.User {
	return &model.User{ID: uuid.New(), Email: "tech@lab.test", FullName: "Tech", Role: model.RoleLabUser}
}

func TestRegisterInstrument(t *testing.T) {
	svc, _ := newTestService(nil)

	created, err := svc.Register(context.Background(), admin(), &model.RegisterInstrumentRequest{
		Name:         "Hematology Analyzer",
		SerialNumber: "HA-1001",
		Type:         "hematology",
	})
	require.NoError(t, err)
	assert.Equal(t, model.InstrumentReady, created.OperationalStatus)
	assert.Equal(t, model.ActivationActive, created.Activation)
	assert.Nil(t, created.DeactivatedAt)
}

func TestRegisterDuplicateSerial(t *testing.T) {
	svc, _ := newTestService(nil)
	actor := admin()

	_, err := svc.Register(context.Background(), actor, &model.RegisterInstrumentRequest{
		Name: "A", SerialNumber: "HA-1001", Type: "hematology",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), actor, &model.RegisterInstrumentRequest{
		Name: "B", SerialNumber: "HA-1001", Type: "chemistry",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrDuplicate))
}

func TestRegisterDeniedWithoutPermission(t *testing.T) {
	svc, _ := newTestService(nil)

	_, err := svc.Register(context.Background(), labUser(), &model.RegisterInstrumentRequest{
		Name: "A", SerialNumber: "HA-1", Type: "hematology",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrPermissionDenied))
}

func TestRegisterCloneCopiesProfiles(t *testing.T) {
	svc, _ := newTestService(nil)
	actor := admin()

	source, err := svc.Register(context.Background(), actor, &model.RegisterInstrumentRequest{
		Name:            "Source",
		SerialNumber:    "SRC-1",
		Type:            "chemistry",
		ReagentProfiles: []string{"glucose", "lipase"},
		ConfigProfiles:  []string{"default"},
	})
	require.NoError(t, err)

	clone, err := svc.Register(context.Background(), actor, &model.RegisterInstrumentRequest{
		Name:            "Clone",
		SerialNumber:    "CLN-1",
		Type:            "chemistry",
		CloneSourceID:   &source.ID,
		ReagentProfiles: []string{"ignored"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"glucose", "lipase"}, clone.ReagentProfiles)
	assert.Equal(t, []string{"default"}, clone.ConfigProfiles)
}

func TestToggleActivationRoundTrip(t *testing.T) {
	svc, _ := newTestService(nil)
	actor := admin()

	created, err := svc.Register(context.Background(), actor, &model.RegisterInstrumentRequest{
		Name: "A", SerialNumber: "HA-1", Type: "hematology",
	})
	require.NoError(t, err)

	deactivated, err := svc.ToggleActivation(context.Background(), actor, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ActivationInactive, deactivated.Activation)
	require.NotNil(t, deactivated.DeactivatedAt)
	require.NotNil(t, deactivated.PurgeAfter)
	assert.Equal(t, deactivated.DeactivatedAt.Add(model.DeactivationRetention), *deactivated.PurgeAfter)
	// The operational axis is untouched.
	assert.Equal(t, model.InstrumentReady, deactivated.OperationalStatus)

	reactivated, err := svc.ToggleActivation(context.Background(), actor, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ActivationActive, reactivated.Activation)
	assert.Nil(t, reactivated.DeactivatedAt)
	assert.Nil(t, reactivated.PurgeAfter)
}

func TestChangeModeValidation(t *testing.T) {
	svc, _ := newTestService(nil)
	actor := admin()

	created, err := svc.Register(context.Background(), actor, &model.RegisterInstrumentRequest{
		Name: "A", SerialNumber: "HA-1", Type: "hematology",
	})
	require.NoError(t, err)

	cases := []struct {
		name  string
		req   model.ChangeModeRequest
		field string
	}{
		{"maintenance needs reason", model.ChangeModeRequest{Mode: model.InstrumentMaintenance}, "reason"},
		{"inactive needs reason", model.ChangeModeRequest{Mode: model.ModeInactive}, "reason"},
		{"ready needs qc confirmation", model.ChangeModeRequest{Mode: model.InstrumentReady}, "qc_confirmed"},
		{"processing not requestable", model.ChangeModeRequest{Mode: model.InstrumentProcessing, Reason: "x"}, "mode"},
		{"error not requestable", model.ChangeModeRequest{Mode: model.InstrumentError, Reason: "x"}, "mode"},
		{"unknown mode", model.ChangeModeRequest{Mode: "TURBO"}, "mode"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ChangeMode(context.Background(), actor, created.ID, &tc.req)
			require.Error(t, err)
			appErr := apperrors.From(err)
			assert.Equal(t, apperrors.ErrValidation, appErr.Code)
			assert.Contains(t, appErr.Fields, tc.field)
		})
	}
}

func TestChangeModeTransitions(t *testing.T) {
	svc, _ := newTestService(nil)
	actor := admin()

	created, err := svc.Register(context.Background(), actor, &model.RegisterInstrumentRequest{
		Name: "A", SerialNumber: "HA-1", Type: "hematology",
	})
	require.NoError(t, err)

	maint, err := svc.ChangeMode(context.Background(), actor, created.ID, &model.ChangeModeRequest{
		Mode: model.InstrumentMaintenance, Reason: "scheduled calibration",
	})
	require.NoError(t, err)
	assert.Equal(t, model.InstrumentMaintenance, maint.OperationalStatus)

	ready, err := svc.ChangeMode(context.Background(), actor, created.ID, &model.ChangeModeRequest{
		Mode: model.InstrumentReady, QCConfirmed: true,
	})
	require.NoError(t, err)
	assert.Equal(t, model.InstrumentReady, ready.OperationalStatus)
}

func TestChangeModeInactiveRoutesToActivation(t *testing.T) {
	svc, _ := newTestService(nil)
	actor := admin()

	created, err := svc.Register(context.Background(), actor, &model.RegisterInstrumentRequest{
		Name: "A", SerialNumber: "HA-1", Type: "hematology",
	})
	require.NoError(t, err)

	inactive, err := svc.ChangeMode(context.Background(), actor, created.ID, &model.ChangeModeRequest{
		Mode: model.ModeInactive, Reason: "decommissioned",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ActivationInactive, inactive.Activation)
	assert.NotNil(t, inactive.DeactivatedAt)
	assert.NotNil(t, inactive.PurgeAfter)
	// Last operational status is kept, INACTIVE never lands on the axis.
	assert.Equal(t, model.InstrumentReady, inactive.OperationalStatus)
}

func TestCheckStatusReadOnlyWhenHealthy(t *testing.T) {
	diag := &fakeDiagnostic{recovered: true}
	svc, _ := newTestService(diag)
	actor := admin()

	created, err := svc.Register(context.Background(), actor, &model.RegisterInstrumentRequest{
		Name: "A", SerialNumber: "HA-1", Type: "hematology",
	})
	require.NoError(t, err)

	checked, err := svc.CheckStatus(context.Background(), actor, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InstrumentReady, checked.OperationalStatus)
	assert.Zero(t, diag.probes, "healthy instrument must not be probed")
}

func TestCheckStatusHealsErrorViaProbe(t *testing.T) {
	diag := &fakeDiagnostic{recovered: true}
	svc, auditRepo := newTestService(diag)
	actor := admin()

	created, err := svc.Register(context.Background(), actor, &model.RegisterInstrumentRequest{
		Name: "A", SerialNumber: "HA-1", Type: "hematology",
	})
	require.NoError(t, err)

	forceError(t, svc, created.ID)

	checked, err := svc.CheckStatus(context.Background(), actor, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InstrumentReady, checked.OperationalStatus)
	assert.Equal(t, 1, diag.probes)

	records, err := auditRepo.List(context.Background(), &model.AuditFilter{
		EntityType: model.AuditEntityInstrument,
		EntityID:   &created.ID,
	})
	require.NoError(t, err)
	last := records[len(records)-1]
	assert.Equal(t, model.AuditActionModeChange, last.Action)
	assert.Equal(t, "diagnostic recovery", last.Reason)
}

func TestCheckStatusKeepsErrorWhenProbeFails(t *testing.T) {
	diag := &fakeDiagnostic{recovered: false}
	svc, _ := newTestService(diag)
	actor := admin()

	created, err := svc.Register(context.Background(), actor, &model.RegisterInstrumentRequest{
		Name: "A", SerialNumber: "HA-1", Type: "hematology",
	})
	require.NoError(t, err)

	forceError(t, svc, created.ID)

	checked, err := svc.CheckStatus(context.Background(), actor, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InstrumentError, checked.OperationalStatus)
}

// forceError drives the stored instrument into the error state directly
// through the repository, the way a failed analysis run would leave it.
func forceError(t *testing.T, svc *Service, id uuid.UUID) {
	t.Helper()
	inst, err := svc.repo.Get(context.Background(), id)
	require.NoError(t, err)
	inst.OperationalStatus = model.InstrumentError
	require.NoError(t, svc.repo.Update(context.Background(), inst))
}
