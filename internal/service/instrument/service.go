package instrument

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/labops-api/internal/model"
	"github.com/jwalitptl/labops-api/internal/repository"
	"github.com/jwalitptl/labops-api/internal/service/audit"
	"github.com/jwalitptl/labops-api/internal/service/rbac"
	apperrors "github.com/jwalitptl/labops-api/pkg/errors"
)

// DiagnosticPort probes an instrument that reported an error. The real
// implementation talks to the device; tests inject a double.
type DiagnosticPort interface {
	// Probe returns true when the instrument recovered.
	Probe(ctx context.Context, serialNumber string) (bool, error)
}

type Service struct {
	repo        repository.InstrumentRepository
	rbac        *rbac.Service
	auditor     *audit.Service
	diagnostics DiagnosticPort
	runner      *analysisRunner
}

func NewService(repo repository.InstrumentRepository, rbacSvc *rbac.Service, auditor *audit.Service, diagnostics DiagnosticPort) *Service {
	return &Service{
		repo:        repo,
		rbac:        rbacSvc,
		auditor:     auditor,
		diagnostics: diagnostics,
		runner:      newAnalysisRunner(repo),
	}
}

// Register creates an instrument. Serial numbers are unique among
// non-deleted instruments; when a clone source is given its profile lists
// replace the caller-supplied ones.
func (s *Service) Register(ctx context.Context, actor *model.User, req *model.RegisterInstrumentRequest) (*model.Instrument, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermAddInstrument); err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetBySerialNumber(ctx, req.SerialNumber); err == nil && existing != nil {
		return nil, apperrors.NewDuplicate("serial number", req.SerialNumber)
	}

	now := time.Now()
	instrument := &model.Instrument{
		Base:              model.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Name:              req.Name,
		SerialNumber:      req.SerialNumber,
		Type:              req.Type,
		OperationalStatus: model.InstrumentReady,
		Activation:        model.ActivationActive,
		ReagentProfiles:   req.ReagentProfiles,
		ConfigProfiles:    req.ConfigProfiles,
	}

	if req.CloneSourceID != nil {
		source, err := s.repo.Get(ctx, *req.CloneSourceID)
		if err != nil {
			return nil, fmt.Errorf("clone source: %w", err)
		}
		instrument.ReagentProfiles = append([]string(nil), source.ReagentProfiles...)
		instrument.ConfigProfiles = append([]string(nil), source.ConfigProfiles...)
	}

	if err := s.repo.Create(ctx, instrument); err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, audit.Entry{
		Actor:      actor,
		Action:     model.AuditActionCreate,
		EntityType: model.AuditEntityInstrument,
		EntityID:   instrument.ID,
		After:      instrument,
	})
	return instrument, nil
}

// ToggleActivation flips the availability axis. Deactivation stamps the
// purge deadline; reactivation before the deadline cancels it.
func (s *Service) ToggleActivation(ctx context.Context, actor *model.User, id uuid.UUID) (*model.Instrument, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermManageInstruments); err != nil {
		return nil, err
	}

	instrument, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *instrument

	action := model.AuditActionActivate
	if instrument.Activation == model.ActivationActive {
		now := time.Now()
		purge := now.Add(model.DeactivationRetention)
		instrument.Activation = model.ActivationInactive
		instrument.DeactivatedAt = &now
		instrument.PurgeAfter = &purge
		action = model.AuditActionDeactivate
	} else {
		instrument.Activation = model.ActivationActive
		instrument.DeactivatedAt = nil
		instrument.PurgeAfter = nil
	}

	if err := s.repo.Update(ctx, instrument); err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, audit.Entry{
		Actor:      actor,
		Action:     action,
		EntityType: model.AuditEntityInstrument,
		EntityID:   instrument.ID,
		Before:     &before,
		After:      instrument,
	})
	return instrument, nil
}

// CheckStatus is read-only unless the instrument is in error, in which case
// the diagnostic port is consulted and a successful probe heals it to ready.
func (s *Service) CheckStatus(ctx context.Context, actor *model.User, id uuid.UUID) (*model.Instrument, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermViewInstruments); err != nil {
		return nil, err
	}

	instrument, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if instrument.OperationalStatus != model.InstrumentError {
		return instrument, nil
	}

	recovered, err := s.diagnostics.Probe(ctx, instrument.SerialNumber)
	if err != nil {
		return nil, fmt.Errorf("diagnostic probe: %w", err)
	}
	if !recovered {
		return instrument, nil
	}

	before := *instrument
	instrument.OperationalStatus = model.InstrumentReady
	if err := s.repo.Update(ctx, instrument); err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, audit.Entry{
		Actor:      actor,
		Action:     model.AuditActionModeChange,
		EntityType: model.AuditEntityInstrument,
		EntityID:   instrument.ID,
		Before:     &before,
		After:      instrument,
		Reason:     "diagnostic recovery",
	})
	return instrument, nil
}

// ChangeMode applies an operator-requested operational transition.
// Maintenance and Inactive require a reason; Ready requires QC confirmation.
func (s *Service) ChangeMode(ctx context.Context, actor *model.User, id uuid.UUID, req *model.ChangeModeRequest) (*model.Instrument, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermManageInstruments); err != nil {
		return nil, err
	}

	fields := make(map[string]string)
	switch req.Mode {
	case model.InstrumentMaintenance, model.ModeInactive:
		if req.Reason == "" {
			fields["reason"] = fmt.Sprintf("reason is required when entering %s", req.Mode)
		}
	case model.InstrumentReady:
		if !req.QCConfirmed {
			fields["qc_confirmed"] = "quality control must be confirmed before returning to ready"
		}
	case model.InstrumentProcessing, model.InstrumentError:
		fields["mode"] = fmt.Sprintf("mode %s cannot be requested directly", req.Mode)
	default:
		fields["mode"] = fmt.Sprintf("unknown mode %q", req.Mode)
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidation(fields)
	}

	instrument, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *instrument

	// Inactive is an activation-axis request dressed as a mode; it keeps the
	// last operational status and stamps the deactivation metadata.
	if req.Mode == model.ModeInactive {
		now := time.Now()
		purge := now.Add(model.DeactivationRetention)
		instrument.Activation = model.ActivationInactive
		instrument.DeactivatedAt = &now
		instrument.PurgeAfter = &purge
	} else {
		instrument.OperationalStatus = req.Mode
	}
	if err := s.repo.Update(ctx, instrument); err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, audit.Entry{
		Actor:      actor,
		Action:     model.AuditActionModeChange,
		EntityType: model.AuditEntityInstrument,
		EntityID:   instrument.ID,
		Before:     &before,
		After:      instrument,
		Reason:     req.Reason,
	})
	return instrument, nil
}

func (s *Service) Get(ctx context.Context, actor *model.User, id uuid.UUID) (*model.Instrument, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermViewInstruments); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, actor *model.User) ([]*model.Instrument, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermViewInstruments); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}
