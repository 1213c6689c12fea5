package reagent

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jwalitptl/labops-api/internal/model"
	"github.com/jwalitptl/labops-api/internal/repository"
	"github.com/jwalitptl/labops-api/internal/service/audit"
	"github.com/jwalitptl/labops-api/internal/service/rbac"
	apperrors "github.com/jwalitptl/labops-api/pkg/errors"
)

type Service struct {
	repo     repository.ReagentRepository
	rbac     *rbac.Service
	auditor  *audit.Service
	validate *validator.Validate
}

func NewService(repo repository.ReagentRepository, rbacSvc *rbac.Service, auditor *audit.Service) *Service {
	return &Service{
		repo:     repo,
		rbac:     rbacSvc,
		auditor:  auditor,
		validate: validator.New(),
	}
}

// Install validates every field and reports all problems together so the
// caller can render the full set at once.
func (s *Service) Install(ctx context.Context, actor *model.User, req *model.InstallReagentRequest) (*model.Reagent, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermManageWarehouse); err != nil {
		return nil, err
	}

	if fields := s.validateInstall(req); len(fields) > 0 {
		return nil, apperrors.NewValidation(fields)
	}

	now := time.Now()
	reagent := &model.Reagent{
		Base:           model.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Name:           req.Name,
		Quantity:       req.Quantity,
		ExpirationDate: req.ExpirationDate,
		LotNumber:      req.LotNumber,
		VendorName:     req.VendorName,
		VendorID:       req.VendorID,
		ContactInfo:    req.ContactInfo,
		UsageStatus:    model.ReagentNotInUse,
	}
	if err := s.repo.Create(ctx, reagent); err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, audit.Entry{
		Actor:      actor,
		Action:     model.AuditActionCreate,
		EntityType: model.AuditEntityReagent,
		EntityID:   reagent.ID,
		After:      reagent,
	})
	return reagent, nil
}

func (s *Service) validateInstall(req *model.InstallReagentRequest) map[string]string {
	fields := make(map[string]string)

	if err := s.validate.Struct(req); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, ve := range verrs {
				switch ve.Field() {
				case "Name":
					fields["name"] = "name is required"
				case "Quantity":
					fields["quantity"] = "quantity must be greater than zero"
				case "ExpirationDate":
					fields["expiration_date"] = "expiration date is required"
				case "LotNumber":
					fields["lot_number"] = "lot number is required"
				case "VendorName":
					fields["vendor_name"] = "vendor name is required"
				case "VendorID":
					fields["vendor_id"] = "vendor id is required"
				}
			}
		}
	}
	if _, ok := fields["expiration_date"]; !ok && !req.ExpirationDate.After(time.Now()) {
		fields["expiration_date"] = "expiration date must be in the future"
	}
	return fields
}

// SetUsageStatus rejects a request for the current status: the caller asked
// for a transition and none would happen.
func (s *Service) SetUsageStatus(ctx context.Context, actor *model.User, id uuid.UUID, status model.UsageStatus) (*model.Reagent, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermManageWarehouse); err != nil {
		return nil, err
	}
	if status != model.ReagentInUse && status != model.ReagentNotInUse {
		return nil, apperrors.NewValidationField("usage_status", "unknown usage status")
	}

	reagent, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if reagent.UsageStatus == status {
		return nil, apperrors.NewPreconditionFailed("reagent is already " + string(status))
	}

	before := *reagent
	reagent.UsageStatus = status
	if err := s.repo.Update(ctx, reagent); err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, audit.Entry{
		Actor:      actor,
		Action:     model.AuditActionUpdate,
		EntityType: model.AuditEntityReagent,
		EntityID:   reagent.ID,
		Before:     &before,
		After:      reagent,
	})
	return reagent, nil
}

// Delete is unconditional; reagents carry no backup gate.
func (s *Service) Delete(ctx context.Context, actor *model.User, id uuid.UUID) error {
	if err := s.rbac.Authorize(actor.Role, model.PermManageWarehouse); err != nil {
		return err
	}

	reagent, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.auditor.Log(ctx, audit.Entry{
		Actor:      actor,
		Action:     model.AuditActionDelete,
		EntityType: model.AuditEntityReagent,
		EntityID:   id,
		Before:     reagent,
	})
	return nil
}

func (s *Service) Get(ctx context.Context, actor *model.User, id uuid.UUID) (*model.Reagent, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermViewWarehouse); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, actor *model.User) ([]*model.Reagent, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermViewWarehouse); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}
