package configsync

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jwalitptl/labops-api/internal/model"
	"github.com/jwalitptl/labops-api/internal/repository"
	"github.com/jwalitptl/labops-api/internal/service/audit"
	"github.com/jwalitptl/labops-api/internal/service/rbac"
	apperrors "github.com/jwalitptl/labops-api/pkg/errors"
)

// Service owns the configuration registry and the sync-target bookkeeping.
// Writes deliberately over-invalidate: any successful create, edit or delete
// marks every target pending regardless of scope. Correctness over
// precision.
type Service struct {
	configs   repository.ConfigRepository
	targets   repository.SyncTargetRepository
	outbox    repository.OutboxRepository
	rbac      *rbac.Service
	auditor   *audit.Service
	validate  *validator.Validate
	converger *Converger
}

func NewService(
	configs repository.ConfigRepository,
	targets repository.SyncTargetRepository,
	outbox repository.OutboxRepository,
	rbacSvc *rbac.Service,
	auditor *audit.Service,
	transport SyncTransport,
) *Service {
	return &Service{
		configs:   configs,
		targets:   targets,
		outbox:    outbox,
		rbac:      rbacSvc,
		auditor:   auditor,
		validate:  validator.New(),
		converger: NewConverger(configs, targets, transport),
	}
}

// Converger exposes the convergence component for the background worker.
func (s *Service) Converger() *Converger {
	return s.converger
}

func (s *Service) Create(ctx context.Context, actor *model.User, req *model.CreateConfigRequest) (*model.ConfigurationItem, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermManageConfiguration); err != nil {
		return nil, err
	}
	if fields := s.validateCreate(req); len(fields) > 0 {
		return nil, apperrors.NewValidation(fields)
	}

	if existing, err := s.configs.GetByNormalizedKey(ctx, req.Key); err == nil && existing != nil {
		return nil, apperrors.NewDuplicate("configuration key", model.NormalizeConfigKey(req.Key))
	}

	now := time.Now()
	item := &model.ConfigurationItem{
		Base:        model.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Key:         req.Key,
		Value:       req.Value,
		Scope:       req.Scope,
		Description: req.Description,
		UpdatedBy:   actor.Email,
	}
	if err := s.configs.Create(ctx, item); err != nil {
		return nil, err
	}
	if err := s.invalidate(ctx, actor, item, model.AuditActionCreate, nil); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) validateCreate(req *model.CreateConfigRequest) map[string]string {
	fields := make(map[string]string)
	if err := s.validate.Struct(req); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, ve := range verrs {
				switch ve.Field() {
				case "Key":
					fields["key"] = "key is required"
				case "Value":
					fields["value"] = "value is required"
				case "Scope":
					fields["scope"] = "scope is required"
				}
			}
		}
	}
	if _, ok := fields["scope"]; !ok && req.Scope != "" && !validScope(req.Scope) {
		fields["scope"] = "unknown service scope"
	}
	return fields
}

func validScope(scope model.ServiceScope) bool {
	for _, s := range model.AllScopes() {
		if s == scope {
			return true
		}
	}
	return false
}

// Update may change value and description. Key and scope are fixed at
// creation; the request shape cannot even carry them.
func (s *Service) Update(ctx context.Context, actor *model.User, id uuid.UUID, req *model.UpdateConfigRequest) (*model.ConfigurationItem, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermManageConfiguration); err != nil {
		return nil, err
	}
	if req.Value == "" {
		return nil, apperrors.NewValidationField("value", "value is required")
	}

	item, err := s.configs.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	before := *item
	item.Value = req.Value
	item.Description = req.Description
	item.UpdatedBy = actor.Email
	if err := s.configs.Update(ctx, item); err != nil {
		return nil, err
	}
	if err := s.invalidate(ctx, actor, item, model.AuditActionUpdate, &before); err != nil {
		return nil, err
	}
	return item, nil
}

// Delete soft-deletes; the row stays for export history.
func (s *Service) Delete(ctx context.Context, actor *model.User, id uuid.UUID) error {
	if err := s.rbac.Authorize(actor.Role, model.PermManageConfiguration); err != nil {
		return err
	}

	item, err := s.configs.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.configs.SoftDelete(ctx, id); err != nil {
		return err
	}
	return s.invalidate(ctx, actor, item, model.AuditActionDelete, item)
}

// invalidate is the write fan-out shared by every mutation: bump the
// registry generation, mark all targets pending, audit, and queue the
// change event for downstream delivery.
func (s *Service) invalidate(ctx context.Context, actor *model.User, item *model.ConfigurationItem, action string, before *model.ConfigurationItem) error {
	generation, err := s.configs.BumpGeneration(ctx)
	if err != nil {
		return err
	}
	if err := s.targets.MarkAllPending(ctx); err != nil {
		return err
	}
	s.converger.Interrupt()

	var after interface{}
	if action != model.AuditActionDelete {
		after = item
	}
	var beforeVal interface{}
	if before != nil {
		beforeVal = before
	}
	s.auditor.Log(ctx, audit.Entry{
		Actor:      actor,
		Action:     action,
		EntityType: model.AuditEntityConfig,
		EntityID:   item.ID,
		Before:     beforeVal,
		After:      after,
	})

	payload, err := json.Marshal(model.ConfigChangedEvent{
		ConfigID:   item.ID,
		Key:        item.Key,
		Action:     action,
		Generation: generation,
		OccurredAt: time.Now(),
	})
	if err != nil {
		return err
	}
	now := time.Now()
	return s.outbox.Create(ctx, &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: "configuration.changed",
		Payload:   payload,
		Status:    string(model.OutboxStatusPending),
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// ForceSync runs one convergence pass right now.
func (s *Service) ForceSync(ctx context.Context, actor *model.User) ([]*model.SyncTarget, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermForceSync); err != nil {
		return nil, err
	}

	if err := s.converger.Converge(ctx); err != nil {
		return nil, err
	}

	targets, err := s.targets.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, target := range targets {
		s.auditor.Log(ctx, audit.Entry{
			Actor:      actor,
			Action:     model.AuditActionSync,
			EntityType: model.AuditEntitySyncTarget,
			EntityID:   uuid.NewSHA1(uuid.NameSpaceOID, []byte(target.Scope)),
			After:      target,
			Reason:     "force sync",
		})
	}
	return targets, nil
}

func (s *Service) Get(ctx context.Context, actor *model.User, id uuid.UUID) (*model.ConfigurationItem, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermViewConfiguration); err != nil {
		return nil, err
	}
	return s.configs.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, actor *model.User, filter *model.ConfigFilter) ([]*model.ConfigurationItem, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermViewConfiguration); err != nil {
		return nil, err
	}
	return s.configs.List(ctx, filter)
}

func (s *Service) ListSyncTargets(ctx context.Context, actor *model.User) ([]*model.SyncTarget, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermViewConfiguration); err != nil {
		return nil, err
	}
	return s.targets.List(ctx)
}

// Export produces the external wire format consumed by existing tooling.
func (s *Service) Export(ctx context.Context, actor *model.User) ([]model.ConfigExportEntry, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermViewConfiguration); err != nil {
		return nil, err
	}

	items, err := s.configs.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make([]model.ConfigExportEntry, 0, len(items))
	for _, item := range items {
		out = append(out, model.ConfigExportEntry{
			ConfigKey:    item.Key,
			ConfigValue:  item.Value,
			ServiceScope: string(item.Scope),
			Description:  item.Description,
			LastUpdated:  item.UpdatedAt,
			UpdatedBy:    item.UpdatedBy,
		})
	}
	return out, nil
}
