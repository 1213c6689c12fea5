package rawresult

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/labops-api/internal/model"
	"github.com/jwalitptl/labops-api/internal/repository"
	"github.com/jwalitptl/labops-api/internal/service/audit"
	"github.com/jwalitptl/labops-api/internal/service/rbac"
	apperrors "github.com/jwalitptl/labops-api/pkg/errors"
)

type Service struct {
	repo    repository.RawResultRepository
	rbac    *rbac.Service
	auditor *audit.Service
}

func NewService(repo repository.RawResultRepository, rbacSvc *rbac.Service, auditor *audit.Service) *Service {
	return &Service{repo: repo, rbac: rbacSvc, auditor: auditor}
}

// Capture records a raw result coming off an instrument.
func (s *Service) Capture(ctx context.Context, actor *model.User, instrumentSerial, sampleCode string) (*model.RawResult, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermManageRawResults); err != nil {
		return nil, err
	}
	if sampleCode == "" {
		return nil, apperrors.NewValidationField("sample_code", "sample code is required")
	}

	now := time.Now()
	result := &model.RawResult{
		Base:             model.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		InstrumentSerial: instrumentSerial,
		SampleCode:       sampleCode,
		CapturedAt:       now,
	}
	if err := s.repo.Create(ctx, result); err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, audit.Entry{
		Actor:      actor,
		Action:     model.AuditActionCreate,
		EntityType: model.AuditEntityRawResult,
		EntityID:   result.ID,
		After:      result,
	})
	return result, nil
}

// Delete enforces the backup gate. The gate is evaluated before the
// permission check on purpose: it is a data-safety invariant, not an access
// control, and must hold no matter who asks.
func (s *Service) Delete(ctx context.Context, actor *model.User, id uuid.UUID) error {
	result, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !result.Deletable() {
		return apperrors.NewPreconditionFailed("raw result must be backed up and synced to monitoring before deletion")
	}

	if err := s.rbac.Authorize(actor.Role, model.PermManageRawResults); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.auditor.Log(ctx, audit.Entry{
		Actor:      actor,
		Action:     model.AuditActionDelete,
		EntityType: model.AuditEntityRawResult,
		EntityID:   id,
		Before:     result,
	})
	return nil
}

// SyncToMonitoring marks every unsynced record backed up and synced. Each
// record is flipped atomically; a partial batch leaves no record half done.
func (s *Service) SyncToMonitoring(ctx context.Context, actor *model.User) (int, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermManageRawResults); err != nil {
		return 0, err
	}

	unsynced, err := s.repo.ListUnsynced(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	synced := 0
	for _, result := range unsynced {
		if err := s.repo.MarkSynced(ctx, result.ID, now); err != nil {
			log.Error().Err(err).Str("raw_result_id", result.ID.String()).Msg("failed to mark raw result synced")
			continue
		}
		synced++

		after := *result
		after.BackedUp = true
		after.SyncedToMonitoring = true
		after.SyncedAt = &now
		s.auditor.Log(ctx, audit.Entry{
			Actor:      actor,
			Action:     model.AuditActionSync,
			EntityType: model.AuditEntityRawResult,
			EntityID:   result.ID,
			Before:     result,
			After:      &after,
		})
	}
	return synced, nil
}

func (s *Service) Get(ctx context.Context, actor *model.User, id uuid.UUID) (*model.RawResult, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermManageRawResults); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, actor *model.User) ([]*model.RawResult, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermManageRawResults); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}
