package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/labops-api/internal/model"
	"github.com/jwalitptl/labops-api/internal/repository"
	"github.com/jwalitptl/labops-api/pkg/metrics"
)

type Service struct {
	repo    repository.AuditRepository
	metrics *metrics.Metrics
}

func NewService(repo repository.AuditRepository) *Service {
	return &Service{repo: repo}
}

// SetMetrics attaches the metric bundle; without it the service only logs.
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// Entry describes one transition to record. Before and After are snapshots
// of the entity around the mutation; either may be nil for create/delete.
type Entry struct {
	Actor      *model.User
	Action     string
	EntityType string
	EntityID   uuid.UUID
	Before     interface{}
	After      interface{}
	Reason     string
}

// Log appends an audit record. The repository assigns the per-entity
// sequence number, so records for one entity always read back in the order
// the transitions were applied.
func (s *Service) Log(ctx context.Context, entry Entry) error {
	record := &model.AuditRecord{
		ID:         uuid.New(),
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Reason:     entry.Reason,
		CreatedAt:  time.Now(),
	}
	if entry.Actor != nil {
		record.ActorID = entry.Actor.ID
		record.ActorRole = entry.Actor.Role
	}

	var err error
	if entry.Before != nil {
		if record.Before, err = json.Marshal(entry.Before); err != nil {
			return err
		}
	}
	if entry.After != nil {
		if record.After, err = json.Marshal(entry.After); err != nil {
			return err
		}
	}

	if err := s.repo.Create(ctx, record); err != nil {
		log.Error().Err(err).
			Str("entity_type", entry.EntityType).
			Str("entity_id", entry.EntityID.String()).
			Msg("failed to append audit record")
		return err
	}
	if s.metrics != nil {
		s.metrics.AuditRecords.Inc()
	}
	return nil
}

func (s *Service) List(ctx context.Context, filter *model.AuditFilter) ([]*model.AuditRecord, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	return s.repo.Cleanup(ctx, before)
}
