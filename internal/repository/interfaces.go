package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/labops-api/internal/model"
)

// All repository interfaces in one file. Every store is safe for concurrent
// use; Update calls check the entity version and report a conflict on
// mismatch.
type (
	InstrumentRepository interface {
		Create(ctx context.Context, instrument *model.Instrument) error
		Get(ctx context.Context, id uuid.UUID) (*model.Instrument, error)
		GetBySerialNumber(ctx context.Context, serial string) (*model.Instrument, error)
		Update(ctx context.Context, instrument *model.Instrument) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Instrument, error)
	}

	ReagentRepository interface {
		Create(ctx context.Context, reagent *model.Reagent) error
		Get(ctx context.Context, id uuid.UUID) (*model.Reagent, error)
		Update(ctx context.Context, reagent *model.Reagent) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Reagent, error)
	}

	TestOrderRepository interface {
		Create(ctx context.Context, order *model.TestOrder) error
		Get(ctx context.Context, id uuid.UUID) (*model.TestOrder, error)
		Update(ctx context.Context, order *model.TestOrder) error
		List(ctx context.Context) ([]*model.TestOrder, error)
		AttachResults(ctx context.Context, orderID uuid.UUID, results []model.TestResult) error
		ListResults(ctx context.Context, orderID uuid.UUID) ([]model.TestResult, error)
		AddComment(ctx context.Context, comment *model.Comment) error
		GetComment(ctx context.Context, orderID, commentID uuid.UUID) (*model.Comment, error)
		UpdateComment(ctx context.Context, comment *model.Comment) error
		DeleteComment(ctx context.Context, orderID, commentID uuid.UUID) error
		ListComments(ctx context.Context, orderID uuid.UUID) ([]model.Comment, error)
	}

	RawResultRepository interface {
		Create(ctx context.Context, result *model.RawResult) error
		Get(ctx context.Context, id uuid.UUID) (*model.RawResult, error)
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.RawResult, error)
		ListUnsynced(ctx context.Context) ([]*model.RawResult, error)
		// MarkSynced sets backed_up and synced_to_monitoring together; a
		// record is never observable with only one of the flags set.
		MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error
	}

	ConfigRepository interface {
		Create(ctx context.Context, item *model.ConfigurationItem) error
		Get(ctx context.Context, id uuid.UUID) (*model.ConfigurationItem, error)
		GetByNormalizedKey(ctx context.Context, key string) (*model.ConfigurationItem, error)
		Update(ctx context.Context, item *model.ConfigurationItem) error
		SoftDelete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filter *model.ConfigFilter) ([]*model.ConfigurationItem, error)
		// Generation is bumped on every successful write and read by the
		// convergence loop to detect superseded runs.
		BumpGeneration(ctx context.Context) (int64, error)
		Generation(ctx context.Context) (int64, error)
	}

	SyncTargetRepository interface {
		Get(ctx context.Context, scope model.ServiceScope) (*model.SyncTarget, error)
		List(ctx context.Context) ([]*model.SyncTarget, error)
		MarkAllPending(ctx context.Context) error
		Update(ctx context.Context, target *model.SyncTarget) error
	}

	AuditRepository interface {
		// Create assigns the per-entity monotonic sequence number.
		Create(ctx context.Context, record *model.AuditRecord) error
		List(ctx context.Context, filter *model.AuditFilter) ([]*model.AuditRecord, error)
		Cleanup(ctx context.Context, before time.Time) (int64, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error
	}
)
