package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditRecord is an immutable, append-only log entry for a state transition.
// Sequence is monotonic per (entity_type, entity_id): records are readable in
// exactly the order the transitions were applied.
type AuditRecord struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	Sequence   int64           `json:"sequence" db:"sequence"`
	ActorID    uuid.UUID       `json:"actor_id" db:"actor_id"`
	ActorRole  Role            `json:"actor_role" db:"actor_role"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id" db:"entity_id"`
	Before     json.RawMessage `json:"before,omitempty" db:"before"`
	After      json.RawMessage `json:"after,omitempty" db:"after"`
	Reason     string          `json:"reason,omitempty" db:"reason"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

const (
	// Action types
	AuditActionCreate     = "create"
	AuditActionUpdate     = "update"
	AuditActionDelete     = "delete"
	AuditActionActivate   = "activate"
	AuditActionDeactivate = "deactivate"
	AuditActionModeChange = "mode_change"
	AuditActionReview     = "review"
	AuditActionSync       = "sync"

	// Entity types
	AuditEntityInstrument = "instrument"
	AuditEntityReagent    = "reagent"
	AuditEntityTestOrder  = "test_order"
	AuditEntityComment    = "comment"
	AuditEntityRawResult  = "raw_result"
	AuditEntityConfig     = "configuration"
	AuditEntitySyncTarget = "sync_target"
)

// AuditFilter narrows audit listings.
type AuditFilter struct {
	EntityType string     `form:"entity_type"`
	EntityID   *uuid.UUID `form:"entity_id"`
	ActorID    *uuid.UUID `form:"actor_id"`
	Action     string     `form:"action"`
}
