package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ServiceScope is the downstream service a configuration item belongs to.
type ServiceScope string

const (
	ScopeWarehouse  ServiceScope = "Warehouse"
	ScopeInstrument ServiceScope = "Instrument"
	ScopeMonitoring ServiceScope = "Monitoring"
	ScopeReporting  ServiceScope = "Reporting"
)

// AllScopes lists every downstream scope a sync target exists for.
func AllScopes() []ServiceScope {
	return []ServiceScope{ScopeWarehouse, ScopeInstrument, ScopeMonitoring, ScopeReporting}
}

// ConfigurationItem is a distributed setting. Key and Scope are fixed at
// creation; soft-deleted items are filtered from listings but retained.
type ConfigurationItem struct {
	Base
	Key         string       `json:"key" db:"key"`
	Value       string       `json:"value" db:"value"`
	Scope       ServiceScope `json:"scope" db:"scope"`
	Description string       `json:"description" db:"description"`
	UpdatedBy   string       `json:"updated_by" db:"updated_by"`
}

// NormalizeConfigKey canonicalizes a key for uniqueness checks: uppercase,
// trimmed, runs of whitespace collapsed to single underscores.
func NormalizeConfigKey(key string) string {
	return strings.ToUpper(strings.Join(strings.Fields(strings.TrimSpace(key)), "_"))
}

type SyncStatus string

const (
	SyncSynced  SyncStatus = "SYNCED"
	SyncPending SyncStatus = "PENDING"
	SyncFailed  SyncStatus = "FAILED"
)

// SyncTarget is a downstream service's record of whether it holds the latest
// configuration. Any configuration write marks every target pending; only
// the convergence path moves a target out of pending.
type SyncTarget struct {
	Scope      ServiceScope `json:"scope" db:"scope"`
	Status     SyncStatus   `json:"status" db:"status"`
	LastSyncAt *time.Time   `json:"last_sync_at,omitempty" db:"last_sync_at"`
	ErrorLog   *string      `json:"error_log,omitempty" db:"error_log"`
	// Generation is the registry generation the target last converged on.
	Generation int64 `json:"generation" db:"generation"`
}

// ConfigExportEntry is the external export wire format. Field names are load
// bearing: existing consumers parse them byte for byte.
type ConfigExportEntry struct {
	ConfigKey    string    `json:"configKey"`
	ConfigValue  string    `json:"configValue"`
	ServiceScope string    `json:"serviceScope"`
	Description  string    `json:"description"`
	LastUpdated  time.Time `json:"lastUpdated"`
	UpdatedBy    string    `json:"updatedBy"`
}

// CreateConfigRequest carries the create-command payload.
type CreateConfigRequest struct {
	Key         string       `json:"key" validate:"required"`
	Value       string       `json:"value" validate:"required"`
	Scope       ServiceScope `json:"scope" validate:"required"`
	Description string       `json:"description"`
}

// UpdateConfigRequest may change value and description only.
type UpdateConfigRequest struct {
	Value       string `json:"value" validate:"required"`
	Description string `json:"description"`
}

// ConfigFilter narrows configuration listings.
type ConfigFilter struct {
	Scope      ServiceScope `form:"scope"`
	SearchTerm string       `form:"search"`
}

// ConfigChangedEvent is published to downstream scopes through the outbox.
type ConfigChangedEvent struct {
	ConfigID   uuid.UUID `json:"config_id"`
	Key        string    `json:"key"`
	Action     string    `json:"action"`
	Generation int64     `json:"generation"`
	OccurredAt time.Time `json:"occurred_at"`
}
