package model

import (
	"time"

	"github.com/google/uuid"
)

// OperationalStatus is the instrument's operational axis. It is independent
// of the activation axis: an inactive instrument keeps its last operational
// status.
type OperationalStatus string

const (
	InstrumentReady       OperationalStatus = "READY"
	InstrumentProcessing  OperationalStatus = "PROCESSING"
	InstrumentMaintenance OperationalStatus = "MAINTENANCE"
	InstrumentError       OperationalStatus = "ERROR"

	// ModeInactive is accepted by the change-mode command as a shorthand for
	// deactivation; it is not a value OperationalStatus ever holds.
	ModeInactive OperationalStatus = "INACTIVE"
)

type ActivationStatus string

const (
	ActivationActive   ActivationStatus = "ACTIVE"
	ActivationInactive ActivationStatus = "INACTIVE"
)

// Instrument is a tracked laboratory analyzer.
type Instrument struct {
	Base
	Name              string            `json:"name" db:"name"`
	SerialNumber      string            `json:"serial_number" db:"serial_number"`
	Type              string            `json:"type" db:"type"`
	OperationalStatus OperationalStatus `json:"operational_status" db:"operational_status"`
	Activation        ActivationStatus  `json:"activation" db:"activation"`
	// DeactivatedAt is set when the instrument goes inactive. PurgeAfter is
	// advisory metadata consumed by an external sweep job; reactivation
	// clears both.
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty" db:"deactivated_at"`
	PurgeAfter    *time.Time `json:"purge_after,omitempty" db:"purge_after"`
	ReagentProfiles []string `json:"reagent_profiles" db:"-"`
	ConfigProfiles  []string `json:"config_profiles" db:"-"`
}

// DeactivationRetention is how long an inactive instrument is retained
// before the external sweep may remove it.
const DeactivationRetention = 90 * 24 * time.Hour

// RegisterInstrumentRequest is the add-command payload. When CloneSourceID is
// set the profile lists are copied from the source instrument and the
// caller-supplied lists are ignored.
type RegisterInstrumentRequest struct {
	Name            string     `json:"name" binding:"required"`
	SerialNumber    string     `json:"serial_number" binding:"required"`
	Type            string     `json:"type" binding:"required"`
	CloneSourceID   *uuid.UUID `json:"clone_source_id,omitempty"`
	ReagentProfiles []string   `json:"reagent_profiles,omitempty"`
	ConfigProfiles  []string   `json:"config_profiles,omitempty"`
}

// ChangeModeRequest carries the operator-facing mode transition parameters.
type ChangeModeRequest struct {
	Mode        OperationalStatus `json:"mode" binding:"required"`
	Reason      string            `json:"reason,omitempty"`
	QCConfirmed bool              `json:"qc_confirmed,omitempty"`
}

// AnalysisRunStatus tracks an asynchronous sample-analysis execution.
type AnalysisRunStatus string

const (
	AnalysisRunQueued    AnalysisRunStatus = "QUEUED"
	AnalysisRunRunning   AnalysisRunStatus = "RUNNING"
	AnalysisRunCompleted AnalysisRunStatus = "COMPLETED"
	AnalysisRunFailed    AnalysisRunStatus = "FAILED"
	AnalysisRunCancelled AnalysisRunStatus = "CANCELLED"
)

// AnalysisRun is a queued execution over a batch of samples. Samples are
// processed strictly one at a time; CurrentSample reports progress.
type AnalysisRun struct {
	ID            uuid.UUID         `json:"id"`
	InstrumentID  uuid.UUID         `json:"instrument_id"`
	SampleIDs     []string          `json:"sample_ids"`
	Status        AnalysisRunStatus `json:"status"`
	CurrentSample int               `json:"current_sample"`
	Error         string            `json:"error,omitempty"`
	StartedAt     *time.Time        `json:"started_at,omitempty"`
	FinishedAt    *time.Time        `json:"finished_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}
