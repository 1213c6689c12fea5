package model

import "time"

// RawResult is instrument-produced raw data. Deletion is only ever allowed
// once the record is both backed up and synced to monitoring; losing an
// unsynced raw result is unrecoverable.
type RawResult struct {
	Base
	InstrumentSerial   string     `json:"instrument_serial" db:"instrument_serial"`
	SampleCode         string     `json:"sample_code" db:"sample_code"`
	BackedUp           bool       `json:"backed_up" db:"backed_up"`
	SyncedToMonitoring bool       `json:"synced_to_monitoring" db:"synced_to_monitoring"`
	CapturedAt         time.Time  `json:"captured_at" db:"captured_at"`
	SyncedAt           *time.Time `json:"synced_at,omitempty" db:"synced_at"`
}

// Deletable reports the backup-gate invariant.
func (r *RawResult) Deletable() bool {
	return r.BackedUp && r.SyncedToMonitoring
}
