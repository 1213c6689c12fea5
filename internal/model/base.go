package model

import (
	"time"

	"github.com/google/uuid"
)

// Base contains common fields for all models. Version is bumped on every
// update and checked by the stores so concurrent writers surface as a
// conflict instead of a silent overwrite.
type Base struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Version   int64      `json:"version" db:"version"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Pagination represents common pagination parameters
type Pagination struct {
	Page     int `json:"page" form:"page"`
	PageSize int `json:"page_size" form:"page_size"`
}

// JSONMap represents a generic JSON object
type JSONMap map[string]interface{}
