package model

import "time"

type UsageStatus string

const (
	ReagentInUse    UsageStatus = "IN_USE"
	ReagentNotInUse UsageStatus = "NOT_IN_USE"
)

// Reagent is a warehouse inventory item.
type Reagent struct {
	Base
	Name           string      `json:"name" db:"name"`
	Quantity       int         `json:"quantity" db:"quantity"`
	ExpirationDate time.Time   `json:"expiration_date" db:"expiration_date"`
	LotNumber      string      `json:"lot_number" db:"lot_number"`
	VendorName     string      `json:"vendor_name" db:"vendor_name"`
	VendorID       string      `json:"vendor_id" db:"vendor_id"`
	ContactInfo    string      `json:"contact_info" db:"contact_info"`
	UsageStatus    UsageStatus `json:"usage_status" db:"usage_status"`
}

// InstallReagentRequest is validated field by field; all problems are
// reported together so the caller can render them at once.
type InstallReagentRequest struct {
	Name           string    `json:"name" validate:"required"`
	Quantity       int       `json:"quantity" validate:"required,gt=0"`
	ExpirationDate time.Time `json:"expiration_date" validate:"required"`
	LotNumber      string    `json:"lot_number" validate:"required"`
	VendorName     string    `json:"vendor_name" validate:"required"`
	VendorID       string    `json:"vendor_id" validate:"required"`
	ContactInfo    string    `json:"contact_info"`
}
