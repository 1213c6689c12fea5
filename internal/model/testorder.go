package model

import (
	"time"

	"github.com/google/uuid"
)

type ReviewStatus string

const (
	OrderPending    ReviewStatus = "PENDING"
	OrderCompleted  ReviewStatus = "COMPLETED"
	OrderCancelled  ReviewStatus = "CANCELLED"
	OrderReviewed   ReviewStatus = "REVIEWED"
	OrderAIReviewed ReviewStatus = "AI_REVIEWED"
)

// TestOrder is a review-workflow item. Human and AI review are tracked
// independently as timestamps; ReviewStatus is derived from them (human
// review takes display precedence) so neither overwrites the other.
type TestOrder struct {
	Base
	PatientRef   string       `json:"patient_ref" db:"patient_ref"`
	PanelName    string       `json:"panel_name" db:"panel_name"`
	ReviewStatus ReviewStatus `json:"review_status" db:"review_status"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty" db:"completed_at"`
	ReviewedAt   *time.Time   `json:"reviewed_at,omitempty" db:"reviewed_at"`
	AIReviewedAt *time.Time   `json:"ai_reviewed_at,omitempty" db:"ai_reviewed_at"`
	Results      []TestResult `json:"results,omitempty" db:"-"`
	Comments     []Comment    `json:"comments,omitempty" db:"-"`
}

// DeriveReviewStatus recomputes the single-field status the export surface
// still expects from the independent review timestamps.
func (o *TestOrder) DeriveReviewStatus() ReviewStatus {
	switch {
	case o.ReviewStatus == OrderCancelled:
		return OrderCancelled
	case o.ReviewedAt != nil:
		return OrderReviewed
	case o.AIReviewedAt != nil:
		return OrderAIReviewed
	case o.CompletedAt != nil:
		return OrderCompleted
	default:
		return OrderPending
	}
}

// Printable reports whether result export is allowed in the current state.
func (o *TestOrder) Printable() bool {
	s := o.DeriveReviewStatus()
	return s == OrderCompleted || s == OrderReviewed
}

// TestResult rows are attached when the order completes and are immutable
// from then on.
type TestResult struct {
	ID             uuid.UUID `json:"id" db:"id"`
	TestOrderID    uuid.UUID `json:"test_order_id" db:"test_order_id"`
	Name           string    `json:"name" db:"name"`
	Value          string    `json:"value" db:"value"`
	Unit           string    `json:"unit" db:"unit"`
	ReferenceRange string    `json:"reference_range" db:"reference_range"`
	Abnormal       bool      `json:"abnormal" db:"abnormal"`
}

type Comment struct {
	ID          uuid.UUID `json:"id" db:"id"`
	TestOrderID uuid.UUID `json:"test_order_id" db:"test_order_id"`
	AuthorID    uuid.UUID `json:"author_id" db:"author_id"`
	AuthorName  string    `json:"author_name" db:"author_name"`
	Message     string    `json:"message" db:"message"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
