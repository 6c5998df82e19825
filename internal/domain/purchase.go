package domain

import (
	"time"
)

// PurchaseStatus represents the status of a tier purchase
type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusCompleted PurchaseStatus = "completed"
	PurchaseStatusFailed    PurchaseStatus = "failed"
	PurchaseStatusRefunded  PurchaseStatus = "refunded"
)

// Purchase is the persisted record of one depth-tier purchase. It exists
// for the dashboard's history screens and billing reconciliation; the flow
// controller itself never reads it.
type Purchase struct {
	ID               string         `json:"id" gorm:"primaryKey"`
	UserID           string         `json:"user_id" gorm:"index"`
	SessionID        string         `json:"session_id" gorm:"index"`
	Address          string         `json:"address"`
	DepthLevel       int            `json:"depth_level"`
	TierName         string         `json:"tier_name"`
	AmountCents      int64          `json:"amount_cents"`
	Currency         string         `json:"currency"`
	BillingKind      BillingKind    `json:"billing_kind"`
	Status           PurchaseStatus `json:"status"`
	ProviderIntentID string         `json:"provider_intent_id,omitempty"`
	FailureReason    string         `json:"failure_reason,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
}
