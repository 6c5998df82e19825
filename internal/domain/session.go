package domain

import (
	"fmt"
	"time"
)

// Stage identifies the position of an analysis session in the staged
// disclosure flow. Exactly one stage is active at a time.
type Stage string

const (
	StageInput          Stage = "input"
	StagePreview        Stage = "preview"
	StageDepthSelection Stage = "depth_selection"
	StagePurchasing     Stage = "purchasing"
	StageResults        Stage = "results"
	StageError          Stage = "error"
)

// ErrorKind classifies flow errors for the presentation layer.
type ErrorKind string

const (
	// ErrKindValidation: caller input violates a precondition. Local,
	// never reaches the network, stage unchanged.
	ErrKindValidation ErrorKind = "validation"

	// ErrKindFetchFailed: a backend call failed (transport error, non-2xx,
	// malformed body). Stage moves to error, prior fields preserved.
	ErrKindFetchFailed ErrorKind = "fetch_failed"

	// ErrKindConcurrentOperation: a second mutating call while one was
	// already in flight. Rejected without side effects.
	ErrKindConcurrentOperation ErrorKind = "concurrent_operation"
)

// FlowError is the error type returned by session operations.
type FlowError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *FlowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

func NewValidationError(message string) *FlowError {
	return &FlowError{Kind: ErrKindValidation, Message: message}
}

func NewFetchError(message string, err error) *FlowError {
	return &FlowError{Kind: ErrKindFetchFailed, Message: message, Err: err}
}

func NewConcurrentOperationError(message string) *FlowError {
	return &FlowError{Kind: ErrKindConcurrentOperation, Message: message}
}

// ErrorInfo is the presentation-facing record of the last failed operation.
type ErrorInfo struct {
	Kind        ErrorKind `json:"kind"`
	Message     string    `json:"message"`
	FailedStage Stage     `json:"failed_stage,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// BillingSummary carries the billing metadata returned by a purchase.
type BillingSummary struct {
	AmountCharged int64       `json:"amount_charged"`
	BillingKind   BillingKind `json:"billing_kind"`
}

// AnalysisSession is the unit of work for one user-initiated analysis:
// a single pass through address, preview, depth selection, purchase and
// results. Discarded entirely on reset; no cross-session persistence.
type AnalysisSession struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Address       string          `json:"address"`
	Stage         Stage           `json:"stage"`
	SelectedDepth int             `json:"selected_depth"`
	PreviewReport *PreviewReport  `json:"preview_report,omitempty"`
	FullReport    *FullReport     `json:"full_report,omitempty"`
	Billing       *BillingSummary `json:"billing,omitempty"`
	LastError     *ErrorInfo      `json:"last_error,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
