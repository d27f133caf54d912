package settlement

import (
	"fmt"

	"github.com/retailops/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Error codes for settlement operations. Each code maps to a distinct
// corrective action at the caller, so none of these may surface as a
// generic failure.
const (
	ErrCodeChargeUndetermined     = "CHARGE_UNDETERMINED"
	ErrCodeNothingApplied         = "NOTHING_APPLIED"
	ErrCodeLockConflict           = "LOCK_CONFLICT"
	ErrCodeInsufficientClearance  = "INSUFFICIENT_CLEARANCE"
	ErrCodeInvalidAllocationInput = "INVALID_ALLOCATION_INPUT"
)

var (
	// ErrChargeUndetermined means no candidate source could produce the frozen
	// charge for a receivable. Settlement against it must not proceed.
	ErrChargeUndetermined = shared.NewDomainError(ErrCodeChargeUndetermined,
		"No usable total source for receivable; settlement is blocked")

	// ErrNothingApplied means a payment was submitted but every target
	// receivable was already settled. No settlement events were created.
	ErrNothingApplied = shared.NewDomainError(ErrCodeNothingApplied,
		"Payment could not be applied: all target receivables are already settled")

	// ErrLockConflict means another operator holds the remit lock on at least
	// one of the requested receivables. Retryable by the caller after backoff.
	ErrLockConflict = shared.NewDomainError(ErrCodeLockConflict,
		"Receivable is being remitted by another operator")

	// ErrInvalidAllocationInput means the payment amount was rejected before
	// any store access (non-positive or otherwise unusable).
	ErrInvalidAllocationInput = shared.NewDomainError(ErrCodeInvalidAllocationInput,
		"Allocation amount must be a positive monetary value")
)

// NewInsufficientClearanceError reports a finalize attempt on an unbalanced
// run whose variance is not cleared. The gap still unexplained after
// bridges is embedded so the caller can route to the approval flow.
func NewInsufficientClearanceError(gap decimal.Decimal) *shared.DomainError {
	return shared.NewDomainError(ErrCodeInsufficientClearance,
		fmt.Sprintf("Run cash gap %s is not balanced and the variance is not cleared", gap.StringFixed(2)))
}
