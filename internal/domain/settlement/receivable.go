package settlement

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/shared"
	"github.com/retailops/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ReceivableStatus represents the settlement status of a receivable
type ReceivableStatus string

const (
	ReceivableStatusOpen              ReceivableStatus = "OPEN"               // Nothing settled yet
	ReceivableStatusPartiallySettled  ReceivableStatus = "PARTIALLY_SETTLED"  // 0 < settled < frozen charge
	ReceivableStatusSettled           ReceivableStatus = "SETTLED"            // Outstanding within tolerance of zero
)

// IsValid checks if the status is a valid ReceivableStatus
func (s ReceivableStatus) IsValid() bool {
	switch s {
	case ReceivableStatusOpen, ReceivableStatusPartiallySettled, ReceivableStatusSettled:
		return true
	}
	return false
}

// String returns the string representation of ReceivableStatus
func (s ReceivableStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the receivable needs no further settlement
func (s ReceivableStatus) IsTerminal() bool {
	return s == ReceivableStatusSettled
}

// CanApplySettlement returns true if settlement events can still be applied
func (s ReceivableStatus) CanApplySettlement() bool {
	return s == ReceivableStatusOpen || s == ReceivableStatusPartiallySettled
}

// Receivable is the aggregate root for money owed by a customer on a
// dispatched delivery run. The charge is frozen at creation time by the
// total resolution chain and never recomputed afterwards; all balance
// figures derive from the frozen charge and the applied settlement events.
type Receivable struct {
	shared.BaseAggregateRoot
	SaleNumber      string           `json:"sale_number"`
	CustomerID      uuid.UUID        `json:"customer_id"`
	CustomerName    string           `json:"customer_name"`
	AgentID         uuid.UUID        `json:"agent_id"`
	RunID           *uuid.UUID       `json:"run_id,omitempty"`
	FrozenCharge    decimal.Decimal  `json:"frozen_charge"`    // Resolved once, immutable afterwards
	CashSettled     decimal.Decimal  `json:"cash_settled"`     // Sum of CASH events
	BridgeSettled   decimal.Decimal  `json:"bridge_settled"`   // Sum of NON_CASH_BRIDGE events
	CollectedAmount decimal.Decimal  `json:"collected_amount"` // Field-reported collection, uncapped as reported
	Status          ReceivableStatus `json:"status"`
	SettledAt       *time.Time       `json:"settled_at,omitempty"`
	RemitLockToken  string           `json:"remit_lock_token,omitempty"`
	RemitLockedAt   *time.Time       `json:"remit_locked_at,omitempty"`
}

// NewReceivable creates a new receivable with its charge already resolved
// and frozen
func NewReceivable(
	saleNumber string,
	customerID uuid.UUID,
	customerName string,
	agentID uuid.UUID,
	runID *uuid.UUID,
	frozenCharge valueobject.Money,
) (*Receivable, error) {
	if saleNumber == "" {
		return nil, shared.NewDomainError("INVALID_SALE_NUMBER", "Sale number cannot be empty")
	}
	if len(saleNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_SALE_NUMBER", "Sale number cannot exceed 50 characters")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if agentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_AGENT", "Agent ID cannot be empty")
	}
	if frozenCharge.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Frozen charge must be positive")
	}

	r := &Receivable{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SaleNumber:        saleNumber,
		CustomerID:        customerID,
		CustomerName:      customerName,
		AgentID:           agentID,
		RunID:             runID,
		FrozenCharge:      frozenCharge.Amount().Round(2),
		CashSettled:       decimal.Zero,
		BridgeSettled:     decimal.Zero,
		CollectedAmount:   decimal.Zero,
		Status:            ReceivableStatusOpen,
	}

	r.AddDomainEvent(NewReceivableCreatedEvent(r))

	return r, nil
}

// CashDue returns the amount still owed in cash: frozen charge minus prior
// cash settlements. Bridge settlements do not reduce the cash due; they mark
// the customer as covered without claiming cash was received.
func (r *Receivable) CashDue() decimal.Decimal {
	return valueobject.Round2(r.FrozenCharge.Sub(r.CashSettled))
}

// Outstanding returns the remaining unsettled portion of the frozen charge,
// counting both cash and bridge settlements.
func (r *Receivable) Outstanding() decimal.Decimal {
	return valueobject.Round2(r.FrozenCharge.Sub(r.CashSettled).Sub(r.BridgeSettled))
}

// CollectedCapped returns the field-reported collection capped at the frozen
// charge. Over-reported collections never inflate the expected drawer total.
func (r *Receivable) CollectedCapped() decimal.Decimal {
	if r.CollectedAmount.GreaterThan(r.FrozenCharge) {
		return r.FrozenCharge
	}
	return r.CollectedAmount
}

// ApplyCashSettlement records a cash amount against the receivable. The
// amount must be positive and must not exceed the remaining cash due.
func (r *Receivable) ApplyCashSettlement(amount valueobject.Money) error {
	if !r.Status.CanApplySettlement() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot apply settlement to receivable in %s status", r.Status))
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Settlement amount must be positive")
	}
	if amount.Amount().GreaterThan(r.CashDue()) {
		return shared.NewDomainError("EXCEEDS_DUE", fmt.Sprintf("Settlement amount %s exceeds cash due %s", amount.StringFixed(2), r.CashDue().StringFixed(2)))
	}

	r.CashSettled = valueobject.Round2(r.CashSettled.Add(amount.Amount()))
	r.refreshStatus(amount.Amount())

	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	return nil
}

// ApplyBridgeSettlement marks part of the charge as covered without cash.
// Used when field collection outpaced remitted cash and the customer must
// not be dunned for the difference.
func (r *Receivable) ApplyBridgeSettlement(amount valueobject.Money) error {
	if !r.Status.CanApplySettlement() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot apply bridge to receivable in %s status", r.Status))
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Bridge amount must be positive")
	}
	if amount.Amount().GreaterThan(r.Outstanding()) {
		return shared.NewDomainError("EXCEEDS_DUE", fmt.Sprintf("Bridge amount %s exceeds outstanding %s", amount.StringFixed(2), r.Outstanding().StringFixed(2)))
	}

	r.BridgeSettled = valueobject.Round2(r.BridgeSettled.Add(amount.Amount()))
	r.AddDomainEvent(NewBridgePostedEvent(r, amount.Amount()))
	r.refreshStatus(amount.Amount())

	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	return nil
}

// RecordCollection records the amount the field agent reported collecting
// from the customer. This is a report, not money in the drawer; it feeds the
// expected side of the run reconciliation.
func (r *Receivable) RecordCollection(amount valueobject.Money) error {
	if amount.Amount().IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Collected amount cannot be negative")
	}

	r.CollectedAmount = valueobject.Round2(r.CollectedAmount.Add(amount.Amount()))
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	return nil
}

// refreshStatus recomputes the status from the outstanding balance. Amounts
// within AllocationEpsilon of zero count as settled so a rounding residue
// never strands a receivable in PARTIALLY_SETTLED.
func (r *Receivable) refreshStatus(appliedAmount decimal.Decimal) {
	if valueobject.IsSettledAmount(r.Outstanding()) {
		now := time.Now()
		r.Status = ReceivableStatusSettled
		r.SettledAt = &now
		r.AddDomainEvent(NewReceivableSettledEvent(r))
		return
	}
	r.Status = ReceivableStatusPartiallySettled
	r.AddDomainEvent(NewReceivablePartiallySettledEvent(r, appliedAmount))
}

// IsRemitLocked returns true if any operator currently holds the remit lock
func (r *Receivable) IsRemitLocked() bool {
	return r.RemitLockToken != ""
}

// IsRemitLockedBy returns true if the given operator token holds the lock
func (r *Receivable) IsRemitLockedBy(token string) bool {
	return r.RemitLockToken != "" && r.RemitLockToken == token
}

// ClaimRemitLock marks the receivable as being remitted by the operator
// identified by token. Reclaiming with the same token is a no-op so a
// retried remit does not lock the operator out.
func (r *Receivable) ClaimRemitLock(token string) error {
	if token == "" {
		return shared.NewDomainError("INVALID_LOCK_TOKEN", "Lock token cannot be empty")
	}
	if r.IsRemitLocked() && !r.IsRemitLockedBy(token) {
		return ErrLockConflict
	}

	now := time.Now()
	r.RemitLockToken = token
	r.RemitLockedAt = &now
	return nil
}

// ReleaseRemitLock clears the remit lock if held by token. Releasing an
// unheld lock is a no-op.
func (r *Receivable) ReleaseRemitLock(token string) {
	if r.IsRemitLockedBy(token) {
		r.RemitLockToken = ""
		r.RemitLockedAt = nil
	}
}

// Helper methods

// GetFrozenChargeMoney returns the frozen charge as Money
func (r *Receivable) GetFrozenChargeMoney() valueobject.Money {
	return valueobject.NewMoneyPHP(r.FrozenCharge)
}

// GetCashDueMoney returns the cash due as Money
func (r *Receivable) GetCashDueMoney() valueobject.Money {
	return valueobject.NewMoneyPHP(r.CashDue())
}

// GetOutstandingMoney returns the outstanding amount as Money
func (r *Receivable) GetOutstandingMoney() valueobject.Money {
	return valueobject.NewMoneyPHP(r.Outstanding())
}

// IsOpen returns true if nothing has been settled yet
func (r *Receivable) IsOpen() bool {
	return r.Status == ReceivableStatusOpen
}

// IsPartiallySettled returns true if the receivable is partially settled
func (r *Receivable) IsPartiallySettled() bool {
	return r.Status == ReceivableStatusPartiallySettled
}

// IsSettled returns true if the receivable is fully settled
func (r *Receivable) IsSettled() bool {
	return r.Status == ReceivableStatusSettled
}
