package settlement

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/shared"
	"github.com/retailops/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// RunStatus represents the lifecycle status of a delivery run
type RunStatus string

const (
	RunStatusDraft      RunStatus = "DRAFT"      // Assembled, not yet on the road
	RunStatusDispatched RunStatus = "DISPATCHED" // Agent is out collecting
	RunStatusClosed     RunStatus = "CLOSED"     // Agent returned, remit in progress
	RunStatusSettled    RunStatus = "SETTLED"    // All money accounted for
	RunStatusCancelled  RunStatus = "CANCELLED"  // Abandoned before settlement
)

// IsValid checks if the status is a valid RunStatus
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusDraft, RunStatusDispatched, RunStatusClosed, RunStatusSettled, RunStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of RunStatus
func (s RunStatus) String() string {
	return string(s)
}

// Run is the aggregate root for a delivery run: the unit of money
// accountability for one agent's trip. Its cash figures are always derived
// by reconciling the run's receivables, never edited directly.
type Run struct {
	shared.BaseAggregateRoot
	RunNumber     string          `json:"run_number"`
	AgentID       uuid.UUID       `json:"agent_id"`
	Status        RunStatus       `json:"status"`
	ExpectedCash  decimal.Decimal `json:"expected_cash"`  // Sum of capped field collections
	ReceivedCash  decimal.Decimal `json:"received_cash"`  // Sum of CASH settlement events
	BridgedAmount decimal.Decimal `json:"bridged_amount"` // Sum of capped bridge settlements
	CashGap       decimal.Decimal `json:"cash_gap"`       // ExpectedCash minus ReceivedCash
	TotalShortage decimal.Decimal `json:"total_shortage"` // Sum of per-receivable shortages
	DispatchedAt  *time.Time      `json:"dispatched_at,omitempty"`
	ClosedAt      *time.Time      `json:"closed_at,omitempty"`
	SettledAt     *time.Time      `json:"settled_at,omitempty"`
	CancelledAt   *time.Time      `json:"cancelled_at,omitempty"`
}

// NewRun creates a new delivery run in DRAFT status
func NewRun(runNumber string, agentID uuid.UUID) (*Run, error) {
	if runNumber == "" {
		return nil, shared.NewDomainError("INVALID_RUN_NUMBER", "Run number cannot be empty")
	}
	if len(runNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_RUN_NUMBER", "Run number cannot exceed 50 characters")
	}
	if agentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_AGENT", "Agent ID cannot be empty")
	}

	return &Run{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		RunNumber:         runNumber,
		AgentID:           agentID,
		Status:            RunStatusDraft,
		ExpectedCash:      decimal.Zero,
		ReceivedCash:      decimal.Zero,
		BridgedAmount:     decimal.Zero,
		CashGap:           decimal.Zero,
		TotalShortage:     decimal.Zero,
	}, nil
}

// Dispatch moves the run onto the road
func (r *Run) Dispatch() error {
	if r.Status != RunStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot dispatch run in %s status", r.Status))
	}

	now := time.Now()
	r.Status = RunStatusDispatched
	r.DispatchedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()

	return nil
}

// Close marks the agent as returned; remit and reconciliation happen from here
func (r *Run) Close() error {
	if r.Status != RunStatusDispatched {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot close run in %s status", r.Status))
	}

	now := time.Now()
	r.Status = RunStatusClosed
	r.ClosedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()

	return nil
}

// Cancel abandons a run that never reached the remit desk. Once cash
// events exist the run must be closed and settled instead, so only draft
// and dispatched runs can be cancelled.
func (r *Run) Cancel() error {
	if r.Status != RunStatusDraft && r.Status != RunStatusDispatched {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel run in %s status", r.Status))
	}

	now := time.Now()
	r.Status = RunStatusCancelled
	r.CancelledAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()

	return nil
}

// ApplyReconciliation updates the run's derived cash figures from a fresh
// reconciliation pass
func (r *Run) ApplyReconciliation(recon *RunReconciliation) {
	r.ExpectedCash = recon.ExpectedCash
	r.ReceivedCash = recon.ReceivedCash
	r.BridgedAmount = recon.BridgedAmount
	r.CashGap = recon.CashGap
	r.TotalShortage = recon.TotalShortage
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
}

// IsBalanced returns true if the cash gap is within tolerance of zero
func (r *Run) IsBalanced() bool {
	return valueobject.IsBalancedGap(r.CashGap)
}

// CanAutoSettle returns true if the run may settle without any clearance:
// closed, balanced, and carrying no per-receivable shortages
func (r *Run) CanAutoSettle() bool {
	return r.Status == RunStatusClosed && r.IsBalanced() && r.TotalShortage.LessThanOrEqual(decimal.Zero)
}

// ResidualGap returns the cash gap net of posted bridge settlements. The
// raw CashGap stays bridge-blind for variance accounting; this is the
// figure that decides whether settlement is still blocked.
func (r *Run) ResidualGap() decimal.Decimal {
	return valueobject.Round2(r.CashGap.Sub(r.BridgedAmount))
}

// IsFullyBridged returns true if posted bridges cover the entire cash gap
// and no per-receivable shortage remains
func (r *Run) IsFullyBridged() bool {
	return valueobject.IsBalancedGap(r.ResidualGap()) && r.TotalShortage.LessThanOrEqual(decimal.Zero)
}

// Settle finalizes the run. Callers are responsible for checking that the
// gap is balanced or cleared before calling.
func (r *Run) Settle() error {
	if r.Status != RunStatusClosed {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot settle run in %s status", r.Status))
	}

	now := time.Now()
	r.Status = RunStatusSettled
	r.SettledAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()

	r.AddDomainEvent(NewRunSettledEvent(r))

	return nil
}

// IsSettled returns true if the run is settled
func (r *Run) IsSettled() bool {
	return r.Status == RunStatusSettled
}

// GetCashGapMoney returns the cash gap as Money
func (r *Run) GetCashGapMoney() valueobject.Money {
	return valueobject.NewMoneyPHP(r.CashGap)
}
