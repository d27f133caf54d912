package settlement

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/shared"
	"github.com/retailops/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// VarianceStatus represents the approval state of a cash variance
type VarianceStatus string

const (
	VarianceStatusOpen            VarianceStatus = "OPEN"             // Detected, awaiting a manager decision
	VarianceStatusManagerApproved VarianceStatus = "MANAGER_APPROVED" // Manager decided a resolution
	VarianceStatusAgentAccepted   VarianceStatus = "AGENT_ACCEPTED"   // Agent acknowledged the charge
	VarianceStatusWaived          VarianceStatus = "WAIVED"           // Manager wrote the gap off
	VarianceStatusClosed          VarianceStatus = "CLOSED"           // Fully processed
)

// IsValid checks if the status is a valid VarianceStatus
func (s VarianceStatus) IsValid() bool {
	switch s {
	case VarianceStatusOpen, VarianceStatusManagerApproved, VarianceStatusAgentAccepted,
		VarianceStatusWaived, VarianceStatusClosed:
		return true
	}
	return false
}

// String returns the string representation of VarianceStatus
func (s VarianceStatus) String() string {
	return string(s)
}

// VarianceResolution represents how a variance is to be resolved
type VarianceResolution string

const (
	VarianceResolutionChargeAgent VarianceResolution = "CHARGE_AGENT" // Agent owes the gap personally
	VarianceResolutionInfoOnly    VarianceResolution = "INFO_ONLY"    // Recorded for the books, nobody charged
	VarianceResolutionWaive       VarianceResolution = "WAIVE"        // Gap written off
)

// IsValid checks if the resolution is valid
func (r VarianceResolution) IsValid() bool {
	switch r {
	case VarianceResolutionChargeAgent, VarianceResolutionInfoOnly, VarianceResolutionWaive:
		return true
	}
	return false
}

// String returns the string representation of VarianceResolution
func (r VarianceResolution) String() string {
	return string(r)
}

// Variance is the aggregate root for an unexplained cash gap on a run. It
// must be cleared through the approval chain before the run can settle.
type Variance struct {
	shared.BaseAggregateRoot
	RunID        uuid.UUID          `json:"run_id"`
	AgentID      uuid.UUID          `json:"agent_id"`
	ExpectedCash decimal.Decimal    `json:"expected_cash"`
	ReceivedCash decimal.Decimal    `json:"received_cash"`
	GapAmount    decimal.Decimal    `json:"gap_amount"` // ExpectedCash minus ReceivedCash at detection time
	Status       VarianceStatus     `json:"status"`
	Resolution   VarianceResolution `json:"resolution,omitempty"`
	ApprovedBy   *uuid.UUID         `json:"approved_by,omitempty"`
	ApprovedAt   *time.Time         `json:"approved_at,omitempty"`
	AcceptedAt   *time.Time         `json:"accepted_at,omitempty"`
	ClosedAt     *time.Time         `json:"closed_at,omitempty"`
	Notes        string             `json:"notes,omitempty"`
}

// NewVariance creates a new open variance for an unbalanced run
func NewVariance(runID uuid.UUID, agentID uuid.UUID, expectedCash, receivedCash valueobject.Money) (*Variance, error) {
	if runID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_RUN", "Run ID cannot be empty")
	}
	if agentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_AGENT", "Agent ID cannot be empty")
	}
	gap := valueobject.Round2(expectedCash.Amount().Sub(receivedCash.Amount()))
	if valueobject.IsBalancedGap(gap) {
		return nil, shared.NewDomainError("NO_VARIANCE", "Cash figures are balanced; nothing to record")
	}

	v := &Variance{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		RunID:             runID,
		AgentID:           agentID,
		ExpectedCash:      expectedCash.Amount().Round(2),
		ReceivedCash:      receivedCash.Amount().Round(2),
		GapAmount:         gap,
		Status:            VarianceStatusOpen,
	}

	v.AddDomainEvent(NewVarianceOpenedEvent(v))

	return v, nil
}

// Approve records a manager's resolution decision. A WAIVE resolution
// approved here clears immediately, same as the Waive shortcut.
func (v *Variance) Approve(resolution VarianceResolution, approverID uuid.UUID, notes string) error {
	if v.Status != VarianceStatusOpen {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot approve variance in %s status", v.Status))
	}
	if !resolution.IsValid() {
		return shared.NewDomainError("INVALID_RESOLUTION", "Resolution is not valid")
	}
	if approverID == uuid.Nil {
		return shared.NewDomainError("INVALID_APPROVER", "Approver ID cannot be empty")
	}

	now := time.Now()
	v.Status = VarianceStatusManagerApproved
	v.Resolution = resolution
	v.ApprovedBy = &approverID
	v.ApprovedAt = &now
	v.Notes = notes
	v.UpdatedAt = now
	v.IncrementVersion()

	v.AddDomainEvent(NewVarianceApprovedEvent(v))

	return nil
}

// Waive writes the variance off entirely. Terminal and cleared.
func (v *Variance) Waive(approverID uuid.UUID, notes string) error {
	if v.Status != VarianceStatusOpen {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot waive variance in %s status", v.Status))
	}
	if approverID == uuid.Nil {
		return shared.NewDomainError("INVALID_APPROVER", "Approver ID cannot be empty")
	}

	now := time.Now()
	v.Status = VarianceStatusWaived
	v.Resolution = VarianceResolutionWaive
	v.ApprovedBy = &approverID
	v.ApprovedAt = &now
	v.Notes = notes
	v.UpdatedAt = now
	v.IncrementVersion()

	v.AddDomainEvent(NewVarianceWaivedEvent(v))

	return nil
}

// AgentAccept records the agent's acknowledgement of a charge-agent
// resolution. Only a CHARGE_AGENT variance needs the agent's signature.
func (v *Variance) AgentAccept() error {
	if v.Status != VarianceStatusManagerApproved {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot accept variance in %s status", v.Status))
	}
	if v.Resolution != VarianceResolutionChargeAgent {
		return shared.NewDomainError("INVALID_RESOLUTION", "Only charge-agent variances require agent acceptance")
	}

	now := time.Now()
	v.Status = VarianceStatusAgentAccepted
	v.AcceptedAt = &now
	v.UpdatedAt = now
	v.IncrementVersion()

	v.AddDomainEvent(NewVarianceAcceptedEvent(v))

	return nil
}

// Close completes processing. A charge-agent variance closes after the
// agent accepted; info-only and waive variances close straight from
// approval.
func (v *Variance) Close() error {
	if !v.CanClose() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot close variance in %s status with resolution %s", v.Status, v.Resolution))
	}

	now := time.Now()
	v.Status = VarianceStatusClosed
	v.ClosedAt = &now
	v.UpdatedAt = now
	v.IncrementVersion()

	v.AddDomainEvent(NewVarianceClosedEvent(v))

	return nil
}

// CanClose reports whether Close would succeed from the current state
func (v *Variance) CanClose() bool {
	switch {
	case v.Status == VarianceStatusAgentAccepted:
		return true
	case v.Status == VarianceStatusManagerApproved &&
		(v.Resolution == VarianceResolutionInfoOnly || v.Resolution == VarianceResolutionWaive):
		return true
	}
	return false
}

// IsCleared reports whether the variance no longer blocks run settlement.
// Waived and closed variances clear outright. A charge-agent variance
// clears once the agent has signed acceptance; an info-only or waive
// resolution clears on manager approval alone. Anything else, including
// records carrying legacy or unrecognized statuses, does NOT clear and
// keeps the run blocked.
func (v *Variance) IsCleared() bool {
	switch v.Status {
	case VarianceStatusWaived, VarianceStatusClosed:
		return true
	}
	switch v.Resolution {
	case VarianceResolutionChargeAgent:
		return v.AcceptedAt != nil
	case VarianceResolutionInfoOnly, VarianceResolutionWaive:
		return v.ApprovedAt != nil
	}
	return false
}

// RequiresAgentCharge returns true if this variance should produce a
// personal charge against the agent
func (v *Variance) RequiresAgentCharge() bool {
	return v.Resolution == VarianceResolutionChargeAgent &&
		(v.Status == VarianceStatusAgentAccepted || v.Status == VarianceStatusClosed)
}

// GetGapAmountMoney returns the gap as Money
func (v *Variance) GetGapAmountMoney() valueobject.Money {
	return valueobject.NewMoneyPHP(v.GapAmount)
}
