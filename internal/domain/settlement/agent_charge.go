package settlement

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/shared"
	"github.com/retailops/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// AgentChargeStatus represents the repayment status of an agent charge
type AgentChargeStatus string

const (
	AgentChargeStatusOutstanding AgentChargeStatus = "OUTSTANDING" // Nothing repaid yet
	AgentChargeStatusPartial     AgentChargeStatus = "PARTIAL"     // Some repaid
	AgentChargeStatusPaid        AgentChargeStatus = "PAID"        // Fully repaid
)

// IsValid checks if the status is a valid AgentChargeStatus
func (s AgentChargeStatus) IsValid() bool {
	switch s {
	case AgentChargeStatusOutstanding, AgentChargeStatusPartial, AgentChargeStatusPaid:
		return true
	}
	return false
}

// String returns the string representation of AgentChargeStatus
func (s AgentChargeStatus) String() string {
	return string(s)
}

// AgentCharge is a personal debt an agent carries for an accepted cash
// variance. It tracks repayment independently of the run that produced it.
type AgentCharge struct {
	shared.BaseAggregateRoot
	AgentID      uuid.UUID         `json:"agent_id"`
	VarianceID   uuid.UUID         `json:"variance_id"`
	RunID        uuid.UUID         `json:"run_id"`
	ChargeAmount decimal.Decimal   `json:"charge_amount"`
	PaidAmount   decimal.Decimal   `json:"paid_amount"`
	Status       AgentChargeStatus `json:"status"`
	PaidAt       *time.Time        `json:"paid_at,omitempty"`
}

// NewAgentCharge creates a charge from an accepted charge-agent variance
func NewAgentCharge(v *Variance) (*AgentCharge, error) {
	if v == nil {
		return nil, shared.NewDomainError("INVALID_VARIANCE", "Variance cannot be nil")
	}
	if !v.RequiresAgentCharge() {
		return nil, shared.NewDomainError("INVALID_VARIANCE", "Variance does not call for an agent charge")
	}
	if v.GapAmount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Charge amount must be positive")
	}

	return &AgentCharge{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		AgentID:           v.AgentID,
		VarianceID:        v.ID,
		RunID:             v.RunID,
		ChargeAmount:      v.GapAmount,
		PaidAmount:        decimal.Zero,
		Status:            AgentChargeStatusOutstanding,
	}, nil
}

// Outstanding returns the unpaid remainder of the charge
func (c *AgentCharge) Outstanding() decimal.Decimal {
	return valueobject.Round2(c.ChargeAmount.Sub(c.PaidAmount))
}

// ApplyRepayment records money the agent paid back against the charge
func (c *AgentCharge) ApplyRepayment(amount valueobject.Money) error {
	if c.Status == AgentChargeStatusPaid {
		return shared.NewDomainError("INVALID_STATE", "Charge is already fully repaid")
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Repayment amount must be positive")
	}
	if amount.Amount().GreaterThan(c.Outstanding()) {
		return shared.NewDomainError("EXCEEDS_OUTSTANDING", fmt.Sprintf("Repayment %s exceeds outstanding %s", amount.StringFixed(2), c.Outstanding().StringFixed(2)))
	}

	c.PaidAmount = valueobject.Round2(c.PaidAmount.Add(amount.Amount()))

	if valueobject.IsSettledAmount(c.Outstanding()) {
		now := time.Now()
		c.Status = AgentChargeStatusPaid
		c.PaidAt = &now
	} else {
		c.Status = AgentChargeStatusPartial
	}

	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	return nil
}
