package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// RunSettledEvent is raised when a run is finalized with all money accounted for
type RunSettledEvent struct {
	shared.BaseDomainEvent
	RunID         uuid.UUID       `json:"run_id"`
	RunNumber     string          `json:"run_number"`
	AgentID       uuid.UUID       `json:"agent_id"`
	ExpectedCash  decimal.Decimal `json:"expected_cash"`
	ReceivedCash  decimal.Decimal `json:"received_cash"`
	BridgedAmount decimal.Decimal `json:"bridged_amount"`
	CashGap       decimal.Decimal `json:"cash_gap"`
	SettledAt     time.Time       `json:"settled_at"`
}

// EventType returns the event type name
func (e *RunSettledEvent) EventType() string {
	return "RunSettled"
}

// NewRunSettledEvent creates a new RunSettledEvent
func NewRunSettledEvent(r *Run) *RunSettledEvent {
	settledAt := time.Now()
	if r.SettledAt != nil {
		settledAt = *r.SettledAt
	}
	return &RunSettledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("RunSettled", "Run", r.ID),
		RunID:           r.ID,
		RunNumber:       r.RunNumber,
		AgentID:         r.AgentID,
		ExpectedCash:    r.ExpectedCash,
		ReceivedCash:    r.ReceivedCash,
		BridgedAmount:   r.BridgedAmount,
		CashGap:         r.CashGap,
		SettledAt:       settledAt,
	}
}
