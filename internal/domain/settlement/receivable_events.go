package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ReceivableCreatedEvent is raised when a new receivable is created with a
// frozen charge
type ReceivableCreatedEvent struct {
	shared.BaseDomainEvent
	ReceivableID uuid.UUID       `json:"receivable_id"`
	SaleNumber   string          `json:"sale_number"`
	CustomerID   uuid.UUID       `json:"customer_id"`
	AgentID      uuid.UUID       `json:"agent_id"`
	RunID        *uuid.UUID      `json:"run_id,omitempty"`
	FrozenCharge decimal.Decimal `json:"frozen_charge"`
}

// EventType returns the event type name
func (e *ReceivableCreatedEvent) EventType() string {
	return "ReceivableCreated"
}

// NewReceivableCreatedEvent creates a new ReceivableCreatedEvent
func NewReceivableCreatedEvent(r *Receivable) *ReceivableCreatedEvent {
	return &ReceivableCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ReceivableCreated", "Receivable", r.ID),
		ReceivableID:    r.ID,
		SaleNumber:      r.SaleNumber,
		CustomerID:      r.CustomerID,
		AgentID:         r.AgentID,
		RunID:           r.RunID,
		FrozenCharge:    r.FrozenCharge,
	}
}

// ReceivableSettledEvent is raised when a receivable's outstanding balance
// reaches zero within tolerance
type ReceivableSettledEvent struct {
	shared.BaseDomainEvent
	ReceivableID  uuid.UUID       `json:"receivable_id"`
	SaleNumber    string          `json:"sale_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	FrozenCharge  decimal.Decimal `json:"frozen_charge"`
	CashSettled   decimal.Decimal `json:"cash_settled"`
	BridgeSettled decimal.Decimal `json:"bridge_settled"`
	SettledAt     time.Time       `json:"settled_at"`
}

// EventType returns the event type name
func (e *ReceivableSettledEvent) EventType() string {
	return "ReceivableSettled"
}

// NewReceivableSettledEvent creates a new ReceivableSettledEvent
func NewReceivableSettledEvent(r *Receivable) *ReceivableSettledEvent {
	settledAt := time.Now()
	if r.SettledAt != nil {
		settledAt = *r.SettledAt
	}
	return &ReceivableSettledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ReceivableSettled", "Receivable", r.ID),
		ReceivableID:    r.ID,
		SaleNumber:      r.SaleNumber,
		CustomerID:      r.CustomerID,
		FrozenCharge:    r.FrozenCharge,
		CashSettled:     r.CashSettled,
		BridgeSettled:   r.BridgeSettled,
		SettledAt:       settledAt,
	}
}

// ReceivablePartiallySettledEvent is raised when a settlement leaves an
// outstanding balance
type ReceivablePartiallySettledEvent struct {
	shared.BaseDomainEvent
	ReceivableID  uuid.UUID       `json:"receivable_id"`
	SaleNumber    string          `json:"sale_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	AppliedAmount decimal.Decimal `json:"applied_amount"`
	Outstanding   decimal.Decimal `json:"outstanding"`
}

// EventType returns the event type name
func (e *ReceivablePartiallySettledEvent) EventType() string {
	return "ReceivablePartiallySettled"
}

// NewReceivablePartiallySettledEvent creates a new ReceivablePartiallySettledEvent
func NewReceivablePartiallySettledEvent(r *Receivable, applied decimal.Decimal) *ReceivablePartiallySettledEvent {
	return &ReceivablePartiallySettledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ReceivablePartiallySettled", "Receivable", r.ID),
		ReceivableID:    r.ID,
		SaleNumber:      r.SaleNumber,
		CustomerID:      r.CustomerID,
		AppliedAmount:   applied,
		Outstanding:     r.Outstanding(),
	}
}

// BridgePostedEvent is raised when a non-cash bridge covers part of the
// charge without cash entering the drawer
type BridgePostedEvent struct {
	shared.BaseDomainEvent
	ReceivableID uuid.UUID       `json:"receivable_id"`
	SaleNumber   string          `json:"sale_number"`
	BridgeAmount decimal.Decimal `json:"bridge_amount"`
	Outstanding  decimal.Decimal `json:"outstanding"`
}

// EventType returns the event type name
func (e *BridgePostedEvent) EventType() string {
	return "BridgePosted"
}

// NewBridgePostedEvent creates a new BridgePostedEvent
func NewBridgePostedEvent(r *Receivable, amount decimal.Decimal) *BridgePostedEvent {
	return &BridgePostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("BridgePosted", "Receivable", r.ID),
		ReceivableID:    r.ID,
		SaleNumber:      r.SaleNumber,
		BridgeAmount:    amount,
		Outstanding:     r.Outstanding(),
	}
}
