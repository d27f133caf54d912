package settlement

import (
	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/shared"
	"github.com/retailops/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// SettlementMethod identifies how money was applied against a receivable
type SettlementMethod string

const (
	// MethodCash is money physically received into the operator's drawer
	MethodCash SettlementMethod = "CASH"
	// MethodNonCashBridge marks a customer as paid for a field-collection
	// shortfall without touching the cash drawer
	MethodNonCashBridge SettlementMethod = "NON_CASH_BRIDGE"
)

// IsValid checks if the method is a valid SettlementMethod
func (m SettlementMethod) IsValid() bool {
	return m == MethodCash || m == MethodNonCashBridge
}

// String returns the string representation of SettlementMethod
func (m SettlementMethod) String() string {
	return string(m)
}

// SettlementEvent is an immutable record of money applied against a
// Receivable. Events are append-only: they are never mutated or deleted once
// created, and every balance figure is derivable by summing them.
type SettlementEvent struct {
	shared.BaseEntity
	ReceivableID uuid.UUID        `json:"receivable_id"`
	Method       SettlementMethod `json:"method"`
	Amount       decimal.Decimal  `json:"amount"`
	Reference    string           `json:"reference"`
	OperatorID   *uuid.UUID       `json:"operator_id,omitempty"`
}

// NewSettlementEvent creates a new settlement event
func NewSettlementEvent(receivableID uuid.UUID, method SettlementMethod, amount valueobject.Money, reference string) (*SettlementEvent, error) {
	if receivableID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_RECEIVABLE", "Receivable ID cannot be empty")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_METHOD", "Settlement method is not valid")
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Settlement amount must be positive")
	}

	return &SettlementEvent{
		BaseEntity:   shared.NewBaseEntity(),
		ReceivableID: receivableID,
		Method:       method,
		Amount:       amount.Amount().Round(2),
		Reference:    reference,
	}, nil
}

// WithOperator attaches the recording operator to the event
func (e *SettlementEvent) WithOperator(operatorID uuid.UUID) *SettlementEvent {
	e.OperatorID = &operatorID
	return e
}

// GetAmountMoney returns the amount as Money value object
func (e *SettlementEvent) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyPHP(e.Amount)
}
