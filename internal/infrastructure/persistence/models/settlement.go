package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/settlement"
	"github.com/retailops/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ReceivableModel is the persistence model for the Receivable aggregate root.
type ReceivableModel struct {
	AggregateModel
	SaleNumber      string                      `gorm:"type:varchar(50);not null;uniqueIndex"`
	CustomerID      uuid.UUID                   `gorm:"type:uuid;not null;index"`
	CustomerName    string                      `gorm:"type:varchar(200);not null"`
	AgentID         uuid.UUID                   `gorm:"type:uuid;not null;index"`
	RunID           *uuid.UUID                  `gorm:"type:uuid;index"`
	FrozenCharge    decimal.Decimal             `gorm:"type:decimal(18,2);not null"`
	CashSettled     decimal.Decimal             `gorm:"type:decimal(18,2);not null"`
	BridgeSettled   decimal.Decimal             `gorm:"type:decimal(18,2);not null"`
	CollectedAmount decimal.Decimal             `gorm:"type:decimal(18,2);not null"`
	Status          settlement.ReceivableStatus `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	SettledAt       *time.Time
	RemitLockToken  string `gorm:"type:varchar(100);not null;default:'';index"`
	RemitLockedAt   *time.Time
}

// TableName returns the table name for GORM
func (ReceivableModel) TableName() string {
	return "receivables"
}

// ToDomain converts the persistence model to a domain Receivable.
func (m *ReceivableModel) ToDomain() *settlement.Receivable {
	r := &settlement.Receivable{
		SaleNumber:      m.SaleNumber,
		CustomerID:      m.CustomerID,
		CustomerName:    m.CustomerName,
		AgentID:         m.AgentID,
		RunID:           m.RunID,
		FrozenCharge:    m.FrozenCharge,
		CashSettled:     m.CashSettled,
		BridgeSettled:   m.BridgeSettled,
		CollectedAmount: m.CollectedAmount,
		Status:          m.Status,
		SettledAt:       m.SettledAt,
		RemitLockToken:  m.RemitLockToken,
		RemitLockedAt:   m.RemitLockedAt,
	}
	m.PopulateAggregateRoot(&r.BaseAggregateRoot)
	return r
}

// FromDomain populates the persistence model from a domain Receivable.
func (m *ReceivableModel) FromDomain(r *settlement.Receivable) {
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	m.SaleNumber = r.SaleNumber
	m.CustomerID = r.CustomerID
	m.CustomerName = r.CustomerName
	m.AgentID = r.AgentID
	m.RunID = r.RunID
	m.FrozenCharge = r.FrozenCharge
	m.CashSettled = r.CashSettled
	m.BridgeSettled = r.BridgeSettled
	m.CollectedAmount = r.CollectedAmount
	m.Status = r.Status
	m.SettledAt = r.SettledAt
	m.RemitLockToken = r.RemitLockToken
	m.RemitLockedAt = r.RemitLockedAt
}

// ReceivableModelFromDomain creates a new persistence model from a domain Receivable.
func ReceivableModelFromDomain(r *settlement.Receivable) *ReceivableModel {
	m := &ReceivableModel{}
	m.FromDomain(r)
	return m
}

// SettlementEventModel is the persistence model for the append-only
// settlement ledger. Rows are never updated or deleted.
type SettlementEventModel struct {
	BaseModel
	ReceivableID uuid.UUID                   `gorm:"type:uuid;not null;index"`
	Method       settlement.SettlementMethod `gorm:"type:varchar(20);not null;index"`
	Amount       decimal.Decimal             `gorm:"type:decimal(18,2);not null"`
	Reference    string                      `gorm:"type:varchar(100);not null;default:''"`
	OperatorID   *uuid.UUID                  `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (SettlementEventModel) TableName() string {
	return "settlement_events"
}

// ToDomain converts the persistence model to a domain SettlementEvent.
func (m *SettlementEventModel) ToDomain() *settlement.SettlementEvent {
	return &settlement.SettlementEvent{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ReceivableID: m.ReceivableID,
		Method:       m.Method,
		Amount:       m.Amount,
		Reference:    m.Reference,
		OperatorID:   m.OperatorID,
	}
}

// FromDomain populates the persistence model from a domain SettlementEvent.
func (m *SettlementEventModel) FromDomain(e *settlement.SettlementEvent) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.ReceivableID = e.ReceivableID
	m.Method = e.Method
	m.Amount = e.Amount
	m.Reference = e.Reference
	m.OperatorID = e.OperatorID
}

// SettlementEventModelFromDomain creates a new persistence model from a
// domain SettlementEvent.
func SettlementEventModelFromDomain(e *settlement.SettlementEvent) *SettlementEventModel {
	m := &SettlementEventModel{}
	m.FromDomain(e)
	return m
}

// RunModel is the persistence model for the Run aggregate root.
type RunModel struct {
	AggregateModel
	RunNumber     string               `gorm:"type:varchar(50);not null;uniqueIndex"`
	AgentID       uuid.UUID            `gorm:"type:uuid;not null;index"`
	Status        settlement.RunStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	ExpectedCash  decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	ReceivedCash  decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	BridgedAmount decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	CashGap       decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	TotalShortage decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	DispatchedAt  *time.Time
	ClosedAt      *time.Time
	SettledAt     *time.Time
	CancelledAt   *time.Time
}

// TableName returns the table name for GORM
func (RunModel) TableName() string {
	return "delivery_runs"
}

// ToDomain converts the persistence model to a domain Run.
func (m *RunModel) ToDomain() *settlement.Run {
	r := &settlement.Run{
		RunNumber:     m.RunNumber,
		AgentID:       m.AgentID,
		Status:        m.Status,
		ExpectedCash:  m.ExpectedCash,
		ReceivedCash:  m.ReceivedCash,
		BridgedAmount: m.BridgedAmount,
		CashGap:       m.CashGap,
		TotalShortage: m.TotalShortage,
		DispatchedAt:  m.DispatchedAt,
		ClosedAt:      m.ClosedAt,
		SettledAt:     m.SettledAt,
		CancelledAt:   m.CancelledAt,
	}
	m.PopulateAggregateRoot(&r.BaseAggregateRoot)
	return r
}

// FromDomain populates the persistence model from a domain Run.
func (m *RunModel) FromDomain(r *settlement.Run) {
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	m.RunNumber = r.RunNumber
	m.AgentID = r.AgentID
	m.Status = r.Status
	m.ExpectedCash = r.ExpectedCash
	m.ReceivedCash = r.ReceivedCash
	m.BridgedAmount = r.BridgedAmount
	m.CashGap = r.CashGap
	m.TotalShortage = r.TotalShortage
	m.DispatchedAt = r.DispatchedAt
	m.ClosedAt = r.ClosedAt
	m.SettledAt = r.SettledAt
	m.CancelledAt = r.CancelledAt
}

// RunModelFromDomain creates a new persistence model from a domain Run.
func RunModelFromDomain(r *settlement.Run) *RunModel {
	m := &RunModel{}
	m.FromDomain(r)
	return m
}

// VarianceModel is the persistence model for the Variance aggregate root.
type VarianceModel struct {
	AggregateModel
	RunID        uuid.UUID                     `gorm:"type:uuid;not null;index"`
	AgentID      uuid.UUID                     `gorm:"type:uuid;not null;index"`
	ExpectedCash decimal.Decimal               `gorm:"type:decimal(18,2);not null"`
	ReceivedCash decimal.Decimal               `gorm:"type:decimal(18,2);not null"`
	GapAmount    decimal.Decimal               `gorm:"type:decimal(18,2);not null"`
	Status       settlement.VarianceStatus     `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	Resolution   settlement.VarianceResolution `gorm:"type:varchar(20);not null;default:''"`
	ApprovedBy   *uuid.UUID                    `gorm:"type:uuid"`
	ApprovedAt   *time.Time
	AcceptedAt   *time.Time
	ClosedAt     *time.Time
	Notes        string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (VarianceModel) TableName() string {
	return "cash_variances"
}

// ToDomain converts the persistence model to a domain Variance.
func (m *VarianceModel) ToDomain() *settlement.Variance {
	v := &settlement.Variance{
		RunID:        m.RunID,
		AgentID:      m.AgentID,
		ExpectedCash: m.ExpectedCash,
		ReceivedCash: m.ReceivedCash,
		GapAmount:    m.GapAmount,
		Status:       m.Status,
		Resolution:   m.Resolution,
		ApprovedBy:   m.ApprovedBy,
		ApprovedAt:   m.ApprovedAt,
		AcceptedAt:   m.AcceptedAt,
		ClosedAt:     m.ClosedAt,
		Notes:        m.Notes,
	}
	m.PopulateAggregateRoot(&v.BaseAggregateRoot)
	return v
}

// FromDomain populates the persistence model from a domain Variance.
func (m *VarianceModel) FromDomain(v *settlement.Variance) {
	m.FromDomainAggregateRoot(v.BaseAggregateRoot)
	m.RunID = v.RunID
	m.AgentID = v.AgentID
	m.ExpectedCash = v.ExpectedCash
	m.ReceivedCash = v.ReceivedCash
	m.GapAmount = v.GapAmount
	m.Status = v.Status
	m.Resolution = v.Resolution
	m.ApprovedBy = v.ApprovedBy
	m.ApprovedAt = v.ApprovedAt
	m.AcceptedAt = v.AcceptedAt
	m.ClosedAt = v.ClosedAt
	m.Notes = v.Notes
}

// VarianceModelFromDomain creates a new persistence model from a domain Variance.
func VarianceModelFromDomain(v *settlement.Variance) *VarianceModel {
	m := &VarianceModel{}
	m.FromDomain(v)
	return m
}

// AgentChargeModel is the persistence model for the AgentCharge aggregate root.
type AgentChargeModel struct {
	AggregateModel
	AgentID      uuid.UUID                    `gorm:"type:uuid;not null;index"`
	VarianceID   uuid.UUID                    `gorm:"type:uuid;not null;uniqueIndex"`
	RunID        uuid.UUID                    `gorm:"type:uuid;not null;index"`
	ChargeAmount decimal.Decimal              `gorm:"type:decimal(18,2);not null"`
	PaidAmount   decimal.Decimal              `gorm:"type:decimal(18,2);not null"`
	Status       settlement.AgentChargeStatus `gorm:"type:varchar(20);not null;default:'OUTSTANDING';index"`
	PaidAt       *time.Time
}

// TableName returns the table name for GORM
func (AgentChargeModel) TableName() string {
	return "agent_charges"
}

// ToDomain converts the persistence model to a domain AgentCharge.
func (m *AgentChargeModel) ToDomain() *settlement.AgentCharge {
	c := &settlement.AgentCharge{
		AgentID:      m.AgentID,
		VarianceID:   m.VarianceID,
		RunID:        m.RunID,
		ChargeAmount: m.ChargeAmount,
		PaidAmount:   m.PaidAmount,
		Status:       m.Status,
		PaidAt:       m.PaidAt,
	}
	m.PopulateAggregateRoot(&c.BaseAggregateRoot)
	return c
}

// FromDomain populates the persistence model from a domain AgentCharge.
func (m *AgentChargeModel) FromDomain(c *settlement.AgentCharge) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.AgentID = c.AgentID
	m.VarianceID = c.VarianceID
	m.RunID = c.RunID
	m.ChargeAmount = c.ChargeAmount
	m.PaidAmount = c.PaidAmount
	m.Status = c.Status
	m.PaidAt = c.PaidAt
}

// AgentChargeModelFromDomain creates a new persistence model from a domain
// AgentCharge.
func AgentChargeModelFromDomain(c *settlement.AgentCharge) *AgentChargeModel {
	m := &AgentChargeModel{}
	m.FromDomain(c)
	return m
}

// ChargeLineModel is one line of a candidate charge source for a sale.
// SourceRank orders the sources in the resolution chain and Position orders
// the lines within one source.
type ChargeLineModel struct {
	BaseModel
	SaleID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	SourceName string          `gorm:"type:varchar(40);not null"`
	SourceRank int             `gorm:"not null"`
	Position   int             `gorm:"not null"`
	Total      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Quantity   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (ChargeLineModel) TableName() string {
	return "charge_source_lines"
}

// ToDomain converts the persistence model to a domain ChargeLine.
func (m *ChargeLineModel) ToDomain() settlement.ChargeLine {
	return settlement.ChargeLine{
		Total:     m.Total,
		Quantity:  m.Quantity,
		UnitPrice: m.UnitPrice,
	}
}
