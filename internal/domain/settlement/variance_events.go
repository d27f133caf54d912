package settlement

import (
	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// VarianceOpenedEvent is raised when an unexplained cash gap is detected
type VarianceOpenedEvent struct {
	shared.BaseDomainEvent
	VarianceID   uuid.UUID       `json:"variance_id"`
	RunID        uuid.UUID       `json:"run_id"`
	AgentID      uuid.UUID       `json:"agent_id"`
	ExpectedCash decimal.Decimal `json:"expected_cash"`
	ReceivedCash decimal.Decimal `json:"received_cash"`
	GapAmount    decimal.Decimal `json:"gap_amount"`
}

// EventType returns the event type name
func (e *VarianceOpenedEvent) EventType() string {
	return "VarianceOpened"
}

// NewVarianceOpenedEvent creates a new VarianceOpenedEvent
func NewVarianceOpenedEvent(v *Variance) *VarianceOpenedEvent {
	return &VarianceOpenedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("VarianceOpened", "Variance", v.ID),
		VarianceID:      v.ID,
		RunID:           v.RunID,
		AgentID:         v.AgentID,
		ExpectedCash:    v.ExpectedCash,
		ReceivedCash:    v.ReceivedCash,
		GapAmount:       v.GapAmount,
	}
}

// VarianceApprovedEvent is raised when a manager decides a resolution
type VarianceApprovedEvent struct {
	shared.BaseDomainEvent
	VarianceID uuid.UUID          `json:"variance_id"`
	RunID      uuid.UUID          `json:"run_id"`
	Resolution VarianceResolution `json:"resolution"`
	ApprovedBy uuid.UUID          `json:"approved_by"`
}

// EventType returns the event type name
func (e *VarianceApprovedEvent) EventType() string {
	return "VarianceApproved"
}

// NewVarianceApprovedEvent creates a new VarianceApprovedEvent
func NewVarianceApprovedEvent(v *Variance) *VarianceApprovedEvent {
	var approvedBy uuid.UUID
	if v.ApprovedBy != nil {
		approvedBy = *v.ApprovedBy
	}
	return &VarianceApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("VarianceApproved", "Variance", v.ID),
		VarianceID:      v.ID,
		RunID:           v.RunID,
		Resolution:      v.Resolution,
		ApprovedBy:      approvedBy,
	}
}

// VarianceWaivedEvent is raised when a variance is written off
type VarianceWaivedEvent struct {
	shared.BaseDomainEvent
	VarianceID uuid.UUID       `json:"variance_id"`
	RunID      uuid.UUID       `json:"run_id"`
	GapAmount  decimal.Decimal `json:"gap_amount"`
	ApprovedBy uuid.UUID       `json:"approved_by"`
}

// EventType returns the event type name
func (e *VarianceWaivedEvent) EventType() string {
	return "VarianceWaived"
}

// NewVarianceWaivedEvent creates a new VarianceWaivedEvent
func NewVarianceWaivedEvent(v *Variance) *VarianceWaivedEvent {
	var approvedBy uuid.UUID
	if v.ApprovedBy != nil {
		approvedBy = *v.ApprovedBy
	}
	return &VarianceWaivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("VarianceWaived", "Variance", v.ID),
		VarianceID:      v.ID,
		RunID:           v.RunID,
		GapAmount:       v.GapAmount,
		ApprovedBy:      approvedBy,
	}
}

// VarianceAcceptedEvent is raised when the agent acknowledges a charge
type VarianceAcceptedEvent struct {
	shared.BaseDomainEvent
	VarianceID uuid.UUID       `json:"variance_id"`
	RunID      uuid.UUID       `json:"run_id"`
	AgentID    uuid.UUID       `json:"agent_id"`
	GapAmount  decimal.Decimal `json:"gap_amount"`
}

// EventType returns the event type name
func (e *VarianceAcceptedEvent) EventType() string {
	return "VarianceAccepted"
}

// NewVarianceAcceptedEvent creates a new VarianceAcceptedEvent
func NewVarianceAcceptedEvent(v *Variance) *VarianceAcceptedEvent {
	return &VarianceAcceptedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("VarianceAccepted", "Variance", v.ID),
		VarianceID:      v.ID,
		RunID:           v.RunID,
		AgentID:         v.AgentID,
		GapAmount:       v.GapAmount,
	}
}

// VarianceClosedEvent is raised when a variance finishes processing
type VarianceClosedEvent struct {
	shared.BaseDomainEvent
	VarianceID uuid.UUID          `json:"variance_id"`
	RunID      uuid.UUID          `json:"run_id"`
	Resolution VarianceResolution `json:"resolution"`
}

// EventType returns the event type name
func (e *VarianceClosedEvent) EventType() string {
	return "VarianceClosed"
}

// NewVarianceClosedEvent creates a new VarianceClosedEvent
func NewVarianceClosedEvent(v *Variance) *VarianceClosedEvent {
	return &VarianceClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("VarianceClosed", "Variance", v.ID),
		VarianceID:      v.ID,
		RunID:           v.RunID,
		Resolution:      v.Resolution,
	}
}
