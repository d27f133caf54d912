package settlement

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/shared"
	"github.com/retailops/backend/internal/domain/shared/strategy"
	"github.com/retailops/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// AllocationStrategyType defines the type of allocation strategy
type AllocationStrategyType string

const (
	AllocationStrategyTypeFIFO   AllocationStrategyType = "FIFO"   // Oldest receivable first
	AllocationStrategyTypeManual AllocationStrategyType = "MANUAL" // Caller-specified order and amounts
)

// IsValid checks if the strategy type is valid
func (t AllocationStrategyType) IsValid() bool {
	switch t {
	case AllocationStrategyTypeFIFO, AllocationStrategyTypeManual:
		return true
	}
	return false
}

// String returns the string representation
func (t AllocationStrategyType) String() string {
	return string(t)
}

// AllocationTarget represents a receivable eligible for allocation
type AllocationTarget struct {
	ID         uuid.UUID       // Receivable ID
	SaleNumber string          // Number for display purposes
	CashDue    decimal.Decimal // Frozen charge minus prior cash settlements
	CreatedAt  time.Time       // Creation date for FIFO ordering
}

// AllocationLine represents a single planned settlement against one receivable
type AllocationLine struct {
	ReceivableID uuid.UUID       // Target receivable
	SaleNumber   string          // Number of the receivable
	Amount       decimal.Decimal // Amount to settle, rounded to 2 places
}

// AllocationOutcome is the complete plan produced by an allocation strategy.
// The invariant sum(Lines) + Residual == payment amount holds exactly; the
// engine never invents or loses a cent.
type AllocationOutcome struct {
	Lines           []AllocationLine // Planned settlements in application order
	TotalApplied    decimal.Decimal  // Sum of all line amounts
	Residual        decimal.Decimal  // Payment left over after all dues are covered
	TargetsSettled  []uuid.UUID      // Receivables this plan fully settles
	TargetsPartial  []uuid.UUID      // Receivables this plan leaves partially settled
}

// AllocationStrategy is the interface for payment allocation strategies
type AllocationStrategy interface {
	strategy.Strategy
	// StrategyType returns the allocation strategy type
	StrategyType() AllocationStrategyType
	// Allocate plans how to spread the payment across the targets
	Allocate(amount valueobject.Money, targets []AllocationTarget) (*AllocationOutcome, error)
}

// FIFOAllocationStrategy allocates payments to the oldest receivables first.
// Ties on creation time break by ID so the order is deterministic for
// receivables created in the same batch.
type FIFOAllocationStrategy struct {
	strategy.BaseStrategy
}

// NewFIFOAllocationStrategy creates a new FIFO allocation strategy
func NewFIFOAllocationStrategy() *FIFOAllocationStrategy {
	return &FIFOAllocationStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"fifo_allocation",
			strategy.StrategyTypeAllocation,
			"FIFO allocation strategy - settles oldest receivables first by creation date, ID as tie-break",
		),
	}
}

// StrategyType returns the allocation strategy type
func (s *FIFOAllocationStrategy) StrategyType() AllocationStrategyType {
	return AllocationStrategyTypeFIFO
}

// Allocate spreads the payment across targets in FIFO order. Targets whose
// cash due is within AllocationEpsilon of zero are skipped. Returns
// ErrNothingApplied when every target is already settled so the caller can
// reject the payment without recording anything.
func (s *FIFOAllocationStrategy) Allocate(amount valueobject.Money, targets []AllocationTarget) (*AllocationOutcome, error) {
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAllocationInput
	}

	sortedTargets := make([]AllocationTarget, len(targets))
	copy(sortedTargets, targets)
	sort.Slice(sortedTargets, func(i, j int) bool {
		if !sortedTargets[i].CreatedAt.Equal(sortedTargets[j].CreatedAt) {
			return sortedTargets[i].CreatedAt.Before(sortedTargets[j].CreatedAt)
		}
		return strings.Compare(sortedTargets[i].ID.String(), sortedTargets[j].ID.String()) < 0
	})

	outcome := &AllocationOutcome{
		Lines:          make([]AllocationLine, 0),
		TotalApplied:   decimal.Zero,
		TargetsSettled: make([]uuid.UUID, 0),
		TargetsPartial: make([]uuid.UUID, 0),
	}
	remaining := amount.Amount().Round(2)

	for _, target := range sortedTargets {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		due := valueobject.Round2(target.CashDue)
		if valueobject.IsSettledAmount(due) {
			continue
		}

		allocAmount := decimal.Min(remaining, due)

		outcome.Lines = append(outcome.Lines, AllocationLine{
			ReceivableID: target.ID,
			SaleNumber:   target.SaleNumber,
			Amount:       allocAmount,
		})

		outcome.TotalApplied = valueobject.Round2(outcome.TotalApplied.Add(allocAmount))
		remaining = valueobject.Round2(remaining.Sub(allocAmount))

		if allocAmount.GreaterThanOrEqual(due) {
			outcome.TargetsSettled = append(outcome.TargetsSettled, target.ID)
		} else {
			outcome.TargetsPartial = append(outcome.TargetsPartial, target.ID)
		}
	}

	if len(outcome.Lines) == 0 {
		return nil, ErrNothingApplied
	}

	outcome.Residual = remaining
	return outcome, nil
}

// ManualAllocationRequest represents a caller-directed allocation to one target
type ManualAllocationRequest struct {
	ReceivableID uuid.UUID       // Target receivable
	Amount       decimal.Decimal // Amount to allocate (zero means as much as possible)
}

// ManualAllocationStrategy settles caller-specified receivables in the
// caller's order instead of FIFO
type ManualAllocationStrategy struct {
	strategy.BaseStrategy
	requests []ManualAllocationRequest
}

// NewManualAllocationStrategy creates a new manual allocation strategy
func NewManualAllocationStrategy(requests []ManualAllocationRequest) *ManualAllocationStrategy {
	return &ManualAllocationStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"manual_allocation",
			strategy.StrategyTypeAllocation,
			"Manual allocation strategy - settles caller-specified receivables in order",
		),
		requests: requests,
	}
}

// StrategyType returns the allocation strategy type
func (s *ManualAllocationStrategy) StrategyType() AllocationStrategyType {
	return AllocationStrategyTypeManual
}

// GetRequests returns the configured allocation requests
func (s *ManualAllocationStrategy) GetRequests() []ManualAllocationRequest {
	return s.requests
}

// Allocate applies the manual requests against the targets in request order
func (s *ManualAllocationStrategy) Allocate(amount valueobject.Money, targets []AllocationTarget) (*AllocationOutcome, error) {
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAllocationInput
	}

	targetMap := make(map[uuid.UUID]*AllocationTarget)
	for i := range targets {
		targetMap[targets[i].ID] = &targets[i]
	}

	outcome := &AllocationOutcome{
		Lines:          make([]AllocationLine, 0),
		TotalApplied:   decimal.Zero,
		TargetsSettled: make([]uuid.UUID, 0),
		TargetsPartial: make([]uuid.UUID, 0),
	}
	remaining := amount.Amount().Round(2)

	for _, req := range s.requests {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}

		target, exists := targetMap[req.ReceivableID]
		if !exists {
			continue
		}
		due := valueobject.Round2(target.CashDue)
		if valueobject.IsSettledAmount(due) {
			continue
		}

		var allocAmount decimal.Decimal
		if req.Amount.IsZero() {
			allocAmount = decimal.Min(remaining, due)
		} else {
			allocAmount = decimal.Min(req.Amount.Round(2), remaining)
			allocAmount = decimal.Min(allocAmount, due)
		}
		if allocAmount.LessThanOrEqual(decimal.Zero) {
			continue
		}

		outcome.Lines = append(outcome.Lines, AllocationLine{
			ReceivableID: target.ID,
			SaleNumber:   target.SaleNumber,
			Amount:       allocAmount,
		})

		outcome.TotalApplied = valueobject.Round2(outcome.TotalApplied.Add(allocAmount))
		remaining = valueobject.Round2(remaining.Sub(allocAmount))

		if allocAmount.GreaterThanOrEqual(due) {
			outcome.TargetsSettled = append(outcome.TargetsSettled, target.ID)
		} else {
			outcome.TargetsPartial = append(outcome.TargetsPartial, target.ID)
		}

		// Reduce the due so a repeated request for the same target cannot
		// double-allocate
		target.CashDue = due.Sub(allocAmount)
	}

	if len(outcome.Lines) == 0 {
		return nil, ErrNothingApplied
	}

	outcome.Residual = remaining
	return outcome, nil
}

// AllocationStrategyFactory creates allocation strategies
type AllocationStrategyFactory struct{}

// NewAllocationStrategyFactory creates a new factory
func NewAllocationStrategyFactory() *AllocationStrategyFactory {
	return &AllocationStrategyFactory{}
}

// CreateFIFOStrategy creates a FIFO allocation strategy
func (f *AllocationStrategyFactory) CreateFIFOStrategy() *FIFOAllocationStrategy {
	return NewFIFOAllocationStrategy()
}

// CreateManualStrategy creates a manual allocation strategy with the given requests
func (f *AllocationStrategyFactory) CreateManualStrategy(requests []ManualAllocationRequest) *ManualAllocationStrategy {
	return NewManualAllocationStrategy(requests)
}

// GetStrategy returns a strategy by type
func (f *AllocationStrategyFactory) GetStrategy(strategyType AllocationStrategyType, requests []ManualAllocationRequest) (AllocationStrategy, error) {
	switch strategyType {
	case AllocationStrategyTypeFIFO:
		return f.CreateFIFOStrategy(), nil
	case AllocationStrategyTypeManual:
		if len(requests) == 0 {
			return nil, shared.NewDomainError("INVALID_ALLOCATIONS", "Manual strategy requires allocation requests")
		}
		return f.CreateManualStrategy(requests), nil
	default:
		return nil, shared.NewDomainError("INVALID_STRATEGY", "Unknown allocation strategy type")
	}
}
