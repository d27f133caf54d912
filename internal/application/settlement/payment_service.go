package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/settlement"
	"github.com/retailops/backend/internal/domain/shared"
	"github.com/retailops/backend/internal/domain/shared/valueobject"
	"github.com/retailops/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
)

// idempotencyTTL bounds how long a processed payment key is remembered.
// Retries of the same submission land well inside this window.
const idempotencyTTL = 24 * time.Hour

// PaymentService applies customer payments across open receivables
type PaymentService struct {
	transactor       Transactor
	idempotencyStore shared.IdempotencyStore
	strategyFactory  *settlement.AllocationStrategyFactory
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	transactor Transactor,
	idempotencyStore shared.IdempotencyStore,
) *PaymentService {
	return &PaymentService{
		transactor:       transactor,
		idempotencyStore: idempotencyStore,
		strategyFactory:  settlement.NewAllocationStrategyFactory(),
	}
}

// PaymentRequest represents a customer payment to spread across receivables
type PaymentRequest struct {
	CustomerID     uuid.UUID
	Amount         decimal.Decimal
	Reference      string
	IdempotencyKey string // Caller-supplied; duplicate submissions are rejected
	OperatorID     *uuid.UUID
	Strategy       settlement.AllocationStrategyType    // Defaults to FIFO
	ManualRequests []settlement.ManualAllocationRequest // Only for MANUAL strategy
}

// PaymentLineResult is one settlement produced by the payment
type PaymentLineResult struct {
	ReceivableID uuid.UUID       `json:"receivable_id"`
	SaleNumber   string          `json:"sale_number"`
	Amount       decimal.Decimal `json:"amount"`
	Settled      bool            `json:"settled"`
}

// PaymentResult represents the outcome of applying a payment
type PaymentResult struct {
	CustomerID   uuid.UUID           `json:"customer_id"`
	Lines        []PaymentLineResult `json:"lines"`
	TotalApplied decimal.Decimal     `json:"total_applied"`
	Residual     decimal.Decimal     `json:"residual"` // Unapplied remainder returned to the caller
	SettledCount int                 `json:"settled_count"`
}

// ApplyPayment validates the payment, then loads the customer's open
// receivables, plans the allocation, and applies the whole plan inside a
// single transaction so the set allocated against cannot drift from the
// set written. A payment that cannot touch any receivable is rejected
// before anything is written.
func (s *PaymentService) ApplyPayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "apply")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrCustomerID, req.CustomerID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
		telemetry.SpanAttrIdempotency, req.IdempotencyKey,
	)

	if req.CustomerID == uuid.Nil {
		err := shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
		telemetry.RecordError(span, err)
		return nil, err
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		telemetry.RecordError(span, settlement.ErrInvalidAllocationInput)
		return nil, settlement.ErrInvalidAllocationInput
	}

	// Duplicate submissions are detected before any allocation work
	if req.IdempotencyKey != "" {
		processed, err := s.idempotencyStore.IsProcessed(ctx, req.IdempotencyKey)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to check idempotency key: %w", err)
		}
		if processed {
			err := shared.NewDomainError("DUPLICATE_PAYMENT", "Payment with this idempotency key was already processed")
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	strategyType := req.Strategy
	if strategyType == "" {
		strategyType = settlement.AllocationStrategyTypeFIFO
	}
	strategy, err := s.strategyFactory.GetStrategy(strategyType, req.ManualRequests)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var result *PaymentResult
	err = s.transactor.InTransaction(ctx, func(txCtx context.Context, repos Repositories) error {
		open, err := repos.Receivables.FindOpenByCustomer(txCtx, req.CustomerID)
		if err != nil {
			return fmt.Errorf("failed to load open receivables: %w", err)
		}

		targets := make([]settlement.AllocationTarget, 0, len(open))
		for _, r := range open {
			if r.Status.CanApplySettlement() {
				targets = append(targets, settlement.AllocationTarget{
					ID:         r.ID,
					SaleNumber: r.SaleNumber,
					CashDue:    r.CashDue(),
					CreatedAt:  r.CreatedAt,
				})
			}
		}

		outcome, err := strategy.Allocate(valueobject.NewMoneyPHP(req.Amount), targets)
		if err != nil {
			return err
		}

		result = &PaymentResult{
			CustomerID:   req.CustomerID,
			Lines:        make([]PaymentLineResult, 0, len(outcome.Lines)),
			TotalApplied: outcome.TotalApplied,
			Residual:     outcome.Residual,
		}

		byID := make(map[uuid.UUID]*settlement.Receivable, len(open))
		for i := range open {
			byID[open[i].ID] = &open[i]
		}

		events := make([]*settlement.SettlementEvent, 0, len(outcome.Lines))
		for _, line := range outcome.Lines {
			receivable, ok := byID[line.ReceivableID]
			if !ok {
				return shared.NewDomainError("RECEIVABLE_NOT_FOUND", "Allocation target is not among the loaded receivables")
			}

			amount := valueobject.NewMoneyPHP(line.Amount)
			if err := receivable.ApplyCashSettlement(amount); err != nil {
				return err
			}

			event, err := settlement.NewSettlementEvent(receivable.ID, settlement.MethodCash, amount, req.Reference)
			if err != nil {
				return err
			}
			if req.OperatorID != nil {
				event.WithOperator(*req.OperatorID)
			}
			events = append(events, event)

			// A settled receivable no longer needs its remit lock
			if receivable.IsSettled() && receivable.IsRemitLocked() {
				receivable.ReleaseRemitLock(receivable.RemitLockToken)
			}

			if err := repos.Receivables.SaveWithLock(txCtx, receivable); err != nil {
				return err
			}

			result.Lines = append(result.Lines, PaymentLineResult{
				ReceivableID: receivable.ID,
				SaleNumber:   receivable.SaleNumber,
				Amount:       line.Amount,
				Settled:      receivable.IsSettled(),
			})
			if receivable.IsSettled() {
				result.SettledCount++
			}
		}

		return repos.Events.SaveAll(txCtx, events)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	// Only a fully applied payment marks the key; a failed attempt may retry
	if req.IdempotencyKey != "" {
		if _, err := s.idempotencyStore.MarkProcessed(ctx, req.IdempotencyKey, idempotencyTTL); err != nil {
			telemetry.AddEvent(span, "idempotency_mark_failed", "error", err.Error())
		}
	}

	telemetry.SetAttribute(span, "settled_count", result.SettledCount)
	return result, nil
}
