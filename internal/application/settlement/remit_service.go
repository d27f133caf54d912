package settlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/settlement"
	"github.com/retailops/backend/internal/domain/shared"
	"github.com/retailops/backend/internal/domain/shared/valueobject"
	"github.com/retailops/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
)

// RemitService records agent cash turn-ins against specific receivables.
// Concurrent remits over the same receivables are serialized by claiming
// per-receivable locks inside the same transaction that applies the cash.
type RemitService struct {
	transactor Transactor
}

// NewRemitService creates a new RemitService
func NewRemitService(transactor Transactor) *RemitService {
	return &RemitService{transactor: transactor}
}

// RemitLine is one receivable and the cash amount turned in for it
type RemitLine struct {
	ReceivableID uuid.UUID
	Amount       decimal.Decimal
}

// RemitRequest represents an agent turning in collected cash
type RemitRequest struct {
	OperatorToken string // Identifies the remit session holding the locks
	Lines         []RemitLine
	Reference     string
	OperatorID    *uuid.UUID
}

// RemitLineResult is the outcome for one remitted receivable
type RemitLineResult struct {
	ReceivableID uuid.UUID       `json:"receivable_id"`
	SaleNumber   string          `json:"sale_number"`
	Amount       decimal.Decimal `json:"amount"`
	Settled      bool            `json:"settled"`
}

// RemitResult represents the outcome of a remit operation
type RemitResult struct {
	Lines        []RemitLineResult `json:"lines"`
	TotalCash    decimal.Decimal   `json:"total_cash"`
	SettledCount int               `json:"settled_count"`
}

// Remit atomically claims the remit locks on all listed receivables and
// applies the cash. If any receivable is locked by another operator the
// whole operation fails with a lock conflict and nothing is written.
func (s *RemitService) Remit(ctx context.Context, req RemitRequest) (*RemitResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "remit", "apply")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrLockToken, req.OperatorToken,
		"line_count", len(req.Lines),
	)

	if req.OperatorToken == "" {
		err := shared.NewDomainError("INVALID_LOCK_TOKEN", "Operator token cannot be empty")
		telemetry.RecordError(span, err)
		return nil, err
	}
	if len(req.Lines) == 0 {
		err := shared.NewDomainError("INVALID_INPUT", "Remit must name at least one receivable")
		telemetry.RecordError(span, err)
		return nil, err
	}
	for _, line := range req.Lines {
		if line.Amount.LessThanOrEqual(decimal.Zero) {
			telemetry.RecordError(span, settlement.ErrInvalidAllocationInput)
			return nil, settlement.ErrInvalidAllocationInput
		}
	}

	ids := make([]uuid.UUID, 0, len(req.Lines))
	for _, line := range req.Lines {
		ids = append(ids, line.ReceivableID)
	}

	result := &RemitResult{
		Lines:     make([]RemitLineResult, 0, len(req.Lines)),
		TotalCash: decimal.Zero,
	}

	err := s.transactor.InTransaction(ctx, func(txCtx context.Context, repos Repositories) error {
		claimed, err := repos.Receivables.TryClaimRemitLocks(txCtx, ids, req.OperatorToken)
		if err != nil {
			return fmt.Errorf("failed to claim remit locks: %w", err)
		}
		if claimed < int64(len(ids)) {
			return settlement.ErrLockConflict
		}

		receivables, err := repos.Receivables.FindByIDs(txCtx, ids)
		if err != nil {
			return fmt.Errorf("failed to load receivables: %w", err)
		}
		byID := make(map[uuid.UUID]*settlement.Receivable, len(receivables))
		for i := range receivables {
			byID[receivables[i].ID] = &receivables[i]
		}

		events := make([]*settlement.SettlementEvent, 0, len(req.Lines))
		for _, line := range req.Lines {
			receivable, ok := byID[line.ReceivableID]
			if !ok {
				return shared.ErrNotFound
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

			// Settled receivables drop out of the remit session
			if receivable.IsSettled() {
				receivable.ReleaseRemitLock(req.OperatorToken)
			}

			if err := repos.Receivables.SaveWithLock(txCtx, receivable); err != nil {
				return err
			}

			result.Lines = append(result.Lines, RemitLineResult{
				ReceivableID: receivable.ID,
				SaleNumber:   receivable.SaleNumber,
				Amount:       line.Amount,
				Settled:      receivable.IsSettled(),
			})
			result.TotalCash = valueobject.Round2(result.TotalCash.Add(line.Amount))
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

	telemetry.SetAttribute(span, "total_cash", result.TotalCash.String())
	return result, nil
}

// ReleaseLocks releases any remit locks the operator still holds on the
// listed receivables, for an abandoned remit session
func (s *RemitService) ReleaseLocks(ctx context.Context, token string, ids []uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "remit", "release_locks")
	defer span.End()

	if token == "" {
		err := shared.NewDomainError("INVALID_LOCK_TOKEN", "Operator token cannot be empty")
		telemetry.RecordError(span, err)
		return err
	}

	return s.transactor.InTransaction(ctx, func(txCtx context.Context, repos Repositories) error {
		return repos.Receivables.ReleaseRemitLocks(txCtx, ids, token)
	})
}
