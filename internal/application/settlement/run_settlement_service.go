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

// RunSettlementService reconciles delivery runs and drives them to SETTLED
type RunSettlementService struct {
	transactor Transactor
	reconciler *settlement.ReconciliationService
}

// NewRunSettlementService creates a new RunSettlementService
func NewRunSettlementService(transactor Transactor) *RunSettlementService {
	return &RunSettlementService{
		transactor: transactor,
		reconciler: settlement.NewReconciliationService(),
	}
}

// RecomputeRun re-runs the three-truth reconciliation for a run, refreshes
// the run's derived figures, and opens a variance when a gap that bridges
// do not explain has no variance on record at the same figures yet. A
// closed run that comes out balanced with no shortages settles
// automatically.
func (s *RunSettlementService) RecomputeRun(ctx context.Context, runID uuid.UUID) (*settlement.RunReconciliation, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "run_settlement", "recompute")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrRunID, runID.String())

	var recon *settlement.RunReconciliation
	err := s.transactor.InTransaction(ctx, func(txCtx context.Context, repos Repositories) error {
		run, err := repos.Runs.FindByID(txCtx, runID)
		if err != nil {
			return err
		}
		if run == nil {
			return shared.ErrNotFound
		}

		receivables, err := repos.Receivables.FindByRun(txCtx, runID)
		if err != nil {
			return fmt.Errorf("failed to load run receivables: %w", err)
		}
		refs := make([]*settlement.Receivable, 0, len(receivables))
		for i := range receivables {
			refs = append(refs, &receivables[i])
		}

		recon = s.reconciler.ReconcileRun(runID, refs)
		run.ApplyReconciliation(recon)

		if !recon.Balanced && !valueobject.IsBalancedGap(recon.ResidualGap) {
			if err := s.ensureVariance(txCtx, repos, run, recon); err != nil {
				return err
			}
		}

		if run.CanAutoSettle() {
			if err := run.Settle(); err != nil {
				return err
			}
		}

		return repos.Runs.SaveWithLock(txCtx, run)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		"cash_gap", recon.CashGap.String(),
		"balanced", recon.Balanced,
	)
	return recon, nil
}

// ensureVariance opens a variance for the gap unless one is already pending
// or cleared at the same figures
func (s *RunSettlementService) ensureVariance(ctx context.Context, repos Repositories, run *settlement.Run, recon *settlement.RunReconciliation) error {
	latest, err := repos.Variances.FindLatestByRun(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("failed to load run variance: %w", err)
	}
	if latest != nil && latest.GapAmount.Equal(recon.CashGap) {
		return nil
	}

	variance, err := settlement.NewVariance(run.ID, run.AgentID,
		valueobject.NewMoneyPHP(recon.ExpectedCash),
		valueobject.NewMoneyPHP(recon.ReceivedCash))
	if err != nil {
		return err
	}
	return repos.Variances.Save(ctx, variance)
}

// PostBridge marks part of a receivable's charge as covered without cash.
// The amount is capped at what the reported collection leaves unexplained;
// posting more than that would hide real missing money.
func (s *RunSettlementService) PostBridge(ctx context.Context, receivableID uuid.UUID, amount decimal.Decimal, reference string) (*settlement.SettlementEvent, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "run_settlement", "post_bridge")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrReceivableID, receivableID.String(),
		telemetry.SpanAttrAmount, amount.String(),
	)

	var event *settlement.SettlementEvent
	err := s.transactor.InTransaction(ctx, func(txCtx context.Context, repos Repositories) error {
		receivable, err := repos.Receivables.FindByID(txCtx, receivableID)
		if err != nil {
			return err
		}
		if receivable == nil {
			return shared.ErrNotFound
		}

		maxBridge := s.reconciler.MaxPostableBridge(receivable)
		bridge := amount
		if bridge.IsZero() {
			bridge = maxBridge
		}
		if bridge.LessThanOrEqual(decimal.Zero) || bridge.GreaterThan(maxBridge) {
			return shared.NewDomainError("INVALID_BRIDGE",
				fmt.Sprintf("Bridge amount must be positive and at most %s", maxBridge.StringFixed(2)))
		}

		money := valueobject.NewMoneyPHP(bridge)
		if err := receivable.ApplyBridgeSettlement(money); err != nil {
			return err
		}

		event, err = settlement.NewSettlementEvent(receivable.ID, settlement.MethodNonCashBridge, money, reference)
		if err != nil {
			return err
		}
		if err := repos.Events.Save(txCtx, event); err != nil {
			return err
		}
		return repos.Receivables.SaveWithLock(txCtx, receivable)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return event, nil
}

// FinalizeSettlement settles a closed run. A balanced run with no shortages
// settles outright, as does one whose gap is fully covered by posted
// bridges; any residual gap requires the run's variance to be cleared
// through the approval chain first. Settling closes the variance when its
// state allows it.
func (s *RunSettlementService) FinalizeSettlement(ctx context.Context, runID uuid.UUID) (*settlement.Run, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "run_settlement", "finalize")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrRunID, runID.String())

	var settled *settlement.Run
	err := s.transactor.InTransaction(ctx, func(txCtx context.Context, repos Repositories) error {
		run, err := repos.Runs.FindByID(txCtx, runID)
		if err != nil {
			return err
		}
		if run == nil {
			return shared.ErrNotFound
		}
		if run.IsSettled() {
			settled = run
			return nil
		}

		receivables, err := repos.Receivables.FindByRun(txCtx, runID)
		if err != nil {
			return fmt.Errorf("failed to load run receivables: %w", err)
		}
		refs := make([]*settlement.Receivable, 0, len(receivables))
		for i := range receivables {
			refs = append(refs, &receivables[i])
		}

		recon := s.reconciler.ReconcileRun(runID, refs)
		run.ApplyReconciliation(recon)

		latest, err := repos.Variances.FindLatestByRun(txCtx, run.ID)
		if err != nil {
			return fmt.Errorf("failed to load run variance: %w", err)
		}

		// A gap fully explained by posted bridges no longer blocks
		// settlement; only the residual gap needs a cleared variance.
		if !run.CanAutoSettle() && !run.IsFullyBridged() {
			if latest == nil || !latest.IsCleared() {
				return settlement.NewInsufficientClearanceError(run.ResidualGap())
			}
		}

		if err := run.Settle(); err != nil {
			return err
		}
		if err := repos.Runs.SaveWithLock(txCtx, run); err != nil {
			return err
		}
		if latest != nil && latest.CanClose() {
			if err := latest.Close(); err != nil {
				return err
			}
			if err := repos.Variances.SaveWithLock(txCtx, latest); err != nil {
				return err
			}
		}
		settled = run
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return settled, nil
}

// GetRunReconciliation reports the current three-truth figures for a run
// without mutating anything
func (s *RunSettlementService) GetRunReconciliation(ctx context.Context, runID uuid.UUID) (*settlement.RunReconciliation, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "run_settlement", "reconciliation")
	defer span.End()

	var recon *settlement.RunReconciliation
	err := s.transactor.InTransaction(ctx, func(txCtx context.Context, repos Repositories) error {
		run, err := repos.Runs.FindByID(txCtx, runID)
		if err != nil {
			return err
		}
		if run == nil {
			return shared.ErrNotFound
		}

		receivables, err := repos.Receivables.FindByRun(txCtx, runID)
		if err != nil {
			return err
		}
		refs := make([]*settlement.Receivable, 0, len(receivables))
		for i := range receivables {
			refs = append(refs, &receivables[i])
		}
		recon = s.reconciler.ReconcileRun(runID, refs)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return recon, nil
}
