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

// IntakeService admits sales and delivery runs into the settlement ledger.
// A receivable's charge is frozen at admission by walking the candidate
// charge sources; a sale with no usable source is rejected rather than
// admitted with a guessed amount.
type IntakeService struct {
	transactor    Transactor
	chargeSources settlement.ChargeSourceRepository
	resolver      *settlement.ChargeResolver
}

// NewIntakeService creates a new IntakeService
func NewIntakeService(transactor Transactor, chargeSources settlement.ChargeSourceRepository) *IntakeService {
	return &IntakeService{
		transactor:    transactor,
		chargeSources: chargeSources,
		resolver:      settlement.NewChargeResolver(),
	}
}

// IntakeRequest represents a sale entering settlement
type IntakeRequest struct {
	SaleID       uuid.UUID
	SaleNumber   string
	CustomerID   uuid.UUID
	CustomerName string
	AgentID      uuid.UUID
	RunID        *uuid.UUID
}

// IntakeResult is the admitted receivable together with how its frozen
// charge was resolved
type IntakeResult struct {
	Receivable *settlement.Receivable       `json:"receivable"`
	Resolution *settlement.ChargeResolution `json:"resolution"`
}

// CreateReceivable freezes the sale's charge from the first usable source
// and opens a receivable for it. Attaching to a run is only allowed while
// the run has not been closed.
func (s *IntakeService) CreateReceivable(ctx context.Context, req IntakeRequest) (*IntakeResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "intake", "create_receivable")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSaleNumber, req.SaleNumber,
		telemetry.SpanAttrCustomerID, req.CustomerID.String(),
	)

	sources, err := s.chargeSources.FindSourcesForSale(ctx, req.SaleID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load charge sources: %w", err)
	}

	resolution, err := s.resolver.Resolve(sources)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var receivable *settlement.Receivable
	err = s.transactor.InTransaction(ctx, func(txCtx context.Context, repos Repositories) error {
		exists, err := repos.Receivables.ExistsBySaleNumber(txCtx, req.SaleNumber)
		if err != nil {
			return fmt.Errorf("failed to check sale number: %w", err)
		}
		if exists {
			return shared.ErrAlreadyExists
		}

		if req.RunID != nil {
			run, err := repos.Runs.FindByID(txCtx, *req.RunID)
			if err != nil {
				return err
			}
			if run == nil {
				return shared.ErrNotFound
			}
			if run.Status != settlement.RunStatusDraft && run.Status != settlement.RunStatusDispatched {
				return shared.ErrInvalidState
			}
		}

		receivable, err = settlement.NewReceivable(req.SaleNumber, req.CustomerID, req.CustomerName,
			req.AgentID, req.RunID, valueobject.NewMoneyPHP(resolution.Total))
		if err != nil {
			return err
		}
		return repos.Receivables.Save(txCtx, receivable)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		"charge_source", resolution.SourceName,
		telemetry.SpanAttrAmount, resolution.Total.String(),
	)
	return &IntakeResult{Receivable: receivable, Resolution: resolution}, nil
}

// RecordCollection records cash the agent reports collected in the field.
// This is the agent's claim, not drawer cash; the gap between the two is
// what run reconciliation surfaces.
func (s *IntakeService) RecordCollection(ctx context.Context, receivableID uuid.UUID, amount decimal.Decimal) (*settlement.Receivable, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "intake", "record_collection")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrReceivableID, receivableID.String(),
		telemetry.SpanAttrAmount, amount.String(),
	)

	var receivable *settlement.Receivable
	err := s.transactor.InTransaction(ctx, func(txCtx context.Context, repos Repositories) error {
		var err error
		receivable, err = repos.Receivables.FindByID(txCtx, receivableID)
		if err != nil {
			return err
		}
		if receivable == nil {
			return shared.ErrNotFound
		}
		if err := receivable.RecordCollection(valueobject.NewMoneyPHP(amount)); err != nil {
			return err
		}
		return repos.Receivables.SaveWithLock(txCtx, receivable)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return receivable, nil
}

// CreateRun opens a draft delivery run for an agent
func (s *IntakeService) CreateRun(ctx context.Context, runNumber string, agentID uuid.UUID) (*settlement.Run, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "intake", "create_run")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrAgentID, agentID.String())

	var run *settlement.Run
	err := s.transactor.InTransaction(ctx, func(txCtx context.Context, repos Repositories) error {
		existing, err := repos.Runs.FindByRunNumber(txCtx, runNumber)
		if err != nil {
			return err
		}
		if existing != nil {
			return shared.ErrAlreadyExists
		}
		run, err = settlement.NewRun(runNumber, agentID)
		if err != nil {
			return err
		}
		return repos.Runs.Save(txCtx, run)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return run, nil
}

// DispatchRun sends a draft run out for collection
func (s *IntakeService) DispatchRun(ctx context.Context, runID uuid.UUID) (*settlement.Run, error) {
	return s.transitionRun(ctx, "dispatch_run", runID, (*settlement.Run).Dispatch)
}

// CloseRun marks the agent as returned; the run's receivables move into
// remit and reconciliation
func (s *IntakeService) CloseRun(ctx context.Context, runID uuid.UUID) (*settlement.Run, error) {
	return s.transitionRun(ctx, "close_run", runID, (*settlement.Run).Close)
}

// CancelRun abandons a run that never went through the remit desk
func (s *IntakeService) CancelRun(ctx context.Context, runID uuid.UUID) (*settlement.Run, error) {
	return s.transitionRun(ctx, "cancel_run", runID, (*settlement.Run).Cancel)
}

func (s *IntakeService) transitionRun(ctx context.Context, op string, runID uuid.UUID, transition func(*settlement.Run) error) (*settlement.Run, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "intake", op)
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrRunID, runID.String())

	var run *settlement.Run
	err := s.transactor.InTransaction(ctx, func(txCtx context.Context, repos Repositories) error {
		var err error
		run, err = repos.Runs.FindByID(txCtx, runID)
		if err != nil {
			return err
		}
		if run == nil {
			return shared.ErrNotFound
		}
		if err := transition(run); err != nil {
			return err
		}
		return repos.Runs.SaveWithLock(txCtx, run)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return run, nil
}
