package settlement

import (
	"context"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/settlement"
	"github.com/retailops/backend/internal/domain/shared"
	"github.com/retailops/backend/internal/infrastructure/telemetry"
)

// VarianceService drives cash variances through the approval chain
type VarianceService struct {
	transactor Transactor
}

// NewVarianceService creates a new VarianceService
func NewVarianceService(transactor Transactor) *VarianceService {
	return &VarianceService{transactor: transactor}
}

// Approve records a manager's resolution on an open variance
func (s *VarianceService) Approve(ctx context.Context, varianceID uuid.UUID, resolution settlement.VarianceResolution, approverID uuid.UUID, notes string) (*settlement.Variance, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "variance", "approve")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrVarianceID, varianceID.String(),
		"resolution", resolution.String(),
	)

	var variance *settlement.Variance
	err := s.transactor.InTransaction(ctx, func(txCtx context.Context, repos Repositories) error {
		v, err := s.load(txCtx, repos, varianceID)
		if err != nil {
			return err
		}
		if err := v.Approve(resolution, approverID, notes); err != nil {
			return err
		}
		if err := repos.Variances.SaveWithLock(txCtx, v); err != nil {
			return err
		}
		variance = v
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return variance, nil
}

// Accept records the agent's acknowledgement of a charge and books the
// personal charge against the agent in the same transaction
func (s *VarianceService) Accept(ctx context.Context, varianceID uuid.UUID) (*settlement.Variance, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "variance", "accept")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrVarianceID, varianceID.String())

	var variance *settlement.Variance
	err := s.transactor.InTransaction(ctx, func(txCtx context.Context, repos Repositories) error {
		v, err := s.load(txCtx, repos, varianceID)
		if err != nil {
			return err
		}
		if err := v.AgentAccept(); err != nil {
			return err
		}
		if err := repos.Variances.SaveWithLock(txCtx, v); err != nil {
			return err
		}

		if v.RequiresAgentCharge() {
			existing, err := repos.Charges.FindByVariance(txCtx, v.ID)
			if err != nil {
				return err
			}
			if existing == nil {
				charge, err := settlement.NewAgentCharge(v)
				if err != nil {
					return err
				}
				if err := repos.Charges.Save(txCtx, charge); err != nil {
					return err
				}
			}
		}

		variance = v
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return variance, nil
}

// Waive writes an open variance off
func (s *VarianceService) Waive(ctx context.Context, varianceID uuid.UUID, approverID uuid.UUID, notes string) (*settlement.Variance, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "variance", "waive")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrVarianceID, varianceID.String())

	var variance *settlement.Variance
	err := s.transactor.InTransaction(ctx, func(txCtx context.Context, repos Repositories) error {
		v, err := s.load(txCtx, repos, varianceID)
		if err != nil {
			return err
		}
		if err := v.Waive(approverID, notes); err != nil {
			return err
		}
		if err := repos.Variances.SaveWithLock(txCtx, v); err != nil {
			return err
		}
		variance = v
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return variance, nil
}

// Close completes processing of a variance
func (s *VarianceService) Close(ctx context.Context, varianceID uuid.UUID) (*settlement.Variance, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "variance", "close")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrVarianceID, varianceID.String())

	var variance *settlement.Variance
	err := s.transactor.InTransaction(ctx, func(txCtx context.Context, repos Repositories) error {
		v, err := s.load(txCtx, repos, varianceID)
		if err != nil {
			return err
		}
		if err := v.Close(); err != nil {
			return err
		}
		if err := repos.Variances.SaveWithLock(txCtx, v); err != nil {
			return err
		}
		variance = v
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return variance, nil
}

func (s *VarianceService) load(ctx context.Context, repos Repositories, id uuid.UUID) (*settlement.Variance, error) {
	v, err := repos.Variances.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, shared.ErrNotFound
	}
	return v, nil
}
