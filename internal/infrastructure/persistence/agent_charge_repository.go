package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/settlement"
	"github.com/retailops/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormAgentChargeRepository implements AgentChargeRepository using GORM
type GormAgentChargeRepository struct {
	db *gorm.DB
}

// NewGormAgentChargeRepository creates a new GormAgentChargeRepository
func NewGormAgentChargeRepository(db *gorm.DB) *GormAgentChargeRepository {
	return &GormAgentChargeRepository{db: db}
}

// FindByID finds an agent charge by its ID, nil if none
func (r *GormAgentChargeRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.AgentCharge, error) {
	var model models.AgentChargeModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByAgent finds all charges for an agent, newest first
func (r *GormAgentChargeRepository) FindByAgent(ctx context.Context, agentID uuid.UUID) ([]settlement.AgentCharge, error) {
	var chargeModels []models.AgentChargeModel
	if err := r.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("created_at DESC").
		Find(&chargeModels).Error; err != nil {
		return nil, err
	}

	charges := make([]settlement.AgentCharge, len(chargeModels))
	for i := range chargeModels {
		charges[i] = *chargeModels[i].ToDomain()
	}
	return charges, nil
}

// FindByVariance finds the charge created from a variance, nil if none
func (r *GormAgentChargeRepository) FindByVariance(ctx context.Context, varianceID uuid.UUID) (*settlement.AgentCharge, error) {
	var model models.AgentChargeModel
	if err := r.db.WithContext(ctx).
		Where("variance_id = ?", varianceID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates an agent charge
func (r *GormAgentChargeRepository) Save(ctx context.Context, charge *settlement.AgentCharge) error {
	model := models.AgentChargeModelFromDomain(charge)
	return r.db.WithContext(ctx).Save(model).Error
}

// SumOutstandingByAgent calculates the agent's total unpaid charges
func (r *GormAgentChargeRepository) SumOutstandingByAgent(ctx context.Context, agentID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.AgentChargeModel{}).
		Select("COALESCE(SUM(charge_amount - paid_amount), 0) as total").
		Where("agent_id = ? AND status IN ?", agentID,
			[]settlement.AgentChargeStatus{settlement.AgentChargeStatusOutstanding, settlement.AgentChargeStatusPartial}).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

var _ settlement.AgentChargeRepository = (*GormAgentChargeRepository)(nil)
