package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/settlement"
	"github.com/retailops/backend/internal/domain/shared"
	"github.com/retailops/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormVarianceRepository implements VarianceRepository using GORM
type GormVarianceRepository struct {
	db        *gorm.DB
	collector *eventCollector
}

// NewGormVarianceRepository creates a new GormVarianceRepository
func NewGormVarianceRepository(db *gorm.DB) *GormVarianceRepository {
	return &GormVarianceRepository{db: db}
}

// FindByID finds a variance by its ID, nil if none
func (r *GormVarianceRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.Variance, error) {
	var model models.VarianceModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByRun finds the variances recorded for a run, newest first
func (r *GormVarianceRepository) FindByRun(ctx context.Context, runID uuid.UUID) ([]settlement.Variance, error) {
	var varianceModels []models.VarianceModel
	if err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("created_at DESC").
		Find(&varianceModels).Error; err != nil {
		return nil, err
	}
	return toDomainVariances(varianceModels), nil
}

// FindLatestByRun finds the most recent variance for a run, nil if none
func (r *GormVarianceRepository) FindLatestByRun(ctx context.Context, runID uuid.UUID) (*settlement.Variance, error) {
	var model models.VarianceModel
	if err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds variances with filtering
func (r *GormVarianceRepository) FindAll(ctx context.Context, filter settlement.VarianceFilter) ([]settlement.Variance, error) {
	var varianceModels []models.VarianceModel
	query := r.db.WithContext(ctx).Model(&models.VarianceModel{})

	if filter.RunID != nil {
		query = query.Where("run_id = ?", *filter.RunID)
	}
	if filter.AgentID != nil {
		query = query.Where("agent_id = ?", *filter.AgentID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	} else {
		query = query.Order("created_at DESC")
	}

	if err := query.Find(&varianceModels).Error; err != nil {
		return nil, err
	}
	return toDomainVariances(varianceModels), nil
}

// Save creates or updates a variance
func (r *GormVarianceRepository) Save(ctx context.Context, variance *settlement.Variance) error {
	model := models.VarianceModelFromDomain(variance)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return err
	}
	r.collector.drain(variance)
	return nil
}

// SaveWithLock saves with optimistic locking
func (r *GormVarianceRepository) SaveWithLock(ctx context.Context, variance *settlement.Variance) error {
	model := models.VarianceModelFromDomain(variance)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", variance.ID, variance.Version-1).
		Select("*").
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	r.collector.drain(variance)
	return nil
}

func toDomainVariances(varianceModels []models.VarianceModel) []settlement.Variance {
	variances := make([]settlement.Variance, len(varianceModels))
	for i := range varianceModels {
		variances[i] = *varianceModels[i].ToDomain()
	}
	return variances
}

var _ settlement.VarianceRepository = (*GormVarianceRepository)(nil)
