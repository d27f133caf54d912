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

// GormRunRepository implements RunRepository using GORM
type GormRunRepository struct {
	db        *gorm.DB
	collector *eventCollector
}

// NewGormRunRepository creates a new GormRunRepository
func NewGormRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

// FindByID finds a run by its ID, nil if none
func (r *GormRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.Run, error) {
	var model models.RunModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByRunNumber finds a run by its number, nil if none
func (r *GormRunRepository) FindByRunNumber(ctx context.Context, runNumber string) (*settlement.Run, error) {
	var model models.RunModel
	if err := r.db.WithContext(ctx).
		Where("run_number = ?", runNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds runs with filtering
func (r *GormRunRepository) FindAll(ctx context.Context, filter settlement.RunFilter) ([]settlement.Run, error) {
	var runModels []models.RunModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.RunModel{}), filter)

	if err := query.Find(&runModels).Error; err != nil {
		return nil, err
	}
	return toDomainRuns(runModels), nil
}

// Save creates or updates a run
func (r *GormRunRepository) Save(ctx context.Context, run *settlement.Run) error {
	model := models.RunModelFromDomain(run)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return err
	}
	r.collector.drain(run)
	return nil
}

// SaveWithLock saves with optimistic locking
func (r *GormRunRepository) SaveWithLock(ctx context.Context, run *settlement.Run) error {
	model := models.RunModelFromDomain(run)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", run.ID, run.Version-1).
		Select("*").
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	r.collector.drain(run)
	return nil
}

// Count counts runs matching the filter
func (r *GormRunRepository) Count(ctx context.Context, filter settlement.RunFilter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.RunModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormRunRepository) applyFilter(query *gorm.DB, filter settlement.RunFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

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

	return query
}

func (r *GormRunRepository) applyFilterWithoutPagination(query *gorm.DB, filter settlement.RunFilter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("run_number ILIKE ?", "%"+filter.Search+"%")
	}
	if filter.AgentID != nil {
		query = query.Where("agent_id = ?", *filter.AgentID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.FromDate != nil {
		query = query.Where("created_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("created_at <= ?", *filter.ToDate)
	}
	return query
}

func toDomainRuns(runModels []models.RunModel) []settlement.Run {
	runs := make([]settlement.Run, len(runModels))
	for i := range runModels {
		runs[i] = *runModels[i].ToDomain()
	}
	return runs
}

var _ settlement.RunRepository = (*GormRunRepository)(nil)
