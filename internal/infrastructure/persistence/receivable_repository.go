package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/settlement"
	"github.com/retailops/backend/internal/domain/shared"
	"github.com/retailops/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormReceivableRepository implements ReceivableRepository using GORM
type GormReceivableRepository struct {
	db        *gorm.DB
	collector *eventCollector
}

// NewGormReceivableRepository creates a new GormReceivableRepository
func NewGormReceivableRepository(db *gorm.DB) *GormReceivableRepository {
	return &GormReceivableRepository{db: db}
}

// FindByID finds a receivable by its ID, nil if none
func (r *GormReceivableRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.Receivable, error) {
	var model models.ReceivableModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds receivables by a set of IDs
func (r *GormReceivableRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]settlement.Receivable, error) {
	var receivableModels []models.ReceivableModel
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&receivableModels).Error; err != nil {
		return nil, err
	}
	return toDomainReceivables(receivableModels), nil
}

// FindBySaleNumber finds a receivable by its sale number, nil if none
func (r *GormReceivableRepository) FindBySaleNumber(ctx context.Context, saleNumber string) (*settlement.Receivable, error) {
	var model models.ReceivableModel
	if err := r.db.WithContext(ctx).
		Where("sale_number = ?", saleNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds receivables with filtering
func (r *GormReceivableRepository) FindAll(ctx context.Context, filter settlement.ReceivableFilter) ([]settlement.Receivable, error) {
	var receivableModels []models.ReceivableModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ReceivableModel{}), filter)

	if err := query.Find(&receivableModels).Error; err != nil {
		return nil, err
	}
	return toDomainReceivables(receivableModels), nil
}

// FindOpenByCustomer finds unsettled receivables for a customer, oldest first
func (r *GormReceivableRepository) FindOpenByCustomer(ctx context.Context, customerID uuid.UUID) ([]settlement.Receivable, error) {
	var receivableModels []models.ReceivableModel
	if err := r.db.WithContext(ctx).
		Where("customer_id = ? AND status IN ?", customerID,
			[]settlement.ReceivableStatus{settlement.ReceivableStatusOpen, settlement.ReceivableStatusPartiallySettled}).
		Order("created_at ASC, id ASC").
		Find(&receivableModels).Error; err != nil {
		return nil, err
	}
	return toDomainReceivables(receivableModels), nil
}

// FindByRun finds all receivables attached to a run
func (r *GormReceivableRepository) FindByRun(ctx context.Context, runID uuid.UUID) ([]settlement.Receivable, error) {
	var receivableModels []models.ReceivableModel
	if err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("created_at ASC").
		Find(&receivableModels).Error; err != nil {
		return nil, err
	}
	return toDomainReceivables(receivableModels), nil
}

// Save creates or updates a receivable
func (r *GormReceivableRepository) Save(ctx context.Context, receivable *settlement.Receivable) error {
	model := models.ReceivableModelFromDomain(receivable)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return err
	}
	r.collector.drain(receivable)
	return nil
}

// SaveWithLock saves with optimistic locking
func (r *GormReceivableRepository) SaveWithLock(ctx context.Context, receivable *settlement.Receivable) error {
	model := models.ReceivableModelFromDomain(receivable)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", receivable.ID, receivable.Version-1).
		Select("*").
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	r.collector.drain(receivable)
	return nil
}

// TryClaimRemitLocks claims the remit lock on every listed receivable for
// the operator token. A single conditional UPDATE stamps the token only on
// rows that are free or already held by it, so two concurrent claims for
// the same receivable can never both count the row. Callers compare the
// returned count against the requested set and roll the transaction back
// on a partial claim.
func (r *GormReceivableRepository) TryClaimRemitLocks(ctx context.Context, ids []uuid.UUID, token string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ReceivableModel{}).
		Where("id IN ?", ids).
		Where("remit_lock_token = '' OR remit_lock_token = ?", token).
		Updates(map[string]any{
			"remit_lock_token": token,
			"remit_locked_at":  time.Now(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ReleaseRemitLocks clears remit locks held by the operator token
func (r *GormReceivableRepository) ReleaseRemitLocks(ctx context.Context, ids []uuid.UUID, token string) error {
	return r.db.WithContext(ctx).
		Model(&models.ReceivableModel{}).
		Where("id IN ? AND remit_lock_token = ?", ids, token).
		Updates(map[string]any{
			"remit_lock_token": "",
			"remit_locked_at":  nil,
		}).Error
}

// Count counts receivables matching the filter
func (r *GormReceivableRepository) Count(ctx context.Context, filter settlement.ReceivableFilter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.ReceivableModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SumOutstandingByCustomer calculates total outstanding for a customer
func (r *GormReceivableRepository) SumOutstandingByCustomer(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.ReceivableModel{}).
		Select("COALESCE(SUM(frozen_charge - cash_settled - bridge_settled), 0) as total").
		Where("customer_id = ? AND status IN ?", customerID,
			[]settlement.ReceivableStatus{settlement.ReceivableStatusOpen, settlement.ReceivableStatusPartiallySettled}).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// ExistsBySaleNumber checks if a sale number is already in use
func (r *GormReceivableRepository) ExistsBySaleNumber(ctx context.Context, saleNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ReceivableModel{}).
		Where("sale_number = ?", saleNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormReceivableRepository) applyFilter(query *gorm.DB, filter settlement.ReceivableFilter) *gorm.DB {
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

func (r *GormReceivableRepository) applyFilterWithoutPagination(query *gorm.DB, filter settlement.ReceivableFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("sale_number ILIKE ? OR customer_name ILIKE ?", searchPattern, searchPattern)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.AgentID != nil {
		query = query.Where("agent_id = ?", *filter.AgentID)
	}
	if filter.RunID != nil {
		query = query.Where("run_id = ?", *filter.RunID)
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
	if filter.MinAmount != nil {
		query = query.Where("frozen_charge - cash_settled - bridge_settled >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		query = query.Where("frozen_charge - cash_settled - bridge_settled <= ?", *filter.MaxAmount)
	}
	return query
}

func toDomainReceivables(receivableModels []models.ReceivableModel) []settlement.Receivable {
	receivables := make([]settlement.Receivable, len(receivableModels))
	for i := range receivableModels {
		receivables[i] = *receivableModels[i].ToDomain()
	}
	return receivables
}

var _ settlement.ReceivableRepository = (*GormReceivableRepository)(nil)
