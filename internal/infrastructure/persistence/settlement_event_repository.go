package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/settlement"
	"github.com/retailops/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormSettlementEventRepository implements SettlementEventRepository using
// GORM. The table is append-only; this repository never updates or deletes.
type GormSettlementEventRepository struct {
	db *gorm.DB
}

// NewGormSettlementEventRepository creates a new GormSettlementEventRepository
func NewGormSettlementEventRepository(db *gorm.DB) *GormSettlementEventRepository {
	return &GormSettlementEventRepository{db: db}
}

// Save appends a settlement event
func (r *GormSettlementEventRepository) Save(ctx context.Context, event *settlement.SettlementEvent) error {
	model := models.SettlementEventModelFromDomain(event)
	return r.db.WithContext(ctx).Create(model).Error
}

// SaveAll appends a batch of settlement events
func (r *GormSettlementEventRepository) SaveAll(ctx context.Context, events []*settlement.SettlementEvent) error {
	if len(events) == 0 {
		return nil
	}
	eventModels := make([]*models.SettlementEventModel, len(events))
	for i, e := range events {
		eventModels[i] = models.SettlementEventModelFromDomain(e)
	}
	return r.db.WithContext(ctx).Create(eventModels).Error
}

// FindByReceivable finds all events for a receivable, oldest first
func (r *GormSettlementEventRepository) FindByReceivable(ctx context.Context, receivableID uuid.UUID) ([]settlement.SettlementEvent, error) {
	var eventModels []models.SettlementEventModel
	if err := r.db.WithContext(ctx).
		Where("receivable_id = ?", receivableID).
		Order("created_at ASC").
		Find(&eventModels).Error; err != nil {
		return nil, err
	}
	return toDomainEvents(eventModels), nil
}

// FindAll finds events with filtering
func (r *GormSettlementEventRepository) FindAll(ctx context.Context, filter settlement.SettlementEventFilter) ([]settlement.SettlementEvent, error) {
	var eventModels []models.SettlementEventModel
	query := r.db.WithContext(ctx).Model(&models.SettlementEventModel{})

	if filter.ReceivableID != nil {
		query = query.Where("receivable_id = ?", *filter.ReceivableID)
	}
	if filter.Method != nil {
		query = query.Where("method = ?", *filter.Method)
	}
	if filter.FromDate != nil {
		query = query.Where("created_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("created_at <= ?", *filter.ToDate)
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	query = query.Order("created_at DESC")

	if err := query.Find(&eventModels).Error; err != nil {
		return nil, err
	}
	return toDomainEvents(eventModels), nil
}

// SumByReceivableAndMethod sums event amounts per receivable for one method
func (r *GormSettlementEventRepository) SumByReceivableAndMethod(ctx context.Context, receivableIDs []uuid.UUID, method settlement.SettlementMethod) (map[uuid.UUID]decimal.Decimal, error) {
	var rows []struct {
		ReceivableID uuid.UUID
		Total        decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.SettlementEventModel{}).
		Select("receivable_id, COALESCE(SUM(amount), 0) as total").
		Where("receivable_id IN ? AND method = ?", receivableIDs, method).
		Group("receivable_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	sums := make(map[uuid.UUID]decimal.Decimal, len(rows))
	for _, row := range rows {
		sums[row.ReceivableID] = row.Total
	}
	return sums, nil
}

func toDomainEvents(eventModels []models.SettlementEventModel) []settlement.SettlementEvent {
	events := make([]settlement.SettlementEvent, len(eventModels))
	for i := range eventModels {
		events[i] = *eventModels[i].ToDomain()
	}
	return events
}

var _ settlement.SettlementEventRepository = (*GormSettlementEventRepository)(nil)
