package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/settlement"
	"github.com/retailops/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormChargeSourceRepository implements ChargeSourceRepository using GORM.
// Charge source lines are written by sale ingestion and only read here, in
// resolver priority order.
type GormChargeSourceRepository struct {
	db *gorm.DB
}

// NewGormChargeSourceRepository creates a new GormChargeSourceRepository
func NewGormChargeSourceRepository(db *gorm.DB) *GormChargeSourceRepository {
	return &GormChargeSourceRepository{db: db}
}

// FindSourcesForSale returns the candidate sources for a sale ordered by
// source rank, with each source's lines in position order
func (r *GormChargeSourceRepository) FindSourcesForSale(ctx context.Context, saleID uuid.UUID) ([]settlement.ChargeSourceLines, error) {
	var lineModels []models.ChargeLineModel
	if err := r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Order("source_rank ASC, position ASC").
		Find(&lineModels).Error; err != nil {
		return nil, err
	}

	var sources []settlement.ChargeSourceLines
	for _, lm := range lineModels {
		if len(sources) == 0 || sources[len(sources)-1].Name != lm.SourceName {
			sources = append(sources, settlement.ChargeSourceLines{Name: lm.SourceName})
		}
		last := &sources[len(sources)-1]
		last.Lines = append(last.Lines, lm.ToDomain())
	}
	return sources, nil
}

var _ settlement.ChargeSourceRepository = (*GormChargeSourceRepository)(nil)
