package persistence

import (
	"context"

	appsettlement "github.com/retailops/backend/internal/application/settlement"
	"github.com/retailops/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormTransactor implements the application Transactor on top of a GORM
// database transaction. Every repository handed to fn shares the same tx, so
// an error from fn rolls back all writes together. Domain events drained
// from saved aggregates are handed to the publisher once the transaction
// has committed.
type GormTransactor struct {
	db        *gorm.DB
	publisher shared.EventPublisher
}

// TransactorOption configures a GormTransactor
type TransactorOption func(*GormTransactor)

// WithEventPublisher publishes drained domain events after each commit
func WithEventPublisher(publisher shared.EventPublisher) TransactorOption {
	return func(t *GormTransactor) {
		t.publisher = publisher
	}
}

// NewGormTransactor creates a new GormTransactor
func NewGormTransactor(db *gorm.DB, opts ...TransactorOption) *GormTransactor {
	t := &GormTransactor{db: db}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// InTransaction runs fn inside a database transaction with tx-bound
// repositories
func (t *GormTransactor) InTransaction(ctx context.Context, fn func(ctx context.Context, repos appsettlement.Repositories) error) error {
	var collector *eventCollector
	if t.publisher != nil {
		collector = &eventCollector{}
	}

	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		receivables := NewGormReceivableRepository(tx)
		receivables.collector = collector
		runs := NewGormRunRepository(tx)
		runs.collector = collector
		variances := NewGormVarianceRepository(tx)
		variances.collector = collector

		repos := appsettlement.Repositories{
			Receivables: receivables,
			Events:      NewGormSettlementEventRepository(tx),
			Runs:        runs,
			Variances:   variances,
			Charges:     NewGormAgentChargeRepository(tx),
		}
		return fn(ctx, repos)
	})
	if err != nil {
		return err
	}

	if collector != nil && len(collector.events) > 0 {
		return t.publisher.Publish(ctx, collector.events...)
	}
	return nil
}

var _ appsettlement.Transactor = (*GormTransactor)(nil)
