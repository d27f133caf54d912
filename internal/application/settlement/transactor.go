package settlement

import (
	"context"

	"github.com/retailops/backend/internal/domain/settlement"
)

// Repositories bundles the settlement repositories bound to one database
// handle or transaction
type Repositories struct {
	Receivables settlement.ReceivableRepository
	Events      settlement.SettlementEventRepository
	Runs        settlement.RunRepository
	Variances   settlement.VarianceRepository
	Charges     settlement.AgentChargeRepository
}

// Transactor runs a function atomically. The repositories passed to fn are
// bound to the transaction; returning an error rolls everything back.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
