package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ReceivableFilter defines filtering options for receivable queries
type ReceivableFilter struct {
	shared.Filter
	CustomerID *uuid.UUID        // Filter by customer
	AgentID    *uuid.UUID        // Filter by collecting agent
	RunID      *uuid.UUID        // Filter by delivery run
	Status     *ReceivableStatus // Filter by status
	FromDate   *time.Time        // Filter by creation date range start
	ToDate     *time.Time        // Filter by creation date range end
	MinAmount  *decimal.Decimal  // Filter by minimum outstanding amount
	MaxAmount  *decimal.Decimal  // Filter by maximum outstanding amount
}

// ReceivableRepository defines the interface for receivable persistence
type ReceivableRepository interface {
	// FindByID finds a receivable by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Receivable, error)

	// FindByIDs finds receivables by a set of IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Receivable, error)

	// FindBySaleNumber finds a receivable by its sale number
	FindBySaleNumber(ctx context.Context, saleNumber string) (*Receivable, error)

	// FindAll finds receivables with filtering
	FindAll(ctx context.Context, filter ReceivableFilter) ([]Receivable, error)

	// FindOpenByCustomer finds unsettled receivables for a customer, oldest
	// first, for payment allocation
	FindOpenByCustomer(ctx context.Context, customerID uuid.UUID) ([]Receivable, error)

	// FindByRun finds all receivables attached to a run
	FindByRun(ctx context.Context, runID uuid.UUID) ([]Receivable, error)

	// Save creates or updates a receivable
	Save(ctx context.Context, receivable *Receivable) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, receivable *Receivable) error

	// TryClaimRemitLocks atomically claims the remit lock on every listed
	// receivable for the operator token in a single conditional update. Rows
	// already locked by the same token count as claimed. Returns the number
	// of rows now holding the token; fewer than requested means another
	// operator holds at least one lock and nothing extra was changed.
	TryClaimRemitLocks(ctx context.Context, ids []uuid.UUID, token string) (int64, error)

	// ReleaseRemitLocks clears remit locks held by the operator token
	ReleaseRemitLocks(ctx context.Context, ids []uuid.UUID, token string) error

	// Count counts receivables matching the filter
	Count(ctx context.Context, filter ReceivableFilter) (int64, error)

	// SumOutstandingByCustomer calculates total outstanding for a customer
	SumOutstandingByCustomer(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error)

	// ExistsBySaleNumber checks if a sale number is already in use
	ExistsBySaleNumber(ctx context.Context, saleNumber string) (bool, error)
}

// SettlementEventFilter defines filtering options for settlement event queries
type SettlementEventFilter struct {
	shared.Filter
	ReceivableID *uuid.UUID        // Filter by receivable
	Method       *SettlementMethod // Filter by settlement method
	FromDate     *time.Time        // Filter by creation date range start
	ToDate       *time.Time        // Filter by creation date range end
}

// SettlementEventRepository defines the interface for settlement event
// persistence. Events are append-only; there is no update or delete.
type SettlementEventRepository interface {
	// Save appends a settlement event
	Save(ctx context.Context, event *SettlementEvent) error

	// SaveAll appends a batch of settlement events
	SaveAll(ctx context.Context, events []*SettlementEvent) error

	// FindByReceivable finds all events for a receivable, oldest first
	FindByReceivable(ctx context.Context, receivableID uuid.UUID) ([]SettlementEvent, error)

	// FindAll finds events with filtering
	FindAll(ctx context.Context, filter SettlementEventFilter) ([]SettlementEvent, error)

	// SumByReceivableAndMethod sums event amounts per receivable for one
	// method across the given receivables
	SumByReceivableAndMethod(ctx context.Context, receivableIDs []uuid.UUID, method SettlementMethod) (map[uuid.UUID]decimal.Decimal, error)
}

// RunFilter defines filtering options for run queries
type RunFilter struct {
	shared.Filter
	AgentID  *uuid.UUID // Filter by agent
	Status   *RunStatus // Filter by status
	FromDate *time.Time // Filter by creation date range start
	ToDate   *time.Time // Filter by creation date range end
}

// RunRepository defines the interface for run persistence
type RunRepository interface {
	// FindByID finds a run by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Run, error)

	// FindByRunNumber finds a run by its number
	FindByRunNumber(ctx context.Context, runNumber string) (*Run, error)

	// FindAll finds runs with filtering
	FindAll(ctx context.Context, filter RunFilter) ([]Run, error)

	// Save creates or updates a run
	Save(ctx context.Context, run *Run) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, run *Run) error

	// Count counts runs matching the filter
	Count(ctx context.Context, filter RunFilter) (int64, error)
}

// VarianceFilter defines filtering options for variance queries
type VarianceFilter struct {
	shared.Filter
	RunID   *uuid.UUID      // Filter by run
	AgentID *uuid.UUID      // Filter by agent
	Status  *VarianceStatus // Filter by status
}

// VarianceRepository defines the interface for variance persistence
type VarianceRepository interface {
	// FindByID finds a variance by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Variance, error)

	// FindByRun finds the variances recorded for a run, newest first
	FindByRun(ctx context.Context, runID uuid.UUID) ([]Variance, error)

	// FindLatestByRun finds the most recent variance for a run, nil if none
	FindLatestByRun(ctx context.Context, runID uuid.UUID) (*Variance, error)

	// FindAll finds variances with filtering
	FindAll(ctx context.Context, filter VarianceFilter) ([]Variance, error)

	// Save creates or updates a variance
	Save(ctx context.Context, variance *Variance) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, variance *Variance) error
}

// AgentChargeRepository defines the interface for agent charge persistence
type AgentChargeRepository interface {
	// FindByID finds an agent charge by ID
	FindByID(ctx context.Context, id uuid.UUID) (*AgentCharge, error)

	// FindByAgent finds all charges for an agent
	FindByAgent(ctx context.Context, agentID uuid.UUID) ([]AgentCharge, error)

	// FindByVariance finds the charge created from a variance, nil if none
	FindByVariance(ctx context.Context, varianceID uuid.UUID) (*AgentCharge, error)

	// Save creates or updates an agent charge
	Save(ctx context.Context, charge *AgentCharge) error

	// SumOutstandingByAgent calculates the agent's total unpaid charges
	SumOutstandingByAgent(ctx context.Context, agentID uuid.UUID) (decimal.Decimal, error)
}

// ChargeSourceRepository loads the candidate charge sources for a sale in
// resolver priority order
type ChargeSourceRepository interface {
	// FindSourcesForSale returns the candidate sources for a sale, ordered
	// origin snapshot, consolidated snapshot, live items
	FindSourcesForSale(ctx context.Context, saleID uuid.UUID) ([]ChargeSourceLines, error)
}
