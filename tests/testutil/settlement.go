package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	appsettlement "github.com/retailops/backend/internal/application/settlement"
	"github.com/retailops/backend/internal/domain/settlement"
	"github.com/shopspring/decimal"
)

// In-memory fakes for the settlement repository interfaces. The transactor
// hands the same fakes to every transaction; rollback is not simulated, so
// failure tests should assert on errors rather than on state.

// FakeReceivableRepo is an in-memory settlement.ReceivableRepository.
type FakeReceivableRepo struct {
	Items map[uuid.UUID]*settlement.Receivable
}

// NewFakeReceivableRepo creates a FakeReceivableRepo seeded with the given receivables.
func NewFakeReceivableRepo(items ...*settlement.Receivable) *FakeReceivableRepo {
	repo := &FakeReceivableRepo{Items: make(map[uuid.UUID]*settlement.Receivable)}
	for _, r := range items {
		repo.Items[r.ID] = r
	}
	return repo
}

func (f *FakeReceivableRepo) FindByID(_ context.Context, id uuid.UUID) (*settlement.Receivable, error) {
	return f.Items[id], nil
}

func (f *FakeReceivableRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]settlement.Receivable, error) {
	out := make([]settlement.Receivable, 0, len(ids))
	for _, id := range ids {
		if r, ok := f.Items[id]; ok {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *FakeReceivableRepo) FindBySaleNumber(_ context.Context, saleNumber string) (*settlement.Receivable, error) {
	for _, r := range f.Items {
		if r.SaleNumber == saleNumber {
			return r, nil
		}
	}
	return nil, nil
}

func (f *FakeReceivableRepo) FindAll(_ context.Context, _ settlement.ReceivableFilter) ([]settlement.Receivable, error) {
	out := make([]settlement.Receivable, 0, len(f.Items))
	for _, r := range f.Items {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *FakeReceivableRepo) FindOpenByCustomer(_ context.Context, customerID uuid.UUID) ([]settlement.Receivable, error) {
	out := make([]settlement.Receivable, 0)
	for _, r := range f.Items {
		if r.CustomerID == customerID && r.Status.CanApplySettlement() {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *FakeReceivableRepo) FindByRun(_ context.Context, runID uuid.UUID) ([]settlement.Receivable, error) {
	out := make([]settlement.Receivable, 0)
	for _, r := range f.Items {
		if r.RunID != nil && *r.RunID == runID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *FakeReceivableRepo) Save(_ context.Context, r *settlement.Receivable) error {
	f.Items[r.ID] = r
	return nil
}

func (f *FakeReceivableRepo) SaveWithLock(ctx context.Context, r *settlement.Receivable) error {
	return f.Save(ctx, r)
}

func (f *FakeReceivableRepo) TryClaimRemitLocks(_ context.Context, ids []uuid.UUID, token string) (int64, error) {
	claimable := make([]*settlement.Receivable, 0, len(ids))
	for _, id := range ids {
		r, ok := f.Items[id]
		if !ok {
			continue
		}
		if r.RemitLockToken == "" || r.RemitLockToken == token {
			claimable = append(claimable, r)
		}
	}
	if len(claimable) < len(ids) {
		return int64(len(claimable)), nil
	}
	now := time.Now()
	for _, r := range claimable {
		r.RemitLockToken = token
		r.RemitLockedAt = &now
	}
	return int64(len(claimable)), nil
}

func (f *FakeReceivableRepo) ReleaseRemitLocks(_ context.Context, ids []uuid.UUID, token string) error {
	for _, id := range ids {
		if r, ok := f.Items[id]; ok && r.RemitLockToken == token {
			r.RemitLockToken = ""
			r.RemitLockedAt = nil
		}
	}
	return nil
}

func (f *FakeReceivableRepo) Count(_ context.Context, _ settlement.ReceivableFilter) (int64, error) {
	return int64(len(f.Items)), nil
}

func (f *FakeReceivableRepo) SumOutstandingByCustomer(_ context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, r := range f.Items {
		if r.CustomerID == customerID {
			sum = sum.Add(r.Outstanding())
		}
	}
	return sum, nil
}

func (f *FakeReceivableRepo) ExistsBySaleNumber(ctx context.Context, saleNumber string) (bool, error) {
	r, _ := f.FindBySaleNumber(ctx, saleNumber)
	return r != nil, nil
}

// FakeEventRepo is an in-memory settlement.SettlementEventRepository.
type FakeEventRepo struct {
	Events []*settlement.SettlementEvent
}

func (f *FakeEventRepo) Save(_ context.Context, e *settlement.SettlementEvent) error {
	f.Events = append(f.Events, e)
	return nil
}

func (f *FakeEventRepo) SaveAll(_ context.Context, events []*settlement.SettlementEvent) error {
	f.Events = append(f.Events, events...)
	return nil
}

func (f *FakeEventRepo) FindByReceivable(_ context.Context, receivableID uuid.UUID) ([]settlement.SettlementEvent, error) {
	out := make([]settlement.SettlementEvent, 0)
	for _, e := range f.Events {
		if e.ReceivableID == receivableID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *FakeEventRepo) FindAll(_ context.Context, _ settlement.SettlementEventFilter) ([]settlement.SettlementEvent, error) {
	out := make([]settlement.SettlementEvent, 0, len(f.Events))
	for _, e := range f.Events {
		out = append(out, *e)
	}
	return out, nil
}

func (f *FakeEventRepo) SumByReceivableAndMethod(_ context.Context, receivableIDs []uuid.UUID, method settlement.SettlementMethod) (map[uuid.UUID]decimal.Decimal, error) {
	wanted := make(map[uuid.UUID]bool, len(receivableIDs))
	for _, id := range receivableIDs {
		wanted[id] = true
	}
	sums := make(map[uuid.UUID]decimal.Decimal)
	for _, e := range f.Events {
		if e.Method == method && wanted[e.ReceivableID] {
			sums[e.ReceivableID] = sums[e.ReceivableID].Add(e.Amount)
		}
	}
	return sums, nil
}

// FakeRunRepo is an in-memory settlement.RunRepository.
type FakeRunRepo struct {
	Items map[uuid.UUID]*settlement.Run
}

// NewFakeRunRepo creates a FakeRunRepo seeded with the given runs.
func NewFakeRunRepo(items ...*settlement.Run) *FakeRunRepo {
	repo := &FakeRunRepo{Items: make(map[uuid.UUID]*settlement.Run)}
	for _, r := range items {
		repo.Items[r.ID] = r
	}
	return repo
}

func (f *FakeRunRepo) FindByID(_ context.Context, id uuid.UUID) (*settlement.Run, error) {
	return f.Items[id], nil
}

func (f *FakeRunRepo) FindByRunNumber(_ context.Context, runNumber string) (*settlement.Run, error) {
	for _, r := range f.Items {
		if r.RunNumber == runNumber {
			return r, nil
		}
	}
	return nil, nil
}

func (f *FakeRunRepo) FindAll(_ context.Context, _ settlement.RunFilter) ([]settlement.Run, error) {
	out := make([]settlement.Run, 0, len(f.Items))
	for _, r := range f.Items {
		out = append(out, *r)
	}
	return out, nil
}

func (f *FakeRunRepo) Save(_ context.Context, r *settlement.Run) error {
	f.Items[r.ID] = r
	return nil
}

func (f *FakeRunRepo) SaveWithLock(ctx context.Context, r *settlement.Run) error {
	return f.Save(ctx, r)
}

func (f *FakeRunRepo) Count(_ context.Context, _ settlement.RunFilter) (int64, error) {
	return int64(len(f.Items)), nil
}

// FakeVarianceRepo is an in-memory settlement.VarianceRepository. Insertion
// order is preserved so FindLatestByRun behaves like the SQL implementation.
type FakeVarianceRepo struct {
	Items   map[uuid.UUID]*settlement.Variance
	ordered []uuid.UUID
}

// NewFakeVarianceRepo creates a FakeVarianceRepo seeded with the given variances.
func NewFakeVarianceRepo(items ...*settlement.Variance) *FakeVarianceRepo {
	repo := &FakeVarianceRepo{Items: make(map[uuid.UUID]*settlement.Variance)}
	for _, v := range items {
		repo.Items[v.ID] = v
		repo.ordered = append(repo.ordered, v.ID)
	}
	return repo
}

func (f *FakeVarianceRepo) FindByID(_ context.Context, id uuid.UUID) (*settlement.Variance, error) {
	return f.Items[id], nil
}

func (f *FakeVarianceRepo) FindByRun(_ context.Context, runID uuid.UUID) ([]settlement.Variance, error) {
	out := make([]settlement.Variance, 0)
	for i := len(f.ordered) - 1; i >= 0; i-- {
		if v := f.Items[f.ordered[i]]; v.RunID == runID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f *FakeVarianceRepo) FindLatestByRun(_ context.Context, runID uuid.UUID) (*settlement.Variance, error) {
	for i := len(f.ordered) - 1; i >= 0; i-- {
		if v := f.Items[f.ordered[i]]; v.RunID == runID {
			return v, nil
		}
	}
	return nil, nil
}

func (f *FakeVarianceRepo) FindAll(_ context.Context, _ settlement.VarianceFilter) ([]settlement.Variance, error) {
	out := make([]settlement.Variance, 0, len(f.Items))
	for _, id := range f.ordered {
		out = append(out, *f.Items[id])
	}
	return out, nil
}

func (f *FakeVarianceRepo) Save(_ context.Context, v *settlement.Variance) error {
	if _, ok := f.Items[v.ID]; !ok {
		f.ordered = append(f.ordered, v.ID)
	}
	f.Items[v.ID] = v
	return nil
}

func (f *FakeVarianceRepo) SaveWithLock(ctx context.Context, v *settlement.Variance) error {
	return f.Save(ctx, v)
}

// FakeChargeRepo is an in-memory settlement.AgentChargeRepository.
type FakeChargeRepo struct {
	Items map[uuid.UUID]*settlement.AgentCharge
}

// NewFakeChargeRepo creates an empty FakeChargeRepo.
func NewFakeChargeRepo() *FakeChargeRepo {
	return &FakeChargeRepo{Items: make(map[uuid.UUID]*settlement.AgentCharge)}
}

func (f *FakeChargeRepo) FindByID(_ context.Context, id uuid.UUID) (*settlement.AgentCharge, error) {
	return f.Items[id], nil
}

func (f *FakeChargeRepo) FindByAgent(_ context.Context, agentID uuid.UUID) ([]settlement.AgentCharge, error) {
	out := make([]settlement.AgentCharge, 0)
	for _, c := range f.Items {
		if c.AgentID == agentID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *FakeChargeRepo) FindByVariance(_ context.Context, varianceID uuid.UUID) (*settlement.AgentCharge, error) {
	for _, c := range f.Items {
		if c.VarianceID == varianceID {
			return c, nil
		}
	}
	return nil, nil
}

func (f *FakeChargeRepo) Save(_ context.Context, c *settlement.AgentCharge) error {
	f.Items[c.ID] = c
	return nil
}

func (f *FakeChargeRepo) SumOutstandingByAgent(_ context.Context, agentID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, c := range f.Items {
		if c.AgentID == agentID {
			sum = sum.Add(c.Outstanding())
		}
	}
	return sum, nil
}

// FakeChargeSourceRepo is an in-memory settlement.ChargeSourceRepository,
// keyed by sale ID with the sources already in resolver priority order.
type FakeChargeSourceRepo struct {
	Sources map[uuid.UUID][]settlement.ChargeSourceLines
}

// NewFakeChargeSourceRepo creates an empty FakeChargeSourceRepo.
func NewFakeChargeSourceRepo() *FakeChargeSourceRepo {
	return &FakeChargeSourceRepo{Sources: make(map[uuid.UUID][]settlement.ChargeSourceLines)}
}

func (f *FakeChargeSourceRepo) FindSourcesForSale(_ context.Context, saleID uuid.UUID) ([]settlement.ChargeSourceLines, error) {
	return f.Sources[saleID], nil
}

// FakeTransactor hands a fixed Repositories set to every transaction.
type FakeTransactor struct {
	Repos appsettlement.Repositories
}

func (f *FakeTransactor) InTransaction(ctx context.Context, fn func(ctx context.Context, repos appsettlement.Repositories) error) error {
	return fn(ctx, f.Repos)
}

// FakeIdempotencyStore tracks processed keys in memory.
type FakeIdempotencyStore struct {
	Keys map[string]bool
}

// NewFakeIdempotencyStore creates an empty FakeIdempotencyStore.
func NewFakeIdempotencyStore() *FakeIdempotencyStore {
	return &FakeIdempotencyStore{Keys: make(map[string]bool)}
}

func (f *FakeIdempotencyStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	if f.Keys[key] {
		return false, nil
	}
	f.Keys[key] = true
	return true, nil
}

func (f *FakeIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	return f.Keys[key], nil
}

func (f *FakeIdempotencyStore) Close() error { return nil }

// SettlementEnv bundles the fakes behind a Transactor so tests can build the
// application services without a database.
type SettlementEnv struct {
	Receivables   *FakeReceivableRepo
	Events        *FakeEventRepo
	Runs          *FakeRunRepo
	Variances     *FakeVarianceRepo
	Charges       *FakeChargeRepo
	ChargeSources *FakeChargeSourceRepo
	Transactor    *FakeTransactor
	Idempotency   *FakeIdempotencyStore
}

// NewSettlementEnv creates an empty in-memory settlement environment.
func NewSettlementEnv() *SettlementEnv {
	env := &SettlementEnv{
		Receivables:   NewFakeReceivableRepo(),
		Events:        &FakeEventRepo{},
		Runs:          NewFakeRunRepo(),
		Variances:     NewFakeVarianceRepo(),
		Charges:       NewFakeChargeRepo(),
		ChargeSources: NewFakeChargeSourceRepo(),
		Idempotency:   NewFakeIdempotencyStore(),
	}
	env.Transactor = &FakeTransactor{Repos: appsettlement.Repositories{
		Receivables: env.Receivables,
		Events:      env.Events,
		Runs:        env.Runs,
		Variances:   env.Variances,
		Charges:     env.Charges,
	}}
	return env
}
