package settlement

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/settlement"
	"github.com/shopspring/decimal"
)

// In-memory fakes for the repository interfaces. The transactor passes the
// same fakes to every transaction; rollback is not simulated, so failure
// tests assert on errors rather than on state.

type fakeReceivableRepo struct {
	items      map[uuid.UUID]*settlement.Receivable
	onFindOpen func()
}

func newFakeReceivableRepo(items ...*settlement.Receivable) *fakeReceivableRepo {
	repo := &fakeReceivableRepo{items: make(map[uuid.UUID]*settlement.Receivable)}
	for _, r := range items {
		repo.items[r.ID] = r
	}
	return repo
}

func (f *fakeReceivableRepo) FindByID(_ context.Context, id uuid.UUID) (*settlement.Receivable, error) {
	return f.items[id], nil
}

func (f *fakeReceivableRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]settlement.Receivable, error) {
	out := make([]settlement.Receivable, 0, len(ids))
	for _, id := range ids {
		if r, ok := f.items[id]; ok {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReceivableRepo) FindBySaleNumber(_ context.Context, saleNumber string) (*settlement.Receivable, error) {
	for _, r := range f.items {
		if r.SaleNumber == saleNumber {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeReceivableRepo) FindAll(_ context.Context, _ settlement.ReceivableFilter) ([]settlement.Receivable, error) {
	out := make([]settlement.Receivable, 0, len(f.items))
	for _, r := range f.items {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeReceivableRepo) FindOpenByCustomer(_ context.Context, customerID uuid.UUID) ([]settlement.Receivable, error) {
	if f.onFindOpen != nil {
		f.onFindOpen()
	}
	out := make([]settlement.Receivable, 0)
	for _, r := range f.items {
		if r.CustomerID == customerID && r.Status.CanApplySettlement() {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeReceivableRepo) FindByRun(_ context.Context, runID uuid.UUID) ([]settlement.Receivable, error) {
	out := make([]settlement.Receivable, 0)
	for _, r := range f.items {
		if r.RunID != nil && *r.RunID == runID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReceivableRepo) Save(_ context.Context, r *settlement.Receivable) error {
	f.items[r.ID] = r
	return nil
}

func (f *fakeReceivableRepo) SaveWithLock(ctx context.Context, r *settlement.Receivable) error {
	return f.Save(ctx, r)
}

func (f *fakeReceivableRepo) TryClaimRemitLocks(_ context.Context, ids []uuid.UUID, token string) (int64, error) {
	claimable := make([]*settlement.Receivable, 0, len(ids))
	for _, id := range ids {
		r, ok := f.items[id]
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

func (f *fakeReceivableRepo) ReleaseRemitLocks(_ context.Context, ids []uuid.UUID, token string) error {
	for _, id := range ids {
		if r, ok := f.items[id]; ok && r.RemitLockToken == token {
			r.RemitLockToken = ""
			r.RemitLockedAt = nil
		}
	}
	return nil
}

func (f *fakeReceivableRepo) Count(_ context.Context, _ settlement.ReceivableFilter) (int64, error) {
	return int64(len(f.items)), nil
}

func (f *fakeReceivableRepo) SumOutstandingByCustomer(_ context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, r := range f.items {
		if r.CustomerID == customerID {
			sum = sum.Add(r.Outstanding())
		}
	}
	return sum, nil
}

func (f *fakeReceivableRepo) ExistsBySaleNumber(ctx context.Context, saleNumber string) (bool, error) {
	r, _ := f.FindBySaleNumber(ctx, saleNumber)
	return r != nil, nil
}

type fakeEventRepo struct {
	events []*settlement.SettlementEvent
}

func (f *fakeEventRepo) Save(_ context.Context, e *settlement.SettlementEvent) error {
	f.events = append(f.events, e)
	return nil
}

func (f *fakeEventRepo) SaveAll(_ context.Context, events []*settlement.SettlementEvent) error {
	f.events = append(f.events, events...)
	return nil
}

func (f *fakeEventRepo) FindByReceivable(_ context.Context, receivableID uuid.UUID) ([]settlement.SettlementEvent, error) {
	out := make([]settlement.SettlementEvent, 0)
	for _, e := range f.events {
		if e.ReceivableID == receivableID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeEventRepo) FindAll(_ context.Context, _ settlement.SettlementEventFilter) ([]settlement.SettlementEvent, error) {
	out := make([]settlement.SettlementEvent, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, *e)
	}
	return out, nil
}

func (f *fakeEventRepo) SumByReceivableAndMethod(_ context.Context, receivableIDs []uuid.UUID, method settlement.SettlementMethod) (map[uuid.UUID]decimal.Decimal, error) {
	wanted := make(map[uuid.UUID]bool, len(receivableIDs))
	for _, id := range receivableIDs {
		wanted[id] = true
	}
	sums := make(map[uuid.UUID]decimal.Decimal)
	for _, e := range f.events {
		if e.Method == method && wanted[e.ReceivableID] {
			sums[e.ReceivableID] = sums[e.ReceivableID].Add(e.Amount)
		}
	}
	return sums, nil
}

type fakeRunRepo struct {
	items map[uuid.UUID]*settlement.Run
}

func newFakeRunRepo(items ...*settlement.Run) *fakeRunRepo {
	repo := &fakeRunRepo{items: make(map[uuid.UUID]*settlement.Run)}
	for _, r := range items {
		repo.items[r.ID] = r
	}
	return repo
}

func (f *fakeRunRepo) FindByID(_ context.Context, id uuid.UUID) (*settlement.Run, error) {
	return f.items[id], nil
}

func (f *fakeRunRepo) FindByRunNumber(_ context.Context, runNumber string) (*settlement.Run, error) {
	for _, r := range f.items {
		if r.RunNumber == runNumber {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeRunRepo) FindAll(_ context.Context, _ settlement.RunFilter) ([]settlement.Run, error) {
	out := make([]settlement.Run, 0, len(f.items))
	for _, r := range f.items {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeRunRepo) Save(_ context.Context, r *settlement.Run) error {
	f.items[r.ID] = r
	return nil
}

func (f *fakeRunRepo) SaveWithLock(ctx context.Context, r *settlement.Run) error {
	return f.Save(ctx, r)
}

func (f *fakeRunRepo) Count(_ context.Context, _ settlement.RunFilter) (int64, error) {
	return int64(len(f.items)), nil
}

type fakeVarianceRepo struct {
	items   map[uuid.UUID]*settlement.Variance
	ordered []uuid.UUID
}

func newFakeVarianceRepo(items ...*settlement.Variance) *fakeVarianceRepo {
	repo := &fakeVarianceRepo{items: make(map[uuid.UUID]*settlement.Variance)}
	for _, v := range items {
		repo.items[v.ID] = v
		repo.ordered = append(repo.ordered, v.ID)
	}
	return repo
}

func (f *fakeVarianceRepo) FindByID(_ context.Context, id uuid.UUID) (*settlement.Variance, error) {
	return f.items[id], nil
}

func (f *fakeVarianceRepo) FindByRun(_ context.Context, runID uuid.UUID) ([]settlement.Variance, error) {
	out := make([]settlement.Variance, 0)
	for i := len(f.ordered) - 1; i >= 0; i-- {
		if v := f.items[f.ordered[i]]; v.RunID == runID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f *fakeVarianceRepo) FindLatestByRun(_ context.Context, runID uuid.UUID) (*settlement.Variance, error) {
	for i := len(f.ordered) - 1; i >= 0; i-- {
		if v := f.items[f.ordered[i]]; v.RunID == runID {
			return v, nil
		}
	}
	return nil, nil
}

func (f *fakeVarianceRepo) FindAll(_ context.Context, _ settlement.VarianceFilter) ([]settlement.Variance, error) {
	out := make([]settlement.Variance, 0, len(f.items))
	for _, id := range f.ordered {
		out = append(out, *f.items[id])
	}
	return out, nil
}

func (f *fakeVarianceRepo) Save(_ context.Context, v *settlement.Variance) error {
	if _, ok := f.items[v.ID]; !ok {
		f.ordered = append(f.ordered, v.ID)
	}
	f.items[v.ID] = v
	return nil
}

func (f *fakeVarianceRepo) SaveWithLock(ctx context.Context, v *settlement.Variance) error {
	return f.Save(ctx, v)
}

type fakeChargeRepo struct {
	items map[uuid.UUID]*settlement.AgentCharge
}

func newFakeChargeRepo() *fakeChargeRepo {
	return &fakeChargeRepo{items: make(map[uuid.UUID]*settlement.AgentCharge)}
}

func (f *fakeChargeRepo) FindByID(_ context.Context, id uuid.UUID) (*settlement.AgentCharge, error) {
	return f.items[id], nil
}

func (f *fakeChargeRepo) FindByAgent(_ context.Context, agentID uuid.UUID) ([]settlement.AgentCharge, error) {
	out := make([]settlement.AgentCharge, 0)
	for _, c := range f.items {
		if c.AgentID == agentID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeChargeRepo) FindByVariance(_ context.Context, varianceID uuid.UUID) (*settlement.AgentCharge, error) {
	for _, c := range f.items {
		if c.VarianceID == varianceID {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeChargeRepo) Save(_ context.Context, c *settlement.AgentCharge) error {
	f.items[c.ID] = c
	return nil
}

func (f *fakeChargeRepo) SumOutstandingByAgent(_ context.Context, agentID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, c := range f.items {
		if c.AgentID == agentID {
			sum = sum.Add(c.Outstanding())
		}
	}
	return sum, nil
}

type fakeTransactor struct {
	repos Repositories
	inTx  bool
}

func (f *fakeTransactor) InTransaction(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	f.inTx = true
	defer func() { f.inTx = false }()
	return fn(ctx, f.repos)
}

type fakeIdempotencyStore struct {
	keys map[string]bool
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{keys: make(map[string]bool)}
}

func (f *fakeIdempotencyStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	return f.keys[key], nil
}

func (f *fakeIdempotencyStore) Close() error { return nil }

type testEnv struct {
	receivables *fakeReceivableRepo
	events      *fakeEventRepo
	runs        *fakeRunRepo
	variances   *fakeVarianceRepo
	charges     *fakeChargeRepo
	transactor  *fakeTransactor
	idempotency *fakeIdempotencyStore
}

func newTestEnv() *testEnv {
	env := &testEnv{
		receivables: newFakeReceivableRepo(),
		events:      &fakeEventRepo{},
		runs:        newFakeRunRepo(),
		variances:   newFakeVarianceRepo(),
		charges:     newFakeChargeRepo(),
		idempotency: newFakeIdempotencyStore(),
	}
	env.transactor = &fakeTransactor{repos: Repositories{
		Receivables: env.receivables,
		Events:      env.events,
		Runs:        env.runs,
		Variances:   env.variances,
		Charges:     env.charges,
	}}
	return env
}
