package settlement

import (
	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ReceivableTruth holds the three reconciled figures for one receivable:
// what the field reported collecting, what actually reached the drawer, and
// what was bridged without cash. Shortage is what remains unexplained.
type ReceivableTruth struct {
	ReceivableID uuid.UUID       `json:"receivable_id"`
	SaleNumber   string          `json:"sale_number"`
	Collected    decimal.Decimal `json:"collected"` // Field report, capped at frozen charge
	Drawer       decimal.Decimal `json:"drawer"`    // Sum of CASH settlement events
	Bridged      decimal.Decimal `json:"bridged"`   // Bridge settlements, capped at the cash shortfall
	Shortage     decimal.Decimal `json:"shortage"`  // Collected minus drawer minus bridged, floored at zero
}

// RunReconciliation is a full reconciliation pass over one run's receivables
type RunReconciliation struct {
	RunID         uuid.UUID         `json:"run_id"`
	Truths        []ReceivableTruth `json:"truths"`
	ExpectedCash  decimal.Decimal   `json:"expected_cash"`  // Sum of capped collections
	ReceivedCash  decimal.Decimal   `json:"received_cash"`  // Sum of drawer figures
	BridgedAmount decimal.Decimal   `json:"bridged_amount"` // Sum of capped bridges
	CashGap       decimal.Decimal   `json:"cash_gap"`     // ExpectedCash minus ReceivedCash
	ResidualGap   decimal.Decimal   `json:"residual_gap"` // CashGap minus BridgedAmount
	TotalShortage decimal.Decimal   `json:"total_shortage"`
	Balanced      bool              `json:"balanced"` // True when the raw gap is within tolerance
}

// ReconciliationService computes the three-truth reconciliation for a run.
// It is a pure domain service: it reads aggregates and produces figures,
// never mutating state or touching a store.
type ReconciliationService struct{}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService() *ReconciliationService {
	return &ReconciliationService{}
}

// ReconcileReceivable derives the truth figures for a single receivable.
// The bridge figure is capped at the cash shortfall so a bridge can explain
// missing cash but never manufacture a surplus.
func (s *ReconciliationService) ReconcileReceivable(r *Receivable) ReceivableTruth {
	collected := valueobject.Round2(r.CollectedCapped())
	drawer := valueobject.Round2(r.CashSettled)

	shortfall := collected.Sub(drawer)
	if shortfall.IsNegative() {
		shortfall = decimal.Zero
	}
	bridged := decimal.Min(valueobject.Round2(r.BridgeSettled), shortfall)

	shortage := valueobject.Round2(collected.Sub(drawer).Sub(bridged))
	if shortage.IsNegative() {
		shortage = decimal.Zero
	}

	return ReceivableTruth{
		ReceivableID: r.ID,
		SaleNumber:   r.SaleNumber,
		Collected:    collected,
		Drawer:       drawer,
		Bridged:      bridged,
		Shortage:     shortage,
	}
}

// ReconcileRun reconciles all receivables of a run and aggregates the run
// level figures. The gap compares what the field said was collected against
// what was remitted into the drawer; bridges reduce the gap only to the
// extent they explain real shortfalls.
func (s *ReconciliationService) ReconcileRun(runID uuid.UUID, receivables []*Receivable) *RunReconciliation {
	recon := &RunReconciliation{
		RunID:         runID,
		Truths:        make([]ReceivableTruth, 0, len(receivables)),
		ExpectedCash:  decimal.Zero,
		ReceivedCash:  decimal.Zero,
		BridgedAmount: decimal.Zero,
		TotalShortage: decimal.Zero,
	}

	for _, r := range receivables {
		truth := s.ReconcileReceivable(r)
		recon.Truths = append(recon.Truths, truth)

		recon.ExpectedCash = valueobject.Round2(recon.ExpectedCash.Add(truth.Collected))
		recon.ReceivedCash = valueobject.Round2(recon.ReceivedCash.Add(truth.Drawer))
		recon.BridgedAmount = valueobject.Round2(recon.BridgedAmount.Add(truth.Bridged))
		recon.TotalShortage = valueobject.Round2(recon.TotalShortage.Add(truth.Shortage))
	}

	recon.CashGap = valueobject.Round2(recon.ExpectedCash.Sub(recon.ReceivedCash))
	recon.ResidualGap = valueobject.Round2(recon.CashGap.Sub(recon.BridgedAmount))
	recon.Balanced = valueobject.IsBalancedGap(recon.CashGap)

	return recon
}

// MaxPostableBridge returns the largest bridge amount that can still be
// posted against a receivable: the part of the reported collection that
// neither drawer cash nor prior bridges explain, never exceeding the
// outstanding balance.
func (s *ReconciliationService) MaxPostableBridge(r *Receivable) decimal.Decimal {
	truth := s.ReconcileReceivable(r)
	headroom := valueobject.Round2(truth.Collected.Sub(truth.Drawer).Sub(truth.Bridged))
	if headroom.IsNegative() {
		headroom = decimal.Zero
	}
	outstanding := r.Outstanding()
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}
	return decimal.Min(headroom, outstanding)
}
