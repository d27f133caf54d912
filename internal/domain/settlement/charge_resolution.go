package settlement

import (
	"github.com/retailops/backend/internal/domain/shared/strategy"
	"github.com/retailops/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Well-known charge source names, in the order the resolver consults them
const (
	ChargeSourceOriginSnapshot       = "origin_snapshot"       // Snapshot taken when the sale was created
	ChargeSourceConsolidatedSnapshot = "consolidated_snapshot" // Snapshot taken when sales were merged for dispatch
	ChargeSourceLiveItems            = "live_items"            // Current sale line items, last resort
)

// ChargeLine is one priced line from a candidate charge source
type ChargeLine struct {
	Total     decimal.Decimal `json:"total"`      // Stored line total, authoritative when positive
	Quantity  decimal.Decimal `json:"quantity"`   // Fallback factors when the stored total is unusable
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Resolve returns the line's monetary value rounded to 2 places. The stored
// total wins when positive; otherwise quantity times unit price is used.
// Returns false when neither yields a positive amount.
func (l ChargeLine) Resolve() (decimal.Decimal, bool) {
	if l.Total.GreaterThan(decimal.Zero) {
		return valueobject.Round2(l.Total), true
	}
	derived := valueobject.Round2(l.Quantity.Mul(l.UnitPrice))
	if derived.GreaterThan(decimal.Zero) {
		return derived, true
	}
	return decimal.Zero, false
}

// ChargeSourceLines is one candidate source of truth for a receivable's
// charge, already loaded in resolver priority order
type ChargeSourceLines struct {
	Name  string       `json:"name"`
	Lines []ChargeLine `json:"lines"`
}

// ChargeResolution is the outcome of a successful resolution
type ChargeResolution struct {
	SourceName string          `json:"source_name"` // Which source produced the charge
	Total      decimal.Decimal `json:"total"`       // Resolved charge, rounded to 2 places
	LineCount  int             `json:"line_count"`
}

// ChargeResolver walks an ordered chain of candidate sources and freezes the
// charge from the first one that is fully usable. A source is usable only if
// it has at least one line and every line resolves to a positive amount;
// a partially priced source is skipped rather than summed short.
type ChargeResolver struct {
	strategy.BaseStrategy
}

// NewChargeResolver creates a new charge resolver
func NewChargeResolver() *ChargeResolver {
	return &ChargeResolver{
		BaseStrategy: strategy.NewBaseStrategy(
			"snapshot_chain_resolution",
			strategy.StrategyTypeResolution,
			"Charge resolution chain - origin snapshot, then consolidated snapshot, then live items",
		),
	}
}

// Resolve returns the charge from the first usable source. When no source in
// the chain is usable the charge is undetermined and settlement against the
// receivable must not proceed.
func (r *ChargeResolver) Resolve(sources []ChargeSourceLines) (*ChargeResolution, error) {
	for _, source := range sources {
		total, ok := r.sumSource(source)
		if !ok {
			continue
		}
		return &ChargeResolution{
			SourceName: source.Name,
			Total:      total,
			LineCount:  len(source.Lines),
		}, nil
	}
	return nil, ErrChargeUndetermined
}

// sumSource sums a source's lines, rounding after each addition. Returns
// false when the source is empty or any line cannot be priced.
func (r *ChargeResolver) sumSource(source ChargeSourceLines) (decimal.Decimal, bool) {
	if len(source.Lines) == 0 {
		return decimal.Zero, false
	}
	total := decimal.Zero
	for _, line := range source.Lines {
		amount, ok := line.Resolve()
		if !ok {
			return decimal.Zero, false
		}
		total = valueobject.Round2(total.Add(amount))
	}
	return total, true
}
