package ledger

import (
	"shop-service/internal/apperr"
	"shop-service/internal/models"
)

// StockSource resolves catalog products and their total stock
type StockSource interface {
	Lookup(id string) (models.Product, bool)
}

// Ledger tracks, per product, how many units a cart has committed. Counters
// are updated incrementally by the cart on each mutation; catalog stock is
// read live so admin edits are seen immediately.
//
// The ledger never rejects on read. Guards are checked before a mutation and
// SetSingle, AddBundle and RemoveBundle assume the guard passed.
type Ledger struct {
	stock   StockSource
	singles map[string]int
	bundled map[string]int
}

// New creates an empty ledger over a stock source
func New(stock StockSource) *Ledger {
	return &Ledger{
		stock:   stock,
		singles: make(map[string]int),
		bundled: make(map[string]int),
	}
}

// Rebuild recomputes every counter from a cart record
func (l *Ledger) Rebuild(rec *models.CartRecord) {
	l.singles = make(map[string]int, len(rec.Singles))
	l.bundled = make(map[string]int)

	for id, qty := range rec.Singles {
		if qty > 0 {
			l.singles[id] = qty
		}
	}
	for i := range rec.Bundles {
		l.AddBundle(rec.Bundles[i].Lines)
	}
}

// TotalStock returns catalog stock, 0 for unknown products
func (l *Ledger) TotalStock(id string) int {
	p, ok := l.stock.Lookup(id)
	if !ok || p.Stock < 0 {
		return 0
	}
	return p.Stock
}

// SingleQty returns the committed single quantity of a product
func (l *Ledger) SingleQty(id string) int {
	return l.singles[id]
}

// BundledQty returns the units of a product held by committed bundles
func (l *Ledger) BundledQty(id string) int {
	return l.bundled[id]
}

// ReservedTotal returns singles plus bundled units for a product
func (l *Ledger) ReservedTotal(id string) int {
	return l.singles[id] + l.bundled[id]
}

// AvailableStock returns stock not yet committed by the cart
func (l *Ledger) AvailableStock(id string) int {
	return nonNegative(l.TotalStock(id) - l.ReservedTotal(id))
}

// AvailableForBuilder returns stock left once a tentative bundle selection of
// tentative units is also set aside.
func (l *Ledger) AvailableForBuilder(id string, tentative int) int {
	return nonNegative(l.AvailableStock(id) - tentative)
}

// SingleCeiling returns the largest single quantity the product can hold
// given the units already committed to bundles.
func (l *Ledger) SingleCeiling(id string) int {
	return nonNegative(l.TotalStock(id) - l.bundled[id])
}

// CheckSingle guards setting a product's single quantity to qty. The
// conflict reports the ceiling as the available figure.
func (l *Ledger) CheckSingle(id string, qty int) error {
	if ceiling := l.SingleCeiling(id); qty > ceiling {
		return apperr.NewStockConflict(id, qty, ceiling)
	}
	return nil
}

// CheckBundle guards committing a bundle against current availability.
// Repeated lines for the same product are summed.
func (l *Ledger) CheckBundle(lines []models.BundleLine) error {
	wanted := make(map[string]int, len(lines))
	order := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, seen := wanted[line.ProductID]; !seen {
			order = append(order, line.ProductID)
		}
		wanted[line.ProductID] += line.Quantity
	}

	for _, id := range order {
		if left := l.AvailableStock(id); wanted[id] > left {
			return apperr.NewStockConflict(id, wanted[id], left)
		}
	}
	return nil
}

// BundleFits reports whether a bundle's lines fit catalog stock on top of the
// units already bundled, ignoring singles. Products missing from the catalog
// are not checked.
func (l *Ledger) BundleFits(lines []models.BundleLine) bool {
	wanted := make(map[string]int, len(lines))
	for _, line := range lines {
		if line.Quantity > 0 {
			wanted[line.ProductID] += line.Quantity
		}
	}
	for id, n := range wanted {
		if _, ok := l.stock.Lookup(id); !ok {
			continue
		}
		if l.bundled[id]+n > l.TotalStock(id) {
			return false
		}
	}
	return true
}

// SetSingle records a product's single quantity; 0 removes it
func (l *Ledger) SetSingle(id string, qty int) {
	if qty <= 0 {
		delete(l.singles, id)
		return
	}
	l.singles[id] = qty
}

// AddBundle counts a committed bundle's lines
func (l *Ledger) AddBundle(lines []models.BundleLine) {
	for _, line := range lines {
		if line.Quantity > 0 {
			l.bundled[line.ProductID] += line.Quantity
		}
	}
}

// RemoveBundle releases a removed bundle's lines
func (l *Ledger) RemoveBundle(lines []models.BundleLine) {
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		next := l.bundled[line.ProductID] - line.Quantity
		if next <= 0 {
			delete(l.bundled, line.ProductID)
			continue
		}
		l.bundled[line.ProductID] = next
	}
}

// Availability returns the full ledger view of one product
func (l *Ledger) Availability(id string, tentative int) models.Availability {
	return models.Availability{
		ProductID:     id,
		Stock:         l.TotalStock(id),
		Reserved:      l.ReservedTotal(id),
		Available:     l.AvailableStock(id),
		ForBundle:     l.AvailableForBuilder(id, tentative),
		InBundleDraft: tentative,
	}
}

// Oversold returns the catalog products whose reservations exceed their
// stock. Lines for products missing from the catalog are ignored.
func (l *Ledger) Oversold() []string {
	seen := make(map[string]bool)
	var out []string
	check := func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		if _, ok := l.stock.Lookup(id); !ok {
			return
		}
		if l.ReservedTotal(id) > l.TotalStock(id) {
			out = append(out, id)
		}
	}
	for id := range l.singles {
		check(id)
	}
	for id := range l.bundled {
		check(id)
	}
	return out
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
