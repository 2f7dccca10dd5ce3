package bundle

import (
	"fmt"
	"sort"

	"shop-service/internal/apperr"
	"shop-service/internal/cart"
	"shop-service/internal/models"
	"shop-service/internal/pricing"
)

// State is a step of the bundle composition workflow
type State string

const (
	StateIdle       State = "idle"
	StateSizeChosen State = "size_chosen"
	StateComposing  State = "composing"
)

// Products resolves catalog products and their display order
type Products interface {
	Lookup(id string) (models.Product, bool)
	Position(id string) int
}

// Snapshot is the read-only view of the workflow
type Snapshot struct {
	State     State                `json:"state"`
	Size      int                  `json:"size,omitempty"`
	Name      string               `json:"name,omitempty"`
	Lines     []models.BundleLine  `json:"lines"`
	Units     int                  `json:"units"`
	Remaining int                  `json:"remaining"`
	Preview   pricing.BundleTotals `json:"preview"`
}

// Builder drives the composition of one bundle at a time against a cart.
// The tentative selection is never counted as reserved; it only lowers what
// the builder itself may still pick.
type Builder struct {
	products  Products
	cart      *cart.Cart
	state     State
	size      int
	selection map[string]int
}

// NewBuilder creates an idle builder that commits into c
func NewBuilder(products Products, c *cart.Cart) *Builder {
	return &Builder{
		products:  products,
		cart:      c,
		state:     StateIdle,
		selection: make(map[string]int),
	}
}

// State returns the current workflow state
func (b *Builder) State() State {
	return b.state
}

// Size returns the chosen size, 0 when idle
func (b *Builder) Size() int {
	return b.size
}

// Tentative returns the units of a product held by the selection
func (b *Builder) Tentative(id string) int {
	return b.selection[id]
}

// Units returns the total units in the selection
func (b *Builder) Units() int {
	n := 0
	for _, qty := range b.selection {
		n += qty
	}
	return n
}

// Availability returns the ledger view of a product including the
// selection's hold on it.
func (b *Builder) Availability(id string) models.Availability {
	return b.cart.Ledger().Availability(id, b.selection[id])
}

// ChooseSize selects a pack size from any state and clears the selection
func (b *Builder) ChooseSize(n int) error {
	if !pricing.ValidBundleSize(n) {
		return apperr.NewValidation("size", "must be 3 or 5")
	}
	b.size = n
	b.state = StateSizeChosen
	b.clearSelection()
	return nil
}

// EnterComposing moves from size selection to composition
func (b *Builder) EnterComposing() error {
	if b.state != StateSizeChosen {
		return b.invalid("compose")
	}
	b.state = StateComposing
	return nil
}

// Increment adds one unit of a product to the selection. A full selection
// returns ErrBundleFull and an exhausted product a stock conflict; neither
// changes the selection.
func (b *Builder) Increment(id string) error {
	if b.state != StateComposing {
		return b.invalid("increment")
	}
	if _, ok := b.products.Lookup(id); !ok {
		return apperr.NotFoundf("product %s", id)
	}
	if b.Units() >= b.size {
		return fmt.Errorf("%d of %d units selected: %w", b.Units(), b.size, apperr.ErrBundleFull)
	}
	if b.cart.Ledger().AvailableForBuilder(id, b.selection[id]) <= 0 {
		return apperr.NewStockConflict(id, b.selection[id]+1, b.cart.AvailableStock(id))
	}

	b.selection[id]++
	return nil
}

// Decrement removes one unit of a product from the selection. Entries that
// reach zero are dropped.
func (b *Builder) Decrement(id string) error {
	if b.state != StateComposing {
		return b.invalid("decrement")
	}

	qty, ok := b.selection[id]
	if !ok {
		return nil
	}
	if qty <= 1 {
		delete(b.selection, id)
		return nil
	}
	b.selection[id] = qty - 1
	return nil
}

// Reset clears the selection and stays in composition
func (b *Builder) Reset() error {
	if b.state != StateComposing {
		return b.invalid("reset")
	}
	b.clearSelection()
	return nil
}

// Back returns to size selection keeping the selection
func (b *Builder) Back() error {
	if b.state != StateComposing {
		return b.invalid("back")
	}
	b.state = StateSizeChosen
	return nil
}

// Abandon discards the selection and the chosen size
func (b *Builder) Abandon() {
	b.state = StateIdle
	b.size = 0
	b.clearSelection()
}

// Commit turns a complete selection into a cart bundle. The cart re-checks
// every line against current availability; on failure nothing changes.
func (b *Builder) Commit() (*models.Bundle, error) {
	if b.state != StateComposing {
		return nil, b.invalid("commit")
	}
	if units := b.Units(); units != b.size {
		return nil, fmt.Errorf("%d of %d units selected: %w", units, b.size, apperr.ErrBundleIncomplete)
	}

	committed, err := b.cart.CommitBundle(models.Bundle{Size: b.size, Lines: b.Lines()})
	if err != nil {
		return nil, err
	}

	b.clearSelection()
	return committed, nil
}

// Lines returns the selection in catalog order
func (b *Builder) Lines() []models.BundleLine {
	ids := make([]string, 0, len(b.selection))
	for id := range b.selection {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		pi, pj := b.products.Position(ids[i]), b.products.Position(ids[j])
		if pi != pj {
			return pi < pj
		}
		return ids[i] < ids[j]
	})

	lines := make([]models.BundleLine, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, models.BundleLine{ProductID: id, Quantity: b.selection[id]})
	}
	return lines
}

// Snapshot returns the workflow view with a live price preview
func (b *Builder) Snapshot() Snapshot {
	lines := b.Lines()
	units := b.Units()

	snap := Snapshot{
		State: b.state,
		Size:  b.size,
		Lines: lines,
		Units: units,
	}
	if b.size > 0 {
		snap.Name = pricing.BundleName(b.size)
		snap.Remaining = b.size - units
		if snap.Remaining < 0 {
			snap.Remaining = 0
		}
		snap.Preview = pricing.PreviewBundle(lines, b.size, b.products)
	}
	return snap
}

func (b *Builder) clearSelection() {
	b.selection = make(map[string]int)
}

func (b *Builder) invalid(op string) error {
	return fmt.Errorf("cannot %s while %s: %w", op, b.state, apperr.ErrInvalidTransition)
}
