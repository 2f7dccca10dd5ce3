package cart

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"shop-service/internal/apperr"
	"shop-service/internal/ledger"
	"shop-service/internal/models"
	"shop-service/internal/pricing"
	"shop-service/internal/util"

	"github.com/google/uuid"
)

// Products is the catalog view the cart prices and reserves against
type Products interface {
	Lookup(id string) (models.Product, bool)
	Position(id string) int
}

// Cart owns single reservations, committed bundles and gift certificates.
// Every mutation either fully applies or leaves the cart untouched, and
// totals are recomputed from scratch after each applied mutation.
type Cart struct {
	products Products
	record   *models.CartRecord
	ledger   *ledger.Ledger
	totals   models.Totals
	dropped  []models.Bundle
	now      func() time.Time
}

// GiftCertificateInput carries a gift certificate as entered by the shopper
type GiftCertificateInput struct {
	Amount     float64 `json:"amount"`
	Recipient  string  `json:"recipient"`
	Color      string  `json:"color"`
	SendDate   string  `json:"send_date"`
	SenderName string  `json:"sender_name"`
	Message    string  `json:"message"`
}

// New creates an empty cart
func New(products Products) *Cart {
	return Restore(products, models.NewCartRecord())
}

// Restore rebuilds a cart from a persisted record against the current
// catalog. Bundles are replayed in commit order and any bundle whose lines no
// longer fit stock is dropped; singles above their ceiling are then clamped.
// Non-positive single quantities are dropped. Lines for products no longer in
// the catalog are kept but priced at nothing.
func Restore(products Products, rec *models.CartRecord) *Cart {
	rec = copyRecord(rec)
	c := &Cart{
		products: products,
		record:   rec,
		ledger:   ledger.New(products),
		now:      time.Now,
	}

	for id, qty := range rec.Singles {
		if qty <= 0 {
			delete(rec.Singles, id)
		}
	}
	c.ledger.Rebuild(&models.CartRecord{Singles: rec.Singles})

	kept := make([]models.Bundle, 0, len(rec.Bundles))
	for _, b := range rec.Bundles {
		if !c.ledger.BundleFits(b.Lines) {
			c.dropped = append(c.dropped, b)
			continue
		}
		c.ledger.AddBundle(b.Lines)
		kept = append(kept, b)
	}
	rec.Bundles = kept

	for id := range rec.Singles {
		if _, ok := products.Lookup(id); ok {
			c.ClampSingle(id)
		}
	}

	c.recompute()
	return c
}

// DroppedBundles returns the bundles Restore discarded for lack of stock
func (c *Cart) DroppedBundles() []models.Bundle {
	return c.dropped
}

// Ledger exposes the reservation ledger for read access
func (c *Cart) Ledger() *ledger.Ledger {
	return c.ledger
}

// AvailableStock returns the units of a product still free for this cart
func (c *Cart) AvailableStock(id string) int {
	return c.ledger.AvailableStock(id)
}

// AddSingle adds delta units of a product to the cart
func (c *Cart) AddSingle(id string, delta int) error {
	if delta <= 0 {
		return apperr.NewValidation("quantity", "must be greater than 0")
	}
	if _, ok := c.products.Lookup(id); !ok {
		return apperr.NotFoundf("product %s", id)
	}

	if left := c.ledger.AvailableStock(id); delta > left {
		return apperr.NewStockConflict(id, delta, left)
	}

	c.setSingle(id, c.record.Singles[id]+delta)
	return nil
}

// SetSingleQuantity sets the single quantity of a product. A quantity of 0
// or less removes the line.
func (c *Cart) SetSingleQuantity(id string, qty int) error {
	if qty <= 0 {
		if _, ok := c.record.Singles[id]; !ok {
			return nil
		}
		c.setSingle(id, 0)
		return nil
	}

	if _, ok := c.products.Lookup(id); !ok {
		return apperr.NotFoundf("product %s", id)
	}
	if err := c.ledger.CheckSingle(id, qty); err != nil {
		return err
	}

	c.setSingle(id, qty)
	return nil
}

// ClampSingle lowers a single quantity to what the product's stock still
// allows once bundles are counted. It returns the new quantity and whether
// it changed.
func (c *Cart) ClampSingle(id string) (int, bool) {
	current, ok := c.record.Singles[id]
	if !ok {
		return 0, false
	}

	ceiling := c.ledger.SingleCeiling(id)
	if current <= ceiling {
		return current, false
	}

	c.setSingle(id, ceiling)
	return ceiling, true
}

func (c *Cart) setSingle(id string, qty int) {
	if qty <= 0 {
		delete(c.record.Singles, id)
	} else {
		c.record.Singles[id] = qty
	}
	c.ledger.SetSingle(id, qty)
	c.recompute()
}

// CommitBundle re-checks a bundle against current availability, prices it
// and appends it. On any error the cart is unchanged.
func (c *Cart) CommitBundle(b models.Bundle) (*models.Bundle, error) {
	if !pricing.ValidBundleSize(b.Size) {
		return nil, apperr.NewValidation("size", "must be 3 or 5")
	}

	units := 0
	lines := make([]models.BundleLine, 0, len(b.Lines))
	for _, l := range b.Lines {
		if l.Quantity <= 0 {
			continue
		}
		units += l.Quantity
		lines = append(lines, l)
	}
	if units != b.Size {
		return nil, fmt.Errorf("bundle holds %d of %d units: %w", units, b.Size, apperr.ErrBundleIncomplete)
	}

	if err := c.ledger.CheckBundle(lines); err != nil {
		return nil, err
	}

	priced := pricing.BundleDiscount(lines, b.Size, c.products)
	b.Lines = lines
	b.Name = pricing.BundleName(b.Size)
	b.GrossValue = priced.Gross
	b.FreeValue = priced.Free
	b.NetTotal = priced.Net
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = c.now()
	}

	c.record.Bundles = append(c.record.Bundles, b)
	c.ledger.AddBundle(lines)
	c.recompute()

	committed := b
	return &committed, nil
}

// RemoveBundle deletes a committed bundle. Its units become available again
// through the ledger; catalog stock is not touched.
func (c *Cart) RemoveBundle(id string) error {
	for i := range c.record.Bundles {
		if c.record.Bundles[i].ID != id {
			continue
		}
		removed := c.record.Bundles[i]
		c.record.Bundles = append(c.record.Bundles[:i], c.record.Bundles[i+1:]...)
		c.ledger.RemoveBundle(removed.Lines)
		c.recompute()
		return nil
	}
	return apperr.NotFoundf("bundle %s", id)
}

// AddGiftCertificate validates and appends a gift certificate
func (c *Cart) AddGiftCertificate(in GiftCertificateInput) (*models.GiftCertificate, error) {
	if math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) || in.Amount <= 0 {
		return nil, apperr.NewValidation("amount", "must be greater than 0")
	}
	amount := int64(math.Round(in.Amount * 100))
	if amount <= 0 {
		return nil, apperr.NewValidation("amount", "must be greater than 0")
	}

	recipient, ok := util.NormalizeEmail(in.Recipient)
	if !ok {
		return nil, apperr.NewValidation("recipient", "must be a valid email")
	}

	sendDate := strings.TrimSpace(in.SendDate)
	if sendDate != "" {
		if _, err := time.Parse("2006-01-02", sendDate); err != nil {
			return nil, apperr.NewValidation("send_date", "must be formatted YYYY-MM-DD")
		}
	}

	color := strings.TrimSpace(in.Color)
	if color == "" {
		color = models.DefaultGiftColor
	}

	gc := models.GiftCertificate{
		ID:         uuid.New().String(),
		Amount:     amount,
		Recipient:  recipient,
		Color:      color,
		SendDate:   sendDate,
		SenderName: strings.TrimSpace(in.SenderName),
		Message:    strings.TrimSpace(in.Message),
		CreatedAt:  c.now(),
	}

	c.record.GiftCertificates = append(c.record.GiftCertificates, gc)
	c.recompute()
	return &gc, nil
}

// RemoveGiftCertificate deletes a gift certificate
func (c *Cart) RemoveGiftCertificate(id string) error {
	for i := range c.record.GiftCertificates {
		if c.record.GiftCertificates[i].ID != id {
			continue
		}
		c.record.GiftCertificates = append(c.record.GiftCertificates[:i], c.record.GiftCertificates[i+1:]...)
		c.recompute()
		return nil
	}
	return apperr.NotFoundf("gift certificate %s", id)
}

// Clear drops every line
func (c *Cart) Clear() {
	c.record = models.NewCartRecord()
	c.ledger.Rebuild(c.record)
	c.recompute()
}

// Totals returns the totals computed after the last mutation
func (c *Cart) Totals() models.Totals {
	return c.totals
}

// Refresh recomputes totals, for use after catalog prices change
func (c *Cart) Refresh() models.Totals {
	c.recompute()
	return c.totals
}

func (c *Cart) recompute() {
	c.totals = c.ComputeTotals()
}

// ComputeTotals prices the whole cart from scratch. Singles pointing at
// products missing from the catalog are left out.
func (c *Cart) ComputeTotals() models.Totals {
	var t models.Totals

	for _, line := range c.singleLines() {
		t.Subtotal += line.LineValue
		t.Discount += line.Discount
		t.ItemCount += line.Quantity
		if line.FreeUnits > 0 {
			t.Hints = append(t.Hints, fmt.Sprintf("%d offerte(s) sur “%s”", line.FreeUnits, line.Name))
		}
	}

	for _, b := range c.record.Bundles {
		t.Subtotal += b.GrossValue
		t.Discount += b.FreeValue
		t.ItemCount++
		t.Hints = append(t.Hints, fmt.Sprintf("%s (offert %s)", b.Name, util.FormatEUR(b.FreeValue)))
	}

	for _, gc := range c.record.GiftCertificates {
		t.Subtotal += gc.Amount
		t.ItemCount++
		t.Hints = append(t.Hints, fmt.Sprintf("Carte cadeau %s", util.FormatEUR(gc.Amount)))
	}

	t.Total = t.Subtotal - t.Discount
	if t.Total < 0 {
		t.Total = 0
	}
	return t
}

// singleLines prices singles in catalog order
func (c *Cart) singleLines() []models.SingleLine {
	ids := make([]string, 0, len(c.record.Singles))
	for id := range c.record.Singles {
		if _, ok := c.products.Lookup(id); ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return c.products.Position(ids[i]) < c.products.Position(ids[j])
	})

	lines := make([]models.SingleLine, 0, len(ids))
	for _, id := range ids {
		p, _ := c.products.Lookup(id)
		lines = append(lines, pricing.SingleLine(p, c.record.Singles[id]))
	}
	return lines
}

// Snapshot returns the priced cart
func (c *Cart) Snapshot() models.CartSnapshot {
	rec := copyRecord(c.record)
	return models.CartSnapshot{
		Singles:          c.singleLines(),
		Bundles:          rec.Bundles,
		GiftCertificates: rec.GiftCertificates,
		Totals:           c.totals,
	}
}

// Record returns a copy of the persisted shape
func (c *Cart) Record() *models.CartRecord {
	return copyRecord(c.record)
}

func copyRecord(rec *models.CartRecord) *models.CartRecord {
	out := models.NewCartRecord()
	if rec == nil {
		return out
	}
	for id, qty := range rec.Singles {
		out.Singles[id] = qty
	}
	for _, b := range rec.Bundles {
		b.Lines = append([]models.BundleLine(nil), b.Lines...)
		out.Bundles = append(out.Bundles, b)
	}
	out.GiftCertificates = append(out.GiftCertificates, rec.GiftCertificates...)
	return out
}
