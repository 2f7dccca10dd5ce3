package models

import "time"

// Product represents a product in the catalog. Price is in cents and Stock is
// the catalog's total stock; reservations never change it.
type Product struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Price       int64  `json:"price" yaml:"price"`
	Stock       int    `json:"stock" yaml:"stock"`
	Description string `json:"description" yaml:"description"`
	ImageRef    string `json:"image_ref" yaml:"image_ref"`
}

// BundleLine is one product entry of a bundle
type BundleLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Bundle is a committed pack. It is never edited after commit, only removed.
type Bundle struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Size       int          `json:"size"`
	Lines      []BundleLine `json:"lines"`
	GrossValue int64        `json:"gross_value"`
	FreeValue  int64        `json:"free_value"`
	NetTotal   int64        `json:"net_total"`
	CreatedAt  time.Time    `json:"created_at"`
}

// Units returns the number of units held by the bundle
func (b *Bundle) Units() int {
	n := 0
	for _, l := range b.Lines {
		n += l.Quantity
	}
	return n
}

// GiftCertificate represents a stored-value card. It holds no stock.
type GiftCertificate struct {
	ID         string    `json:"id"`
	Amount     int64     `json:"amount"`
	Recipient  string    `json:"recipient"`
	Color      string    `json:"color"`
	SendDate   string    `json:"send_date,omitempty"`
	SenderName string    `json:"sender_name,omitempty"`
	Message    string    `json:"message,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// CartRecord is the persisted shape of a session cart
type CartRecord struct {
	Singles          map[string]int    `json:"singles"`
	Bundles          []Bundle          `json:"bundles"`
	GiftCertificates []GiftCertificate `json:"gift_certificates"`
}

// NewCartRecord returns an empty cart record
func NewCartRecord() *CartRecord {
	return &CartRecord{
		Singles:          map[string]int{},
		Bundles:          []Bundle{},
		GiftCertificates: []GiftCertificate{},
	}
}

// Totals are recomputed from scratch after every cart mutation
type Totals struct {
	Subtotal  int64    `json:"subtotal"`
	Discount  int64    `json:"discount"`
	Total     int64    `json:"total"`
	ItemCount int      `json:"item_count"`
	Hints     []string `json:"hints,omitempty"`
}

// SingleLine is the priced view of a single reservation
type SingleLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	FreeUnits int    `json:"free_units"`
	LineValue int64  `json:"line_value"`
	Discount  int64  `json:"discount"`
}

// CartSnapshot is what the display layer reads back after a mutation
type CartSnapshot struct {
	Singles          []SingleLine      `json:"singles"`
	Bundles          []Bundle          `json:"bundles"`
	GiftCertificates []GiftCertificate `json:"gift_certificates"`
	Totals           Totals            `json:"totals"`
}

// Availability is the ledger view of one product
type Availability struct {
	ProductID     string `json:"product_id"`
	Stock         int    `json:"stock"`
	Reserved      int    `json:"reserved"`
	Available     int    `json:"available"`
	ForBundle     int    `json:"available_for_bundle"`
	InBundleDraft int    `json:"in_bundle_draft"`
}

// Review is a shopper review of a product
type Review struct {
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text,omitempty"`
	Timestamp time.Time `json:"ts"`
}

// RatingSummary aggregates the reviews of one product
type RatingSummary struct {
	ProductID string  `json:"product_id"`
	Average   float64 `json:"average"`
	Count     int     `json:"count"`
}

// Gift certificate defaults
const (
	DefaultGiftColor = "violet"
)

// Bundle sizes
const (
	BundleSizeSmall = 3
	BundleSizeLarge = 5
)
