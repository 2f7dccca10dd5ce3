package catalog

import (
	"fmt"
	"math"
	"strings"

	"shop-service/internal/apperr"
	"shop-service/internal/models"
)

// Catalog holds the ordered product list. It is the only owner of total
// stock figures; reservations are tracked elsewhere.
type Catalog struct {
	products []models.Product
	index    map[string]int
}

// Admin edit bounds. Price is in currency units.
const (
	MaxPrice = 1_000_000
	MaxStock = 1_000_000
)

// ProductUpdate carries the admin-editable fields of a product
type ProductUpdate struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Stock       float64 `json:"stock"`
	Description string  `json:"description"`
}

// Validate checks the edit without touching any product. Fractional stock is
// accepted and floored by Update.
func (u ProductUpdate) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return apperr.NewValidation("name", "must not be empty")
	}
	if !inRange(u.Price, MaxPrice) {
		return apperr.NewValidation("price", fmt.Sprintf("must be a number between 0 and %d", MaxPrice))
	}
	if !inRange(u.Stock, MaxStock) {
		return apperr.NewValidation("stock", fmt.Sprintf("must be a number between 0 and %d", MaxStock))
	}
	return nil
}

// StockUnits returns the whole units of a validated stock figure
func (u ProductUpdate) StockUnits() int {
	return int(math.Floor(u.Stock))
}

func inRange(v, max float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= max
}

// New creates a catalog from an ordered product list. Later duplicates of an
// id are dropped.
func New(products []models.Product) *Catalog {
	c := &Catalog{}
	c.Replace(products)
	return c
}

// Replace swaps the whole product list
func (c *Catalog) Replace(products []models.Product) {
	c.products = make([]models.Product, 0, len(products))
	c.index = make(map[string]int, len(products))

	for _, p := range products {
		if p.ID == "" {
			continue
		}
		if _, dup := c.index[p.ID]; dup {
			continue
		}
		c.index[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
}

// Lookup returns a product by id
func (c *Catalog) Lookup(id string) (models.Product, bool) {
	i, ok := c.index[id]
	if !ok {
		return models.Product{}, false
	}
	return c.products[i], true
}

// Get returns a product by id or a not found error
func (c *Catalog) Get(id string) (models.Product, error) {
	p, ok := c.Lookup(id)
	if !ok {
		return models.Product{}, apperr.NotFoundf("product %s", id)
	}
	return p, nil
}

// Products returns a copy of the products in catalog order
func (c *Catalog) Products() []models.Product {
	out := make([]models.Product, len(c.products))
	copy(out, c.products)
	return out
}

// Len returns the number of products
func (c *Catalog) Len() int {
	return len(c.products)
}

// Position returns the catalog order of a product, or -1
func (c *Catalog) Position(id string) int {
	i, ok := c.index[id]
	if !ok {
		return -1
	}
	return i
}

// Update validates and applies an admin edit. On a validation error the
// product is left untouched. The previous version is returned.
func (c *Catalog) Update(id string, upd ProductUpdate) (previous, updated models.Product, err error) {
	i, ok := c.index[id]
	if !ok {
		return models.Product{}, models.Product{}, apperr.NotFoundf("product %s", id)
	}

	if err := upd.Validate(); err != nil {
		return models.Product{}, models.Product{}, err
	}

	previous = c.products[i]
	updated = previous
	updated.Name = strings.TrimSpace(upd.Name)
	updated.Price = ToCents(upd.Price)
	updated.Stock = upd.StockUnits()
	updated.Description = strings.TrimSpace(upd.Description)

	c.products[i] = updated
	return previous, updated, nil
}

// ToCents converts a decimal currency amount to cents
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Set replaces an existing product in place, keeping its position
func (c *Catalog) Set(p models.Product) bool {
	i, ok := c.index[p.ID]
	if !ok {
		return false
	}
	c.products[i] = p
	return true
}
