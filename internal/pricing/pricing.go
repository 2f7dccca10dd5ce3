package pricing

import (
	"sort"

	"shop-service/internal/models"
)

// Promotion tiers for single items: every complete group of 5 gets 2 units
// free, then every complete group of 3 in the remainder gets 1 unit free.
const (
	largeGroupSize = 5
	largeGroupFree = 2
	smallGroupSize = 3
	smallGroupFree = 1
)

// ProductLookup resolves products by id
type ProductLookup interface {
	Lookup(id string) (models.Product, bool)
}

// BundleTotals holds the priced figures of a bundle
type BundleTotals struct {
	Gross int64 `json:"gross_value"`
	Free  int64 `json:"free_value"`
	Net   int64 `json:"net_total"`
}

// FreeUnitsForSingles returns the number of free units granted for qty units
// of one product.
func FreeUnitsForSingles(qty int) int {
	if qty <= 0 {
		return 0
	}
	large := qty / largeGroupSize
	small := (qty % largeGroupSize) / smallGroupSize
	return large*largeGroupFree + small*smallGroupFree
}

// FreeUnitsForBundle returns how many of a bundle's cheapest units are free
func FreeUnitsForBundle(size int) int {
	if size == models.BundleSizeLarge {
		return 2
	}
	return 1
}

// ValidBundleSize reports whether size is an offered pack size
func ValidBundleSize(size int) bool {
	return size == models.BundleSizeSmall || size == models.BundleSizeLarge
}

// BundleName returns the display name of a pack
func BundleName(size int) string {
	if size == models.BundleSizeLarge {
		return "Pack 5 (2 offertes)"
	}
	return "Pack 3 (1 offerte)"
}

// SingleLine prices qty units of a product
func SingleLine(product models.Product, qty int) models.SingleLine {
	free := FreeUnitsForSingles(qty)
	return models.SingleLine{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.Price,
		Quantity:  qty,
		FreeUnits: free,
		LineValue: product.Price * int64(qty),
		Discount:  product.Price * int64(free),
	}
}

// BundleDiscount prices a bundle: the k cheapest units of the expanded unit
// list are free. Lines whose product is missing from the catalog are skipped.
func BundleDiscount(lines []models.BundleLine, size int, products ProductLookup) BundleTotals {
	prices, gross := unitPrices(lines, products)

	sort.Slice(prices, func(i, j int) bool { return prices[i] < prices[j] })

	k := FreeUnitsForBundle(size)
	if k > len(prices) {
		k = len(prices)
	}

	var free int64
	for _, p := range prices[:k] {
		free += p
	}

	return BundleTotals{Gross: gross, Free: free, Net: clampZero(gross - free)}
}

// PreviewBundle prices a selection that may still be incomplete. Nothing is
// free until the selection reaches size units.
func PreviewBundle(lines []models.BundleLine, size int, products ProductLookup) BundleTotals {
	units := 0
	for _, l := range lines {
		units += l.Quantity
	}
	if units == size {
		return BundleDiscount(lines, size, products)
	}

	_, gross := unitPrices(lines, products)
	return BundleTotals{Gross: gross, Net: gross}
}

func unitPrices(lines []models.BundleLine, products ProductLookup) ([]int64, int64) {
	prices := make([]int64, 0, len(lines))
	var gross int64

	for _, l := range lines {
		p, ok := products.Lookup(l.ProductID)
		if !ok || l.Quantity <= 0 {
			continue
		}
		for i := 0; i < l.Quantity; i++ {
			prices = append(prices, p.Price)
		}
		gross += p.Price * int64(l.Quantity)
	}

	return prices, gross
}

func clampZero(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
