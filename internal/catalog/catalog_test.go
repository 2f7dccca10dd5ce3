package catalog

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"shop-service/internal/apperr"
	"shop-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDropsDuplicatesAndKeepsOrder(t *testing.T) {
	c := New([]models.Product{
		{ID: "b", Name: "B"},
		{ID: "a", Name: "A"},
		{ID: "b", Name: "B2"},
		{ID: "", Name: "nameless"},
	})

	require.Equal(t, 2, c.Len())
	assert.Equal(t, "b", c.Products()[0].ID)
	assert.Equal(t, "B", c.Products()[0].Name)
	assert.Equal(t, 1, c.Position("a"))
	assert.Equal(t, -1, c.Position("zzz"))
}

func TestGetUnknownProduct(t *testing.T) {
	c := New(DefaultProducts())

	_, err := c.Get("nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateAppliesRoundedValues(t *testing.T) {
	c := New(DefaultProducts())

	prev, updated, err := c.Update("vanille", ProductUpdate{
		Name:        "  Vanille Bourbon ",
		Price:       19.999,
		Stock:       7.8,
		Description: "Nouvelle recette",
	})
	require.NoError(t, err)

	assert.Equal(t, 12, prev.Stock)
	assert.Equal(t, "Vanille Bourbon", updated.Name)
	assert.Equal(t, int64(2000), updated.Price)
	assert.Equal(t, 7, updated.Stock)

	got, _ := c.Lookup("vanille")
	assert.Equal(t, updated, got)
}

func TestUpdateRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name  string
		upd   ProductUpdate
		field string
	}{
		{"empty name", ProductUpdate{Name: "  ", Price: 1, Stock: 1}, "name"},
		{"negative price", ProductUpdate{Name: "x", Price: -1, Stock: 1}, "price"},
		{"nan price", ProductUpdate{Name: "x", Price: math.NaN(), Stock: 1}, "price"},
		{"negative stock", ProductUpdate{Name: "x", Price: 1, Stock: -2}, "stock"},
		{"inf stock", ProductUpdate{Name: "x", Price: 1, Stock: math.Inf(1)}, "stock"},
		{"price past int64 cents", ProductUpdate{Name: "x", Price: 1e17, Stock: 1}, "price"},
		{"price above max", ProductUpdate{Name: "x", Price: MaxPrice + 0.01, Stock: 1}, "price"},
		{"stock past int", ProductUpdate{Name: "x", Price: 1, Stock: 1e300}, "stock"},
		{"stock above max", ProductUpdate{Name: "x", Price: 1, Stock: MaxStock + 1}, "stock"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := New(DefaultProducts())
			before, _ := c.Lookup("ambre")

			_, _, err := c.Update("ambre", tc.upd)

			var ve *apperr.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)

			after, _ := c.Lookup("ambre")
			assert.Equal(t, before, after)
		})
	}
}

func TestUpdateAcceptsBoundsAndFloorsStock(t *testing.T) {
	c := New(DefaultProducts())

	_, updated, err := c.Update("ambre", ProductUpdate{Name: "Ambre", Price: MaxPrice, Stock: MaxStock})
	require.NoError(t, err)
	assert.Equal(t, int64(MaxPrice*100), updated.Price)
	assert.Equal(t, MaxStock, updated.Stock)

	_, updated, err = c.Update("ambre", ProductUpdate{Name: "Ambre", Price: 21.5, Stock: 2.7})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Stock)
}

func TestParseSeeds(t *testing.T) {
	products, err := ParseSeeds([]byte(`
products:
  - id: vanille
    name: Bougie Vanille
    price: 18.90
    stock: 12
  - id: santal
    name: Bougie Santal
    price: 22.9
    stock: 5
`))
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, int64(1890), products[0].Price)
	assert.Equal(t, int64(2290), products[1].Price)
}

func TestParseSeedsRejectsBadFiles(t *testing.T) {
	_, err := ParseSeeds([]byte("products: ["))
	assert.Error(t, err)

	_, err = ParseSeeds([]byte("products: []"))
	assert.Error(t, err)

	_, err = ParseSeeds([]byte("products:\n  - id: x\n    name: X\n    price: -1\n"))
	assert.Error(t, err)

	_, err = ParseSeeds([]byte("products:\n  - id: x\n    name: X\n    price: 1e17\n"))
	assert.Error(t, err)
}

func TestLoadSeeds(t *testing.T) {
	products, err := LoadSeeds("")
	require.NoError(t, err)
	assert.Equal(t, DefaultProducts(), products)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("products:\n  - id: x\n    name: X\n    price: 1.5\n    stock: 2\n"), 0o600))

	products, err = LoadSeeds(path)
	require.NoError(t, err)
	assert.Equal(t, []models.Product{{ID: "x", Name: "X", Price: 150, Stock: 2}}, products)

	_, err = LoadSeeds(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
