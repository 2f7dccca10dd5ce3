package catalog

import (
	"fmt"
	"os"

	"shop-service/internal/models"

	"gopkg.in/yaml.v3"
)

// seedFile is the YAML layout of a catalog seed file
type seedFile struct {
	Products []seedProduct `yaml:"products"`
}

type seedProduct struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Price       float64 `yaml:"price"`
	Stock       int     `yaml:"stock"`
	Description string  `yaml:"description"`
	Image       string  `yaml:"image"`
}

// DefaultProducts returns the built-in seed catalog
func DefaultProducts() []models.Product {
	return []models.Product{
		{ID: "vanille", Name: "Bougie Vanille", Price: 1890, Stock: 12, Description: "Douce, chaleureuse, ultra cocooning.", ImageRef: "assets/vanille.jpg"},
		{ID: "ambre", Name: "Bougie Ambre", Price: 2150, Stock: 9, Description: "Ambrée et élégante, vibe hôtel.", ImageRef: "assets/ambre.jpg"},
		{ID: "figue", Name: "Bougie Figue", Price: 2000, Stock: 7, Description: "Fruité chic, parfait salon.", ImageRef: "assets/figue.jpg"},
		{ID: "coton", Name: "Bougie Coton", Price: 1750, Stock: 15, Description: "Propre et légère, effet linge frais.", ImageRef: "assets/coton.jpg"},
		{ID: "santal", Name: "Bougie Santal", Price: 2290, Stock: 5, Description: "Boisé premium, très apaisant.", ImageRef: "assets/santal.jpg"},
	}
}

// LoadSeeds reads a YAML seed catalog. An empty path yields the built-in
// defaults.
func LoadSeeds(path string) ([]models.Product, error) {
	if path == "" {
		return DefaultProducts(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed catalog: %w", err)
	}

	return ParseSeeds(data)
}

// ParseSeeds decodes a YAML seed catalog
func ParseSeeds(data []byte) ([]models.Product, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed catalog: %w", err)
	}
	if len(f.Products) == 0 {
		return nil, fmt.Errorf("seed catalog has no products")
	}

	products := make([]models.Product, 0, len(f.Products))
	for i, sp := range f.Products {
		if sp.ID == "" || sp.Name == "" {
			return nil, fmt.Errorf("seed product %d: id and name are required", i)
		}
		if !inRange(sp.Price, MaxPrice) || sp.Stock < 0 || sp.Stock > MaxStock {
			return nil, fmt.Errorf("seed product %s: price and stock out of range", sp.ID)
		}
		products = append(products, models.Product{
			ID:          sp.ID,
			Name:        sp.Name,
			Price:       ToCents(sp.Price),
			Stock:       sp.Stock,
			Description: sp.Description,
			ImageRef:    sp.Image,
		})
	}

	return products, nil
}
