package shop

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// SeedProduct is one catalog entry installed by Seed.
type SeedProduct struct {
	Category    string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	ImageURL    string
}

// DefaultCatalog is the demo assortment.
var DefaultCatalog = []SeedProduct{
	{
		Category:    "Watches",
		Name:        "Royal Chronograph",
		Description: "Swiss precision with timeless craftsmanship.",
		Price:       decimal.NewFromInt(125000),
		Stock:       10,
		ImageURL:    "https://images.unsplash.com/photo-1523170335258-f5ed11844a49",
	},
	{
		Category:    "Bags",
		Name:        "Signature Leather Bag",
		Description: "Handcrafted Italian elegance.",
		Price:       decimal.NewFromInt(98000),
		Stock:       7,
		ImageURL:    "https://images.unsplash.com/photo-1584917865442-de89df76afd3",
	},
	{
		Category:    "Jewellery",
		Name:        "Minimal Gold Bracelet",
		Description: "Understated luxury for modern style.",
		Price:       decimal.NewFromInt(45000),
		Stock:       15,
		ImageURL:    "https://images.unsplash.com/photo-1617038220319-276d3cfab638",
	},
}

// Seed installs entries, creating missing categories. Products whose name
// already exists are skipped, so seeding twice is harmless. It returns the
// number of products created.
func (c *Catalog) Seed(ctx context.Context, entries []SeedProduct) (int, error) {
	existing, err := c.store.ListProducts(ctx, ProductFilter{IncludeUnavailable: true})
	if err != nil {
		return 0, err
	}
	names := make(map[string]bool, len(existing))
	for _, p := range existing {
		names[p.Name] = true
	}

	created := 0
	for _, e := range entries {
		if names[e.Name] {
			continue
		}

		cat, err := c.store.GetCategoryByName(ctx, e.Category)
		if errors.Is(err, ErrNotFound) {
			cat, err = c.CreateCategory(ctx, e.Category, "")
		}
		if err != nil {
			return created, err
		}

		name, desc, url := e.Name, e.Description, e.ImageURL
		price, stock := e.Price, e.Stock
		_, err = c.CreateProduct(ctx, ProductInput{
			Name:        &name,
			Description: &desc,
			Price:       &price,
			ImageURL:    &url,
			CategoryID:  &cat.ID,
			Stock:       &stock,
		})
		if err != nil {
			return created, err
		}
		names[e.Name] = true
		created++
	}
	return created, nil
}
