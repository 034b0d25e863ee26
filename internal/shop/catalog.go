package shop

import (
	"context"
	"strings"
	"unicode"

	"github.com/matthieukhl/luxe/internal/models"
	"github.com/shopspring/decimal"
)

// ProductInput carries product fields to write. Nil fields are left unchanged;
// a nil ImageURLs keeps the gallery, a non-nil one replaces it. A CategoryID
// pointing at zero detaches the product from its category.
type ProductInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	ImageURL    *string
	ImageURLs   []string
	CategoryID  *uint
	Stock       *int
	IsAvailable *bool
}

// Catalog manages products and categories.
type Catalog struct {
	store Store
}

func NewCatalog(store Store) *Catalog {
	return &Catalog{store: store}
}

// ListProducts lists products matching f. Unknown orderings fall back to newest first.
func (c *Catalog) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return nil, newError(ErrInvalidInput, "min_price cannot exceed max_price.")
	}
	if _, ok := ProductOrderings[f.Ordering]; !ok {
		f.Ordering = "-created_at"
	}
	f.Search = strings.TrimSpace(f.Search)
	return c.store.ListProducts(ctx, f)
}

// GetProduct returns a product. Unless includeUnavailable is set, products
// that cannot be bought are reported as missing.
func (c *Catalog) GetProduct(ctx context.Context, id uint, includeUnavailable bool) (*models.Product, error) {
	p, err := c.store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !includeUnavailable && !p.IsAvailable {
		return nil, NotFound("Product")
	}
	return p, nil
}

func (c *Catalog) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if in.Name == nil {
		return nil, newError(ErrInvalidInput, "Name is required.")
	}
	if in.Price == nil {
		return nil, newError(ErrInvalidInput, "Price is required.")
	}

	var created *models.Product
	err := c.store.Atomic(ctx, func(tx Store) error {
		p := &models.Product{IsAvailable: true}
		if err := applyProductInput(ctx, tx, p, in); err != nil {
			return err
		}
		for i, url := range in.ImageURLs {
			p.Images = append(p.Images, models.ProductImage{URL: url, Position: i})
		}
		if err := tx.CreateProduct(ctx, p); err != nil {
			return err
		}
		var err error
		created, err = tx.GetProduct(ctx, p.ID)
		return err
	})
	return created, err
}

func (c *Catalog) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	var updated *models.Product
	err := c.store.Atomic(ctx, func(tx Store) error {
		p, err := tx.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		if err := applyProductInput(ctx, tx, p, in); err != nil {
			return err
		}
		if err := tx.UpdateProduct(ctx, p); err != nil {
			return err
		}
		if in.ImageURLs != nil {
			if err := tx.ReplaceProductImages(ctx, p.ID, in.ImageURLs); err != nil {
				return err
			}
		}
		updated, err = tx.GetProduct(ctx, p.ID)
		return err
	})
	return updated, err
}

// DeleteProduct removes a product. Cart lines holding it go with it; order
// items keep their snapshot and lose the product reference.
func (c *Catalog) DeleteProduct(ctx context.Context, id uint) error {
	return c.store.DeleteProduct(ctx, id)
}

func applyProductInput(ctx context.Context, tx Store, p *models.Product, in ProductInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return newError(ErrInvalidInput, "Name is required.")
		}
		p.Name = name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return newError(ErrInvalidInput, "Price cannot be negative.")
		}
		p.Price = in.Price.Round(2)
	}
	if in.ImageURL != nil {
		p.ImageURL = *in.ImageURL
	}
	if in.CategoryID != nil {
		if *in.CategoryID == 0 {
			p.CategoryID = nil
			p.Category = nil
		} else {
			cat, err := tx.GetCategory(ctx, *in.CategoryID)
			if err != nil {
				return err
			}
			p.CategoryID = &cat.ID
			p.Category = cat
		}
	}
	if in.Stock != nil {
		if *in.Stock < 0 {
			return newError(ErrInvalidInput, "Stock cannot be negative.")
		}
		p.Stock = *in.Stock
	}
	if in.IsAvailable != nil {
		p.IsAvailable = *in.IsAvailable
	}
	p.SyncAvailability()
	return nil
}

func (c *Catalog) ListCategories(ctx context.Context) ([]models.Category, error) {
	return c.store.ListCategories(ctx)
}

// CreateCategory adds a category. An empty slug is derived from the name.
func (c *Catalog) CreateCategory(ctx context.Context, name, slug string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newError(ErrInvalidInput, "Name is required.")
	}
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" {
		return nil, newError(ErrInvalidInput, "Slug is required.")
	}

	cat := &models.Category{Name: name, Slug: slug}
	if err := c.store.CreateCategory(ctx, cat); err != nil {
		return nil, err
	}
	return cat, nil
}

// DeleteCategory removes a category; its products become uncategorised.
func (c *Catalog) DeleteCategory(ctx context.Context, id uint) error {
	return c.store.DeleteCategory(ctx, id)
}

// Slugify lowercases s and joins its alphanumeric runs with hyphens.
func Slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
