package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups products. Deleting a category leaves its products uncategorised.
type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Slug string `gorm:"size:100;uniqueIndex;not null" json:"slug"`
}

// Product is a catalog entry with its authoritative stock count.
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:200;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	ImageURL    string          `gorm:"size:512" json:"image_url"`
	CategoryID  *uint           `gorm:"index" json:"-"`
	Category    *Category       `gorm:"constraint:OnDelete:SET NULL" json:"category"`
	Images      []ProductImage  `gorm:"constraint:OnDelete:CASCADE" json:"images"`
	Stock       int             `gorm:"not null;check:stock >= 0" json:"stock"`
	IsAvailable bool            `gorm:"not null" json:"is_available"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProductImage is one entry of a product's ordered gallery.
type ProductImage struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ProductID uint   `gorm:"index;not null" json:"-"`
	URL       string `gorm:"size:512;not null" json:"url"`
	Position  int    `gorm:"not null" json:"order"`
}

// SyncAvailability marks the product unavailable once it runs out of stock.
func (p *Product) SyncAvailability() {
	if p.Stock == 0 {
		p.IsAvailable = false
	}
}

// PrimaryImage returns the first gallery image, falling back to ImageURL.
func (p *Product) PrimaryImage() string {
	if len(p.Images) > 0 {
		return p.Images[0].URL
	}
	return p.ImageURL
}
