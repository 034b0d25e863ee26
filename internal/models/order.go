package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every accepted status.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// RevenueStatuses are the statuses counted as revenue.
var RevenueStatuses = []OrderStatus{
	OrderStatusConfirmed,
	OrderStatusShipped,
	OrderStatusDelivered,
}

// Valid reports whether s is one of the enumerated statuses.
func (s OrderStatus) Valid() bool {
	for _, st := range OrderStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// Order is an immutable purchase record; only Status changes after creation.
type Order struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    uint            `gorm:"index;not null" json:"-"`
	User      *User           `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Status    OrderStatus     `gorm:"size:20;not null;index" json:"status"`
	Total     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	Items     []OrderItem     `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// OrderItem snapshots a product's name and price at purchase time.
// ProductID becomes nil when the product is deleted; the snapshot survives.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"index;not null" json:"-"`
	ProductID *uint           `gorm:"index" json:"product_id"`
	Product   *Product        `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	Name      string          `gorm:"size:200;not null" json:"name"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Quantity  int             `gorm:"not null" json:"quantity"`
}

func (oi *OrderItem) Subtotal() decimal.Decimal {
	return oi.Price.Mul(decimal.NewFromInt(int64(oi.Quantity)))
}

// RecalculateTotal sets Total to the sum of item subtotals.
func (o *Order) RecalculateTotal() {
	total := decimal.Zero
	for i := range o.Items {
		total = total.Add(o.Items[i].Subtotal())
	}
	o.Total = total
}
