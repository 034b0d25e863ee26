package shop

import (
	"context"
	"fmt"

	"github.com/matthieukhl/luxe/internal/models"
)

// Ledger owns the available quantity of every product.
type Ledger struct {
	store Store
}

// NewLedger binds a ledger to a store. Pass the transaction-scoped store to
// make reservations part of a larger atomic unit.
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Reserve atomically takes qty units of a product and returns the product as
// it stands after the decrement. It fails with a *StockError when the product
// is unavailable or holds fewer than qty units; concurrent reservations never
// take more units than exist.
func (l *Ledger) Reserve(ctx context.Context, productID uint, qty int) (*models.Product, error) {
	if qty < 1 {
		return nil, newError(ErrInvalidInput, "Quantity must be at least 1.")
	}

	ok, err := l.store.ReserveStock(ctx, productID, qty)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve stock: %w", err)
	}

	p, err := l.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &StockError{
			ProductID: p.ID,
			Name:      p.Name,
			Requested: qty,
			Available: Available(p),
		}
	}
	return p, nil
}

// Available is the number of units a buyer can currently take.
func Available(p *models.Product) int {
	if !p.IsAvailable {
		return 0
	}
	return p.Stock
}
