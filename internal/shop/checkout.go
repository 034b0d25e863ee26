package shop

import (
	"context"
	"errors"
	"log/slog"

	"github.com/matthieukhl/luxe/internal/models"
)

// OrderObserver is told about every committed order.
type OrderObserver interface {
	OrderPlaced(ctx context.Context, order *models.Order)
}

// CheckoutEngine turns cart lines into confirmed orders.
type CheckoutEngine struct {
	store     Store
	logger    *slog.Logger
	observers []OrderObserver
}

func NewCheckoutEngine(store Store, logger *slog.Logger, observers ...OrderObserver) *CheckoutEngine {
	return &CheckoutEngine{store: store, logger: logger, observers: observers}
}

// Checkout converts the user's cart lines into a confirmed order. When itemIDs
// is empty every line is checked out; otherwise only the listed lines are and
// the others stay in the cart.
//
// Every targeted line is validated before anything is written and all
// violations are reported together in a *ValidationError. The order, its
// items, the stock decrements and the removal of the consumed cart lines are
// committed as one transaction; if any of them fails nothing is applied.
func (e *CheckoutEngine) Checkout(ctx context.Context, userID uint, itemIDs []uint) (*models.Order, error) {
	if _, err := e.store.FindCart(ctx, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, newError(ErrEmptyCart, "Your cart is empty.")
		}
		return nil, err
	}

	var order *models.Order
	err := e.store.Atomic(ctx, func(tx Store) error {
		cart, err := tx.GetOrCreateCart(ctx, userID)
		if err != nil {
			return err
		}
		lines, err := tx.ListCartItems(ctx, cart.ID)
		if err != nil {
			return err
		}

		targets, err := selectLines(lines, itemIDs)
		if err != nil {
			return err
		}
		if violations := ValidateLines(targets); len(violations) > 0 {
			return &ValidationError{Violations: violations}
		}

		order, err = placeOrder(ctx, tx, userID, cart.ID, targets)
		return err
	})
	if err != nil {
		e.logger.Info("checkout rejected", "user_id", userID, "error", err)
		return nil, err
	}

	e.logger.Info("order placed",
		"order_id", order.ID,
		"user_id", userID,
		"lines", len(order.Items),
		"total", order.Total.StringFixed(2),
	)
	for _, o := range e.observers {
		o.OrderPlaced(ctx, order)
	}
	return order, nil
}

func selectLines(lines []models.CartItem, itemIDs []uint) ([]models.CartItem, error) {
	if len(lines) == 0 {
		return nil, newError(ErrEmptyCart, "Your cart is empty.")
	}
	if len(itemIDs) == 0 {
		return lines, nil
	}

	wanted := make(map[uint]bool, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = true
	}
	var targets []models.CartItem
	for _, line := range lines {
		if wanted[line.ID] {
			targets = append(targets, line)
		}
	}
	if len(targets) == 0 {
		return nil, newError(ErrNothingSelected, "No items to checkout.")
	}
	return targets, nil
}

// ValidateLines checks every line against its product's current stock and
// returns all violations found. It never mutates anything.
func ValidateLines(lines []models.CartItem) []Violation {
	var violations []Violation
	for _, line := range lines {
		p := line.Product
		v := Violation{ItemID: line.ID, ProductID: line.ProductID, Requested: line.Quantity}
		switch {
		case p == nil:
			v.ProductName = "Unknown product"
			v.Unavailable = true
		case !p.IsAvailable:
			v.ProductName = p.Name
			v.Unavailable = true
		case line.Quantity > p.Stock:
			v.ProductName = p.Name
			v.Available = p.Stock
		default:
			continue
		}
		violations = append(violations, v)
	}
	return violations
}

func placeOrder(ctx context.Context, tx Store, userID, cartID uint, lines []models.CartItem) (*models.Order, error) {
	ledger := NewLedger(tx)
	order := &models.Order{
		UserID: userID,
		Status: models.OrderStatusConfirmed,
		Items:  make([]models.OrderItem, 0, len(lines)),
	}

	consumed := make([]uint, 0, len(lines))
	for _, line := range lines {
		p, err := ledger.Reserve(ctx, line.ProductID, line.Quantity)
		if err != nil {
			return nil, err
		}
		productID := p.ID
		order.Items = append(order.Items, models.OrderItem{
			ProductID: &productID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  line.Quantity,
		})
		consumed = append(consumed, line.ID)
	}
	order.RecalculateTotal()

	if err := tx.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	n, err := tx.DeleteCartItems(ctx, cartID, consumed)
	if err != nil {
		return nil, err
	}
	if n != int64(len(consumed)) {
		return nil, Conflict("Your cart changed during checkout. Please review it and try again.")
	}

	return tx.GetOrder(ctx, order.ID)
}
