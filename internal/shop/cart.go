package shop

import (
	"context"
	"errors"
	"time"

	"github.com/matthieukhl/luxe/internal/models"
	"github.com/shopspring/decimal"
)

// CartLine is a cart item as shown to its owner.
type CartLine struct {
	ID       uint            `json:"id"`
	Product  *models.Product `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
	AddedAt  time.Time       `json:"added_at"`
}

// CartView is the full post-mutation state of a cart.
type CartView struct {
	ID        uint            `json:"id"`
	Items     []CartLine      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

// CartService mutates carts, validating every change against current stock.
// Each call runs in its own transaction with the cart row locked, so writes
// to one cart are serialised.
type CartService struct {
	store Store
	now   func() time.Time
}

func NewCartService(store Store) *CartService {
	return &CartService{store: store, now: time.Now}
}

// View returns the user's cart, creating it on first access.
func (s *CartService) View(ctx context.Context, userID uint) (*CartView, error) {
	var view *CartView
	err := s.store.Atomic(ctx, func(tx Store) error {
		cart, err := tx.GetOrCreateCart(ctx, userID)
		if err != nil {
			return err
		}
		view, err = buildCartView(ctx, tx, cart)
		return err
	})
	return view, err
}

// AddItem puts qty units of a product in the cart, merging with an existing
// line for the same product. The merged quantity may not exceed stock.
func (s *CartService) AddItem(ctx context.Context, userID, productID uint, qty int) (*CartView, error) {
	if qty < 1 {
		return nil, newError(ErrInvalidInput, "Quantity must be at least 1.")
	}

	var view *CartView
	err := s.store.Atomic(ctx, func(tx Store) error {
		p, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if !p.IsAvailable {
			return NotFound("Product")
		}
		if qty > p.Stock {
			return newError(ErrStockExceeded, "Only %d unit(s) available in stock.", p.Stock)
		}

		cart, err := tx.GetOrCreateCart(ctx, userID)
		if err != nil {
			return err
		}

		item, err := tx.FindCartItemByProduct(ctx, cart.ID, p.ID)
		switch {
		case errors.Is(err, ErrNotFound):
			item = &models.CartItem{CartID: cart.ID, ProductID: p.ID, Quantity: qty}
		case err != nil:
			return err
		default:
			if item.Quantity+qty > p.Stock {
				return newError(ErrStockExceeded,
					"You already have %d in your cart. Cannot add %d more, only %d in stock (%d more available).",
					item.Quantity, qty, p.Stock, max(p.Stock-item.Quantity, 0))
			}
			item.Quantity += qty
		}
		item.AddedAt = s.now()

		if err := tx.SaveCartItem(ctx, item); err != nil {
			return err
		}
		view, err = buildCartView(ctx, tx, cart)
		return err
	})
	return view, err
}

// UpdateItem sets the quantity of one of the user's cart lines.
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID uint, qty int) (*CartView, error) {
	if qty < 1 {
		return nil, newError(ErrInvalidInput, "Quantity must be at least 1.")
	}

	var view *CartView
	err := s.store.Atomic(ctx, func(tx Store) error {
		cart, err := tx.GetOrCreateCart(ctx, userID)
		if err != nil {
			return err
		}
		item, err := tx.GetCartItem(ctx, cart.ID, itemID)
		if err != nil {
			return err
		}
		if qty > item.Product.Stock {
			return newError(ErrStockExceeded, "Only %d unit(s) available in stock.", item.Product.Stock)
		}

		item.Quantity = qty
		if err := tx.SaveCartItem(ctx, item); err != nil {
			return err
		}
		view, err = buildCartView(ctx, tx, cart)
		return err
	})
	return view, err
}

// RemoveItem deletes one line of the user's cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uint) (*CartView, error) {
	var view *CartView
	err := s.store.Atomic(ctx, func(tx Store) error {
		cart, err := tx.GetOrCreateCart(ctx, userID)
		if err != nil {
			return err
		}
		n, err := tx.DeleteCartItems(ctx, cart.ID, []uint{itemID})
		if err != nil {
			return err
		}
		if n == 0 {
			return NotFound("Cart item")
		}
		view, err = buildCartView(ctx, tx, cart)
		return err
	})
	return view, err
}

// Clear empties the cart. Clearing an empty cart is not an error.
func (s *CartService) Clear(ctx context.Context, userID uint) (*CartView, error) {
	var view *CartView
	err := s.store.Atomic(ctx, func(tx Store) error {
		cart, err := tx.GetOrCreateCart(ctx, userID)
		if err != nil {
			return err
		}
		if _, err := tx.DeleteCartItems(ctx, cart.ID, nil); err != nil {
			return err
		}
		view, err = buildCartView(ctx, tx, cart)
		return err
	})
	return view, err
}

func buildCartView(ctx context.Context, store Store, cart *models.Cart) (*CartView, error) {
	items, err := store.ListCartItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}

	view := &CartView{ID: cart.ID, Items: make([]CartLine, 0, len(items)), Total: decimal.Zero}
	for i := range items {
		item := &items[i]
		sub := item.Subtotal()
		view.Items = append(view.Items, CartLine{
			ID:       item.ID,
			Product:  item.Product,
			Quantity: item.Quantity,
			Subtotal: sub,
			AddedAt:  item.AddedAt,
		})
		view.Total = view.Total.Add(sub)
		view.ItemCount += item.Quantity
	}
	return view, nil
}
