package shop

import (
	"context"
	"strings"
	"time"

	"github.com/matthieukhl/luxe/internal/models"
	"github.com/shopspring/decimal"
)

// OrderLine is an order item as presented to clients.
type OrderLine struct {
	ID        uint            `json:"id"`
	ProductID *uint           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// OrderView is an order flattened with its owner's identity.
type OrderView struct {
	ID        uint               `json:"id"`
	Username  string             `json:"username"`
	Email     string             `json:"email"`
	Status    models.OrderStatus `json:"status"`
	Total     decimal.Decimal    `json:"total"`
	Items     []OrderLine        `json:"items"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func ViewOrder(o *models.Order) *OrderView {
	v := &OrderView{
		ID:        o.ID,
		Status:    o.Status,
		Total:     o.Total,
		Items:     make([]OrderLine, 0, len(o.Items)),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	if o.User != nil {
		v.Username = o.User.Username
		v.Email = o.User.Email
	}
	for i := range o.Items {
		it := &o.Items[i]
		v.Items = append(v.Items, OrderLine{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Subtotal:  it.Subtotal(),
		})
	}
	return v
}

func ViewOrders(orders []models.Order) []*OrderView {
	views := make([]*OrderView, len(orders))
	for i := range orders {
		views[i] = ViewOrder(&orders[i])
	}
	return views
}

// OrderService reads order history and applies administrative status changes.
type OrderService struct {
	store Store
}

func NewOrderService(store Store) *OrderService {
	return &OrderService{store: store}
}

// ListForUser returns the user's own orders, newest first.
func (s *OrderService) ListForUser(ctx context.Context, userID uint) ([]models.Order, error) {
	return s.store.ListOrders(ctx, OrderFilter{UserID: userID})
}

// List returns every order matching f, newest first.
func (s *OrderService) List(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, newError(ErrInvalidInput, "Unknown order status %q.", f.Status)
	}
	f.User = strings.TrimSpace(f.User)
	f.Search = strings.TrimSpace(f.Search)
	return s.store.ListOrders(ctx, f)
}

func (s *OrderService) Get(ctx context.Context, id uint) (*models.Order, error) {
	return s.store.GetOrder(ctx, id)
}

// UpdateStatus moves an order to any of the enumerated statuses. Stock is not
// released when an order is cancelled.
func (s *OrderService) UpdateStatus(ctx context.Context, id uint, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, newError(ErrInvalidInput, "Unknown order status %q.", status)
	}

	var order *models.Order
	err := s.store.Atomic(ctx, func(tx Store) error {
		if err := tx.UpdateOrderStatus(ctx, id, status); err != nil {
			return err
		}
		var err error
		order, err = tx.GetOrder(ctx, id)
		return err
	})
	return order, err
}

func (s *OrderService) Stats(ctx context.Context) (*Stats, error) {
	return s.store.Stats(ctx)
}
