package shop

import (
	"context"
	"time"

	"github.com/matthieukhl/luxe/internal/models"
	"github.com/shopspring/decimal"
)

// Store is the persistence contract the core depends on.
//
// Lookups of missing rows return an error matching ErrNotFound and unique
// constraint violations return an error matching ErrConflict. Loaded products
// carry their Category and Images; loaded cart items carry their Product;
// loaded orders carry their Items and User.
type Store interface {
	// Atomic runs fn inside one all-or-nothing transaction. The Store passed to
	// fn must be used for every operation that belongs to the transaction.
	// A nested call joins the enclosing transaction.
	Atomic(ctx context.Context, fn func(tx Store) error) error

	GetProduct(ctx context.Context, id uint) (*models.Product, error)
	ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p *models.Product) error
	ReplaceProductImages(ctx context.Context, productID uint, urls []string) error
	DeleteProduct(ctx context.Context, id uint) error

	// ReserveStock decrements stock by qty only if the product is available
	// and holds at least qty units, and clears availability when stock hits
	// zero. It reports false when the guard rejected the decrement.
	ReserveStock(ctx context.Context, productID uint, qty int) (bool, error)

	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id uint) (*models.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*models.Category, error)
	CreateCategory(ctx context.Context, c *models.Category) error
	DeleteCategory(ctx context.Context, id uint) error

	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context, search string) ([]models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id uint) error

	FindCart(ctx context.Context, userID uint) (*models.Cart, error)
	// GetOrCreateCart returns the user's cart, creating it when absent. Inside
	// a transaction the cart row stays locked until commit.
	GetOrCreateCart(ctx context.Context, userID uint) (*models.Cart, error)
	ListCartItems(ctx context.Context, cartID uint) ([]models.CartItem, error)
	GetCartItem(ctx context.Context, cartID, itemID uint) (*models.CartItem, error)
	FindCartItemByProduct(ctx context.Context, cartID, productID uint) (*models.CartItem, error)
	SaveCartItem(ctx context.Context, item *models.CartItem) error
	// DeleteCartItems removes the given lines of a cart, or every line when
	// ids is nil, and returns the number of rows removed.
	DeleteCartItems(ctx context.Context, cartID uint, ids []uint) (int64, error)

	CreateOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, id uint) (*models.Order, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, id uint, status models.OrderStatus) error

	Stats(ctx context.Context) (*Stats, error)
}

// ProductFilter narrows a product listing. Zero values disable a criterion.
type ProductFilter struct {
	Search             string
	CategorySlug       string
	MinPrice           *decimal.Decimal
	MaxPrice           *decimal.Decimal
	Ordering           string
	IncludeUnavailable bool
}

// ProductOrderings maps accepted ordering keys to their sort column and direction.
var ProductOrderings = map[string]string{
	"price":       "price ASC",
	"-price":      "price DESC",
	"created_at":  "created_at ASC",
	"-created_at": "created_at DESC",
	"name":        "name ASC",
	"-name":       "name DESC",
}

// OrderFilter narrows an order listing. Zero values disable a criterion.
type OrderFilter struct {
	UserID uint
	Status models.OrderStatus
	// User matches a case-insensitive substring of the owner's username.
	User string
	// Search matches a case-insensitive substring of the owner's username or email.
	Search string
	// From and To bound created_at to [From, To).
	From *time.Time
	To   *time.Time
}

// Stats summarises the store for the admin dashboard.
type Stats struct {
	TotalUsers    int64           `json:"total_users"`
	TotalProducts int64           `json:"total_products"`
	TotalOrders   int64           `json:"total_orders"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
}
