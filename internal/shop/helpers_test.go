package shop_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/matthieukhl/luxe/internal/auth"
	"github.com/matthieukhl/luxe/internal/database"
	"github.com/matthieukhl/luxe/internal/logging"
	"github.com/matthieukhl/luxe/internal/models"
	"github.com/matthieukhl/luxe/internal/shop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	ctx      context.Context
	store    *database.MemoryStore
	catalog  *shop.Catalog
	carts    *shop.CartService
	engine   *shop.CheckoutEngine
	orders   *shop.OrderService
	accounts *shop.Accounts
	observed *recorder
}

// recorder is an OrderObserver that remembers what it was told.
type recorder struct {
	mu     sync.Mutex
	orders []*models.Order
}

func (r *recorder) OrderPlaced(_ context.Context, o *models.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, o)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := database.NewMemoryStore()
	rec := &recorder{}
	return &fixture{
		ctx:      context.Background(),
		store:    store,
		catalog:  shop.NewCatalog(store),
		carts:    shop.NewCartService(store),
		engine:   shop.NewCheckoutEngine(store, logging.Discard(), rec),
		orders:   shop.NewOrderService(store),
		accounts: shop.NewAccounts(store, auth.NewBcrypt(4)),
		observed: rec,
	}
}

func (f *fixture) user(t *testing.T, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, f.store.CreateUser(f.ctx, u))
	return u
}

func (f *fixture) product(t *testing.T, name, price string, stock int) *models.Product {
	t.Helper()
	p, err := f.catalog.CreateProduct(f.ctx, shop.ProductInput{
		Name:  &name,
		Price: ptr(decimal.RequireFromString(price)),
		Stock: &stock,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) stock(t *testing.T, productID uint) int {
	t.Helper()
	p, err := f.store.GetProduct(f.ctx, productID)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) add(t *testing.T, userID, productID uint, qty int) *shop.CartView {
	t.Helper()
	view, err := f.carts.AddItem(f.ctx, userID, productID, qty)
	require.NoError(t, err)
	return view
}

func ptr[T any](v T) *T { return &v }

func names(n int, prefix string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return out
}
