package database

import (
	"context"
	"errors"
	"testing"

	"github.com/matthieukhl/luxe/internal/models"
	"github.com/matthieukhl/luxe/internal/shop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMemory(t *testing.T) (*MemoryStore, *models.User, *models.Product) {
	t.Helper()
	ctx := context.Background()
	s := NewMemoryStore()

	u := &models.User{Username: "alice", PasswordHash: "x", IsActive: true}
	require.NoError(t, s.CreateUser(ctx, u))

	p := &models.Product{Name: "Watch", Price: decimal.NewFromInt(10), Stock: 3, IsAvailable: true}
	require.NoError(t, s.CreateProduct(ctx, p))
	return s, u, p
}

func TestMemoryAtomicRollsBack(t *testing.T) {
	ctx := context.Background()
	s, _, p := seedMemory(t)
	boom := errors.New("boom")

	err := s.Atomic(ctx, func(tx shop.Store) error {
		ok, err := tx.ReserveStock(ctx, p.ID, 2)
		require.NoError(t, err)
		require.True(t, ok)

		got, err := tx.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Stock, "writes are visible inside the transaction")
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)
}

func TestMemoryNestedAtomicJoinsOuter(t *testing.T) {
	ctx := context.Background()
	s, _, p := seedMemory(t)

	err := s.Atomic(ctx, func(tx shop.Store) error {
		return tx.Atomic(ctx, func(inner shop.Store) error {
			_, err := inner.ReserveStock(ctx, p.ID, 1)
			return err
		})
	})
	require.NoError(t, err)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stock)
}

func TestMemoryAtomicHonoursCancelledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.Atomic(ctx, func(shop.Store) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestMemoryReserveStockGuard(t *testing.T) {
	ctx := context.Background()
	s, _, p := seedMemory(t)

	ok, err := s.ReserveStock(ctx, p.ID, 4)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.ReserveStock(ctx, p.ID, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Stock)
	assert.False(t, got.IsAvailable)

	ok, err = s.ReserveStock(ctx, 999, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryUniqueConstraints(t *testing.T) {
	ctx := context.Background()
	s, u, p := seedMemory(t)

	err := s.CreateUser(ctx, &models.User{Username: "alice"})
	assert.ErrorIs(t, err, shop.ErrConflict)

	require.NoError(t, s.CreateCategory(ctx, &models.Category{Name: "Bags", Slug: "bags"}))
	assert.ErrorIs(t, s.CreateCategory(ctx, &models.Category{Name: "Other", Slug: "bags"}), shop.ErrConflict)

	cart, err := s.GetOrCreateCart(ctx, u.ID)
	require.NoError(t, err)
	again, err := s.GetOrCreateCart(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, again.ID)

	require.NoError(t, s.SaveCartItem(ctx, &models.CartItem{CartID: cart.ID, ProductID: p.ID, Quantity: 1}))
	err = s.SaveCartItem(ctx, &models.CartItem{CartID: cart.ID, ProductID: p.ID, Quantity: 2})
	assert.ErrorIs(t, err, shop.ErrConflict)
}

func TestMemoryDeleteUserCascades(t *testing.T) {
	ctx := context.Background()
	s, u, p := seedMemory(t)

	cart, err := s.GetOrCreateCart(ctx, u.ID)
	require.NoError(t, err)
	require.NoError(t, s.SaveCartItem(ctx, &models.CartItem{CartID: cart.ID, ProductID: p.ID, Quantity: 1}))
	o := &models.Order{UserID: u.ID, Status: models.OrderStatusConfirmed, Items: []models.OrderItem{
		{ProductID: &p.ID, Name: p.Name, Price: p.Price, Quantity: 1},
	}}
	require.NoError(t, s.CreateOrder(ctx, o))

	require.NoError(t, s.DeleteUser(ctx, u.ID))

	_, err = s.FindCart(ctx, u.ID)
	assert.ErrorIs(t, err, shop.ErrNotFound)
	_, err = s.GetOrder(ctx, o.ID)
	assert.ErrorIs(t, err, shop.ErrNotFound)

	items, err := s.ListCartItems(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMemoryDeleteCartItems(t *testing.T) {
	ctx := context.Background()
	s, u, p := seedMemory(t)
	other := &models.Product{Name: "Bag", Price: decimal.NewFromInt(5), Stock: 2, IsAvailable: true}
	require.NoError(t, s.CreateProduct(ctx, other))

	cart, err := s.GetOrCreateCart(ctx, u.ID)
	require.NoError(t, err)
	a := &models.CartItem{CartID: cart.ID, ProductID: p.ID, Quantity: 1}
	b := &models.CartItem{CartID: cart.ID, ProductID: other.ID, Quantity: 1}
	require.NoError(t, s.SaveCartItem(ctx, a))
	require.NoError(t, s.SaveCartItem(ctx, b))

	n, err := s.DeleteCartItems(ctx, cart.ID, []uint{})
	require.NoError(t, err)
	assert.Zero(t, n, "an empty id list removes nothing")

	n, err = s.DeleteCartItems(ctx, cart.ID, []uint{a.ID, 999})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = s.DeleteCartItems(ctx, cart.ID, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestMemoryReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	s, _, p := seedMemory(t)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	got.Stock = 100

	again, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, again.Stock)
}

func TestMemoryHealthCheck(t *testing.T) {
	assert.NoError(t, NewMemoryStore().HealthCheck(context.Background()))
}
