package shop_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/matthieukhl/luxe/internal/logging"
	"github.com/matthieukhl/luxe/internal/models"
	"github.com/matthieukhl/luxe/internal/shop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutPlacesConfirmedOrder(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "alice")
	watch := f.product(t, "Watch", "100.00", 5)
	bag := f.product(t, "Bag", "50.50", 3)

	f.add(t, u.ID, watch.ID, 2)
	f.add(t, u.ID, bag.ID, 1)

	order, err := f.engine.Checkout(f.ctx, u.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusConfirmed, order.Status)
	assert.Equal(t, u.ID, order.UserID)
	require.Len(t, order.Items, 2)
	assert.True(t, decimal.RequireFromString("250.50").Equal(order.Total), "total %s", order.Total)

	assert.Equal(t, 3, f.stock(t, watch.ID))
	assert.Equal(t, 2, f.stock(t, bag.ID))

	cart, err := f.carts.View(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, 1, f.observed.count())
}

func TestCheckoutTotalEqualsSumOfSubtotals(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "alice")
	a := f.product(t, "Pen", "19.99", 10)
	b := f.product(t, "Clip", "0.01", 10)

	f.add(t, u.ID, a.ID, 3)
	f.add(t, u.ID, b.ID, 1)

	order, err := f.engine.Checkout(f.ctx, u.ID, nil)
	require.NoError(t, err)

	sum := decimal.Zero
	for i := range order.Items {
		sum = sum.Add(order.Items[i].Subtotal())
	}
	assert.True(t, sum.Equal(order.Total))
	assert.Equal(t, "59.98", order.Total.StringFixed(2))
}

func TestCheckoutIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "alice")
	ok := f.product(t, "Watch", "100", 5)
	short := f.product(t, "Widget", "10", 3)

	f.add(t, u.ID, ok.ID, 2)
	f.add(t, u.ID, short.ID, 3)

	// Stock drops after the line was added.
	_, err := f.catalog.UpdateProduct(f.ctx, short.ID, shop.ProductInput{Stock: ptr(1)})
	require.NoError(t, err)

	order, err := f.engine.Checkout(f.ctx, u.ID, nil)
	require.Nil(t, order)
	require.Error(t, err)
	assert.ErrorIs(t, err, shop.ErrCheckoutValidation)
	assert.ErrorIs(t, err, shop.ErrInsufficientStock)

	var verr *shop.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Violations, 1)
	v := verr.Violations[0]
	assert.Equal(t, short.ID, v.ProductID)
	assert.Equal(t, 3, v.Requested)
	assert.Equal(t, 1, v.Available)
	assert.Equal(t, `"Widget" only has 1 unit(s) in stock, but you requested 3.`, err.Error())

	assert.Equal(t, 5, f.stock(t, ok.ID))
	assert.Equal(t, 1, f.stock(t, short.ID))

	cart, err := f.carts.View(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)

	orders, err := f.orders.ListForUser(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Zero(t, f.observed.count())
}

func TestCheckoutReportsEveryViolation(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "alice")
	gone := f.product(t, "Ring", "10", 2)
	short := f.product(t, "Chain", "10", 4)

	f.add(t, u.ID, gone.ID, 1)
	f.add(t, u.ID, short.ID, 4)

	_, err := f.catalog.UpdateProduct(f.ctx, gone.ID, shop.ProductInput{IsAvailable: ptr(false)})
	require.NoError(t, err)
	_, err = f.catalog.UpdateProduct(f.ctx, short.ID, shop.ProductInput{Stock: ptr(2)})
	require.NoError(t, err)

	_, err = f.engine.Checkout(f.ctx, u.ID, nil)
	var verr *shop.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Violations, 2)

	assert.True(t, verr.Violations[0].Unavailable)
	assert.Equal(t, `"Ring" is no longer available.`, verr.Violations[0].String())
	assert.False(t, verr.Violations[1].Unavailable)
	assert.Equal(t, 2, verr.Violations[1].Available)
	assert.Equal(t,
		`"Ring" is no longer available. "Chain" only has 2 unit(s) in stock, but you requested 4.`,
		verr.Error())
}

func TestCheckoutSelectedLinesOnly(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "alice")
	a := f.product(t, "A", "10", 5)
	b := f.product(t, "B", "20", 5)

	f.add(t, u.ID, a.ID, 1)
	view := f.add(t, u.ID, b.ID, 2)
	require.Len(t, view.Items, 2)
	lineA := view.Items[0]
	require.Equal(t, a.ID, lineA.Product.ID)

	order, err := f.engine.Checkout(f.ctx, u.ID, []uint{lineA.ID})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "A", order.Items[0].Name)
	assert.Equal(t, "10.00", order.Total.StringFixed(2))

	cart, err := f.carts.View(f.ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, b.ID, cart.Items[0].Product.ID)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, 5, f.stock(t, b.ID))
}

func TestCheckoutSelectionMatchingNothing(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "alice")
	p := f.product(t, "A", "10", 5)
	f.add(t, u.ID, p.ID, 1)

	_, err := f.engine.Checkout(f.ctx, u.ID, []uint{9999})
	assert.ErrorIs(t, err, shop.ErrNothingSelected)
	assert.Equal(t, 5, f.stock(t, p.ID))
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "alice")

	_, err := f.engine.Checkout(f.ctx, u.ID, nil)
	assert.ErrorIs(t, err, shop.ErrEmptyCart, "no cart yet")

	_, err = f.carts.View(f.ctx, u.ID)
	require.NoError(t, err)
	_, err = f.engine.Checkout(f.ctx, u.ID, nil)
	assert.ErrorIs(t, err, shop.ErrEmptyCart, "cart exists but has no lines")

	_, err = f.engine.Checkout(f.ctx, u.ID, []uint{1})
	assert.ErrorIs(t, err, shop.ErrEmptyCart, "empty cart wins over selection")
}

func TestCheckoutLastUnitMarksProductUnavailable(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "alice")
	p := f.product(t, "Last", "10", 2)
	f.add(t, u.ID, p.ID, 2)

	_, err := f.engine.Checkout(f.ctx, u.ID, nil)
	require.NoError(t, err)

	got, err := f.store.GetProduct(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Stock)
	assert.False(t, got.IsAvailable)
}

func TestOrderItemsAreSnapshots(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "alice")
	p := f.product(t, "Original", "10.00", 5)
	f.add(t, u.ID, p.ID, 2)

	order, err := f.engine.Checkout(f.ctx, u.ID, nil)
	require.NoError(t, err)

	_, err = f.catalog.UpdateProduct(f.ctx, p.ID, shop.ProductInput{
		Name:  ptr("Renamed"),
		Price: ptr(decimal.NewFromInt(99)),
	})
	require.NoError(t, err)

	got, err := f.orders.Get(f.ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Original", got.Items[0].Name)
	assert.Equal(t, "10.00", got.Items[0].Price.StringFixed(2))
	assert.Equal(t, "20.00", got.Total.StringFixed(2))

	require.NoError(t, f.catalog.DeleteProduct(f.ctx, p.ID))

	got, err = f.orders.Get(f.ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Nil(t, got.Items[0].ProductID)
	assert.Equal(t, "Original", got.Items[0].Name)
}

func TestConcurrentCheckoutOfLastUnit(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Only one", "10", 1)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	f.add(t, alice.ID, p.ID, 1)
	f.add(t, bob.ID, p.ID, 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []uint{alice.ID, bob.ID} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.engine.Checkout(f.ctx, id, nil)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, shop.ErrInsufficientStock)
	}
	assert.Equal(t, 1, succeeded)
	assert.Zero(t, f.stock(t, p.ID))
}

func TestConcurrentCheckoutNeverOversells(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Limited", "10", 5)

	const buyers = 12
	users := make([]*models.User, buyers)
	for i, name := range names(buyers, "buyer") {
		users[i] = f.user(t, name)
		f.add(t, users[i].ID, p.ID, 1)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for _, u := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Checkout(f.ctx, u.ID, nil)
			if err != nil && !errors.Is(err, shop.ErrInsufficientStock) {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Zero(t, f.stock(t, p.ID))

	stats, err := f.orders.Stats(f.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, stats.TotalOrders)
}

func TestValidateLinesDoesNotMutate(t *testing.T) {
	p := &models.Product{ID: 1, Name: "Lamp", Stock: 2, IsAvailable: true}
	lines := []models.CartItem{
		{ID: 10, ProductID: 1, Product: p, Quantity: 2},
		{ID: 11, ProductID: 1, Product: p, Quantity: 3},
		{ID: 12, ProductID: 2, Quantity: 1},
	}

	violations := shop.ValidateLines(lines)
	require.Len(t, violations, 2)
	assert.Equal(t, uint(11), violations[0].ItemID)
	assert.Equal(t, uint(12), violations[1].ItemID)
	assert.True(t, violations[1].Unavailable)
	assert.Equal(t, 2, p.Stock)
}

// faultyStore fails selected writes inside checkout transactions.
type faultyStore struct {
	shop.Store
	deleteErr     error
	refuseProduct uint
}

func (s *faultyStore) Atomic(ctx context.Context, fn func(tx shop.Store) error) error {
	return s.Store.Atomic(ctx, func(tx shop.Store) error {
		return fn(&faultyStore{Store: tx, deleteErr: s.deleteErr, refuseProduct: s.refuseProduct})
	})
}

func (s *faultyStore) ReserveStock(ctx context.Context, productID uint, qty int) (bool, error) {
	if productID == s.refuseProduct {
		return false, nil
	}
	return s.Store.ReserveStock(ctx, productID, qty)
}

func (s *faultyStore) DeleteCartItems(ctx context.Context, cartID uint, ids []uint) (int64, error) {
	if s.deleteErr != nil {
		return 0, s.deleteErr
	}
	return s.Store.DeleteCartItems(ctx, cartID, ids)
}

// assertUntouched checks that a failed checkout left no trace.
func assertUntouched(t *testing.T, f *fixture, userID uint, stock map[uint]int) {
	t.Helper()
	for id, want := range stock {
		p, err := f.store.GetProduct(f.ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, p.Stock)
		assert.True(t, p.IsAvailable)
	}

	cart, err := f.carts.View(f.ctx, userID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, len(stock))

	all, err := f.orders.List(f.ctx, shop.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Zero(t, f.observed.count())
}

func TestCheckoutRollsBackWhenCartCleanupFails(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "alice")
	watch := f.product(t, "Watch", "100", 5)
	last := f.product(t, "Last Bag", "50", 1)
	f.add(t, u.ID, watch.ID, 2)
	f.add(t, u.ID, last.ID, 1)

	boom := errors.New("cart delete failed")
	engine := shop.NewCheckoutEngine(&faultyStore{Store: f.store, deleteErr: boom}, logging.Discard(), f.observed)

	order, err := engine.Checkout(f.ctx, u.ID, nil)
	assert.Nil(t, order)
	require.ErrorIs(t, err, boom)

	assertUntouched(t, f, u.ID, map[uint]int{watch.ID: 5, last.ID: 1})
}

func TestCheckoutRollsBackWhenReservationLosesRace(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "alice")
	watch := f.product(t, "Watch", "100", 5)
	bag := f.product(t, "Bag", "50", 3)
	f.add(t, u.ID, watch.ID, 2)
	f.add(t, u.ID, bag.ID, 1)

	engine := shop.NewCheckoutEngine(&faultyStore{Store: f.store, refuseProduct: bag.ID}, logging.Discard(), f.observed)

	order, err := engine.Checkout(f.ctx, u.ID, nil)
	assert.Nil(t, order)
	require.ErrorIs(t, err, shop.ErrInsufficientStock)
	var serr *shop.StockError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, bag.ID, serr.ProductID)

	assertUntouched(t, f, u.ID, map[uint]int{watch.ID: 5, bag.ID: 3})
}
