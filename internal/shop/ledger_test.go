package shop_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/matthieukhl/luxe/internal/shop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserve(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Watch", "10", 3)
	ledger := shop.NewLedger(f.store)

	got, err := ledger.Reserve(f.ctx, p.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stock)
	assert.True(t, got.IsAvailable)

	_, err = ledger.Reserve(f.ctx, p.ID, 2)
	require.ErrorIs(t, err, shop.ErrInsufficientStock)
	var serr *shop.StockError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "Watch", serr.Name)
	assert.Equal(t, 2, serr.Requested)
	assert.Equal(t, 1, serr.Available)

	got, err = ledger.Reserve(f.ctx, p.ID, 1)
	require.NoError(t, err)
	assert.Zero(t, got.Stock)
	assert.False(t, got.IsAvailable)
}

func TestReserveRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Watch", "10", 3)
	ledger := shop.NewLedger(f.store)

	_, err := ledger.Reserve(f.ctx, p.ID, 0)
	assert.ErrorIs(t, err, shop.ErrInvalidInput)

	_, err = ledger.Reserve(f.ctx, 999, 1)
	assert.ErrorIs(t, err, shop.ErrNotFound)
}

func TestReserveUnavailableProduct(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Hidden", "10", 3)
	_, err := f.catalog.UpdateProduct(f.ctx, p.ID, shop.ProductInput{IsAvailable: ptr(false)})
	require.NoError(t, err)

	_, err = shop.NewLedger(f.store).Reserve(f.ctx, p.ID, 1)
	var serr *shop.StockError
	require.ErrorAs(t, err, &serr)
	assert.Zero(t, serr.Available)
	assert.Equal(t, 3, f.stock(t, p.ID))
}

func TestReserveConcurrently(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Watch", "10", 50)
	ledger := shop.NewLedger(f.store)

	var (
		wg       sync.WaitGroup
		reserved atomic.Int64
	)
	for range 80 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.Reserve(f.ctx, p.ID, 1); err == nil {
				reserved.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 50, reserved.Load())
	assert.Zero(t, f.stock(t, p.ID))
}

func TestReserveRollsBackWithTransaction(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "A", "10", 2)
	b := f.product(t, "B", "10", 1)

	err := f.store.Atomic(f.ctx, func(tx shop.Store) error {
		ledger := shop.NewLedger(tx)
		if _, err := ledger.Reserve(f.ctx, a.ID, 2); err != nil {
			return err
		}
		_, err := ledger.Reserve(f.ctx, b.ID, 2)
		return err
	})
	require.ErrorIs(t, err, shop.ErrInsufficientStock)

	assert.Equal(t, 2, f.stock(t, a.ID))
	assert.Equal(t, 1, f.stock(t, b.ID))
}

func TestAvailable(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A", "10", 4)
	assert.Equal(t, 4, shop.Available(p))

	p.IsAvailable = false
	assert.Zero(t, shop.Available(p))
}
