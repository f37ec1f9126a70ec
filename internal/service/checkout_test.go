package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shop-service/internal/models"
)

func validCustomer() models.CustomerInfo {
	return models.CustomerInfo{
		FullName: "Ada Lovelace",
		Email:    "ada@example.com",
		Phone:    "+44 20 0000 0000",
		Address:  "12 St James's Square",
		City:     "London",
	}
}

type checkoutFixture struct {
	store   *memStore
	carts   *CartService
	engine  *CheckoutEngine
	mu      sync.Mutex
	results []string
}

func newCheckoutFixture(t *testing.T, opts ...CheckoutOption) *checkoutFixture {
	t.Helper()

	f := &checkoutFixture{store: newMemStore()}
	opts = append(opts, WithOutcomeRecorder(func(result string) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.results = append(f.results, result)
	}))
	f.engine = NewCheckoutEngine(f.store, zap.NewNop(), opts...)
	f.carts = NewCartService(f.store, f.store, f.engine, zap.NewNop())
	return f
}

func TestCheckout_CreatesOneLinePerCartLine(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	caller := Caller{UserID: 7}

	rose := f.store.addProduct("Rose", "10.00", 5)
	tulip := f.store.addProduct("Tulip", "2.50", 10)

	_, err := f.carts.AddLine(ctx, caller, rose.ProductID, 2)
	require.NoError(t, err)
	_, err = f.carts.AddLine(ctx, caller, tulip.ProductID, 3)
	require.NoError(t, err)

	order, err := f.carts.Checkout(ctx, caller, validCustomer())
	require.NoError(t, err)

	require.Len(t, order.Lines, 2)
	assert.Equal(t, models.StatusPending, order.Status)
	require.NotNil(t, order.UserID)
	assert.Equal(t, int64(7), *order.UserID)

	sum := decimal.Zero
	for _, l := range order.Lines {
		sum = sum.Add(l.LineTotal())
	}
	assert.True(t, order.TotalAmount.Equal(sum))
	assert.Equal(t, "27.50", order.TotalAmount.StringFixed(2))

	assert.Equal(t, 3, f.store.stock(rose.ProductID))
	assert.Equal(t, 7, f.store.stock(tulip.ProductID))
	assert.Equal(t, []string{"success"}, f.results)
}

func TestCheckout_EmptiesButKeepsCart(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	caller := Caller{SessionToken: "guest-1"}

	p := f.store.addProduct("Rose", "10.00", 5)
	before, err := f.carts.AddLine(ctx, caller, p.ProductID, 1)
	require.NoError(t, err)

	order, err := f.carts.Checkout(ctx, caller, validCustomer())
	require.NoError(t, err)
	assert.Nil(t, order.UserID)

	after, err := f.carts.Snapshot(ctx, caller)
	require.NoError(t, err)
	assert.Equal(t, before.CartID, after.CartID)
	assert.Empty(t, after.Lines)
	assert.Equal(t, 0, after.LineCount)
	assert.True(t, after.Total.IsZero())
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	_, err := f.carts.Checkout(ctx, Caller{UserID: 1}, validCustomer())
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, 0, f.store.orderCount())
	assert.Equal(t, []string{"empty_cart"}, f.results)
}

func TestCheckout_EmptyCartReportedBeforeMissingFields(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.carts.Checkout(context.Background(), Caller{UserID: 1}, models.CustomerInfo{})
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckout_MissingFieldReportsFirstInOrder(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*models.CustomerInfo)
		field string
	}{
		{"full name", func(i *models.CustomerInfo) { i.FullName = "" }, "full_name"},
		{"email and phone", func(i *models.CustomerInfo) { i.Email = ""; i.Phone = "" }, "email"},
		{"whitespace phone", func(i *models.CustomerInfo) { i.Phone = "   " }, "phone"},
		{"city only", func(i *models.CustomerInfo) { i.City = "" }, "city"},
		{"address before bad email", func(i *models.CustomerInfo) { i.Email = "nope"; i.Address = "" }, "address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture(t)
			ctx := context.Background()
			caller := Caller{UserID: 1}

			p := f.store.addProduct("Rose", "10.00", 5)
			_, err := f.carts.AddLine(ctx, caller, p.ProductID, 1)
			require.NoError(t, err)

			info := validCustomer()
			tt.edit(&info)

			_, err = f.carts.Checkout(ctx, caller, info)
			require.ErrorIs(t, err, ErrValidation)

			var missing *MissingFieldError
			require.True(t, errors.As(err, &missing))
			assert.Equal(t, tt.field, missing.Field)

			assert.Equal(t, 5, f.store.stock(p.ProductID))
			assert.Equal(t, 0, f.store.orderCount())
		})
	}
}

func TestCheckout_InvalidEmail(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	caller := Caller{UserID: 1}

	p := f.store.addProduct("Rose", "10.00", 5)
	_, err := f.carts.AddLine(ctx, caller, p.ProductID, 1)
	require.NoError(t, err)

	info := validCustomer()
	info.Email = "not-an-email"

	_, err = f.carts.Checkout(ctx, caller, info)
	require.ErrorIs(t, err, ErrValidation)

	var missing *MissingFieldError
	assert.False(t, errors.As(err, &missing))
}

func TestCheckout_FreezesPrices(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	caller := Caller{UserID: 1}

	p := f.store.addProduct("Rose", "10.00", 5)
	_, err := f.carts.AddLine(ctx, caller, p.ProductID, 2)
	require.NoError(t, err)

	f.store.setPrice(p.ProductID, "12.00")
	snap, err := f.carts.Snapshot(ctx, caller)
	require.NoError(t, err)
	assert.Equal(t, "24.00", snap.Total.StringFixed(2))

	order, err := f.carts.Checkout(ctx, caller, validCustomer())
	require.NoError(t, err)

	f.store.setPrice(p.ProductID, "99.00")

	assert.Equal(t, "12.00", order.Lines[0].CapturedPrice.StringFixed(2))
	assert.Equal(t, "24.00", order.TotalAmount.StringFixed(2))
	assert.Equal(t, "Rose", order.Lines[0].ProductName)
}

// Product stock 5 at 10.00; cart A holds 3 units and cart B holds 4. A checks
// out first, then B must fail and leave stock at 2.
func TestCheckout_InsufficientStockLeavesNoTrace(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	a := Caller{UserID: 1}
	b := Caller{SessionToken: "guest-b"}

	p := f.store.addProduct("Rose", "10.00", 5)
	_, err := f.carts.AddLine(ctx, a, p.ProductID, 3)
	require.NoError(t, err)
	_, err = f.carts.AddLine(ctx, b, p.ProductID, 4)
	require.NoError(t, err)

	orderA, err := f.carts.Checkout(ctx, a, validCustomer())
	require.NoError(t, err)
	assert.Equal(t, "30.00", orderA.TotalAmount.StringFixed(2))
	assert.Equal(t, 2, f.store.stock(p.ProductID))

	_, err = f.carts.Checkout(ctx, b, validCustomer())
	require.ErrorIs(t, err, ErrInsufficientStock)

	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, p.ProductID, stockErr.ProductID)
	assert.Equal(t, 4, stockErr.Requested)

	assert.Equal(t, 2, f.store.stock(p.ProductID))
	assert.Equal(t, 1, f.store.orderCount())

	snap, err := f.carts.Snapshot(ctx, b)
	require.NoError(t, err)
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, 4, snap.Lines[0].Quantity)
	assert.Equal(t, []string{"success", "insufficient_stock"}, f.results)
}

func TestCheckout_RollsBackEarlierLines(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	caller := Caller{UserID: 1}

	plenty := f.store.addProduct("Rose", "10.00", 10)
	scarce := f.store.addProduct("Orchid", "30.00", 5)

	_, err := f.carts.AddLine(ctx, caller, plenty.ProductID, 4)
	require.NoError(t, err)
	_, err = f.carts.AddLine(ctx, caller, scarce.ProductID, 3)
	require.NoError(t, err)

	_, err = f.carts.SetQuantity(ctx, caller, lineFor(t, f, caller, scarce.ProductID), 6)
	require.NoError(t, err)

	_, err = f.carts.Checkout(ctx, caller, validCustomer())
	require.ErrorIs(t, err, ErrInsufficientStock)

	assert.Equal(t, 10, f.store.stock(plenty.ProductID))
	assert.Equal(t, 5, f.store.stock(scarce.ProductID))
	assert.Equal(t, 0, f.store.orderCount())
	assert.Empty(t, f.store.movements)

	snap, err := f.carts.Snapshot(ctx, caller)
	require.NoError(t, err)
	assert.Len(t, snap.Lines, 2)
}

func TestCheckout_StoreFailureRollsBack(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	caller := Caller{UserID: 1}

	p := f.store.addProduct("Rose", "10.00", 5)
	_, err := f.carts.AddLine(ctx, caller, p.ProductID, 1)
	require.NoError(t, err)

	f.store.failCreateOrder = errors.New("connection reset")

	_, err = f.carts.Checkout(ctx, caller, validCustomer())
	require.Error(t, err)
	assert.False(t, hasKind(err))
	assert.Equal(t, []string{"error"}, f.results)

	snap, err := f.carts.Snapshot(ctx, caller)
	require.NoError(t, err)
	assert.Len(t, snap.Lines, 1)
}

func TestCheckout_RecordsMovementsAndEvent(t *testing.T) {
	var hooked []int64
	f := newCheckoutFixture(t,
		WithOrderEvents("orders"),
		WithCommitHook(func(_ context.Context, o *models.Order) { hooked = append(hooked, o.OrderID) }),
	)
	ctx := context.Background()
	caller := Caller{UserID: 1}

	p := f.store.addProduct("Rose", "10.00", 5)
	_, err := f.carts.AddLine(ctx, caller, p.ProductID, 2)
	require.NoError(t, err)

	order, err := f.carts.Checkout(ctx, caller, validCustomer())
	require.NoError(t, err)

	require.Len(t, f.store.movements, 1)
	mv := f.store.movements[0]
	assert.Equal(t, models.MovementOutgoing, mv.Type)
	assert.Equal(t, -2, mv.ChangeQuant)
	require.NotNil(t, mv.OrderID)
	assert.Equal(t, order.OrderID, *mv.OrderID)

	require.Len(t, f.store.events, 1)
	assert.Equal(t, "orders", f.store.events[0].topic)
	assert.Equal(t, []int64{order.OrderID}, hooked)
}

func TestCheckout_ConcurrentCheckoutsNeverOversell(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	p := f.store.addProduct("Rose", "10.00", 5)
	const buyers = 8
	for i := 1; i <= buyers; i++ {
		_, err := f.carts.AddLine(ctx, Caller{UserID: int64(i)}, p.ProductID, 1)
		require.NoError(t, err)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 1; i <= buyers; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := f.carts.Checkout(ctx, Caller{UserID: id}, validCustomer())
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(int64(i))
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 0, f.store.stock(p.ProductID))
}

func lineFor(t *testing.T, f *checkoutFixture, caller Caller, productID int64) int64 {
	t.Helper()

	snap, err := f.carts.Snapshot(context.Background(), caller)
	require.NoError(t, err)
	for _, l := range snap.Lines {
		if l.Product.ProductID == productID {
			return l.LineID
		}
	}
	t.Fatalf("no line for product %d", productID)
	return 0
}
