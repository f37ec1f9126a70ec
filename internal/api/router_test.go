package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shop-service/internal/api/handlers"
	"shop-service/internal/metrics"
	"shop-service/internal/models"
	"shop-service/internal/repository"
	"shop-service/internal/service"
)

type stubUsers struct {
	handlers.UserService
	tokens map[string]models.User
}

func (s *stubUsers) Authenticate(_ context.Context, token string) (*models.User, error) {
	u, ok := s.tokens[token]
	if !ok {
		return nil, service.ErrUnauthorized
	}
	return &u, nil
}

type stubCarts struct {
	handlers.CartService
	lastCaller   service.Caller
	lastQuantity int
	checkout   func(info models.CustomerInfo) (*models.Order, error)
}

func (s *stubCarts) Snapshot(_ context.Context, caller service.Caller) (*models.CartSnapshot, error) {
	s.lastCaller = caller
	return models.NewCartSnapshot(1, nil), nil
}

func (s *stubCarts) AddLine(_ context.Context, caller service.Caller, productID int64, quantity int) (*models.CartSnapshot, error) {
	s.lastCaller = caller
	line := models.CartLine{
		LineID:   1,
		Product:  models.ProductRef{ProductID: productID, Price: decimal.RequireFromString("10.00")},
		Quantity: quantity,
	}
	return models.NewCartSnapshot(1, []models.CartLine{line}), nil
}

func (s *stubCarts) SetQuantity(_ context.Context, caller service.Caller, lineID int64, quantity int) (*models.CartSnapshot, error) {
	s.lastCaller = caller
	s.lastQuantity = quantity
	return models.NewCartSnapshot(1, nil), nil
}

func (s *stubCarts) Checkout(_ context.Context, caller service.Caller, info models.CustomerInfo) (*models.Order, error) {
	s.lastCaller = caller
	return s.checkout(info)
}

type stubOrders struct {
	handlers.OrderService
}

func (stubOrders) Statistics(context.Context) (*models.OrderStatistics, error) {
	return &models.OrderStatistics{TotalOrders: 3}, nil
}

type stubProducts struct {
	repository.ProductRepository
}

func (stubProducts) GetBySlug(_ context.Context, slug string) (*models.Product, error) {
	if slug != "red-rose" {
		return nil, repository.ErrNotFound
	}
	return &models.Product{ProductID: 3, Name: "Red Rose", Slug: slug}, nil
}

func newTestRouter(carts *stubCarts) http.Handler {
	users := &stubUsers{tokens: map[string]models.User{
		"customer": {UserID: 5},
		"staff":    {UserID: 9, IsStaff: true},
	}}
	return NewRouter(Deps{
		Products: stubProducts{},
		Carts:    carts,
		Orders:   stubOrders{},
		Users:    users,
		Metrics:  metrics.New(),
		Logger:   zap.NewNop(),
	})
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	rec := do(t, newTestRouter(&stubCarts{}), http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_AnonymousCartGetsSession(t *testing.T) {
	carts := &stubCarts{}
	h := newTestRouter(carts)

	rec := do(t, h, http.MethodGet, "/cart", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	token := rec.Header().Get(handlers.CartSessionHeader)
	assert.NotEmpty(t, token)
	assert.Equal(t, token, carts.lastCaller.SessionToken)
	assert.False(t, carts.lastCaller.Authenticated())

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set(handlers.CartSessionHeader, token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, token, carts.lastCaller.SessionToken)
}

func TestRouter_AuthenticatedCart(t *testing.T) {
	carts := &stubCarts{}
	rec := do(t, newTestRouter(carts), http.MethodPost, "/cart/add", "customer", map[string]any{"product_id": 4})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, int64(5), carts.lastCaller.UserID)
	assert.Empty(t, rec.Header().Get(handlers.CartSessionHeader))

	var snap models.CartSnapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, 1, snap.Lines[0].Quantity)
	assert.Equal(t, 1, snap.LineCount)
}

func TestRouter_SetQuantityDefaultsToOne(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"omitted", map[string]any{"line_id": 5}, 1},
		{"explicit", map[string]any{"line_id": 5, "quantity": 4}, 4},
		{"zero removes", map[string]any{"line_id": 5, "quantity": 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			carts := &stubCarts{lastQuantity: -1}
			rec := do(t, newTestRouter(carts), http.MethodPost, "/cart/set-quantity", "", tt.body)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, carts.lastQuantity)
		})
	}
}

func TestRouter_OversizedCartSessionRejected(t *testing.T) {
	carts := &stubCarts{}
	h := newTestRouter(carts)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set(handlers.CartSessionHeader, strings.Repeat("x", 65))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, carts.lastCaller.SessionToken)

	token := strings.Repeat("x", 64)
	req = httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set(handlers.CartSessionHeader, token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, token, carts.lastCaller.SessionToken)
}

func TestRouter_ProductBySlug(t *testing.T) {
	h := newTestRouter(&stubCarts{})

	rec := do(t, h, http.MethodGet, "/products/slug/red-rose", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var product models.Product
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&product))
	assert.Equal(t, int64(3), product.ProductID)
	assert.Equal(t, "red-rose", product.Slug)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/products/slug/missing", "", nil).Code)
}

func TestRouter_BadTokenRejected(t *testing.T) {
	rec := do(t, newTestRouter(&stubCarts{}), http.MethodGet, "/cart", "nope", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_CheckoutCreated(t *testing.T) {
	carts := &stubCarts{checkout: func(info models.CustomerInfo) (*models.Order, error) {
		return &models.Order{OrderID: 77, Customer: info, Status: models.StatusPending}, nil
	}}
	body := map[string]string{
		"full_name": "Ada", "email": "ada@example.com", "phone": "1",
		"address": "Street 1", "city": "London",
	}

	rec := do(t, newTestRouter(carts), http.MethodPost, "/cart/checkout", "", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp handlers.CheckoutResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(77), resp.OrderID)
}

func TestRouter_CheckoutFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"empty", service.ErrEmptyCart, http.StatusBadRequest},
		{"missing", &service.MissingFieldError{Field: "email"}, http.StatusBadRequest},
		{"stock", &service.InsufficientStockError{ProductID: 1, Requested: 4}, http.StatusConflict},
		{"product gone", service.ProductNotFound(1), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			carts := &stubCarts{checkout: func(models.CustomerInfo) (*models.Order, error) { return nil, tt.err }}
			rec := do(t, newTestRouter(carts), http.MethodPost, "/cart/checkout", "", map[string]string{})
			assert.Equal(t, tt.status, rec.Code)

			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.NotEmpty(t, body["detail"])
		})
	}
}

func TestRouter_StaffRoutes(t *testing.T) {
	h := newTestRouter(&stubCarts{})

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/orders/statistics", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodGet, "/orders/statistics", "customer", nil).Code)
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodDelete, "/products/1", "customer", nil).Code)

	rec := do(t, h, http.MethodGet, "/orders/statistics", "staff", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_orders":3`)
}

func TestRouter_MetricsExposed(t *testing.T) {
	h := newTestRouter(&stubCarts{})
	do(t, h, http.MethodGet, "/health", "", nil)

	rec := do(t, h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `shop_http_requests_total{route="/health",status="200"}`)
}
