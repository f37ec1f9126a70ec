package service

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"shop-service/internal/models"
	"shop-service/internal/repository"
)

type memLine struct {
	id        int64
	cartID    int64
	productID int64
	qty       int
	added     time.Time
}

type memEvent struct {
	topic string
	key   string
}

// memStore keeps catalog, carts and orders in memory. WithinTx holds the
// store lock for the whole callback and restores a snapshot on error.
type memStore struct {
	mu         sync.Mutex
	nextID     int64
	products   map[int64]models.Product
	carts      []models.Cart
	lines      []memLine
	orders     []models.Order
	orderLines []models.OrderLine
	movements  []models.StockMovement
	events     []memEvent

	failCreateOrder error
}

type memState struct {
	products   map[int64]models.Product
	carts      []models.Cart
	lines      []memLine
	orders     []models.Order
	orderLines []models.OrderLine
	movements  []models.StockMovement
	events     []memEvent
}

var (
	_ CheckoutStore             = (*memStore)(nil)
	_ repository.CartRepository = (*memStore)(nil)
	_ ProductReader             = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{products: map[int64]models.Product{}}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) addProduct(name, price string, stock int) models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := models.Product{
		ProductID: s.id(),
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
		Available: true,
	}
	s.products[p.ProductID] = p
	return p
}

func (s *memStore) setPrice(id int64, price string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.products[id]
	p.Price = decimal.RequireFromString(price)
	s.products[id] = p
}

func (s *memStore) stock(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Stock
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *memStore) save() memState {
	products := make(map[int64]models.Product, len(s.products))
	for k, v := range s.products {
		products[k] = v
	}
	return memState{
		products:   products,
		carts:      slices.Clone(s.carts),
		lines:      slices.Clone(s.lines),
		orders:     slices.Clone(s.orders),
		orderLines: slices.Clone(s.orderLines),
		movements:  slices.Clone(s.movements),
		events:     slices.Clone(s.events),
	}
}

func (s *memStore) restore(st memState) {
	s.products = st.products
	s.carts = st.carts
	s.lines = st.lines
	s.orders = st.orders
	s.orderLines = st.orderLines
	s.movements = st.movements
	s.events = st.events
}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.CheckoutTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.save()
	if err := fn(ctx, memTx{s}); err != nil {
		s.restore(st)
		return err
	}
	return nil
}

func (s *memStore) cartExists(cartID int64) bool {
	for _, c := range s.carts {
		if c.CartID == cartID {
			return true
		}
	}
	return false
}

func (s *memStore) cartLines(cartID int64) []models.CartLine {
	var out []models.CartLine
	for _, l := range s.lines {
		if l.cartID != cartID {
			continue
		}
		p := s.products[l.productID]
		out = append(out, models.CartLine{
			LineID:   l.id,
			CartID:   l.cartID,
			Product:  p.Ref(),
			Quantity: l.qty,
			AddedAt:  l.added,
		})
	}
	return out
}

// CartRepository

func (s *memStore) GetOrCreateForUser(_ context.Context, userID int64) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.carts {
		if c.UserID != nil && *c.UserID == userID {
			return &c, nil
		}
	}
	c := models.Cart{CartID: s.id(), UserID: &userID, CreatedAt: time.Now()}
	s.carts = append(s.carts, c)
	return &c, nil
}

func (s *memStore) GetOrCreateForSession(_ context.Context, token string) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.carts {
		if c.SessionToken != nil && *c.SessionToken == token {
			return &c, nil
		}
	}
	c := models.Cart{CartID: s.id(), SessionToken: &token, CreatedAt: time.Now()}
	s.carts = append(s.carts, c)
	return &c, nil
}

func (s *memStore) Lines(_ context.Context, cartID int64) ([]models.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartLines(cartID), nil
}

func (s *memStore) AddQuantity(_ context.Context, cartID, productID int64, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[productID]; !ok {
		return repository.ErrProductNotFound
	}
	for i := range s.lines {
		if s.lines[i].cartID == cartID && s.lines[i].productID == productID {
			s.lines[i].qty += quantity
			return nil
		}
	}
	s.lines = append(s.lines, memLine{id: s.id(), cartID: cartID, productID: productID, qty: quantity, added: time.Now()})
	return nil
}

func (s *memStore) SetQuantity(_ context.Context, cartID, lineID int64, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].cartID == cartID && s.lines[i].id == lineID {
			s.lines[i].qty = quantity
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *memStore) DeleteLine(_ context.Context, cartID, lineID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].cartID == cartID && s.lines[i].id == lineID {
			s.lines = slices.Delete(s.lines, i, i+1)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *memStore) Clear(_ context.Context, cartID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear(cartID)
	return nil
}

func (s *memStore) clear(cartID int64) {
	s.lines = slices.DeleteFunc(s.lines, func(l memLine) bool { return l.cartID == cartID })
}

// ProductReader

func (s *memStore) GetByID(_ context.Context, id int64) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

// memTx runs with the store lock already held.
type memTx struct {
	s *memStore
}

func (t memTx) LockCartLines(_ context.Context, cartID int64) ([]models.CartLine, error) {
	if !t.s.cartExists(cartID) {
		return nil, fmt.Errorf("cart %d: %w", cartID, repository.ErrNotFound)
	}
	lines := t.s.cartLines(cartID)
	sort.Slice(lines, func(i, j int) bool { return lines[i].Product.ProductID < lines[j].Product.ProductID })
	return lines, nil
}

func (t memTx) CreateOrder(_ context.Context, order *models.Order) error {
	if t.s.failCreateOrder != nil {
		return t.s.failCreateOrder
	}
	order.OrderID = t.s.id()
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	t.s.orders = append(t.s.orders, *order)
	return nil
}

func (t memTx) CreateOrderLine(_ context.Context, line *models.OrderLine) error {
	line.OrderLineID = t.s.id()
	t.s.orderLines = append(t.s.orderLines, *line)
	return nil
}

func (t memTx) DecrementStock(_ context.Context, productID int64, quantity int) error {
	p, ok := t.s.products[productID]
	if !ok {
		return repository.ErrProductNotFound
	}
	if p.Stock < quantity {
		return fmt.Errorf("product %d: %w", productID, repository.ErrNotEnough)
	}
	p.Stock -= quantity
	t.s.products[productID] = p
	return nil
}

func (t memTx) RecordMovement(_ context.Context, movement *models.StockMovement) error {
	movement.MovementID = t.s.id()
	t.s.movements = append(t.s.movements, *movement)
	return nil
}

func (t memTx) ClearCart(_ context.Context, cartID int64) error {
	t.s.clear(cartID)
	return nil
}

func (t memTx) EnqueueEvent(_ context.Context, topic, key string, _ any) error {
	t.s.events = append(t.s.events, memEvent{topic: topic, key: key})
	return nil
}
