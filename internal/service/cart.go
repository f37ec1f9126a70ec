package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"shop-service/internal/models"
	"shop-service/internal/repository"
)

// Caller identifies who is acting on a cart: a signed-in user, or an
// anonymous visitor holding a session token.
type Caller struct {
	UserID       int64
	IsStaff      bool
	SessionToken string
}

func (c Caller) Authenticated() bool {
	return c.UserID > 0
}

type ProductReader interface {
	GetByID(ctx context.Context, id int64) (*models.Product, error)
}

type CartService struct {
	carts    repository.CartRepository
	products ProductReader
	engine   *CheckoutEngine
	logger   *zap.Logger
}

func NewCartService(carts repository.CartRepository, products ProductReader, engine *CheckoutEngine, logger *zap.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		engine:   engine,
		logger:   logger.Named("cart"),
	}
}

// Resolve returns the caller's cart, creating it on first use. Concurrent
// calls for the same owner get the same cart.
func (s *CartService) Resolve(ctx context.Context, caller Caller) (*models.Cart, error) {
	if caller.Authenticated() {
		cart, err := s.carts.GetOrCreateForUser(ctx, caller.UserID)
		if err != nil {
			return nil, fmt.Errorf("resolve cart for user %d: %w", caller.UserID, storeError(err))
		}
		return cart, nil
	}

	if caller.SessionToken == "" {
		return nil, validationError("anonymous caller has no session token")
	}

	cart, err := s.carts.GetOrCreateForSession(ctx, caller.SessionToken)
	if err != nil {
		return nil, fmt.Errorf("resolve session cart: %w", storeError(err))
	}
	return cart, nil
}

func (s *CartService) Snapshot(ctx context.Context, caller Caller) (*models.CartSnapshot, error) {
	cart, err := s.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}
	return s.snapshot(ctx, cart.CartID)
}

func (s *CartService) snapshot(ctx context.Context, cartID int64) (*models.CartSnapshot, error) {
	lines, err := s.carts.Lines(ctx, cartID)
	if err != nil {
		return nil, storeError(err)
	}
	return models.NewCartSnapshot(cartID, lines), nil
}

// AddLine adds quantity units of a product, merging into an existing line.
// The stock check is advisory; checkout re-checks under lock.
func (s *CartService) AddLine(ctx context.Context, caller Caller, productID int64, quantity int) (*models.CartSnapshot, error) {
	if quantity <= 0 {
		return nil, validationError("quantity must be positive, got %d", quantity)
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ProductNotFound(productID)
		}
		return nil, storeError(err)
	}
	if !product.Available || product.Stock < quantity {
		return nil, fmt.Errorf("%w: %s (requested %d, in stock %d)",
			ErrProductUnavailable, product.Name, quantity, product.Stock)
	}

	cart, err := s.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}

	if err := s.carts.AddQuantity(ctx, cart.CartID, productID, quantity); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ProductNotFound(productID)
		}
		return nil, storeError(err)
	}

	s.logger.Debug("cart line added",
		zap.Int64("cart_id", cart.CartID),
		zap.Int64("product_id", productID),
		zap.Int("quantity", quantity))

	return s.snapshot(ctx, cart.CartID)
}

// SetQuantity overwrites a line's quantity; zero or less removes the line.
func (s *CartService) SetQuantity(ctx context.Context, caller Caller, lineID int64, quantity int) (*models.CartSnapshot, error) {
	cart, err := s.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}

	if quantity <= 0 {
		err = s.carts.DeleteLine(ctx, cart.CartID, lineID)
	} else {
		err = s.carts.SetQuantity(ctx, cart.CartID, lineID, quantity)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, LineNotFound(lineID)
		}
		return nil, storeError(err)
	}

	return s.snapshot(ctx, cart.CartID)
}

// RemoveLine is idempotent: removing a line that is not in the cart succeeds.
func (s *CartService) RemoveLine(ctx context.Context, caller Caller, lineID int64) (*models.CartSnapshot, error) {
	cart, err := s.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}

	if err := s.carts.DeleteLine(ctx, cart.CartID, lineID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, storeError(err)
	}

	return s.snapshot(ctx, cart.CartID)
}

func (s *CartService) Clear(ctx context.Context, caller Caller) (*models.CartSnapshot, error) {
	cart, err := s.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}

	if err := s.carts.Clear(ctx, cart.CartID); err != nil {
		return nil, storeError(err)
	}

	return models.NewCartSnapshot(cart.CartID, nil), nil
}

// Checkout turns the caller's cart into an order. Anonymous callers get a
// guest order with no owner.
func (s *CartService) Checkout(ctx context.Context, caller Caller, info models.CustomerInfo) (*models.Order, error) {
	cart, err := s.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}

	var ownerID *int64
	if caller.Authenticated() {
		id := caller.UserID
		ownerID = &id
	}

	return s.engine.Checkout(ctx, cart.CartID, info, ownerID)
}
