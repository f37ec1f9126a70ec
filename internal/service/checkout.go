package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"shop-service/internal/events"
	"shop-service/internal/models"
	"shop-service/internal/repository"
)

type CheckoutStore interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.CheckoutTx) error) error
}

// CommitHook runs after a checkout transaction has committed.
type CommitHook func(ctx context.Context, order *models.Order)

type CheckoutOption func(*CheckoutEngine)

// WithOrderEvents enqueues an order.created event on topic in the same
// transaction as the order.
func WithOrderEvents(topic string) CheckoutOption {
	return func(e *CheckoutEngine) { e.topic = topic }
}

func WithCommitHook(hook CommitHook) CheckoutOption {
	return func(e *CheckoutEngine) { e.hooks = append(e.hooks, hook) }
}

// WithOutcomeRecorder receives "success" or the failure kind of every checkout.
func WithOutcomeRecorder(record func(outcome string)) CheckoutOption {
	return func(e *CheckoutEngine) { e.record = record }
}

// CheckoutEngine converts a cart into an order. Stock is decremented with a
// guard, so a checkout that would take stock below zero fails with
// ErrInsufficientStock and leaves nothing behind.
type CheckoutEngine struct {
	store  CheckoutStore
	logger *zap.Logger
	topic  string
	hooks  []CommitHook
	record func(outcome string)
}

func NewCheckoutEngine(store CheckoutStore, logger *zap.Logger, opts ...CheckoutOption) *CheckoutEngine {
	e := &CheckoutEngine{
		store:  store,
		logger: logger.Named("checkout"),
		record: func(string) {},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Checkout creates one order from every line of the cart. ownerID is nil for
// guest checkouts.
func (e *CheckoutEngine) Checkout(ctx context.Context, cartID int64, info models.CustomerInfo, ownerID *int64) (*models.Order, error) {
	info = normalizeCustomerInfo(info)

	var order *models.Order
	err := e.store.WithinTx(ctx, func(ctx context.Context, tx repository.CheckoutTx) error {
		lines, err := tx.LockCartLines(ctx, cartID)
		if err != nil {
			return storeError(err)
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}
		if err := Validate(&info); err != nil {
			return err
		}

		total := decimal.Zero
		for _, l := range lines {
			total = total.Add(l.LineTotal())
		}

		o := &models.Order{
			UserID:      ownerID,
			Customer:    info,
			Status:      models.StatusPending,
			TotalAmount: total,
		}
		if err := tx.CreateOrder(ctx, o); err != nil {
			return storeError(err)
		}

		o.Lines = make([]models.OrderLine, 0, len(lines))
		for _, l := range lines {
			line := models.OrderLine{
				OrderID:       o.OrderID,
				ProductID:     l.Product.ProductID,
				ProductName:   l.Product.Name,
				CapturedPrice: l.Product.Price,
				Quantity:      l.Quantity,
			}
			if err := tx.CreateOrderLine(ctx, &line); err != nil {
				return lineError(err, l)
			}
			if err := tx.DecrementStock(ctx, l.Product.ProductID, l.Quantity); err != nil {
				return lineError(err, l)
			}
			err := tx.RecordMovement(ctx, &models.StockMovement{
				ProductID:   l.Product.ProductID,
				OrderID:     &o.OrderID,
				Type:        models.MovementOutgoing,
				ChangeQuant: -l.Quantity,
			})
			if err != nil {
				return storeError(err)
			}
			o.Lines = append(o.Lines, line)
		}

		if err := tx.ClearCart(ctx, cartID); err != nil {
			return storeError(err)
		}

		if e.topic != "" {
			key := strconv.FormatInt(o.OrderID, 10)
			if err := tx.EnqueueEvent(ctx, e.topic, key, events.NewOrderCreated(o)); err != nil {
				return err
			}
		}

		order = o
		return nil
	})
	if err != nil {
		e.record(outcome(err))
		e.logger.Info("checkout failed",
			zap.Int64("cart_id", cartID),
			zap.String("outcome", outcome(err)),
			zap.Error(err))
		return nil, storeError(err)
	}

	e.record("success")
	e.logger.Info("order created",
		zap.Int64("order_id", order.OrderID),
		zap.Int64("cart_id", cartID),
		zap.Int("lines", len(order.Lines)),
		zap.String("total_amount", order.TotalAmount.StringFixed(2)))

	for _, hook := range e.hooks {
		hook(ctx, order)
	}

	return order, nil
}

func lineError(err error, l models.CartLine) error {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		return ProductNotFound(l.Product.ProductID)
	case errors.Is(err, repository.ErrNotEnough):
		return &InsufficientStockError{ProductID: l.Product.ProductID, Requested: l.Quantity}
	}
	return storeError(err)
}

func normalizeCustomerInfo(info models.CustomerInfo) models.CustomerInfo {
	info.FullName = strings.TrimSpace(info.FullName)
	info.Email = strings.TrimSpace(info.Email)
	info.Phone = strings.TrimSpace(info.Phone)
	info.Address = strings.TrimSpace(info.Address)
	info.City = strings.TrimSpace(info.City)
	info.Notes = strings.TrimSpace(info.Notes)
	return info
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict), errors.Is(err, repository.ErrConflict):
		return "conflict"
	}
	return "error"
}
