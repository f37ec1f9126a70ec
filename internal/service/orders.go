package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"shop-service/internal/models"
	"shop-service/internal/repository"
)

const (
	statisticsWindow = 30 * 24 * time.Hour
	topEntries       = 5
)

type OrderService struct {
	orders repository.OrderRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewOrderService(orders repository.OrderRepository, logger *zap.Logger) *OrderService {
	return &OrderService{
		orders: orders,
		logger: logger.Named("orders"),
		now:    time.Now,
	}
}

// Get returns an order with its lines. Non-staff callers only see their own
// orders; other orders are reported as not found.
func (s *OrderService) Get(ctx context.Context, caller Caller, id int64) (*models.Order, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthorized
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if !caller.IsStaff && (order.UserID == nil || *order.UserID != caller.UserID) {
		return nil, OrderNotFound(id)
	}
	return order, nil
}

func (s *OrderService) load(ctx context.Context, id int64) (*models.Order, error) {
	order, err := s.orders.GetWithLines(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, OrderNotFound(id)
		}
		return nil, storeError(err)
	}
	return order, nil
}

func (s *OrderService) List(ctx context.Context, caller Caller) ([]models.Order, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthorized
	}

	var (
		orders []models.Order
		err    error
	)
	if caller.IsStaff {
		orders, err = s.orders.List(ctx)
	} else {
		orders, err = s.orders.ListByUser(ctx, caller.UserID)
	}
	if err != nil {
		return nil, storeError(err)
	}
	return orders, nil
}

// UpdateStatus moves an order one step along its lifecycle. Cancelling does
// not return stock.
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, to models.OrderStatus) (*models.Order, error) {
	if !to.Valid() {
		return nil, validationError("unknown order status %q", to)
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, OrderNotFound(id)
		}
		return nil, storeError(err)
	}

	from := order.Status
	if !from.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: order %d cannot move from %s to %s", ErrConflict, id, from, to)
	}

	if err := s.orders.UpdateStatus(ctx, id, from, to); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, OrderNotFound(id)
		}
		return nil, storeError(err)
	}

	s.logger.Info("order status changed",
		zap.Int64("order_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)))

	return s.load(ctx, id)
}

func (s *OrderService) Confirm(ctx context.Context, id int64) (*models.Order, error) {
	return s.UpdateStatus(ctx, id, models.StatusConfirmed)
}

func (s *OrderService) Statistics(ctx context.Context) (*models.OrderStatistics, error) {
	stats, err := s.orders.Statistics(ctx, s.now().Add(-statisticsWindow))
	if err != nil {
		return nil, storeError(err)
	}
	return stats, nil
}

func (s *OrderService) SalesData(ctx context.Context) (*models.SalesData, error) {
	data, err := s.orders.SalesData(ctx, s.now().Add(-statisticsWindow), topEntries)
	if err != nil {
		return nil, storeError(err)
	}
	return data, nil
}

func (s *OrderService) CustomerStatistics(ctx context.Context) (*models.CustomerStatistics, error) {
	stats, err := s.orders.CustomerStatistics(ctx, s.now().Add(-statisticsWindow), topEntries)
	if err != nil {
		return nil, storeError(err)
	}
	return stats, nil
}
