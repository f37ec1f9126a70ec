package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"shop-service/internal/models"
	"shop-service/internal/service"
)

type OrderService interface {
	Get(ctx context.Context, caller service.Caller, id int64) (*models.Order, error)
	List(ctx context.Context, caller service.Caller) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id int64, to models.OrderStatus) (*models.Order, error)
	Confirm(ctx context.Context, id int64) (*models.Order, error)
	Statistics(ctx context.Context) (*models.OrderStatistics, error)
	SalesData(ctx context.Context) (*models.SalesData, error)
	CustomerStatistics(ctx context.Context) (*models.CustomerStatistics, error)
}

type OrderHandler struct {
	orders OrderService
	logger *zap.Logger
}

func NewOrderHandler(orders OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

type StatusUpdateRequest struct {
	Status models.OrderStatus `json:"status"`
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context(), caller(r))
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	order, err := h.orders.Get(r.Context(), caller(r), id)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	order, err := h.orders.Confirm(r.Context(), id)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req StatusUpdateRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.orders.Statistics(r.Context())
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *OrderHandler) Sales(w http.ResponseWriter, r *http.Request) {
	data, err := h.orders.SalesData(r.Context())
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, data)
}

func (h *OrderHandler) Customers(w http.ResponseWriter, r *http.Request) {
	stats, err := h.orders.CustomerStatistics(r.Context())
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
