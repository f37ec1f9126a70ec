package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"shop-service/internal/models"
	"shop-service/internal/service"
)

type CartService interface {
	Snapshot(ctx context.Context, caller service.Caller) (*models.CartSnapshot, error)
	AddLine(ctx context.Context, caller service.Caller, productID int64, quantity int) (*models.CartSnapshot, error)
	SetQuantity(ctx context.Context, caller service.Caller, lineID int64, quantity int) (*models.CartSnapshot, error)
	RemoveLine(ctx context.Context, caller service.Caller, lineID int64) (*models.CartSnapshot, error)
	Clear(ctx context.Context, caller service.Caller) (*models.CartSnapshot, error)
	Checkout(ctx context.Context, caller service.Caller, info models.CustomerInfo) (*models.Order, error)
}

type CartHandler struct {
	carts  CartService
	logger *zap.Logger
}

func NewCartHandler(carts CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, logger: logger}
}

type AddLineRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  *int  `json:"quantity"`
}

type SetQuantityRequest struct {
	LineID   int64 `json:"line_id"`
	Quantity *int  `json:"quantity"`
}

type RemoveLineRequest struct {
	LineID int64 `json:"line_id"`
}

type CheckoutResponse struct {
	OrderID int64         `json:"order_id"`
	Order   *models.Order `json:"order"`
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r)(h.carts.Snapshot(r.Context(), caller(r)))
}

func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddLineRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}
	if req.ProductID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_input", "product_id is required")
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	h.respond(w, r)(h.carts.AddLine(r.Context(), caller(r), req.ProductID, quantity))
}

func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	var req SetQuantityRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}
	if req.LineID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_input", "line_id is required")
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	h.respond(w, r)(h.carts.SetQuantity(r.Context(), caller(r), req.LineID, quantity))
}

func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	var req RemoveLineRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}
	if req.LineID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_input", "line_id is required")
		return
	}

	h.respond(w, r)(h.carts.RemoveLine(r.Context(), caller(r), req.LineID))
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r)(h.carts.Clear(r.Context(), caller(r)))
}

func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var info models.CustomerInfo
	if ok := decodeJSON(w, r, &info); !ok {
		return
	}

	order, err := h.carts.Checkout(r.Context(), caller(r), info)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, CheckoutResponse{OrderID: order.OrderID, Order: order})
}

func (h *CartHandler) respond(w http.ResponseWriter, r *http.Request) func(*models.CartSnapshot, error) {
	return func(snap *models.CartSnapshot, err error) {
		if err != nil {
			writeFailure(w, r, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}
