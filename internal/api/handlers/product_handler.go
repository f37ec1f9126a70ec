package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"shop-service/internal/models"
	"shop-service/internal/repository"
	"shop-service/internal/service"
)

const latestProductsLimit = 8

type ProductHandler struct {
	repo      repository.ProductRepository
	movements repository.StockMovementRepository
	logger    *zap.Logger
}

func NewProductHandler(repo repository.ProductRepository, movements repository.StockMovementRepository, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{repo: repo, movements: movements, logger: logger}
}

type ProductRequest struct {
	CategoryID  int64           `json:"category_id" validate:"required,gt=0"`
	Name        string          `json:"name" validate:"required,max=200"`
	Slug        string          `json:"slug" validate:"max=200"`
	Description string          `json:"description"`
	Brand       string          `json:"brand" validate:"max=100"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Available   *bool           `json:"available"`
}

func (req ProductRequest) product(id int64) models.Product {
	available := true
	if req.Available != nil {
		available = *req.Available
	}
	return models.Product{
		ProductID:   id,
		CategoryID:  req.CategoryID,
		Name:        strings.TrimSpace(req.Name),
		Slug:        req.Slug,
		Description: req.Description,
		Brand:       req.Brand,
		Price:       req.Price,
		Stock:       req.Stock,
		Available:   available,
	}
}

type StockAdjustRequest struct {
	Change int `json:"change"`
}

func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	product, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	product, err := h.repo.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// List accepts category, brand, available, search and ordering query
// parameters.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.ProductFilter{
		Brand:    q.Get("brand"),
		Search:   q.Get("search"),
		Ordering: models.ProductOrdering(q.Get("ordering")),
	}

	if v := q.Get("category"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_input", "category must be a positive id")
			return
		}
		filter.CategoryID = id
	}
	if v := q.Get("available"); v != "" {
		available, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "available must be true or false")
			return
		}
		filter.Available = &available
	}

	products, err := h.repo.List(r.Context(), filter)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) Latest(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.Latest(r.Context(), latestProductsLimit)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) GetByCategory(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "category is required")
		return
	}

	products, err := h.repo.GetByCategory(r.Context(), slug)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}
	if err := service.Validate(&req); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	p := req.product(0)
	if err := h.repo.Create(r.Context(), &p); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	w.Header().Set("Location", "/products/"+strconv.FormatInt(p.ProductID, 10))
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req ProductRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}
	if err := service.Validate(&req); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	p := req.product(id)
	if err := h.repo.Update(r.Context(), &p); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

func (h *ProductHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req StockAdjustRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	if err := h.repo.AdjustStock(r.Context(), id, req.Change); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	product, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) Movements(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	movements, err := h.movements.GetByProductID(r.Context(), id)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, movements)
}
