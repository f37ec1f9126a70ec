package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"shop-service/internal/models"
	"shop-service/internal/repository"
	"shop-service/internal/service"
)

type CategoryHandler struct {
	repo   repository.CategoryRepository
	logger *zap.Logger
}

func NewCategoryHandler(repo repository.CategoryRepository, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{repo: repo, logger: logger}
}

type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Slug        string `json:"slug" validate:"max=100"`
	Description string `json:"description"`
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.repo.List(r.Context())
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, categories)
}

func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	category, err := h.repo.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, category)
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}
	if err := service.Validate(&req); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	c := models.Category{Name: req.Name, Slug: req.Slug, Description: req.Description}
	if err := h.repo.Create(r.Context(), &c); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	w.Header().Set("Location", "/categories/"+c.Slug)
	writeJSON(w, http.StatusCreated, c)
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, err := h.repo.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	var req CategoryRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}
	if err := service.Validate(&req); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	existing.Name = req.Name
	existing.Slug = req.Slug
	existing.Description = req.Description
	if err := h.repo.Update(r.Context(), existing); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, existing)
}

func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(r.Context(), chi.URLParam(r, "slug")); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}
