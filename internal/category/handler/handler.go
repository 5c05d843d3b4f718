package handler

import (
	"net/http"

	"github.com/mvega/pos-checkout-service/internal/category"
	"github.com/mvega/pos-checkout-service/internal/category/dto"
	"github.com/mvega/pos-checkout-service/pkg/httputil"
	"github.com/mvega/pos-checkout-service/pkg/logger"
	"go.uber.org/zap"
)

type CategoryHandler struct {
	uc     category.UseCase
	logger logger.ZapLogger
}

func NewCategoryHandler(uc category.UseCase, log logger.ZapLogger) *CategoryHandler {
	return &CategoryHandler{uc: uc, logger: log}
}

func (h *CategoryHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /categories", h.create)
	mux.HandleFunc("GET /categories", h.list)
	mux.HandleFunc("GET /categories/{id}", h.get)
	mux.HandleFunc("PUT /categories/{id}", h.update)
	mux.HandleFunc("DELETE /categories/{id}", h.delete)
}

type categoryRequest struct {
	ParentID    *string `json:"parent_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	SortOrder   int     `json:"sort_order"`
	IsActive    bool    `json:"is_active"`
}

func (h *CategoryHandler) create(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Name == "" {
		httputil.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}

	cat, err := h.uc.CreateCategory(r.Context(), &dto.CreateCategoryInput{
		ParentID:    req.ParentID,
		Name:        req.Name,
		Description: req.Description,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		h.logger.Error("failed to create category", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, cat)
}

func (h *CategoryHandler) get(w http.ResponseWriter, r *http.Request) {
	cat, err := h.uc.GetCategory(r.Context(), r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if cat == nil {
		httputil.WriteError(w, http.StatusNotFound, "category not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cat)
}

func (h *CategoryHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var parentID *string
	if q.Has("parent_id") {
		p := q.Get("parent_id")
		parentID = &p
	}
	var isActive *bool
	if q.Get("is_active") != "" {
		b := q.Get("is_active") == "true"
		isActive = &b
	}

	categories, count, err := h.uc.ListCategories(r.Context(), &dto.CategoryFilters{
		ParentID: parentID,
		IsActive: isActive,
	})
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"total":      count,
	})
}

func (h *CategoryHandler) update(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}

	cat, err := h.uc.UpdateCategory(r.Context(), &dto.UpdateCategoryInput{
		ID:          r.PathValue("id"),
		ParentID:    req.ParentID,
		Name:        req.Name,
		Description: req.Description,
		SortOrder:   req.SortOrder,
		IsActive:    req.IsActive,
	})
	if err != nil {
		h.logger.Error("failed to update category", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cat)
}

func (h *CategoryHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.uc.DeleteCategory(r.Context(), r.PathValue("id")); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
