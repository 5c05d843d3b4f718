package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/mvega/pos-checkout-service/internal/model"
	"github.com/mvega/pos-checkout-service/internal/product"
	"github.com/mvega/pos-checkout-service/internal/product/dto"
	"github.com/mvega/pos-checkout-service/pkg/httputil"
	"github.com/mvega/pos-checkout-service/pkg/logger"
	"go.uber.org/zap"
)

type ProductHandler struct {
	uc     product.UseCase
	logger logger.ZapLogger
}

func NewProductHandler(uc product.UseCase, log logger.ZapLogger) *ProductHandler {
	return &ProductHandler{uc: uc, logger: log}
}

func (h *ProductHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /products", h.createProduct)
	mux.HandleFunc("GET /products", h.listProducts)
	mux.HandleFunc("GET /products/{id}", h.getProduct)
	mux.HandleFunc("PUT /products/{id}", h.updateProduct)
	mux.HandleFunc("DELETE /products/{id}", h.deleteProduct)
	mux.HandleFunc("POST /products/{id}/variants", h.addVariant)
	mux.HandleFunc("GET /products/{id}/variants", h.listVariants)
	mux.HandleFunc("POST /products/{id}/restock", h.restock)
	mux.HandleFunc("GET /stock-movements", h.listMovements)
}

type createProductRequest struct {
	CategoryID  string `json:"category_id"`
	SupplierID  string `json:"supplier_id"`
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Variants    []struct {
		Size  string  `json:"size"`
		Color string  `json:"color"`
		Stock int     `json:"stock"`
		Price float64 `json:"price"`
	} `json:"variants"`
}

func (h *ProductHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.SKU == "" || req.Name == "" {
		httputil.WriteError(w, http.StatusBadRequest, "sku and name are required")
		return
	}

	input := &dto.CreateProductInput{
		CategoryID:  req.CategoryID,
		SupplierID:  req.SupplierID,
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
	}
	for _, v := range req.Variants {
		input.Variants = append(input.Variants, dto.UpsertVariantInput{
			Size:  v.Size,
			Color: v.Color,
			Stock: v.Stock,
			Price: v.Price,
		})
	}

	p, err := h.uc.CreateProduct(r.Context(), input)
	if err != nil {
		h.logger.Error("failed to create product", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func (h *ProductHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.uc.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if p == nil {
		httputil.WriteError(w, http.StatusNotFound, "product not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var isActive *bool
	if q.Get("is_active") != "" {
		b := q.Get("is_active") == "true"
		isActive = &b
	}

	filters := &dto.ProductFilters{
		CategoryID:  q.Get("category_id"),
		SupplierID:  q.Get("supplier_id"),
		IsActive:    isActive,
		SearchQuery: q.Get("q"),
		SortBy:      q.Get("sort_by"),
		SortOrder:   q.Get("sort_order"),
		Page:        parseIntDefault(q.Get("page"), 1),
		PageSize:    parseIntDefault(q.Get("page_size"), 20),
	}

	products, count, err := h.uc.ListProducts(r.Context(), filters)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"products":  products,
		"total":     count,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
}

type updateProductRequest struct {
	CategoryID  string `json:"category_id"`
	SupplierID  string `json:"supplier_id"`
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

func (h *ProductHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req updateProductRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}

	input := &dto.UpdateProductInput{
		ID:          r.PathValue("id"),
		CategoryID:  req.CategoryID,
		SupplierID:  req.SupplierID,
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	}

	p, err := h.uc.UpdateProduct(r.Context(), input)
	if err != nil {
		h.logger.Error("failed to update product", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.uc.DeleteProduct(r.Context(), r.PathValue("id")); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type variantRequest struct {
	Size  string  `json:"size"`
	Color string  `json:"color"`
	Stock int     `json:"stock"`
	Price float64 `json:"price"`
}

func (h *ProductHandler) addVariant(w http.ResponseWriter, r *http.Request) {
	var req variantRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Size == "" || req.Color == "" {
		httputil.WriteError(w, http.StatusBadRequest, "size and color are required")
		return
	}

	v, err := h.uc.AddVariant(r.Context(), &dto.UpsertVariantInput{
		ProductID: r.PathValue("id"),
		Size:      req.Size,
		Color:     req.Color,
		Stock:     req.Stock,
		Price:     req.Price,
	})
	if err != nil {
		h.logger.Error("failed to add variant", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, v)
}

func (h *ProductHandler) listVariants(w http.ResponseWriter, r *http.Request) {
	variants, err := h.uc.ListVariants(r.Context(), r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, variants)
}

type restockRequest struct {
	Size          string `json:"size"`
	Color         string `json:"color"`
	Quantity      int    `json:"quantity"`
	ReferenceType string `json:"reference_type"`
	ReferenceID   string `json:"reference_id"`
}

func (h *ProductHandler) restock(w http.ResponseWriter, r *http.Request) {
	var req restockRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}

	v, err := h.uc.RestockVariant(r.Context(), &dto.RestockInput{
		ProductID:     r.PathValue("id"),
		Selector:      model.VariantSelector{Size: req.Size, Color: req.Color},
		QuantityAdded: req.Quantity,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
	})
	if err != nil {
		switch {
		case errors.Is(err, product.ErrVariantMissing):
			httputil.WriteError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, product.ErrStockConflict):
			httputil.WriteError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("failed to restock variant", zap.Error(err))
			httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

func (h *ProductHandler) listMovements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	movements, count, err := h.uc.ListMovements(r.Context(), &dto.MovementFilters{
		ProductID:    q.Get("product_id"),
		MovementType: q.Get("movement_type"),
		Page:         parseIntDefault(q.Get("page"), 1),
		PageSize:     parseIntDefault(q.Get("page_size"), 50),
	})
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"movements": movements,
		"total":     count,
	})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if i, err := strconv.Atoi(s); err == nil && i > 0 {
		return i
	}
	return def
}
