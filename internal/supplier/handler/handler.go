package handler

import (
	"net/http"

	"github.com/mvega/pos-checkout-service/internal/supplier"
	"github.com/mvega/pos-checkout-service/internal/supplier/dto"
	"github.com/mvega/pos-checkout-service/pkg/httputil"
	"github.com/mvega/pos-checkout-service/pkg/logger"
	"go.uber.org/zap"
)

type SupplierHandler struct {
	uc     supplier.UseCase
	logger logger.ZapLogger
}

func NewSupplierHandler(uc supplier.UseCase, log logger.ZapLogger) *SupplierHandler {
	return &SupplierHandler{uc: uc, logger: log}
}

func (h *SupplierHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /suppliers", h.create)
	mux.HandleFunc("GET /suppliers", h.list)
	mux.HandleFunc("GET /suppliers/{id}", h.get)
	mux.HandleFunc("PUT /suppliers/{id}", h.update)
	mux.HandleFunc("DELETE /suppliers/{id}", h.delete)
}

type supplierRequest struct {
	Name        string `json:"name"`
	ContactName string `json:"contact_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	TaxID       string `json:"tax_id"`
	IsActive    bool   `json:"is_active"`
}

func (h *SupplierHandler) create(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}

	s, err := h.uc.CreateSupplier(r.Context(), &dto.CreateSupplierInput{
		Name:        req.Name,
		ContactName: req.ContactName,
		Email:       req.Email,
		Phone:       req.Phone,
		TaxID:       req.TaxID,
	})
	if err != nil {
		h.logger.Error("failed to create supplier", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, s)
}

func (h *SupplierHandler) get(w http.ResponseWriter, r *http.Request) {
	s, err := h.uc.GetSupplier(r.Context(), r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s == nil {
		httputil.WriteError(w, http.StatusNotFound, "supplier not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s)
}

func (h *SupplierHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var isActive *bool
	if q.Get("is_active") != "" {
		b := q.Get("is_active") == "true"
		isActive = &b
	}

	suppliers, count, err := h.uc.ListSuppliers(r.Context(), &dto.SupplierFilters{
		IsActive:    isActive,
		SearchQuery: q.Get("q"),
	})
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"suppliers": suppliers,
		"total":     count,
	})
}

func (h *SupplierHandler) update(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}

	s, err := h.uc.UpdateSupplier(r.Context(), &dto.UpdateSupplierInput{
		ID:          r.PathValue("id"),
		Name:        req.Name,
		ContactName: req.ContactName,
		Email:       req.Email,
		Phone:       req.Phone,
		TaxID:       req.TaxID,
		IsActive:    req.IsActive,
	})
	if err != nil {
		h.logger.Error("failed to update supplier", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s)
}

func (h *SupplierHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.uc.DeleteSupplier(r.Context(), r.PathValue("id")); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
