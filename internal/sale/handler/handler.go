package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mvega/pos-checkout-service/internal/apperrors"
	"github.com/mvega/pos-checkout-service/internal/sale"
	"github.com/mvega/pos-checkout-service/internal/sale/dto"
	"github.com/mvega/pos-checkout-service/pkg/httputil"
	"github.com/mvega/pos-checkout-service/pkg/logger"
	"github.com/mvega/pos-checkout-service/pkg/metrics"
	"go.uber.org/zap"
)

type SaleHandler struct {
	uc      sale.UseCase
	metrics *metrics.ServerMetrics
	logger  logger.ZapLogger
}

func NewSaleHandler(uc sale.UseCase, m *metrics.ServerMetrics, log logger.ZapLogger) *SaleHandler {
	return &SaleHandler{uc: uc, metrics: m, logger: log}
}

func (h *SaleHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /sessions/{id}/finalize", h.finalize)
	mux.HandleFunc("GET /sales", h.listSales)
	mux.HandleFunc("GET /sales/{id}", h.getSale)
}

type finalizeResponse struct {
	Sale    interface{} `json:"sale"`
	Warning *string     `json:"warning,omitempty"`
}

func (h *SaleHandler) finalize(w http.ResponseWriter, r *http.Request) {
	result, err := h.uc.Finalize(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeFinalizeError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.SalesFinalized.Inc()
		if result.Warning != nil {
			h.metrics.BillingFailures.Inc()
		}
	}

	resp := finalizeResponse{Sale: result.Sale}
	if result.Warning != nil {
		msg := result.Warning.Error()
		resp.Warning = &msg
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

func (h *SaleHandler) getSale(w http.ResponseWriter, r *http.Request) {
	record, err := h.uc.GetSale(r.Context(), r.PathValue("id"))
	if err != nil {
		h.logger.Error("failed to fetch sale", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if record == nil {
		httputil.WriteError(w, http.StatusNotFound, "sale not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

func (h *SaleHandler) listSales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := &dto.SaleFilters{
		PaymentMethod: q.Get("payment_method"),
		Page:          parseIntDefault(q.Get("page"), 1),
		PageSize:      parseIntDefault(q.Get("page_size"), 20),
	}
	if from := q.Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid from timestamp")
			return
		}
		filters.From = &t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid to timestamp")
			return
		}
		filters.To = &t
	}

	records, total, err := h.uc.ListSales(r.Context(), filters)
	if err != nil {
		h.logger.Error("failed to list sales", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"data":      records,
		"total":     total,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
}

func (h *SaleHandler) writeFinalizeError(w http.ResponseWriter, err error) {
	var vErr *apperrors.ValidationError
	var variantErr *apperrors.VariantNotFoundError
	var stockErr *apperrors.InsufficientStockError
	var persistErr *apperrors.PersistenceError

	switch {
	case errors.Is(err, apperrors.ErrSessionNotFound):
		httputil.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, apperrors.ErrProductNotFound):
		httputil.WriteError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &vErr):
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &variantErr):
		httputil.WriteErrorDetails(w, http.StatusNotFound, err.Error(), map[string]interface{}{
			"product_id": variantErr.ProductID,
			"size":       variantErr.Selection.Size,
			"color":      variantErr.Selection.Color,
		})
	case errors.As(err, &stockErr):
		httputil.WriteErrorDetails(w, http.StatusConflict, err.Error(), map[string]interface{}{
			"product_id": stockErr.ProductID,
			"size":       stockErr.Selection.Size,
			"color":      stockErr.Selection.Color,
			"requested":  stockErr.Requested,
			"available":  stockErr.Available,
		})
	case errors.As(err, &persistErr):
		h.logger.Error("sale persistence failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to persist sale")
	default:
		h.logger.Error("finalize failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
