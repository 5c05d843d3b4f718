package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/mvega/pos-checkout-service/internal/apperrors"
	"github.com/mvega/pos-checkout-service/internal/cart"
	"github.com/mvega/pos-checkout-service/internal/cart/dto"
	"github.com/mvega/pos-checkout-service/internal/model"
	"github.com/mvega/pos-checkout-service/pkg/httputil"
	"github.com/mvega/pos-checkout-service/pkg/logger"
)

type CartHandler struct {
	uc     cart.UseCase
	logger logger.ZapLogger
}

func NewCartHandler(uc cart.UseCase, log logger.ZapLogger) *CartHandler {
	return &CartHandler{uc: uc, logger: log}
}

func (h *CartHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /sessions", h.createSession)
	mux.HandleFunc("GET /sessions/{id}", h.getSession)
	mux.HandleFunc("DELETE /sessions/{id}", h.abandonSession)
	mux.HandleFunc("POST /sessions/{id}/items", h.addItem)
	mux.HandleFunc("DELETE /sessions/{id}/items/{index}", h.removeItem)
	mux.HandleFunc("POST /sessions/{id}/clear", h.clear)
	mux.HandleFunc("PUT /sessions/{id}/checkout-info", h.setCheckoutInfo)
}

func (h *CartHandler) createSession(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusCreated, h.uc.CreateSession())
}

func (h *CartHandler) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.uc.GetSession(r.PathValue("id"))
	if err != nil {
		writeCartError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session)
}

func (h *CartHandler) abandonSession(w http.ResponseWriter, r *http.Request) {
	h.uc.Abandon(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

type addItemRequest struct {
	ProductID   string                 `json:"product_id"`
	Name        string                 `json:"name"`
	Selection   *model.VariantSelector `json:"selection"`
	Quantity    int                    `json:"quantity"`
	UnitPrice   float64                `json:"unit_price"`
	IsReturn    bool                   `json:"is_return"`
	IsQuickItem bool                   `json:"is_quick_item"`
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}

	session, err := h.uc.AddItem(r.PathValue("id"), &dto.AddItemInput{
		ProductID:   req.ProductID,
		Name:        req.Name,
		Selection:   req.Selection,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		IsReturn:    req.IsReturn,
		IsQuickItem: req.IsQuickItem,
	})
	if err != nil {
		writeCartError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session)
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid item index")
		return
	}

	session, err := h.uc.RemoveItem(r.PathValue("id"), index)
	if err != nil {
		writeCartError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session)
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	session, err := h.uc.Clear(r.PathValue("id"))
	if err != nil {
		writeCartError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session)
}

type checkoutInfoRequest struct {
	PaymentMethod string              `json:"payment_method"`
	Customer      *model.CustomerInfo `json:"customer"`
}

func (h *CartHandler) setCheckoutInfo(w http.ResponseWriter, r *http.Request) {
	var req checkoutInfoRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}

	session, err := h.uc.SetCheckoutInfo(r.PathValue("id"), &dto.CheckoutInfoInput{
		PaymentMethod: model.PaymentMethod(req.PaymentMethod),
		Customer:      req.Customer,
	})
	if err != nil {
		writeCartError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session)
}

func writeCartError(w http.ResponseWriter, err error) {
	var vErr *apperrors.ValidationError
	switch {
	case errors.Is(err, apperrors.ErrSessionNotFound), errors.Is(err, apperrors.ErrItemNotFound):
		httputil.WriteError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &vErr):
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
