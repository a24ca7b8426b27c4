package handler

import (
	"encoding/json"
	"net/http"

	"github.com/lunar/payments-plugin-shopware/internal/core/domain"
	"github.com/lunar/payments-plugin-shopware/internal/core/service"
)

type PayRequest struct {
	OrderID       string `json:"orderId" validate:"required"`
	TransactionID string `json:"transactionId" validate:"required"`
	ReturnURL     string `json:"returnUrl" validate:"required,url"`
}

type PayResponse struct {
	RedirectURL string `json:"redirectUrl"`
}

type FinalizeRequest struct {
	OrderID       string `json:"orderId" validate:"required"`
	TransactionID string `json:"transactionId" validate:"required"`
}

// HandlePay opens (or reuses) the hosted checkout for an order transaction
// and returns the URL the customer must be sent to.
func (h *Handler) HandlePay(w http.ResponseWriter, r *http.Request) {
	var req PayRequest
	if !h.decode(w, r, &req) {
		return
	}

	redirectURL, err := h.checkout.Pay(r.Context(), service.PayRequest{
		OrderID:       req.OrderID,
		TransactionID: req.TransactionID,
		ReturnURL:     req.ReturnURL,
	})
	if err != nil {
		h.logger.Error("checkout pay failed", "order_id", req.OrderID, "error", err)
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, PayResponse{RedirectURL: redirectURL})
}

// HandleFinalize is hit when the customer returns from the hosted checkout.
func (h *Handler) HandleFinalize(w http.ResponseWriter, r *http.Request) {
	var req FinalizeRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.checkout.Finalize(r.Context(), service.FinalizeRequest{
		OrderID:       req.OrderID,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		h.logger.Error("checkout finalize failed", "order_id", req.OrderID, "error", err)
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"orderId": req.OrderID})
}

// decode reads and validates a JSON body, writing the error response itself
// when it returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, domain.NewValidationError("malformed JSON body"))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		respondWithError(w, domain.NewValidationError(err.Error()))
		return false
	}
	return true
}
