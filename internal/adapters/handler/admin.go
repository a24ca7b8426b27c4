package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/lunar/payments-plugin-shopware/internal/core/domain"
)

// TransactionEntry is a ledger entry as shown in the admin order tab.
type TransactionEntry struct {
	ID                  string    `json:"id"`
	OrderID             string    `json:"orderId"`
	TransactionID       string    `json:"transactionId"`
	TransactionType     string    `json:"transactionType"`
	TransactionCurrency string    `json:"transactionCurrency"`
	OrderAmount         string    `json:"orderAmount"`
	TransactionAmount   string    `json:"transactionAmount"`
	PaymentMethod       string    `json:"paymentMethod"`
	CreatedAt           time.Time `json:"createdAt"`
}

func toTransactionEntry(e *domain.LedgerEntry) *TransactionEntry {
	exp := domain.CurrencyExponent(e.Currency)
	return &TransactionEntry{
		ID:                  e.ID.String(),
		OrderID:             e.OrderID,
		TransactionID:       e.TransactionID,
		TransactionType:     string(e.Action),
		TransactionCurrency: e.Currency,
		OrderAmount:         e.OrderAmount.StringFixed(exp),
		TransactionAmount:   e.TransactionAmount.StringFixed(exp),
		PaymentMethod:       e.PaymentMethod,
		CreatedAt:           e.CreatedAt,
	}
}

const genericActionError = "An exception occurred. Please try again. If this persists please contact the plugin developer."

func (h *Handler) handleAction(action domain.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := r.PathValue("orderId")

		outcome, err := h.admin.Apply(r.Context(), orderID, action)
		if err != nil {
			h.logger.Error("admin action failed",
				"order_id", orderID,
				"action", action,
				"error", err,
			)
			respondWithAction(w, http.StatusBadRequest, []string{adminMessage(err)})
			return
		}

		if !outcome.Reconciled {
			respondWithAction(w, http.StatusBadRequest, []string{outcome.Reason})
			return
		}

		respondWithAction(w, http.StatusOK, nil)
	}
}

// HandleTransactions lists the order's ledger entries, oldest first.
func (h *Handler) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderId")

	if _, err := h.loader.ReconcileOnLoad(r.Context(), orderID); err != nil {
		h.logger.Warn("order load reconciliation failed", "order_id", orderID, "error", err)
	}

	entries, err := h.admin.Transactions(r.Context(), orderID)
	if err != nil {
		status := http.StatusInternalServerError
		if domain.IsErrorCode(err, domain.ErrCodeOrderNotFound) {
			status = http.StatusNotFound
		}
		respondWithAction(w, status, []string{err.Error()})
		return
	}

	out := make([]*TransactionEntry, len(entries))
	for i, e := range entries {
		out[i] = toTransactionEntry(e)
	}
	writeJSON(w, http.StatusOK, TransactionsResponse{
		ActionResponse: newActionResponse(nil),
		Transactions:   out,
	})
}

// adminMessage keeps domain messages and hides everything else.
func adminMessage(err error) string {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return genericActionError
}
