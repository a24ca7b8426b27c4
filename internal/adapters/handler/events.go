package handler

import (
	"net/http"
)

type TransactionWrittenRequest struct {
	TransactionIDs []string `json:"transactionIds" validate:"required,min=1,dive,required"`
}

// HandleTransactionWritten is the webhook twin of the Kafka consumer for
// shops that cannot publish to a broker.
func (h *Handler) HandleTransactionWritten(w http.ResponseWriter, r *http.Request) {
	var req TransactionWrittenRequest
	if !h.decode(w, r, &req) {
		return
	}

	report := h.reactor.HandleTransactionsWritten(r.Context(), req.TransactionIDs)
	respondWithJSON(w, http.StatusOK, report)
}
