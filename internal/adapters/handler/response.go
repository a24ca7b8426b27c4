package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lunar/payments-plugin-shopware/internal/core/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ActionResponse is the envelope the admin order tab expects.
type ActionResponse struct {
	Status  bool     `json:"status"`
	Message string   `json:"message"`
	Code    int      `json:"code"`
	Errors  []string `json:"errors"`
}

type TransactionsResponse struct {
	ActionResponse
	Transactions []*TransactionEntry `json:"transactions"`
}

func respondWithJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := APIResponse{
		Success: status >= 200 && status < 300,
	}

	if response.Success {
		response.Data = data
	} else if apiErr, ok := data.(*APIError); ok {
		response.Error = apiErr
	}

	_ = json.NewEncoder(w).Encode(response)
}

func respondWithError(w http.ResponseWriter, err error) {
	code := "INTERNAL_ERROR"
	message := err.Error()
	status := http.StatusInternalServerError

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		code = domainErr.Code
		message = domainErr.Message
		status = statusFor(domainErr.Code)
	}

	respondWithJSON(w, status, &APIError{
		Code:    code,
		Message: message,
	})
}

func statusFor(code string) int {
	switch code {
	case domain.ErrCodeValidation, domain.ErrCodeTransactionSetup, domain.ErrCodeMissingIntent, domain.ErrCodeSettings:
		return http.StatusBadRequest
	case domain.ErrCodeOrderNotFound, domain.ErrCodeTransactionNotFound:
		return http.StatusNotFound
	case domain.ErrCodeDuplicateAction, domain.ErrCodeInvalidTransition, domain.ErrCodeStateTransition:
		return http.StatusConflict
	case domain.ErrCodeVerification:
		return http.StatusUnprocessableEntity
	case domain.ErrCodeGateway, domain.ErrCodePaymentProcess, domain.ErrCodeIntentCreation, domain.ErrCodeCapture:
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

func newActionResponse(errs []string) ActionResponse {
	if errs == nil {
		errs = []string{}
	}
	resp := ActionResponse{
		Status:  len(errs) == 0,
		Message: "Success",
		Errors:  errs,
	}
	if !resp.Status {
		resp.Message = "Error"
	}
	return resp
}

func respondWithAction(w http.ResponseWriter, status int, errs []string) {
	writeJSON(w, status, newActionResponse(errs))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
