package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator"
	"github.com/lunar/payments-plugin-shopware/internal/core/domain"
	"github.com/lunar/payments-plugin-shopware/internal/core/service"
)

type AdminService interface {
	Apply(ctx context.Context, orderID string, action domain.Action) (service.Outcome, error)
	Transactions(ctx context.Context, orderID string) ([]*domain.LedgerEntry, error)
}

type OrderLoadChecker interface {
	ReconcileOnLoad(ctx context.Context, orderID string) (service.Outcome, error)
}

type CheckoutService interface {
	Pay(ctx context.Context, req service.PayRequest) (string, error)
	Finalize(ctx context.Context, req service.FinalizeRequest) error
}

type TransactionReactor interface {
	HandleTransactionsWritten(ctx context.Context, transactionIDs []string) *service.BatchReport
}

type Handler struct {
	admin    AdminService
	loader   OrderLoadChecker
	checkout CheckoutService
	reactor  TransactionReactor
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(
	admin AdminService,
	loader OrderLoadChecker,
	checkout CheckoutService,
	reactor TransactionReactor,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		admin:    admin,
		loader:   loader,
		checkout: checkout,
		reactor:  reactor,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/lunar/orders/{orderId}/capture", h.handleAction(domain.ActionCapture))
	mux.HandleFunc("POST /api/lunar/orders/{orderId}/refund", h.handleAction(domain.ActionRefund))
	mux.HandleFunc("POST /api/lunar/orders/{orderId}/cancel", h.handleAction(domain.ActionCancel))
	// the admin UI still calls cancel "void"
	mux.HandleFunc("POST /api/lunar/orders/{orderId}/void", h.handleAction(domain.ActionCancel))
	mux.HandleFunc("GET /api/lunar/orders/{orderId}/transactions", h.HandleTransactions)

	mux.HandleFunc("POST /api/lunar/checkout/pay", h.HandlePay)
	mux.HandleFunc("POST /api/lunar/checkout/finalize", h.HandleFinalize)

	mux.HandleFunc("POST /api/lunar/events/transaction-written", h.HandleTransactionWritten)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
