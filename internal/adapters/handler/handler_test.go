package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lunar/payments-plugin-shopware/internal/core/domain"
	"github.com/lunar/payments-plugin-shopware/internal/core/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAdminService struct {
	applyFn        func(ctx context.Context, orderID string, action domain.Action) (service.Outcome, error)
	transactionsFn func(ctx context.Context, orderID string) ([]*domain.LedgerEntry, error)
}

func (m *mockAdminService) Apply(ctx context.Context, orderID string, action domain.Action) (service.Outcome, error) {
	return m.applyFn(ctx, orderID, action)
}

func (m *mockAdminService) Transactions(ctx context.Context, orderID string) ([]*domain.LedgerEntry, error) {
	return m.transactionsFn(ctx, orderID)
}

type mockLoadChecker struct {
	calls []string
	err   error
}

func (m *mockLoadChecker) ReconcileOnLoad(ctx context.Context, orderID string) (service.Outcome, error) {
	m.calls = append(m.calls, orderID)
	return service.Outcome{}, m.err
}

type mockCheckoutService struct {
	payFn      func(ctx context.Context, req service.PayRequest) (string, error)
	finalizeFn func(ctx context.Context, req service.FinalizeRequest) error
}

func (m *mockCheckoutService) Pay(ctx context.Context, req service.PayRequest) (string, error) {
	return m.payFn(ctx, req)
}

func (m *mockCheckoutService) Finalize(ctx context.Context, req service.FinalizeRequest) error {
	return m.finalizeFn(ctx, req)
}

type mockReactor struct {
	ids []string
}

func (m *mockReactor) HandleTransactionsWritten(ctx context.Context, ids []string) *service.BatchReport {
	m.ids = ids
	return &service.BatchReport{Processed: len(ids), Reconciled: len(ids)}
}

type testServer struct {
	admin    *mockAdminService
	loader   *mockLoadChecker
	checkout *mockCheckoutService
	reactor  *mockReactor
	mux      *http.ServeMux
}

func newTestServer() *testServer {
	s := &testServer{
		admin:    &mockAdminService{},
		loader:   &mockLoadChecker{},
		checkout: &mockCheckoutService{},
		reactor:  &mockReactor{},
		mux:      http.NewServeMux(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	NewHandler(s.admin, s.loader, s.checkout, s.reactor, logger).RegisterRoutes(s.mux)
	return s
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decodeAction(t *testing.T, rec *httptest.ResponseRecorder) ActionResponse {
	t.Helper()
	var resp ActionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// ============================================================================
// ADMIN ACTIONS
// ============================================================================

func TestHandleAction_Success(t *testing.T) {
	tests := []struct {
		path   string
		action domain.Action
	}{
		{"/api/lunar/orders/o-1/capture", domain.ActionCapture},
		{"/api/lunar/orders/o-1/refund", domain.ActionRefund},
		{"/api/lunar/orders/o-1/cancel", domain.ActionCancel},
		{"/api/lunar/orders/o-1/void", domain.ActionCancel},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			s := newTestServer()
			var gotOrder string
			var gotAction domain.Action
			s.admin.applyFn = func(ctx context.Context, orderID string, action domain.Action) (service.Outcome, error) {
				gotOrder, gotAction = orderID, action
				return service.Outcome{Reconciled: true}, nil
			}

			rec := s.do(t, http.MethodPost, tt.path, nil)

			assert.Equal(t, http.StatusOK, rec.Code)
			resp := decodeAction(t, rec)
			assert.True(t, resp.Status)
			assert.Equal(t, "Success", resp.Message)
			assert.Empty(t, resp.Errors)
			assert.Equal(t, "o-1", gotOrder)
			assert.Equal(t, tt.action, gotAction)
		})
	}
}

func TestHandleAction_Failure(t *testing.T) {
	tests := []struct {
		name    string
		outcome service.Outcome
		err     error
		want    string
	}{
		{"domain error", service.Outcome{}, domain.NewGatewayError("capture", errors.New("timeout")), "gateway capture failed"},
		{"unexpected error", service.Outcome{}, errors.New("pq: connection reset"), genericActionError},
		{"skipped", service.Outcome{Reason: "no authorize entry recorded for order"}, nil, "no authorize entry recorded for order"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()
			s.admin.applyFn = func(ctx context.Context, orderID string, action domain.Action) (service.Outcome, error) {
				return tt.outcome, tt.err
			}

			rec := s.do(t, http.MethodPost, "/api/lunar/orders/o-1/capture", nil)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeAction(t, rec)
			assert.False(t, resp.Status)
			assert.Equal(t, "Error", resp.Message)
			require.Len(t, resp.Errors, 1)
			assert.Contains(t, resp.Errors[0], tt.want)
		})
	}
}

func TestHandleTransactions(t *testing.T) {
	s := newTestServer()
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	s.admin.transactionsFn = func(ctx context.Context, orderID string) ([]*domain.LedgerEntry, error) {
		order := &domain.Order{ID: orderID, Number: "10001", Currency: "EUR", AmountTotal: decimal.RequireFromString("10")}
		tx := &domain.OrderTransaction{Amount: decimal.RequireFromString("10")}
		auth := domain.NewLedgerEntry(order, tx, "pi_1", domain.ActionAuthorize, "card")
		auth.CreatedAt = created
		capture := domain.NewLedgerEntry(order, tx, "pi_1", domain.ActionCapture, "card")
		capture.CreatedAt = created.Add(time.Hour)
		return []*domain.LedgerEntry{auth, capture}, nil
	}

	rec := s.do(t, http.MethodGet, "/api/lunar/orders/o-1/transactions", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp TransactionsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Status)
	require.Len(t, resp.Transactions, 2)
	assert.Equal(t, "authorize", resp.Transactions[0].TransactionType)
	assert.Equal(t, "capture", resp.Transactions[1].TransactionType)
	assert.Equal(t, "10.00", resp.Transactions[1].TransactionAmount)
	assert.Equal(t, []string{"o-1"}, s.loader.calls)
}

func TestHandleTransactions_EmptyAndNotFound(t *testing.T) {
	s := newTestServer()
	s.loader.err = errors.New("gateway down")
	s.admin.transactionsFn = func(ctx context.Context, orderID string) ([]*domain.LedgerEntry, error) {
		if orderID == "missing" {
			return nil, domain.NewOrderNotFoundError(orderID)
		}
		return nil, nil
	}

	rec := s.do(t, http.MethodGet, "/api/lunar/orders/o-1/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"transactions":[]`)

	rec = s.do(t, http.MethodGet, "/api/lunar/orders/missing/transactions", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, decodeAction(t, rec).Status)
}

// ============================================================================
// CHECKOUT
// ============================================================================

func TestHandlePay(t *testing.T) {
	s := newTestServer()
	var got service.PayRequest
	s.checkout.payFn = func(ctx context.Context, req service.PayRequest) (string, error) {
		got = req
		return "https://pay.lunar.money/?id=pi_1", nil
	}

	rec := s.do(t, http.MethodPost, "/api/lunar/checkout/pay", PayRequest{
		OrderID:       "o-1",
		TransactionID: "tx-1",
		ReturnURL:     "https://shop.example/checkout/finish",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success bool        `json:"success"`
		Data    PayResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "https://pay.lunar.money/?id=pi_1", resp.Data.RedirectURL)
	assert.Equal(t, "tx-1", got.TransactionID)
}

func TestHandlePay_Validation(t *testing.T) {
	s := newTestServer()
	s.checkout.payFn = func(ctx context.Context, req service.PayRequest) (string, error) {
		t.Fatal("service must not be called")
		return "", nil
	}

	rec := s.do(t, http.MethodPost, "/api/lunar/checkout/pay", PayRequest{OrderID: "o-1", ReturnURL: "not-a-url"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/lunar/checkout/pay", bytes.NewBufferString("{"))
	bad := httptest.NewRecorder()
	s.mux.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestHandleFinalize_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.NewVerificationError("amount mismatch"), http.StatusUnprocessableEntity, domain.ErrCodeVerification},
		{domain.NewMissingIntentError("o-1"), http.StatusBadRequest, domain.ErrCodeMissingIntent},
		{domain.NewPaymentProcessError("tx-1", errors.New("down")), http.StatusBadGateway, domain.ErrCodePaymentProcess},
		{domain.NewOrderNotFoundError("o-1"), http.StatusNotFound, domain.ErrCodeOrderNotFound},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			s := newTestServer()
			s.checkout.finalizeFn = func(ctx context.Context, req service.FinalizeRequest) error { return tt.err }

			rec := s.do(t, http.MethodPost, "/api/lunar/checkout/finalize", FinalizeRequest{OrderID: "o-1", TransactionID: "tx-1"})

			assert.Equal(t, tt.status, rec.Code)
			var resp APIResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

// ============================================================================
// EVENTS
// ============================================================================

func TestHandleTransactionWritten(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodPost, "/api/lunar/events/transaction-written", TransactionWrittenRequest{
		TransactionIDs: []string{"tx-1", "tx-2"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"tx-1", "tx-2"}, s.reactor.ids)

	rec = s.do(t, http.MethodPost, "/api/lunar/events/transaction-written", TransactionWrittenRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
