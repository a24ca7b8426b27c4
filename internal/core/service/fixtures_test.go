package service

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/lunar/payments-plugin-shopware/internal/core/domain"
	"github.com/shopspring/decimal"
)

type testEnv struct {
	orders    *MockOrderRepository
	ledger    *MockLedgerRepository
	states    *MockStateMachine
	settings  *MockSettingsStore
	client    *MockPaymentsClient
	gateway   *MockGateway
	locker    *MockLocker
	publisher *MockPublisher
	engine    *Engine
}

func newTestEnv(t *testing.T, captureMode domain.CaptureMode, orders ...*domain.Order) *testEnv {
	t.Helper()

	env := &testEnv{
		orders:    NewMockOrderRepository(orders...),
		ledger:    NewMockLedgerRepository(),
		client:    &MockPaymentsClient{},
		locker:    &MockLocker{},
		publisher: &MockPublisher{},
		settings: NewMockSettingsStore(map[string]string{
			domain.SettingTransactionMode:   string(domain.TransactionModeLive),
			domain.SettingLiveModeAppKey:    "live-app-key",
			domain.SettingLiveModePublicKey: "live-public-key",
			domain.SettingTestModeAppKey:    "test-app-key",
			domain.SettingTestModePublicKey: "test-public-key",
			domain.SettingCaptureMode:       string(captureMode),
			domain.SettingShopTitle:         "Test Shop",
			domain.SettingLogoURL:           "https://shop.example/logo.png",
		}),
	}
	env.states = &MockStateMachine{Orders: env.orders}
	env.gateway = &MockGateway{Client: env.client}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := NewOperationResolver(env.settings, env.gateway)
	env.engine = NewEngine(env.orders, env.ledger, env.states, resolver, env.locker, env.publisher, logger)
	return env
}

func newOrder(id, number, amount, currency string) *domain.Order {
	total := decimal.RequireFromString(amount)
	created := time.Now().Add(-2 * time.Hour)
	return &domain.Order{
		ID:             id,
		Number:         number,
		SalesChannelID: "sc-1",
		Currency:       currency,
		AmountTotal:    total,
		State:          domain.OrderStateOpen,
		Metadata:       map[string]string{},
		Customer: &domain.Customer{
			FirstName:     "Ada",
			LastName:      "Lovelace",
			Email:         "ada@example.com",
			RemoteAddress: "203.0.113.7",
			BillingAddress: domain.Address{
				Street:      "1 Analytical Way",
				City:        "London",
				CountryName: "United Kingdom",
				CountryISO:  "GB",
			},
		},
		LineItems: []domain.LineItem{{ID: 1, Label: "Difference Engine", Quantity: 1}},
		Transactions: []*domain.OrderTransaction{{
			ID:              "tx-" + id,
			OrderID:         id,
			PaymentMethodID: domain.CardPaymentMethod.ID,
			State:           domain.TransactionStateOpen,
			Amount:          total,
			CreatedAt:       created,
		}},
		CreatedAt: created,
	}
}

func withIntent(o *domain.Order, intentID string) *domain.Order {
	o.Metadata[domain.IntentIDKey] = intentID
	return o
}

func withState(o *domain.Order, state domain.TransactionState) *domain.Order {
	o.Transactions[0].State = state
	return o
}

func ledgerEntry(o *domain.Order, remoteID string, action domain.Action, age time.Duration) *domain.LedgerEntry {
	e := domain.NewLedgerEntry(o, o.Transactions[0], remoteID, action, domain.PaymentMethodCodeCard)
	e.CreatedAt = time.Now().Add(-age)
	return e
}

func decimalFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", s, err)
	}
	return d
}
