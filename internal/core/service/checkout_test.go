package service

import (
	"context"
	"errors"
	"testing"

	"github.com/lunar/payments-plugin-shopware/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCheckoutConfig = CheckoutConfig{
	LiveCheckoutURL: "https://pay.lunar.money/?id=",
	TestCheckoutURL: "https://hosted-checkout-git-develop-lunar-app.vercel.app/?id=",
	PlatformName:    "Shopware",
	PlatformVersion: "6.5.0",
	PluginVersion:   "1.0.0",
}

func TestCheckoutService_Pay_CreatesIntentOnce(t *testing.T) {
	order := newOrder("o-1", "10001", "100.00", "EUR")
	env := newTestEnv(t, domain.CaptureModeDelayed, order)
	env.client.CreateFn = func(ctx context.Context, req domain.IntentRequest) (string, error) {
		return "pi_1", nil
	}
	svc := NewCheckoutService(env.engine, testCheckoutConfig)
	req := PayRequest{OrderID: order.ID, TransactionID: order.Transactions[0].ID, ReturnURL: "https://shop.example/return"}

	first, err := svc.Pay(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Pay(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "https://pay.lunar.money/?id=pi_1", first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, env.client.CreateCalls)
	assert.Equal(t, "pi_1", order.IntentID())
	assert.Equal(t, []string{"live-app-key", "live-app-key"}, env.gateway.Keys)
}

func TestCheckoutService_Pay_IntentRequest(t *testing.T) {
	order := newOrder("o-1", "10001", "100", "EUR")
	order.Transactions[0].PaymentMethodID = domain.MobilePayPaymentMethod.ID
	env := newTestEnv(t, domain.CaptureModeDelayed, order)
	env.settings.Values[domain.SettingConfigurationID] = "mp-config"

	var got domain.IntentRequest
	env.client.CreateFn = func(ctx context.Context, req domain.IntentRequest) (string, error) {
		got = req
		return "pi_1", nil
	}
	svc := NewCheckoutService(env.engine, testCheckoutConfig)

	_, err := svc.Pay(context.Background(), PayRequest{OrderID: order.ID, TransactionID: order.Transactions[0].ID, ReturnURL: "https://shop.example/return"})
	require.NoError(t, err)

	assert.Equal(t, "live-public-key", got.PublicKey)
	assert.Equal(t, "Test Shop", got.ShopTitle)
	assert.Equal(t, "100.00", got.Amount.String())
	assert.Equal(t, "EUR", got.Amount.Currency)
	assert.Equal(t, "10001", got.OrderNumber)
	assert.Equal(t, "Ada Lovelace", got.Customer.Name)
	assert.Equal(t, "1 Analytical Way London United Kingdom GB", got.Customer.Address)
	assert.Equal(t, domain.PaymentMethodCodeMobilePay, got.PreferredPaymentMethod)
	assert.Equal(t, "mp-config", got.MobilePayConfiguration)
	assert.Equal(t, "https://shop.example/return", got.RedirectURL)
	assert.False(t, got.TestMode)
}

func TestCheckoutService_Pay_TestMode(t *testing.T) {
	order := newOrder("o-1", "10001", "100.00", "EUR")
	env := newTestEnv(t, domain.CaptureModeDelayed, order)
	env.settings.Values[domain.SettingTransactionMode] = string(domain.TransactionModeTest)
	svc := NewCheckoutService(env.engine, testCheckoutConfig)

	url, err := svc.Pay(context.Background(), PayRequest{OrderID: order.ID, TransactionID: order.Transactions[0].ID})
	require.NoError(t, err)

	assert.Equal(t, testCheckoutConfig.TestCheckoutURL+"pi_default", url)
	assert.Equal(t, []string{"test-app-key"}, env.gateway.Keys)
}

func TestCheckoutService_Pay_Failures(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(env *testEnv, order *domain.Order) PayRequest
		wantCode string
	}{
		{
			name: "unknown transaction",
			setup: func(env *testEnv, order *domain.Order) PayRequest {
				return PayRequest{OrderID: order.ID, TransactionID: "missing"}
			},
			wantCode: domain.ErrCodeTransactionSetup,
		},
		{
			name: "no transaction id",
			setup: func(env *testEnv, order *domain.Order) PayRequest {
				return PayRequest{OrderID: order.ID}
			},
			wantCode: domain.ErrCodeTransactionSetup,
		},
		{
			name: "empty intent id",
			setup: func(env *testEnv, order *domain.Order) PayRequest {
				env.client.CreateFn = func(ctx context.Context, req domain.IntentRequest) (string, error) {
					return "", nil
				}
				return PayRequest{OrderID: order.ID, TransactionID: order.Transactions[0].ID}
			},
			wantCode: domain.ErrCodeIntentCreation,
		},
		{
			name: "gateway error",
			setup: func(env *testEnv, order *domain.Order) PayRequest {
				env.client.CreateFn = func(ctx context.Context, req domain.IntentRequest) (string, error) {
					return "", errors.New("invalid public key")
				}
				return PayRequest{OrderID: order.ID, TransactionID: order.Transactions[0].ID}
			},
			wantCode: domain.ErrCodePaymentProcess,
		},
		{
			name: "missing app key",
			setup: func(env *testEnv, order *domain.Order) PayRequest {
				delete(env.settings.Values, domain.SettingLiveModeAppKey)
				return PayRequest{OrderID: order.ID, TransactionID: order.Transactions[0].ID}
			},
			wantCode: domain.ErrCodePaymentProcess,
		},
		{
			name: "guest without customer",
			setup: func(env *testEnv, order *domain.Order) PayRequest {
				order.Customer = nil
				return PayRequest{OrderID: order.ID, TransactionID: order.Transactions[0].ID}
			},
			wantCode: domain.ErrCodeValidation,
		},
		{
			name: "unknown order",
			setup: func(env *testEnv, order *domain.Order) PayRequest {
				return PayRequest{OrderID: "nope", TransactionID: order.Transactions[0].ID}
			},
			wantCode: domain.ErrCodeOrderNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := newOrder("o-1", "10001", "100.00", "EUR")
			env := newTestEnv(t, domain.CaptureModeDelayed, order)
			svc := NewCheckoutService(env.engine, testCheckoutConfig)

			_, err := svc.Pay(context.Background(), tt.setup(env, order))
			require.Error(t, err)
			assert.True(t, domain.IsErrorCode(err, tt.wantCode), "got %v", err)
			assert.Empty(t, order.IntentID())
		})
	}
}

func TestCheckoutService_Finalize_Deferred(t *testing.T) {
	order := withIntent(newOrder("o-1", "10001", "100.00", "EUR"), "pi_1")
	env := newTestEnv(t, domain.CaptureModeDelayed, order)
	env.client.FetchFn = func(ctx context.Context, intentID string) (*domain.RemoteTransaction, error) {
		return &domain.RemoteTransaction{
			ID:                   intentID,
			AuthorisationCreated: true,
			Amount:               domain.NewAmount("EUR", decimalFromString(t, "100.00")),
		}, nil
	}
	svc := NewCheckoutService(env.engine, testCheckoutConfig)

	err := svc.Finalize(context.Background(), FinalizeRequest{OrderID: order.ID, TransactionID: order.Transactions[0].ID})
	require.NoError(t, err)

	entries := env.ledger.Entries(order.ID, domain.ActionAuthorize)
	require.Len(t, entries, 1)
	assert.Equal(t, "pi_1", entries[0].TransactionID)
	assert.Equal(t, "10001", entries[0].OrderNumber)
	assert.Equal(t, domain.PaymentMethodCodeCard, entries[0].PaymentMethod)
	assert.Equal(t, domain.TransactionStateAuthorized, order.Transactions[0].State)
	assert.Equal(t, domain.OrderStateOpen, order.State)
	assert.Zero(t, env.client.CaptureCalls)
	assert.Len(t, env.publisher.Published, 1)
}

func TestCheckoutService_Finalize_Instant(t *testing.T) {
	order := withIntent(newOrder("o-1", "10001", "49.95", "DKK"), "pi_1")
	env := newTestEnv(t, domain.CaptureModeInstant, order)
	env.client.FetchFn = func(ctx context.Context, intentID string) (*domain.RemoteTransaction, error) {
		return &domain.RemoteTransaction{
			ID:                   intentID,
			AuthorisationCreated: true,
			Amount:               domain.NewAmount("DKK", decimalFromString(t, "49.950")),
		}, nil
	}
	var captured domain.Amount
	env.client.CaptureFn = func(ctx context.Context, intentID string, amount domain.Amount) (*domain.ActionResult, error) {
		captured = amount
		return &domain.ActionResult{CaptureState: domain.RemoteStateCompleted}, nil
	}
	svc := NewCheckoutService(env.engine, testCheckoutConfig)

	err := svc.Finalize(context.Background(), FinalizeRequest{OrderID: order.ID, TransactionID: order.Transactions[0].ID})
	require.NoError(t, err)

	assert.Equal(t, 1, env.client.CaptureCalls)
	assert.Equal(t, "49.95", captured.String())
	assert.Len(t, env.ledger.Entries(order.ID, domain.ActionAuthorize), 1)
	assert.Len(t, env.ledger.Entries(order.ID, domain.ActionCapture), 1)
	assert.Equal(t, domain.TransactionStatePaid, order.Transactions[0].State)
	assert.Equal(t, domain.OrderStateInProgress, order.State)
	assert.Len(t, env.publisher.Published, 2)
}

func TestCheckoutService_Finalize_InstantCaptureFails(t *testing.T) {
	order := withIntent(newOrder("o-1", "10001", "100.00", "EUR"), "pi_1")
	env := newTestEnv(t, domain.CaptureModeInstant, order)
	env.client.FetchFn = func(ctx context.Context, intentID string) (*domain.RemoteTransaction, error) {
		return &domain.RemoteTransaction{
			ID:                   intentID,
			AuthorisationCreated: true,
			Amount:               domain.NewAmount("EUR", order.AmountTotal),
		}, nil
	}
	env.client.CaptureFn = func(ctx context.Context, intentID string, amount domain.Amount) (*domain.ActionResult, error) {
		return &domain.ActionResult{CaptureState: "declined"}, nil
	}
	svc := NewCheckoutService(env.engine, testCheckoutConfig)

	err := svc.Finalize(context.Background(), FinalizeRequest{OrderID: order.ID, TransactionID: order.Transactions[0].ID})
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeCapture))
	assert.Len(t, env.ledger.Entries(order.ID, domain.ActionAuthorize), 1)
	assert.Empty(t, env.ledger.Entries(order.ID, domain.ActionCapture))
	assert.Equal(t, domain.TransactionStateAuthorized, order.Transactions[0].State)
	assert.Equal(t, domain.OrderStateOpen, order.State)

	// the recorded authorization keeps the poller away from the order
	outcome, err := NewUnpaidOrderService(env.engine).Reconcile(context.Background(), order)
	require.NoError(t, err)
	assert.False(t, outcome.Reconciled)
	assert.Equal(t, 1, env.client.CaptureCalls)

	// and lets the merchant capture from the admin
	env.client.CaptureFn = nil
	outcome, err = NewAdminService(env.engine).Apply(context.Background(), order.ID, domain.ActionCapture)
	require.NoError(t, err)
	assert.True(t, outcome.Reconciled)
	assert.Equal(t, 2, env.client.CaptureCalls)
	assert.Len(t, env.ledger.Entries(order.ID, domain.ActionCapture), 1)
	assert.Equal(t, domain.TransactionStatePaid, order.Transactions[0].State)
	assert.Equal(t, domain.OrderStateInProgress, order.State)
}

func TestCheckoutService_Finalize_RejectsTampering(t *testing.T) {
	tests := []struct {
		name       string
		authorised bool
		currency   string
		amount     string
	}{
		{"currency mismatch", true, "USD", "100.00"},
		{"amount mismatch", true, "EUR", "1.00"},
		{"not authorised", false, "EUR", "100.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := withIntent(newOrder("o-1", "10001", "100.00", "EUR"), "pi_1")
			env := newTestEnv(t, domain.CaptureModeDelayed, order)
			env.client.FetchFn = func(ctx context.Context, intentID string) (*domain.RemoteTransaction, error) {
				return &domain.RemoteTransaction{
					ID:                   intentID,
					AuthorisationCreated: tt.authorised,
					Amount:               domain.NewAmount(tt.currency, decimalFromString(t, tt.amount)),
				}, nil
			}
			svc := NewCheckoutService(env.engine, testCheckoutConfig)

			err := svc.Finalize(context.Background(), FinalizeRequest{OrderID: order.ID, TransactionID: order.Transactions[0].ID})
			assert.True(t, domain.IsErrorCode(err, domain.ErrCodeVerification), "got %v", err)
			assert.Zero(t, env.ledger.Len())
			assert.Equal(t, domain.TransactionStateOpen, order.Transactions[0].State)
		})
	}
}

func TestCheckoutService_Finalize_AlreadyFinalized(t *testing.T) {
	for _, state := range []domain.TransactionState{domain.TransactionStateAuthorized, domain.TransactionStatePaid} {
		t.Run(string(state), func(t *testing.T) {
			order := withState(withIntent(newOrder("o-1", "10001", "100.00", "EUR"), "pi_1"), state)
			env := newTestEnv(t, domain.CaptureModeDelayed, order)
			svc := NewCheckoutService(env.engine, testCheckoutConfig)

			err := svc.Finalize(context.Background(), FinalizeRequest{OrderID: order.ID, TransactionID: order.Transactions[0].ID})
			require.NoError(t, err)
			assert.Zero(t, env.client.FetchCalls)
			assert.Zero(t, env.ledger.Len())
		})
	}
}

func TestCheckoutService_Finalize_MissingIntent(t *testing.T) {
	order := newOrder("o-1", "10001", "100.00", "EUR")
	env := newTestEnv(t, domain.CaptureModeDelayed, order)
	svc := NewCheckoutService(env.engine, testCheckoutConfig)

	err := svc.Finalize(context.Background(), FinalizeRequest{OrderID: order.ID, TransactionID: order.Transactions[0].ID})
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeMissingIntent))
	assert.Zero(t, env.client.FetchCalls)
}

func TestCheckoutService_Finalize_FetchFails(t *testing.T) {
	order := withIntent(newOrder("o-1", "10001", "100.00", "EUR"), "pi_1")
	env := newTestEnv(t, domain.CaptureModeDelayed, order)
	env.client.FetchFn = func(ctx context.Context, intentID string) (*domain.RemoteTransaction, error) {
		return nil, errors.New("timeout")
	}
	svc := NewCheckoutService(env.engine, testCheckoutConfig)

	err := svc.Finalize(context.Background(), FinalizeRequest{OrderID: order.ID, TransactionID: order.Transactions[0].ID})
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodePaymentProcess))
	assert.True(t, domain.IsErrorCode(errors.Unwrap(err), domain.ErrCodeGateway))
}
