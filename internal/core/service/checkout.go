package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/lunar/payments-plugin-shopware/internal/core/domain"
)

// CheckoutConfig carries the hosted checkout origins and platform details sent with each intent.
type CheckoutConfig struct {
	LiveCheckoutURL string
	TestCheckoutURL string
	PlatformName    string
	PlatformVersion string
	PluginVersion   string
}

type PayRequest struct {
	OrderID       string
	TransactionID string
	ReturnURL     string
}

type FinalizeRequest struct {
	OrderID       string
	TransactionID string
}

type CheckoutService struct {
	*Engine
	cfg CheckoutConfig
}

func NewCheckoutService(engine *Engine, cfg CheckoutConfig) *CheckoutService {
	return &CheckoutService{
		Engine: engine,
		cfg:    cfg,
	}
}

// Pay returns the hosted checkout URL for the order, creating the remote
// payment intent on first use and reusing it afterwards.
func (s *CheckoutService) Pay(ctx context.Context, req PayRequest) (string, error) {
	order, tx, method, err := s.loadCheckout(ctx, req.OrderID, req.TransactionID)
	if err != nil {
		return "", err
	}

	if order.Customer == nil {
		return "", domain.NewValidationError("customer is not logged in")
	}

	op, err := s.resolver.Resolve(ctx, order.SalesChannelID, method)
	if err != nil {
		return "", domain.NewPaymentProcessError(tx.ID, err)
	}

	unlock, err := s.locker.Lock(ctx, order.ID)
	if err != nil {
		return "", domain.NewPaymentProcessError(tx.ID, err)
	}
	defer unlock()

	// Another request may have stored an intent while we waited for the lock.
	order, err = s.orders.FindOrder(ctx, order.ID)
	if err != nil {
		return "", err
	}

	intentID := order.IntentID()
	if intentID == "" {
		intentID, err = s.createIntent(ctx, op, order, tx, method, req.ReturnURL)
		if err != nil {
			return "", err
		}
	} else {
		s.logger.Info("reusing payment intent", "order_number", order.Number, "intent_id", intentID)
	}

	base := s.cfg.LiveCheckoutURL
	if op.TestMode {
		base = s.cfg.TestCheckoutURL
	}
	return base + intentID, nil
}

func (s *CheckoutService) createIntent(ctx context.Context, op *OperationContext, order *domain.Order, tx *domain.OrderTransaction, method domain.PaymentMethod, returnURL string) (string, error) {
	intentReq := s.intentRequest(op, order, method, returnURL)

	intentID, err := op.Client.Create(ctx, intentReq)
	if err != nil {
		return "", domain.NewPaymentProcessError(tx.ID, domain.NewGatewayError("create", err))
	}
	if intentID == "" {
		return "", domain.NewIntentCreationError(order.ID, nil)
	}

	if err := s.orders.SetOrderMetadata(ctx, order.ID, domain.IntentIDKey, intentID); err != nil {
		return "", domain.NewPaymentProcessError(tx.ID, fmt.Errorf("store intent id: %w", err))
	}

	s.logger.Info("payment intent created",
		"order_number", order.Number,
		"intent_id", intentID,
		"amount", intentReq.Amount.String(),
		"currency", intentReq.Amount.Currency,
		"test_mode", op.TestMode,
	)
	return intentID, nil
}

func (s *CheckoutService) intentRequest(op *OperationContext, order *domain.Order, method domain.PaymentMethod, returnURL string) domain.IntentRequest {
	c := order.Customer
	addr := c.BillingAddress
	address := strings.Join(nonEmpty(addr.Street, addr.City, addr.CountryName, addr.CountryISO), " ")

	req := domain.IntentRequest{
		PublicKey:       op.PublicKey,
		ShopTitle:       op.ShopTitle,
		LogoURL:         op.LogoURL,
		Amount:          domain.NewAmount(order.Currency, order.AmountTotal),
		OrderNumber:     order.Number,
		Products:        order.LineItems,
		PlatformName:    s.cfg.PlatformName,
		PlatformVersion: s.cfg.PlatformVersion,
		PluginVersion:   s.cfg.PluginVersion,
		RedirectURL:     returnURL,
		TestMode:        op.TestMode,
		Customer: domain.IntentCustomer{
			Name:    c.FullName(),
			Email:   c.Email,
			PhoneNo: c.Phone,
			Address: address,
			IP:      c.RemoteAddress,
		},
		PreferredPaymentMethod: domain.PaymentMethodCodeCard,
	}

	if method.Code == domain.PaymentMethodCodeMobilePay {
		req.PreferredPaymentMethod = domain.PaymentMethodCodeMobilePay
	}
	if op.ConfigurationID != "" {
		req.MobilePayConfiguration = op.ConfigurationID
	}
	return req
}

// Finalize verifies the remote authorization after the customer returns from
// the hosted checkout and records it.
func (s *CheckoutService) Finalize(ctx context.Context, req FinalizeRequest) error {
	order, tx, method, err := s.loadCheckout(ctx, req.OrderID, req.TransactionID)
	if err != nil {
		return err
	}

	if tx.State.IsFinalized() {
		return nil
	}

	intentID := order.IntentID()
	if intentID == "" {
		return domain.NewMissingIntentError(order.ID)
	}

	op, err := s.resolver.Resolve(ctx, order.SalesChannelID, method)
	if err != nil {
		return domain.NewPaymentProcessError(tx.ID, err)
	}

	unlock, err := s.locker.Lock(ctx, order.ID)
	if err != nil {
		return domain.NewPaymentProcessError(tx.ID, err)
	}
	defer unlock()

	current, err := s.orders.FindTransaction(ctx, tx.ID)
	if err != nil {
		return err
	}
	if current.State.IsFinalized() {
		return nil
	}

	remote, err := op.Client.Fetch(ctx, intentID)
	if err != nil {
		return domain.NewPaymentProcessError(tx.ID, domain.NewGatewayError("fetch", err))
	}

	if err := verifyRemoteTransaction(order, remote); err != nil {
		s.logger.Warn("remote transaction rejected",
			"order_number", order.Number,
			"intent_id", intentID,
			"error", err,
		)
		return err
	}

	outcome, err := s.settleAuthorization(ctx, op, order, current, intentID)
	if err != nil {
		return err
	}
	if !outcome.Reconciled {
		s.logger.Info("finalize skipped", "order_number", order.Number, "reason", outcome.Reason)
		return nil
	}

	s.logger.Info("checkout finalized",
		"order_number", order.Number,
		"intent_id", intentID,
		"capture_mode", op.CaptureMode,
	)
	return nil
}

func (s *CheckoutService) loadCheckout(ctx context.Context, orderID, transactionID string) (*domain.Order, *domain.OrderTransaction, domain.PaymentMethod, error) {
	if orderID == "" {
		return nil, nil, domain.PaymentMethod{}, domain.NewValidationError("order id is required")
	}

	order, err := s.orders.FindOrder(ctx, orderID)
	if err != nil {
		return nil, nil, domain.PaymentMethod{}, err
	}

	if transactionID == "" {
		return nil, nil, domain.PaymentMethod{}, domain.NewTransactionSetupError(order.ID)
	}
	tx, ok := order.Transaction(transactionID)
	if !ok {
		return nil, nil, domain.PaymentMethod{}, domain.NewTransactionSetupError(order.ID)
	}

	method, ok := domain.LookupPaymentMethod(tx.PaymentMethodID)
	if !ok {
		return nil, nil, domain.PaymentMethod{}, domain.NewValidationError("payment method is not handled by Lunar: " + tx.PaymentMethodID)
	}

	return order, tx, method, nil
}

func nonEmpty(parts ...string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
