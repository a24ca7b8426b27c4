package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/lunar/payments-plugin-shopware/internal/core/domain"
)

// UnpaidOrderService recovers orders whose customer paid on the hosted page
// but never came back to finalize.
type UnpaidOrderService struct {
	*Engine
}

func NewUnpaidOrderService(engine *Engine) *UnpaidOrderService {
	return &UnpaidOrderService{Engine: engine}
}

// LoadCheckWindow bounds how old an order may be for ReconcileOnLoad to
// look it up remotely.
const LoadCheckWindow = 50 * time.Minute

// FindUnpaid returns open Lunar orders created after since.
func (s *UnpaidOrderService) FindUnpaid(ctx context.Context, since time.Time, limit int) ([]*domain.Order, error) {
	return s.orders.FindUnpaidOrders(ctx, since, domain.PaymentMethodIDs(), limit)
}

// ReconcileBatch reconciles each order in turn. A failing or panicking order
// is recorded in the report and does not stop the rest of the batch.
func (s *UnpaidOrderService) ReconcileBatch(ctx context.Context, orders []*domain.Order) *BatchReport {
	report := newBatchReport()

	for _, order := range orders {
		if ctx.Err() != nil {
			break
		}
		outcome, err := s.reconcileSafely(ctx, order)
		report.add(order.Number, outcome, err)
	}

	report.log(s.logger, "unpaid order sweep finished")
	return report
}

func (s *UnpaidOrderService) reconcileSafely(ctx context.Context, order *domain.Order) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while reconciling order",
				"order_number", order.Number,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.Reconcile(ctx, order)
}

// Reconcile checks one unpaid order against the gateway and records the
// authorization (or instant capture) when the customer completed payment.
func (s *UnpaidOrderService) Reconcile(ctx context.Context, order *domain.Order) (Outcome, error) {
	existing, err := s.ledger.FindByOrderAndActions(ctx, order.ID, domain.ActionAuthorize, domain.ActionCapture)
	if err != nil {
		return Outcome{}, fmt.Errorf("find ledger entries: %w", err)
	}
	if existing != nil {
		return skipped("already %s", existing.Action), nil
	}

	tx := order.FirstTransaction()
	if tx == nil {
		return skipped("order has no transaction"), nil
	}
	if tx.State != domain.TransactionStateOpen {
		return skipped("transaction is %s", tx.State), nil
	}

	method, ok := domain.LookupPaymentMethod(tx.PaymentMethodID)
	if !ok {
		return skipped("payment method %s not handled", tx.PaymentMethodID), nil
	}

	intentID := order.IntentID()
	if intentID == "" {
		return Outcome{}, domain.NewMissingIntentError(order.ID)
	}

	op, err := s.resolver.Resolve(ctx, order.SalesChannelID, method)
	if err != nil {
		return Outcome{}, err
	}

	unlock, err := s.locker.Lock(ctx, order.ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("lock order %s: %w", order.ID, err)
	}
	defer unlock()

	remote, err := op.Client.Fetch(ctx, intentID)
	if err != nil {
		return Outcome{}, domain.NewGatewayError("fetch", err)
	}
	if remote == nil || !remote.AuthorisationCreated {
		return skipped("payment not authorised yet"), nil
	}

	if err := verifyRemoteTransaction(order, remote); err != nil {
		return Outcome{}, err
	}

	outcome, err := s.settleAuthorization(ctx, op, order, tx, intentID)
	if err != nil {
		return Outcome{}, err
	}
	if outcome.Reconciled {
		s.logger.Info("unpaid order reconciled",
			"order_number", order.Number,
			"intent_id", intentID,
			"capture_mode", op.CaptureMode,
		)
	}
	return outcome, nil
}

// ReconcileOnLoad runs Reconcile for a freshly placed order when it is opened
// in the admin, so a payment completed a moment ago shows up without waiting
// for the next poll.
func (s *UnpaidOrderService) ReconcileOnLoad(ctx context.Context, orderID string) (Outcome, error) {
	order, err := s.orders.FindOrder(ctx, orderID)
	if err != nil {
		return Outcome{}, err
	}
	if time.Since(order.CreatedAt) > LoadCheckWindow {
		return skipped("order older than %s", LoadCheckWindow), nil
	}
	if order.IntentID() == "" {
		return skipped("order has no payment intent"), nil
	}
	return s.Reconcile(ctx, order)
}
