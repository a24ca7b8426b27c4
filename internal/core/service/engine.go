package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lunar/payments-plugin-shopware/internal/core/domain"
	"github.com/lunar/payments-plugin-shopware/internal/core/ports"
)

// Engine holds the collaborators shared by checkout, reactor, poller and admin flows.
type Engine struct {
	orders    ports.OrderRepository
	ledger    ports.LedgerRepository
	states    ports.StateMachine
	policy    *Policy
	resolver  *OperationResolver
	locker    ports.OrderLocker
	publisher ports.LedgerPublisher
	logger    *slog.Logger
}

func NewEngine(
	orders ports.OrderRepository,
	ledger ports.LedgerRepository,
	states ports.StateMachine,
	resolver *OperationResolver,
	locker ports.OrderLocker,
	publisher ports.LedgerPublisher,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		orders:    orders,
		ledger:    ledger,
		states:    states,
		policy:    NewPolicy(ledger),
		resolver:  resolver,
		locker:    locker,
		publisher: publisher,
		logger:    logger,
	}
}

// Outcome describes what a single reconciliation attempt did.
type Outcome struct {
	Reconciled bool
	Reason     string
}

func skipped(format string, args ...any) Outcome {
	return Outcome{Reason: fmt.Sprintf(format, args...)}
}

var reconciled = Outcome{Reconciled: true}

// reconcileAction runs the guarded remote action for an order that already
// has a ledger history, then records it and moves the order along.
func (e *Engine) reconcileAction(ctx context.Context, order *domain.Order, tx *domain.OrderTransaction, method domain.PaymentMethod, action domain.Action) (Outcome, error) {
	pre, ok := preconditions[action]
	if !ok {
		return Outcome{}, domain.NewValidationError(fmt.Sprintf("action %q cannot be reconciled", action))
	}

	prior, err := e.ledger.FindByOrderAndActions(ctx, order.ID, pre.requires)
	if err != nil {
		return Outcome{}, fmt.Errorf("find %s entry: %w", pre.requires, err)
	}
	if prior == nil {
		return skipped("no %s entry recorded for order", pre.requires), nil
	}

	unlock, err := e.locker.Lock(ctx, order.ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("lock order %s: %w", order.ID, err)
	}
	defer unlock()

	decision, err := e.policy.Decide(ctx, order.ID, action)
	if err != nil {
		return Outcome{}, err
	}
	if !decision.Proceed {
		e.logger.Debug("skipping duplicate action",
			"order_id", order.ID,
			"action", action,
			"reason", decision.Reason,
		)
		return skipped("%s", decision.Reason), nil
	}

	op, err := e.resolver.Resolve(ctx, order.SalesChannelID, method)
	if err != nil {
		return Outcome{}, err
	}

	amount := domain.NewAmount(order.Currency, tx.Amount)
	if _, err := e.policy.Execute(ctx, op.Client, decision.AnchorID(), action, amount); err != nil {
		return Outcome{}, err
	}

	entry := domain.NewLedgerEntry(order, tx, decision.AnchorID(), action, method.Code)
	if err := e.record(ctx, entry); err != nil {
		return Outcome{}, err
	}

	e.logger.Info("remote action reconciled",
		"order_number", order.Number,
		"action", action,
		"transaction_id", entry.TransactionID,
		"amount", amount.String(),
		"currency", amount.Currency,
	)

	if transition, ok := domain.OrderTransitionFor(action); ok {
		if err := e.transitionOrder(ctx, order, transition); err != nil {
			return Outcome{}, err
		}
	}

	return reconciled, nil
}

// transitionOrder moves the order workflow after a remote action has been
// recorded. An order the merchant already moved past the transition is left
// where it is.
func (e *Engine) transitionOrder(ctx context.Context, order *domain.Order, transition domain.OrderTransition) error {
	err := e.states.TransitionOrder(ctx, order.ID, transition)
	if err == nil {
		return nil
	}
	if domain.IsErrorCode(err, domain.ErrCodeInvalidTransition) {
		e.logger.Warn("order workflow not moved",
			"order_number", order.Number,
			"transition", transition,
			"reason", err,
		)
		return nil
	}
	return fmt.Errorf("order transition %s: %w", transition, err)
}

// settleAuthorization records a verified remote authorization. In instant
// capture mode it then captures and records the capture as a second entry.
// A failed capture keeps the authorize entry so the merchant can capture
// from the admin, and the poller treats the order as handled.
func (e *Engine) settleAuthorization(ctx context.Context, op *OperationContext, order *domain.Order, tx *domain.OrderTransaction, intentID string) (Outcome, error) {
	decision, err := e.policy.Decide(ctx, order.ID, domain.ActionAuthorize)
	if err != nil {
		return Outcome{}, err
	}
	if !decision.Proceed {
		return skipped("%s", decision.Reason), nil
	}

	authorize := domain.NewLedgerEntry(order, tx, intentID, domain.ActionAuthorize, op.Method.Code)
	if err := e.record(ctx, authorize); err != nil {
		return Outcome{}, err
	}
	if err := e.states.TransitionTransaction(ctx, tx.ID, domain.TransactionTransitionAuthorize); err != nil {
		return Outcome{}, fmt.Errorf("transaction transition authorize: %w", err)
	}

	if !op.InstantCapture() {
		return reconciled, nil
	}

	amount := domain.NewAmount(order.Currency, tx.Amount)
	if _, err := e.policy.Execute(ctx, op.Client, intentID, domain.ActionCapture, amount); err != nil {
		return Outcome{}, domain.NewCaptureError(order.ID, err)
	}

	capture := domain.NewLedgerEntry(order, tx, intentID, domain.ActionCapture, op.Method.Code)
	if err := e.record(ctx, capture); err != nil {
		return Outcome{}, err
	}
	if err := e.states.TransitionTransaction(ctx, tx.ID, domain.TransactionTransitionPaid); err != nil {
		return Outcome{}, fmt.Errorf("transaction transition paid: %w", err)
	}
	if err := e.transitionOrder(ctx, order, domain.OrderTransitionProcess); err != nil {
		return Outcome{}, err
	}
	return reconciled, nil
}

func (e *Engine) record(ctx context.Context, entry *domain.LedgerEntry) error {
	if err := e.ledger.Create(ctx, entry); err != nil {
		if domain.IsErrorCode(err, domain.ErrCodeDuplicateAction) {
			e.logger.Warn("ledger entry already recorded after remote call",
				"order_id", entry.OrderID,
				"action", entry.Action,
			)
		}
		return err
	}

	if err := e.publisher.Publish(ctx, entry); err != nil {
		e.logger.Warn("failed to publish ledger entry",
			"order_id", entry.OrderID,
			"action", entry.Action,
			"error", err,
		)
	}
	return nil
}

func verifyRemoteTransaction(order *domain.Order, remote *domain.RemoteTransaction) error {
	if remote == nil {
		return domain.NewVerificationError("no transaction returned")
	}
	if !remote.AuthorisationCreated {
		return domain.NewVerificationError("authorisation not created")
	}
	if !strings.EqualFold(remote.Amount.Currency, order.Currency) {
		return domain.NewVerificationError(fmt.Sprintf("currency %s does not match order currency %s", remote.Amount.Currency, order.Currency))
	}
	if !remote.Amount.Decimal.Equal(order.AmountTotal) {
		return domain.NewVerificationError(fmt.Sprintf("amount %s does not match order total %s", remote.Amount.Decimal, order.AmountTotal))
	}
	return nil
}
