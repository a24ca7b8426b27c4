package service

import (
	"context"
	"fmt"

	"github.com/lunar/payments-plugin-shopware/internal/core/domain"
)

// requestedActions maps a written transaction state to the remote action it implies.
var requestedActions = map[domain.TransactionState]domain.Action{
	domain.TransactionStatePaid:      domain.ActionCapture,
	domain.TransactionStateRefunded:  domain.ActionRefund,
	domain.TransactionStateCancelled: domain.ActionCancel,
}

// Reactor mirrors local order-transaction state writes onto the gateway.
type Reactor struct {
	*Engine
}

func NewReactor(engine *Engine) *Reactor {
	return &Reactor{Engine: engine}
}

// HandleTransactionsWritten reconciles every written transaction id. Failures
// are isolated per id, logged once for the batch and returned in the report.
func (r *Reactor) HandleTransactionsWritten(ctx context.Context, transactionIDs []string) *BatchReport {
	report := newBatchReport()

	for _, id := range transactionIDs {
		key, outcome, err := r.handle(ctx, id)
		report.add(key, outcome, err)
	}

	if report.Processed > 0 {
		report.log(r.logger, "state change reconciliation finished")
	}
	return report
}

func (r *Reactor) handle(ctx context.Context, transactionID string) (string, Outcome, error) {
	tx, err := r.orders.FindTransaction(ctx, transactionID)
	if err != nil {
		return transactionID, Outcome{}, err
	}

	method, ok := domain.LookupPaymentMethod(tx.PaymentMethodID)
	if !ok {
		return transactionID, skipped("payment method %s not handled", tx.PaymentMethodID), nil
	}

	action, ok := requestedActions[tx.State]
	if !ok {
		return transactionID, skipped("state %s needs no remote action", tx.State), nil
	}

	order, err := r.orders.FindOrder(ctx, tx.OrderID)
	if err != nil {
		return transactionID, Outcome{}, err
	}

	outcome, err := r.reconcileAction(ctx, order, tx, method, action)
	if err != nil {
		return order.Number, Outcome{}, fmt.Errorf("%s: %w", action, err)
	}
	return order.Number, outcome, nil
}
