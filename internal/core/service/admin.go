package service

import (
	"context"
	"fmt"

	"github.com/lunar/payments-plugin-shopware/internal/core/domain"
)

// AdminService runs merchant-initiated capture, refund and cancel actions.
type AdminService struct {
	*Engine
}

func NewAdminService(engine *Engine) *AdminService {
	return &AdminService{Engine: engine}
}

// Apply performs action against the order's most recent transaction. The
// remote call and ledger write happen first, the local transaction state
// follows only on success, so a failed action can simply be retried.
func (s *AdminService) Apply(ctx context.Context, orderID string, action domain.Action) (Outcome, error) {
	transition, ok := domain.TransactionTransitionFor(action)
	if !ok {
		return Outcome{}, domain.NewValidationError(fmt.Sprintf("unsupported action %q", action))
	}

	order, err := s.orders.FindOrder(ctx, orderID)
	if err != nil {
		return Outcome{}, err
	}

	tx := order.LastTransaction()
	if tx == nil {
		return Outcome{}, domain.NewTransactionSetupError(order.ID)
	}

	method, ok := domain.LookupPaymentMethod(tx.PaymentMethodID)
	if !ok {
		return Outcome{}, domain.NewValidationError("order was not paid with Lunar")
	}

	if _, err := domain.NextTransactionState(tx.State, transition); err != nil {
		return Outcome{}, err
	}

	outcome, err := s.reconcileAction(ctx, order, tx, method, action)
	if err != nil {
		return Outcome{}, err
	}
	if !outcome.Reconciled {
		recorded, err := s.ledger.FindByOrderAndActions(ctx, order.ID, action)
		if err != nil {
			return Outcome{}, fmt.Errorf("find %s entry: %w", action, err)
		}
		if recorded == nil {
			return outcome, nil
		}
		// remote side already done; bring local state in line
		if orderTransition, ok := domain.OrderTransitionFor(action); ok {
			if err := s.transitionOrder(ctx, order, orderTransition); err != nil {
				return Outcome{}, err
			}
		}
		outcome = reconciled
	}

	if err := s.states.TransitionTransaction(ctx, tx.ID, transition); err != nil {
		return Outcome{}, fmt.Errorf("transaction transition %s: %w", transition, err)
	}

	s.logger.Info("admin action applied",
		"order_number", order.Number,
		"action", action,
	)
	return outcome, nil
}

// Transactions returns the order's ledger entries, oldest first.
func (s *AdminService) Transactions(ctx context.Context, orderID string) ([]*domain.LedgerEntry, error) {
	if _, err := s.orders.FindOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.ledger.ListByOrder(ctx, orderID)
}
