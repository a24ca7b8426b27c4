package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lunar/payments-plugin-shopware/internal/core/domain"
	"github.com/lunar/payments-plugin-shopware/internal/core/ports"
)

// StateMachine applies transitions under a row lock and records each change
// in state_machine_history.
type StateMachine struct {
	db *DB
}

func NewStateMachine(db *DB) *StateMachine {
	return &StateMachine{db: db}
}

var _ ports.StateMachine = (*StateMachine)(nil)

func (m *StateMachine) TransitionOrder(ctx context.Context, orderID string, transition domain.OrderTransition) error {
	return m.db.WithTx(ctx, func(q Executor) error {
		var from domain.OrderState
		err := q.QueryRow(ctx, `SELECT state FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&from)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.NewOrderNotFoundError(orderID)
			}
			return fmt.Errorf("failed to lock order: %w", err)
		}

		to, err := domain.NextOrderState(from, transition)
		if err != nil {
			return err
		}

		if _, err := q.Exec(ctx, `UPDATE orders SET state = $1, updated_at = NOW() WHERE id = $2`, to, orderID); err != nil {
			return fmt.Errorf("failed to update order state: %w", err)
		}
		return recordHistory(ctx, q, "order", orderID, string(transition), string(from), string(to))
	})
}

func (m *StateMachine) TransitionTransaction(ctx context.Context, transactionID string, transition domain.TransactionTransition) error {
	return m.db.WithTx(ctx, func(q Executor) error {
		var from domain.TransactionState
		err := q.QueryRow(ctx, `SELECT state FROM order_transactions WHERE id = $1 FOR UPDATE`, transactionID).Scan(&from)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.NewTransactionNotFoundError(transactionID)
			}
			return fmt.Errorf("failed to lock order transaction: %w", err)
		}

		to, err := domain.NextTransactionState(from, transition)
		if err != nil {
			return err
		}

		if _, err := q.Exec(ctx, `UPDATE order_transactions SET state = $1, updated_at = NOW() WHERE id = $2`, to, transactionID); err != nil {
			return fmt.Errorf("failed to update order transaction state: %w", err)
		}
		return recordHistory(ctx, q, "order_transaction", transactionID, string(transition), string(from), string(to))
	})
}

func recordHistory(ctx context.Context, q Executor, entityType, entityID, transition, from, to string) error {
	query := `INSERT INTO state_machine_history (entity_type, entity_id, transition, from_state, to_state)
			  VALUES ($1, $2, $3, $4, $5)`

	if _, err := q.Exec(ctx, query, entityType, entityID, transition, from, to); err != nil {
		return fmt.Errorf("failed to record state history: %w", err)
	}
	return nil
}
