package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lunar/payments-plugin-shopware/internal/core/domain"
	"github.com/lunar/payments-plugin-shopware/internal/core/ports"
)

// OrderRepository reads the shop's orders. Only the metadata column is ever
// written from here; states change through the StateMachine.
type OrderRepository struct {
	q Executor
}

func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{q: db.Pool}
}

var _ ports.OrderRepository = (*OrderRepository)(nil)

func (r *OrderRepository) FindOrder(ctx context.Context, id string) (*domain.Order, error) {
	query := `
			SELECT id, order_number, sales_channel_id, currency, amount_total, state,
				metadata, customer, line_items, created_at
			FROM orders
			WHERE id = $1
			`

	var o domain.Order
	err := r.q.QueryRow(ctx, query, id).Scan(
		&o.ID,
		&o.Number,
		&o.SalesChannelID,
		&o.Currency,
		&o.AmountTotal,
		&o.State,
		&o.Metadata,
		&o.Customer,
		&o.LineItems,
		&o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewOrderNotFoundError(id)
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}

	txs, err := r.transactionsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Transactions = txs

	return &o, nil
}

func (r *OrderRepository) FindTransaction(ctx context.Context, id string) (*domain.OrderTransaction, error) {
	query := `
			SELECT id, order_id, payment_method_id, state, amount, created_at
			FROM order_transactions
			WHERE id = $1
			`

	tx, err := scanTransaction(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewTransactionNotFoundError(id)
		}
		return nil, fmt.Errorf("failed to scan order transaction: %w", err)
	}
	return tx, nil
}

func (r *OrderRepository) SetOrderMetadata(ctx context.Context, orderID, key, value string) error {
	query := `
			UPDATE orders
			SET metadata = metadata || jsonb_build_object($2::text, $3::text), updated_at = NOW()
			WHERE id = $1
			`

	cmdTag, err := r.q.Exec(ctx, query, orderID, key, value)
	if err != nil {
		return fmt.Errorf("failed to update order metadata: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.NewOrderNotFoundError(orderID)
	}
	return nil
}

func (r *OrderRepository) FindUnpaidOrders(ctx context.Context, since time.Time, methodIDs []string, limit int) ([]*domain.Order, error) {
	query := `
			SELECT o.id
			FROM orders o
			WHERE o.created_at > $1
				AND EXISTS (
					SELECT 1 FROM order_transactions t
					WHERE t.order_id = o.id
						AND t.state = 'open'
						AND t.payment_method_id = ANY($2)
				)
			ORDER BY o.created_at ASC
			LIMIT $3
			`

	rows, err := r.q.Query(ctx, query, since, methodIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("query unpaid orders: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan unpaid order ids: %w", err)
	}

	orders := make([]*domain.Order, 0, len(ids))
	for _, id := range ids {
		o, err := r.FindOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (r *OrderRepository) transactionsFor(ctx context.Context, orderID string) ([]*domain.OrderTransaction, error) {
	query := `
			SELECT id, order_id, payment_method_id, state, amount, created_at
			FROM order_transactions
			WHERE order_id = $1
			ORDER BY created_at ASC
			`

	rows, err := r.q.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order transactions: %w", err)
	}
	txs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.OrderTransaction, error) {
		return scanTransaction(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan order transactions: %w", err)
	}
	return txs, nil
}

func scanTransaction(row pgx.Row) (*domain.OrderTransaction, error) {
	var t domain.OrderTransaction
	err := row.Scan(
		&t.ID,
		&t.OrderID,
		&t.PaymentMethodID,
		&t.State,
		&t.Amount,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
