package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lunar/payments-plugin-shopware/internal/core/domain"
	"github.com/lunar/payments-plugin-shopware/internal/core/ports"
)

const ledgerColumns = `id, order_id, order_number, transaction_id, transaction_type,
	transaction_currency, order_amount, transaction_amount, payment_method, created_at`

type LedgerRepository struct {
	q Executor
}

func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{q: db.Pool}
}

var _ ports.LedgerRepository = (*LedgerRepository)(nil)

func (r *LedgerRepository) Create(ctx context.Context, e *domain.LedgerEntry) error {
	query := `INSERT INTO lunar_transactions (` + ledgerColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.q.Exec(ctx, query,
		e.ID,
		e.OrderID,
		e.OrderNumber,
		e.TransactionID,
		e.Action,
		e.Currency,
		e.OrderAmount,
		e.TransactionAmount,
		e.PaymentMethod,
		e.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.NewDuplicateActionError(e.OrderID, e.Action)
		}
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}
	return nil
}

func (r *LedgerRepository) ListByOrder(ctx context.Context, orderID string) ([]*domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + `
			  FROM lunar_transactions
			  WHERE order_id = $1
			  ORDER BY created_at ASC, id ASC`

	rows, err := r.q.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.LedgerEntry, error) {
		return scanLedgerEntry(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan ledger entries: %w", err)
	}
	return entries, nil
}

func (r *LedgerRepository) FindByOrderAndActions(ctx context.Context, orderID string, actions ...domain.Action) (*domain.LedgerEntry, error) {
	if len(actions) == 0 {
		return nil, nil
	}

	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a)
	}

	query := `SELECT ` + ledgerColumns + `
			  FROM lunar_transactions
			  WHERE order_id = $1 AND transaction_type = ANY($2)
			  ORDER BY created_at ASC
			  LIMIT 1`

	entry, err := scanLedgerEntry(r.q.QueryRow(ctx, query, orderID, names))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
	}
	return entry, nil
}

func scanLedgerEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	err := row.Scan(
		&e.ID,
		&e.OrderID,
		&e.OrderNumber,
		&e.TransactionID,
		&e.Action,
		&e.Currency,
		&e.OrderAmount,
		&e.TransactionAmount,
		&e.PaymentMethod,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
