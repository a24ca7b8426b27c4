package ports

import (
	"context"

	"github.com/lunar/payments-plugin-shopware/internal/core/domain"
)

// OrderLocker serialises reconciliation work on a single order.
type OrderLocker interface {
	Lock(ctx context.Context, orderID string) (unlock func(), err error)
}

// LedgerPublisher announces newly recorded ledger entries.
type LedgerPublisher interface {
	Publish(ctx context.Context, entry *domain.LedgerEntry) error
}
