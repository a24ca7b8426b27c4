package ports

import (
	"context"
	"time"

	"github.com/lunar/payments-plugin-shopware/internal/core/domain"
)

// OrderRepository reads orders and their transactions from the shop's order store.
type OrderRepository interface {
	FindOrder(ctx context.Context, id string) (*domain.Order, error)
	FindTransaction(ctx context.Context, id string) (*domain.OrderTransaction, error)
	// SetOrderMetadata merges key=value into the order's metadata map.
	SetOrderMetadata(ctx context.Context, orderID, key, value string) error
	// FindUnpaidOrders returns orders created after since whose transaction is still
	// open and was placed with one of methodIDs.
	FindUnpaidOrders(ctx context.Context, since time.Time, methodIDs []string, limit int) ([]*domain.Order, error)
}

// LedgerRepository stores the append-only record of remote actions.
type LedgerRepository interface {
	// Create returns a DUPLICATE_ACTION DomainError when the order already has an
	// entry for the same action.
	Create(ctx context.Context, entry *domain.LedgerEntry) error
	// ListByOrder returns entries ordered by creation time ascending.
	ListByOrder(ctx context.Context, orderID string) ([]*domain.LedgerEntry, error)
	// FindByOrderAndActions returns the first entry matching any of actions, or nil.
	FindByOrderAndActions(ctx context.Context, orderID string, actions ...domain.Action) (*domain.LedgerEntry, error)
}

// StateMachine applies named workflow transitions to orders and order transactions.
type StateMachine interface {
	TransitionOrder(ctx context.Context, orderID string, transition domain.OrderTransition) error
	TransitionTransaction(ctx context.Context, transactionID string, transition domain.TransactionTransition) error
}

// Scope narrows a settings lookup to a sales channel and payment method.
type Scope struct {
	SalesChannelID string
	MethodCode     string
}

// SettingsStore is a read-only key/value lookup. Missing keys yield "".
type SettingsStore interface {
	Get(ctx context.Context, key string, scope Scope) (string, error)
}
