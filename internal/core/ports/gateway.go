package ports

import (
	"context"

	"github.com/lunar/payments-plugin-shopware/internal/core/domain"
)

// Gateway hands out payment API clients bound to an app key.
type Gateway interface {
	Payments(appKey string) PaymentsClient
}

// PaymentsClient is the remote payment API.
type PaymentsClient interface {
	Create(ctx context.Context, req domain.IntentRequest) (string, error)
	Fetch(ctx context.Context, intentID string) (*domain.RemoteTransaction, error)
	Capture(ctx context.Context, intentID string, amount domain.Amount) (*domain.ActionResult, error)
	Refund(ctx context.Context, intentID string, amount domain.Amount) (*domain.ActionResult, error)
	Cancel(ctx context.Context, intentID string, amount domain.Amount) (*domain.ActionResult, error)
}
