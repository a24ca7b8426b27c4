package lunar

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/lunar/payments-plugin-shopware/internal/config"
	"github.com/lunar/payments-plugin-shopware/internal/core/domain"
	"github.com/lunar/payments-plugin-shopware/internal/core/ports"
)

// RetryGateway wraps a Gateway so that reads are retried with backoff.
// Capture, refund and cancel pass straight through: repeating a mutating
// call could move money twice.
type RetryGateway struct {
	inner      ports.Gateway
	baseDelay  time.Duration
	maxRetries int
}

func NewRetryGateway(inner ports.Gateway, cfg config.RetryConfig) *RetryGateway {
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &RetryGateway{
		inner:      inner,
		baseDelay:  cfg.BaseDelay,
		maxRetries: maxRetries,
	}
}

func (r *RetryGateway) Payments(appKey string) ports.PaymentsClient {
	return &retryPayments{PaymentsClient: r.inner.Payments(appKey), gateway: r}
}

type retryPayments struct {
	ports.PaymentsClient
	gateway *RetryGateway
}

func (r *retryPayments) Fetch(ctx context.Context, intentID string) (*domain.RemoteTransaction, error) {
	return retry(r.gateway, ctx, func(ctx context.Context) (*domain.RemoteTransaction, error) {
		return r.PaymentsClient.Fetch(ctx, intentID)
	})
}

func retry[T any](r *RetryGateway, ctx context.Context, operation func(ctx context.Context) (*T, error)) (*T, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		resp, err := operation(ctx)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}

		if attempt < r.maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.backoff(attempt)):
			}
		}
	}

	return nil, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if gwErr, ok := IsGatewayError(err); ok {
		return gwErr.IsRetryable()
	}
	// transport failures and timeouts
	return true
}

// backoff grows exponentially with up to a quarter of jitter on top.
func (r *RetryGateway) backoff(attempt int) time.Duration {
	base := r.baseDelay * time.Duration(1<<attempt)
	if base <= 0 {
		return 0
	}
	jitter := time.Duration(rand.Int63n(int64(base)/4 + 1))
	return base + jitter
}
