package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/lunar/payments-plugin-shopware/internal/core/domain"
	"github.com/lunar/payments-plugin-shopware/internal/core/service"
)

type UnpaidReconciler interface {
	FindUnpaid(ctx context.Context, since time.Time, limit int) ([]*domain.Order, error)
	ReconcileBatch(ctx context.Context, orders []*domain.Order) *service.BatchReport
}

// UnpaidPoller periodically sweeps recent open orders and settles the ones
// whose payment completed remotely.
type UnpaidPoller struct {
	reconciler UnpaidReconciler
	interval   time.Duration
	window     time.Duration
	batchSize  int
	now        func() time.Time
	logger     *slog.Logger
}

func NewUnpaidPoller(
	reconciler UnpaidReconciler,
	interval time.Duration,
	window time.Duration,
	batchSize int,
	logger *slog.Logger,
) *UnpaidPoller {
	return &UnpaidPoller{
		reconciler: reconciler,
		interval:   interval,
		window:     window,
		batchSize:  batchSize,
		now:        time.Now,
		logger:     logger,
	}
}

func (p *UnpaidPoller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("starting unpaid order poller",
		"interval", p.interval,
		"window", p.window,
		"batch_size", p.batchSize,
	)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("stopping unpaid order poller")
			return
		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single sweep and returns its report.
func (p *UnpaidPoller) RunOnce(ctx context.Context) *service.BatchReport {
	since := p.now().Add(-p.window)

	orders, err := p.reconciler.FindUnpaid(ctx, since, p.batchSize)
	if err != nil {
		p.logger.Error("failed to fetch unpaid orders", "error", err)
		return &service.BatchReport{Errors: map[string][]string{"query": {err.Error()}}}
	}

	if len(orders) == 0 {
		p.logger.Debug("no unpaid orders to reconcile", "since", since)
		return &service.BatchReport{}
	}

	return p.reconciler.ReconcileBatch(ctx, orders)
}
