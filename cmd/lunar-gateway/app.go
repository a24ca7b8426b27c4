package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"github.com/lunar/payments-plugin-shopware/internal/adapters/kafka"
	"github.com/lunar/payments-plugin-shopware/internal/adapters/lock"
	"github.com/lunar/payments-plugin-shopware/internal/adapters/lunar"
	"github.com/lunar/payments-plugin-shopware/internal/adapters/postgres"
	"github.com/lunar/payments-plugin-shopware/internal/config"
	"github.com/lunar/payments-plugin-shopware/internal/core/ports"
	"github.com/lunar/payments-plugin-shopware/internal/core/service"
	"github.com/lunar/payments-plugin-shopware/internal/worker"
)

// app is the wired object graph shared by every command.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *postgres.DB
	redis  *redis.Client

	producer *kafka.Producer
	checkout *service.CheckoutService
	reactor  *service.Reactor
	unpaid   *service.UnpaidOrderService
	admin    *service.AdminService
	poller   *worker.UnpaidPoller
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, db: db}

	orders := postgres.NewOrderRepository(db)
	ledger := postgres.NewLedgerRepository(db)
	settings := postgres.NewSettingsRepository(db)
	states := postgres.NewStateMachine(db)

	gateway := lunar.NewRetryGateway(lunar.NewClient(cfg.Lunar, logger), cfg.Retry)
	resolver := service.NewOperationResolver(settings, gateway)

	locker, err := a.newLocker(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.producer, err = kafka.NewProducer(cfg.Kafka, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	engine := service.NewEngine(orders, ledger, states, resolver, locker, a.producer, logger)

	a.checkout = service.NewCheckoutService(engine, service.CheckoutConfig{
		LiveCheckoutURL: cfg.Lunar.LiveCheckoutURL,
		TestCheckoutURL: cfg.Lunar.TestCheckoutURL,
		PlatformName:    cfg.Lunar.PlatformName,
		PlatformVersion: cfg.Lunar.PlatformVersion,
		PluginVersion:   cfg.Lunar.PluginVersion,
	})
	a.reactor = service.NewReactor(engine)
	a.unpaid = service.NewUnpaidOrderService(engine)
	a.admin = service.NewAdminService(engine)
	a.poller = worker.NewUnpaidPoller(
		a.unpaid,
		cfg.Poller.Interval,
		cfg.Poller.Window,
		cfg.Poller.BatchSize,
		logger,
	)

	return a, nil
}

// newLocker prefers Redis so that several replicas share order locks.
func (a *app) newLocker(ctx context.Context) (ports.OrderLocker, error) {
	if !a.cfg.Redis.Enabled {
		a.logger.Info("redis disabled, using in-process order locks")
		return lock.NewLocalLocker(), nil
	}

	a.redis = redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	a.logger.Info("connected to redis", "addr", a.cfg.Redis.Addr)
	return lock.NewRedisLocker(a.redis, a.cfg.Redis.LockTTL, a.logger), nil
}

func (a *app) Close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("failed to close kafka producer", "error", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("failed to close redis client", "error", err)
		}
	}
	a.db.Close()
}
