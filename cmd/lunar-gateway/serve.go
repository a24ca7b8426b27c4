package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/lunar/payments-plugin-shopware/internal/adapters/handler"
	"github.com/lunar/payments-plugin-shopware/internal/adapters/kafka"
	"github.com/lunar/payments-plugin-shopware/internal/adapters/middleware"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var noPoller bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the unpaid-order poller and the Kafka consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(noPoller)
		},
	}

	cmd.Flags().BoolVar(&noPoller, "no-poller", false, "do not start the unpaid-order poller")
	return cmd
}

func runServe(noPoller bool) error {
	a, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, logger := a.cfg, a.logger
	logger.Info("starting lunar gateway",
		"port", cfg.Server.Port,
		"env", cfg.Primary.Env,
		"log_level", cfg.Logger.Level,
	)

	h := handler.NewHandler(a.admin, a.unpaid, a.checkout, a.reactor, logger)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	server := &http.Server{
		Addr: "0.0.0.0:" + cfg.Server.Port,
		Handler: middleware.Chain(mux,
			middleware.Recovery(logger),
			middleware.Logging(logger),
			middleware.RateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst, logger),
			middleware.Timeout(cfg.Server.ReadTimeout),
		),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	var wg sync.WaitGroup

	if !noPoller {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.poller.Start(workerCtx)
		}()
	}

	if cfg.Kafka.Enabled {
		consumer, err := kafka.NewConsumer(cfg.Kafka, a.reactor, logger)
		if err != nil {
			return err
		}
		defer consumer.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Run(workerCtx); err != nil {
				logger.Error("kafka consumer stopped", "error", err)
			}
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		logger.Error("server error", "error", err)
		cancelWorkers()
		wg.Wait()
		return err
	}

	logger.Info("shutting down server...")

	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	wg.Wait()
	logger.Info("server exited")
	return nil
}
