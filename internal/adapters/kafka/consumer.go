package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/lunar/payments-plugin-shopware/internal/config"
	"github.com/lunar/payments-plugin-shopware/internal/core/service"
)

// TransactionWrittenEvent is published by the shop whenever order
// transactions are written.
type TransactionWrittenEvent struct {
	TransactionIDs []string `json:"transactionIds"`
}

// TransactionsHandler reconciles a batch of written transaction ids.
type TransactionsHandler interface {
	HandleTransactionsWritten(ctx context.Context, transactionIDs []string) *service.BatchReport
}

type Consumer struct {
	consumer sarama.ConsumerGroup
	topics   []string
	handler  *WrittenConsumerHandler
	logger   *slog.Logger
}

func NewConsumer(cfg config.KafkaConfig, handler TransactionsHandler, logger *slog.Logger) (*Consumer, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	saramaCfg.Consumer.Offsets.Initial = sarama.OffsetNewest

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &Consumer{
		consumer: group,
		topics:   []string{cfg.WrittenTopic},
		handler:  &WrittenConsumerHandler{Handler: handler, Logger: logger},
		logger:   logger,
	}, nil
}

// Run consumes until ctx is cancelled. Consume returns on every rebalance,
// so it is called in a loop.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("kafka consumer started", "topics", c.topics)
	for {
		if err := c.consumer.Consume(ctx, c.topics, c.handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.logger.Error("error consuming messages", "error", err)
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) Close() error {
	return c.consumer.Close()
}

// WrittenConsumerHandler feeds transaction-written events to the reactor.
// Malformed messages are marked and dropped so they cannot block the partition.
type WrittenConsumerHandler struct {
	Handler TransactionsHandler
	Logger  *slog.Logger
}

func (h *WrittenConsumerHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *WrittenConsumerHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *WrittenConsumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			h.handle(session, message)
		// returns on rebalance without waiting for the claim to drain
		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *WrittenConsumerHandler) handle(session sarama.ConsumerGroupSession, message *sarama.ConsumerMessage) {
	defer session.MarkMessage(message, "")

	var event TransactionWrittenEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		h.Logger.Warn("dropping malformed transaction event",
			"topic", message.Topic,
			"partition", message.Partition,
			"offset", message.Offset,
			"error", err,
		)
		return
	}

	if len(event.TransactionIDs) > 0 {
		h.Handler.HandleTransactionsWritten(session.Context(), event.TransactionIDs)
	}
}
