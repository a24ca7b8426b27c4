package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/lunar/payments-plugin-shopware/internal/config"
	"github.com/lunar/payments-plugin-shopware/internal/core/domain"
	"github.com/lunar/payments-plugin-shopware/internal/core/ports"
)

// LedgerEvent is the message published for every recorded ledger entry.
type LedgerEvent struct {
	ID                string    `json:"id"`
	OrderID           string    `json:"orderId"`
	OrderNumber       string    `json:"orderNumber"`
	TransactionID     string    `json:"transactionId"`
	TransactionType   string    `json:"transactionType"`
	Currency          string    `json:"transactionCurrency"`
	OrderAmount       string    `json:"orderAmount"`
	TransactionAmount string    `json:"transactionAmount"`
	PaymentMethod     string    `json:"paymentMethod"`
	CreatedAt         time.Time `json:"createdAt"`
}

func newLedgerEvent(e *domain.LedgerEntry) LedgerEvent {
	return LedgerEvent{
		ID:                e.ID.String(),
		OrderID:           e.OrderID,
		OrderNumber:       e.OrderNumber,
		TransactionID:     e.TransactionID,
		TransactionType:   string(e.Action),
		Currency:          e.Currency,
		OrderAmount:       e.OrderAmount.String(),
		TransactionAmount: e.TransactionAmount.String(),
		PaymentMethod:     e.PaymentMethod,
		CreatedAt:         e.CreatedAt,
	}
}

// Producer publishes ledger entries. With Kafka disabled it runs in mock
// mode and only logs.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	mockMode bool
	logger   *slog.Logger
}

var _ ports.LedgerPublisher = (*Producer)(nil)

func NewProducer(cfg config.KafkaConfig, logger *slog.Logger) (*Producer, error) {
	if !cfg.Enabled {
		logger.Info("kafka disabled, ledger events will only be logged")
		return &Producer{topic: cfg.LedgerTopic, mockMode: true, logger: logger}, nil
	}

	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Retry.Max = 5
	saramaCfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	logger.Info("connected to kafka", "brokers", cfg.Brokers)
	return NewProducerWith(producer, cfg.LedgerTopic, logger), nil
}

// NewProducerWith wraps an existing sync producer.
func NewProducerWith(producer sarama.SyncProducer, topic string, logger *slog.Logger) *Producer {
	return &Producer{producer: producer, topic: topic, logger: logger}
}

func (p *Producer) Publish(ctx context.Context, entry *domain.LedgerEntry) error {
	data, err := json.Marshal(newLedgerEvent(entry))
	if err != nil {
		return fmt.Errorf("failed to marshal ledger event: %w", err)
	}

	if p.mockMode {
		p.logger.Debug("ledger event", "topic", p.topic, "payload", string(data))
		return nil
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(entry.OrderID),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.logger.Debug("ledger event published",
		"topic", p.topic,
		"partition", partition,
		"offset", offset,
		"order_id", entry.OrderID,
		"action", entry.Action,
	)
	return nil
}

func (p *Producer) Close() error {
	if p.producer == nil {
		return nil
	}
	p.logger.Info("closing kafka producer")
	return p.producer.Close()
}
