package events

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/PawResorts/service-reservation/internal/application"
	"github.com/PawResorts/service-reservation/internal/platform/kafka"
)

// Payment topic and event types this service reacts to.
const (
	TopicPaymentEvents = "payment.events"

	PaymentDepositCaptured = "payment.deposit_captured"
	PaymentRefundIssued    = "payment.refund_issued"
)

// DepositCapturedEvent is published by the payment service when a deposit
// charge settles.
type DepositCapturedEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	PaymentID     uuid.UUID `json:"payment_id"`
	AmountCents   int64     `json:"amount_cents"`
}

// PaymentEventConsumer listens to payment events and confirms reservations
// once their deposit is captured.
type PaymentEventConsumer struct {
	consumer *kafka.Consumer
	service  *application.ReservationService
	logger   *zap.Logger
}

// NewPaymentEventConsumer creates a new PaymentEventConsumer.
func NewPaymentEventConsumer(
	brokers []string,
	groupID string,
	service *application.ReservationService,
	logger *zap.Logger,
) *PaymentEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, TopicPaymentEvents, logger)
	return &PaymentEventConsumer{
		consumer: consumer,
		service:  service,
		logger:   logger,
	}
}

// Start begins consuming payment events. This blocks until the context is cancelled.
func (c *PaymentEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *PaymentEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *PaymentEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	var cloudEvent kafka.CloudEvent
	if err := json.Unmarshal(msg.Value, &cloudEvent); err != nil {
		c.logger.Error("failed to parse cloud event from payment topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case PaymentDepositCaptured:
		return c.handleDepositCaptured(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled payment event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *PaymentEventConsumer) handleDepositCaptured(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt DepositCapturedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse DepositCapturedEvent data",
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}

	c.logger.Info("processing deposit captured event",
		zap.String("reservation_id", evt.ReservationID.String()),
		zap.String("payment_id", evt.PaymentID.String()),
	)

	_, err := c.service.MarkDepositPaid(ctx, evt.ReservationID)
	if err != nil {
		c.logger.Error("failed to confirm reservation after deposit capture",
			zap.String("reservation_id", evt.ReservationID.String()),
			zap.Error(err),
		)
		return err
	}

	c.logger.Info("reservation confirmed after deposit capture",
		zap.String("reservation_id", evt.ReservationID.String()),
	)
	return nil
}
