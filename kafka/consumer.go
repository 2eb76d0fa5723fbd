package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Figuelia98/wdd430-group-project/middleware"
	"github.com/Figuelia98/wdd430-group-project/models"
)

func InitConsumer(logger *zap.Logger) (sarama.Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true
	config.Consumer.Retry.Backoff = 1 * time.Second

	brokers := []string{getEnv("KAFKA_BROKER", "localhost:9092")}

	consumer, err := sarama.NewConsumer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	logger.Info("Kafka consumer initialized")
	return consumer, nil
}

// StartConsumer drains the order-events topic for the notification side:
// events are logged and counted, nothing is written back to the store.
func StartConsumer(consumer sarama.Consumer, logger *zap.Logger) error {
	topic := getEnv("KAFKA_TOPIC", OrderEventsTopic)
	partitionConsumer, err := consumer.ConsumePartition(topic, 0, sarama.OffsetNewest)
	if err != nil {
		return fmt.Errorf("failed to consume partition: %w", err)
	}
	defer partitionConsumer.Close()

	logger.Info("Kafka consumer started", zap.String("topic", topic))

	for {
		select {
		case message := <-partitionConsumer.Messages():
			if err := handleMessageWithRetry(message, logger, 3); err != nil {
				logger.Error("Failed to handle message after retries", zap.Error(err))
			}
		case err := <-partitionConsumer.Errors():
			logger.Error("Kafka consumer error", zap.Error(err))
		}
	}
}

func handleMessageWithRetry(message *sarama.ConsumerMessage, logger *zap.Logger, maxRetries int) error {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := handleMessage(message, logger)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < maxRetries {
			backoff := time.Duration(attempt) * time.Second
			logger.Warn("Retrying message handling",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			time.Sleep(backoff)
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

func handleMessage(message *sarama.ConsumerMessage, logger *zap.Logger) error {
	// Extract trace context from Kafka message headers
	var propagator propagation.TextMapPropagator = otel.GetTextMapPropagator()
	carrier := saramaHeaderCarrierConsumer(message.Headers)
	ctx := propagator.Extract(context.Background(), carrier)

	var tracer trace.Tracer = otel.Tracer("handcrafted-haven")
	ctx, span := tracer.Start(ctx, "ProcessOrderEvent")
	defer span.End()

	var event models.OrderEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	span.SetAttributes(
		attribute.String("event.type", event.EventType),
		attribute.Int("order.id", event.OrderID),
	)

	middleware.RecordOrderEvent(event.EventType)

	switch event.EventType {
	case "order_placed":
		logger.Info("Order confirmation notification",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.String("order_number", event.OrderNumber),
			zap.Int("buyer_id", event.BuyerID),
			zap.Float64("total", event.Total),
		)
	case "order_status_updated":
		logger.Info("Order status notification",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.String("order_number", event.OrderNumber),
			zap.String("status", string(event.Status)),
		)
	default:
		logger.Info("Ignoring unknown event type",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.String("event_type", event.EventType),
		)
	}

	return nil
}

// saramaHeaderCarrierConsumer implements the TextMapCarrier interface for Kafka headers (for consumer)
type saramaHeaderCarrierConsumer []*sarama.RecordHeader

func (c saramaHeaderCarrierConsumer) Get(key string) string {
	for _, h := range c {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c saramaHeaderCarrierConsumer) Set(key, value string) {
	// Not needed for extraction
}

func (c saramaHeaderCarrierConsumer) Keys() []string {
	keys := make([]string, len(c))
	for i, h := range c {
		keys[i] = string(h.Key)
	}
	return keys
}
