// Package notification consumes order events and records customer-facing
// notifications. Delivery itself (email, SMS) is out of scope; the consumer
// demonstrates the at-least-once + dedup contract of the event stream.
package notification

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/orderflow/orderflow/internal/order/domain"
	"github.com/orderflow/orderflow/pkg/idempotency"
	"github.com/orderflow/orderflow/pkg/tracing"
)

type Consumer struct {
	log    *slog.Logger
	reader *kafka.Reader
	idem   *idempotency.Store
	tracer trace.Tracer
}

func NewConsumer(log *slog.Logger, brokers []string, topic, group string, idem *idempotency.Store) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
	return &Consumer{
		log:    log,
		reader: r,
		idem:   idem,
		tracer: otel.Tracer("notification-consumer"),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}
		c.handle(ctx, msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("commit failed", "err", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	key := c.idem.MessageKey(msg.Topic, msg.Partition, msg.Offset)
	seen, err := c.idem.Seen(ctx, key)
	if err != nil {
		c.log.Error("idempotency check failed", "err", err)
		return
	}
	if seen {
		c.log.Info("duplicate message skipped", "key", key)
		return
	}

	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "ConsumeOrderEvent")
	defer span.End()

	switch eventType(msg.Headers) {
	case "OrderPlaced":
		var ev domain.OrderPlaced
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			c.log.Error("unmarshal failed", "err", err)
			return
		}
		c.log.InfoContext(msgCtx, "order confirmation queued",
			"order_id", ev.OrderID,
			"customer_id", ev.CustomerID,
			"total", ev.TotalAmount.String())
	case "OrderStatusChanged":
		var ev domain.OrderStatusChanged
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			c.log.Error("unmarshal failed", "err", err)
			return
		}
		c.log.InfoContext(msgCtx, "status update queued",
			"order_id", ev.OrderID,
			"from", string(ev.From),
			"to", string(ev.To))
	default:
		c.log.Debug("ignoring event", "type", eventType(msg.Headers))
	}

	if _, err := c.idem.Mark(ctx, key); err != nil {
		c.log.Error("idempotency mark failed", "key", key, "err", err)
	}
}

func eventType(headers []kafka.Header) string {
	for _, h := range headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return ""
}
