package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/mealcourt/go-food-orders/internal/kafka"
	"github.com/mealcourt/go-food-orders/internal/orders"
	"github.com/mealcourt/go-food-orders/internal/redisx"
)

// Service turns order lifecycle events into customer mail. Installed as the
// consumer handler for the order.paid and order.status.changed topics.
type Service struct {
	Redis  *redis.Client
	Mailer Mailer
}

func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	switch env.EventType {
	case orders.EventOrderPaid, orders.EventOrderStatusChanged:
	default:
		return nil
	}

	// dedup by event id so redelivery does not re-mail the customer
	dkey := fmt.Sprintf(redisx.KeyDedup, "notify", env.EventID)
	if seen, _ := redisx.Exists(ctx, s.Redis, dkey); seen {
		return nil
	}

	var err error
	switch env.EventType {
	case orders.EventOrderPaid:
		err = s.sendConfirmation(ctx, env.Payload)
	case orders.EventOrderStatusChanged:
		err = s.sendStatusUpdate(ctx, env.Payload)
	}
	if err != nil {
		return err
	}

	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	return nil
}

func (s *Service) sendConfirmation(ctx context.Context, payload json.RawMessage) error {
	p, err := kafkax.UnwrapPayload[orders.OrderPaidPayload](payload)
	if err != nil {
		return err
	}
	if p.DeliveryEmail == "" {
		return nil
	}
	body := fmt.Sprintf(
		"Hi %s,\n\nYour payment of %d.%02d went through and the restaurant has been notified.\nOrder reference: %s\n",
		p.DeliveryName, p.TotalCents/100, p.TotalCents%100, p.OrderID,
	)
	if err := s.Mailer.Send(ctx, p.DeliveryEmail, "Your order is confirmed", body); err != nil {
		return err
	}
	slog.Info("confirmation sent", "order_id", p.OrderID)
	return nil
}

func (s *Service) sendStatusUpdate(ctx context.Context, payload json.RawMessage) error {
	p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](payload)
	if err != nil {
		return err
	}
	if p.DeliveryEmail == "" {
		return nil
	}
	body := fmt.Sprintf(
		"Hi %s,\n\nYour order %s is now %q.\n",
		p.DeliveryName, p.OrderID, p.Status,
	)
	if err := s.Mailer.Send(ctx, p.DeliveryEmail, "Order update", body); err != nil {
		return err
	}
	slog.Info("status update sent", "order_id", p.OrderID, "status", p.Status)
	return nil
}
