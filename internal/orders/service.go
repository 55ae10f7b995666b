package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/mealcourt/go-food-orders/internal/kafka"
	"github.com/mealcourt/go-food-orders/internal/payments"
	"github.com/mealcourt/go-food-orders/internal/restaurants"
)

var ErrForbidden = errors.New("requesting user does not own the order's restaurant")

// InvalidStatusError rejects a status outside the closed enumeration (or one
// the owner is not allowed to assert).
type InvalidStatusError struct{ Status Status }

func (e InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid order status: %q", e.Status)
}

type Store interface {
	Create(ctx context.Context, o *Order) error
	MarkPaid(ctx context.Context, orderID string, totalCents int64) error
	UpdateStatus(ctx context.Context, orderID string, s Status) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	ListByRestaurant(ctx context.Context, restaurantID string) ([]Order, error)
}

type RestaurantStore interface {
	GetByID(ctx context.Context, id string) (*restaurants.Restaurant, error)
	GetByOwner(ctx context.Context, userID string) (*restaurants.Restaurant, error)
}

type PaymentClient interface {
	CreateCheckoutSession(ctx context.Context, req payments.SessionRequest) (payments.Session, error)
	VerifyEvent(payload []byte, sigHeader string) (payments.Event, error)
}

type EventPublisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Cache interface {
	CacheStatus(ctx context.Context, orderID string, status Status)
	SeenEvent(ctx context.Context, eventID string) bool
	MarkEvent(ctx context.Context, eventID string)
}

type Service struct {
	Orders      Store
	Restaurants RestaurantStore
	Payments    PaymentClient
	Placed      EventPublisher
	Paid        EventPublisher
	Changed     EventPublisher
	Cache       Cache
	ServiceName string
}

// CheckoutRequest arrives already validated at the boundary.
type CheckoutRequest struct {
	RestaurantID    string
	CartItems       []CartItem
	DeliveryDetails DeliveryDetails
}

// CreateCheckoutSession prices the cart against the restaurant's current
// menu, creates the provider session, and only then persists the order in
// the placed state. Any pricing or provider failure aborts the whole
// checkout with nothing persisted.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID string, req CheckoutRequest) (string, error) {
	rest, err := s.Restaurants.GetByID(ctx, req.RestaurantID)
	if err != nil {
		return "", err
	}

	lineItems, err := ResolveLineItems(rest.MenuItems, req.CartItems)
	if err != nil {
		return "", err
	}

	orderID := uuid.NewString()
	sess, err := s.Payments.CreateCheckoutSession(ctx, payments.SessionRequest{
		LineItems:          toPaymentLines(lineItems),
		DeliveryPriceCents: rest.DeliveryPriceCents,
		OrderID:            orderID,
		RestaurantID:       rest.ID,
	})
	if err != nil {
		return "", err
	}

	order := &Order{
		ID:              orderID,
		RestaurantID:    rest.ID,
		UserID:          userID,
		Status:          StatusPlaced,
		DeliveryDetails: req.DeliveryDetails,
		Items:           toSnapshot(lineItems),
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.Orders.Create(ctx, order); err != nil {
		return "", err
	}

	s.Cache.CacheStatus(ctx, orderID, StatusPlaced)
	s.publish(s.Placed, EventOrderPlaced, orderID, OrderPlacedPayload{
		OrderID:      orderID,
		RestaurantID: rest.ID,
		UserID:       userID,
		Items:        order.Items,
	})
	slog.Info("checkout session created", "order_id", orderID, "restaurant_id", rest.ID, "session_id", sess.ID)
	return sess.URL, nil
}

// HandleWebhookEvent verifies the event's signature against the raw body,
// then reconciles a completed checkout with its order. Every other event
// type is acknowledged and ignored; the provider sends many kinds and
// unknown ones must not fail delivery.
func (s *Service) HandleWebhookEvent(ctx context.Context, payload []byte, sigHeader string) error {
	ev, err := s.Payments.VerifyEvent(payload, sigHeader)
	if err != nil {
		return err
	}
	if ev.Type != payments.EventCheckoutSessionCompleted {
		return nil
	}

	cs, err := ev.CheckoutSession()
	if err != nil {
		return err
	}
	orderID := cs.Metadata["orderId"]
	if orderID == "" {
		return fmt.Errorf("completed session %s carries no order id: %w", cs.ID, ErrOrderNotFound)
	}

	if s.Cache.SeenEvent(ctx, ev.ID) {
		slog.Info("webhook event already processed", "event_id", ev.ID, "order_id", orderID)
		return nil
	}

	// Load before mutating: the paid event only needs fields already on the
	// placed order, and a load failure must leave the event unmarked so the
	// provider's redelivery can complete the side effects.
	order, err := s.Orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	// The settled amount from the event is authoritative; it is not
	// recomputed locally.
	if err := s.Orders.MarkPaid(ctx, orderID, cs.AmountTotal); err != nil {
		return err
	}
	s.publish(s.Paid, EventOrderPaid, orderID, OrderPaidPayload{
		OrderID:       orderID,
		RestaurantID:  order.RestaurantID,
		TotalCents:    cs.AmountTotal,
		DeliveryEmail: order.DeliveryDetails.Email,
		DeliveryName:  order.DeliveryDetails.Name,
	})
	s.Cache.MarkEvent(ctx, ev.ID)
	s.Cache.CacheStatus(ctx, orderID, StatusPaid)
	slog.Info("order paid", "order_id", orderID, "total_cents", cs.AmountTotal, "event_id", ev.ID)
	return nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]Order, error) {
	return s.Orders.ListByUser(ctx, userID)
}

// ListForRestaurantOwner resolves the owner's restaurant first; an owner
// without one gets restaurants.ErrNotFound.
func (s *Service) ListForRestaurantOwner(ctx context.Context, ownerUserID string) ([]Order, error) {
	rest, err := s.Restaurants.GetByOwner(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}
	return s.Orders.ListByRestaurant(ctx, rest.ID)
}

// UpdateStatus is the owner-driven fulfillment transition. Ownership is
// enforced here, deep in the order graph: the order's restaurant must belong
// to the requesting user.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, status Status, requestingUserID string) (*Order, error) {
	if !status.OwnerSettable() {
		return nil, InvalidStatusError{Status: status}
	}

	order, err := s.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	rest, err := s.Restaurants.GetByID(ctx, order.RestaurantID)
	if err != nil {
		return nil, err
	}
	if rest.UserID != requestingUserID {
		return nil, ErrForbidden
	}

	if err := s.Orders.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, err
	}
	order.Status = status

	s.Cache.CacheStatus(ctx, orderID, status)
	s.publish(s.Changed, EventOrderStatusChanged, orderID, OrderStatusChangedPayload{
		OrderID:       orderID,
		Status:        status,
		DeliveryEmail: order.DeliveryDetails.Email,
		DeliveryName:  order.DeliveryDetails.Name,
	})
	return order, nil
}

func (s *Service) publish(p EventPublisher, eventType, orderID string, payload any) {
	if p == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func toPaymentLines(items []LineItem) []payments.LineItem {
	out := make([]payments.LineItem, 0, len(items))
	for _, li := range items {
		out = append(out, payments.LineItem{
			Name:            li.Name,
			UnitAmountCents: li.UnitAmountCents,
			Quantity:        li.Quantity,
		})
	}
	return out
}

func toSnapshot(items []LineItem) []OrderItem {
	out := make([]OrderItem, 0, len(items))
	for _, li := range items {
		out = append(out, OrderItem{
			MenuItemID: li.MenuItemID,
			Name:       li.Name,
			Quantity:   li.Quantity,
		})
	}
	return out
}
