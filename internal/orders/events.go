package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderPaid          = "OrderPaid"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type OrderPlacedPayload struct {
	OrderID      string      `json:"order_id"`
	RestaurantID string      `json:"restaurant_id"`
	UserID       string      `json:"user_id"`
	Items        []OrderItem `json:"items"`
}

type OrderPaidPayload struct {
	OrderID       string `json:"order_id"`
	RestaurantID  string `json:"restaurant_id"`
	TotalCents    int64  `json:"total_cents"`
	DeliveryEmail string `json:"delivery_email"`
	DeliveryName  string `json:"delivery_name"`
}

type OrderStatusChangedPayload struct {
	OrderID       string `json:"order_id"`
	Status        Status `json:"status"`
	DeliveryEmail string `json:"delivery_email"`
	DeliveryName  string `json:"delivery_name"`
}
