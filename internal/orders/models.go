package orders

import "time"

type DeliveryDetails struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	AddressLine1 string `json:"addressLine1"`
	City         string `json:"city"`
}

// OrderItem is the snapshot stored on the order: item reference, display
// name and quantity. No price: prices live only in the payment session and
// the settled total reported back by the provider.
type OrderItem struct {
	MenuItemID string `json:"menuItemId"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
}

// Summaries are denormalized into listings so clients render an order
// without extra lookups.
type RestaurantSummary struct {
	ID                       string `json:"id"`
	Name                     string `json:"restaurantName"`
	City                     string `json:"city"`
	EstimatedDeliveryMinutes int    `json:"estimatedDeliveryTime"`
	ImageURL                 string `json:"imageUrl"`
}

type UserSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type Order struct {
	ID              string            `json:"id"`
	RestaurantID    string            `json:"restaurantId"`
	UserID          string            `json:"userId"`
	Status          Status            `json:"status"`
	TotalCents      int64             `json:"totalAmount"` // authoritative only once status is paid
	DeliveryDetails DeliveryDetails   `json:"deliveryDetails"`
	Items           []OrderItem       `json:"cartItems"`
	CreatedAt       time.Time         `json:"createdAt"`
	Restaurant      RestaurantSummary `json:"restaurant"`
	User            UserSummary       `json:"user"`
}

// CartItem is the client-submitted cart entry. It never carries a price;
// prices are always resolved server-side from the restaurant menu.
type CartItem struct {
	MenuItemID string
	Quantity   int
}
