package restaurants

import "time"

// MenuItem ids are minted once at creation and survive menu edits, so cart
// references stay valid while the owner reorders or renames items.
type MenuItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price"`
}

type Restaurant struct {
	ID                       string     `json:"id"`
	UserID                   string     `json:"userId"`
	Name                     string     `json:"restaurantName"`
	City                     string     `json:"city"`
	Country                  string     `json:"country"`
	DeliveryPriceCents       int64      `json:"deliveryPrice"`
	EstimatedDeliveryMinutes int        `json:"estimatedDeliveryTime"`
	Cuisines                 []string   `json:"cuisines"`
	MenuItems                []MenuItem `json:"menuItems"`
	ImageURL                 string     `json:"imageUrl"`
	LastUpdated              time.Time  `json:"lastUpdated"`
}
