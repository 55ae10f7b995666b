package validation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Quantity accepts both a JSON number and a numeric string; frontends send
// either. Anything non-numeric or non-positive fails validation.
type Quantity int

func (q *Quantity) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("quantity must be a whole number")
	}
	*q = Quantity(n)
	return nil
}

type CheckoutCartItem struct {
	MenuItemID string   `json:"menuItemId"`
	Quantity   Quantity `json:"quantity"`
}

type CheckoutDeliveryDetails struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	AddressLine1 string `json:"addressLine1"`
	City         string `json:"city"`
}

type CheckoutSessionRequest struct {
	CartItems       []CheckoutCartItem      `json:"cartItems"`
	DeliveryDetails CheckoutDeliveryDetails `json:"deliveryDetails"`
	RestaurantID    string                  `json:"restaurantId"`
}

func ValidateCheckoutRequest(req *CheckoutSessionRequest) error {
	if req.RestaurantID == "" {
		return ValidationError{Field: "restaurantId", Message: "restaurant id is required"}
	}
	if len(req.CartItems) == 0 {
		return ValidationError{Field: "cartItems", Message: "cart cannot be empty"}
	}
	for i, it := range req.CartItems {
		if it.MenuItemID == "" {
			return ValidationError{
				Field:   fmt.Sprintf("cartItems[%d].menuItemId", i),
				Message: "menu item id is required",
			}
		}
		if it.Quantity <= 0 {
			return ValidationError{
				Field:   fmt.Sprintf("cartItems[%d].quantity", i),
				Message: "quantity must be a positive integer",
			}
		}
	}
	d := req.DeliveryDetails
	if d.Email == "" || !strings.Contains(d.Email, "@") {
		return ValidationError{Field: "deliveryDetails.email", Message: "a valid email is required"}
	}
	if d.Name == "" {
		return ValidationError{Field: "deliveryDetails.name", Message: "name is required"}
	}
	if d.AddressLine1 == "" {
		return ValidationError{Field: "deliveryDetails.addressLine1", Message: "address is required"}
	}
	if d.City == "" {
		return ValidationError{Field: "deliveryDetails.city", Message: "city is required"}
	}
	return nil
}

type UserProfileRequest struct {
	Name         string `json:"name"`
	AddressLine1 string `json:"addressLine1"`
	City         string `json:"city"`
	Country      string `json:"country"`
}

func ValidateUserProfile(req *UserProfileRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if strings.TrimSpace(req.AddressLine1) == "" {
		return ValidationError{Field: "addressLine1", Message: "addressLine1 is required"}
	}
	if strings.TrimSpace(req.City) == "" {
		return ValidationError{Field: "city", Message: "city is required"}
	}
	if strings.TrimSpace(req.Country) == "" {
		return ValidationError{Field: "country", Message: "country is required"}
	}
	return nil
}

type RestaurantMenuItem struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price"`
}

type RestaurantRequest struct {
	Name                     string               `json:"restaurantName"`
	City                     string               `json:"city"`
	Country                  string               `json:"country"`
	DeliveryPriceCents       int64                `json:"deliveryPrice"`
	EstimatedDeliveryMinutes int                  `json:"estimatedDeliveryTime"`
	Cuisines                 []string             `json:"cuisines"`
	MenuItems                []RestaurantMenuItem `json:"menuItems"`
}

// ParseRestaurantForm decodes the JSON "restaurant" part of the multipart
// create/update form.
func ParseRestaurantForm(jsonPayload []byte) (*RestaurantRequest, error) {
	var req RestaurantRequest
	if err := json.Unmarshal(jsonPayload, &req); err != nil {
		return nil, ValidationError{Field: "restaurant", Message: "invalid json"}
	}
	if err := ValidateRestaurant(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

func ValidateRestaurant(req *RestaurantRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return ValidationError{Field: "restaurantName", Message: "restaurant name is required"}
	}
	if strings.TrimSpace(req.City) == "" {
		return ValidationError{Field: "city", Message: "city is required"}
	}
	if strings.TrimSpace(req.Country) == "" {
		return ValidationError{Field: "country", Message: "country is required"}
	}
	if req.DeliveryPriceCents < 0 {
		return ValidationError{Field: "deliveryPrice", Message: "delivery price must not be negative"}
	}
	if req.EstimatedDeliveryMinutes <= 0 {
		return ValidationError{Field: "estimatedDeliveryTime", Message: "estimated delivery time must be positive"}
	}
	if len(req.Cuisines) == 0 {
		return ValidationError{Field: "cuisines", Message: "at least one cuisine is required"}
	}
	for i, mi := range req.MenuItems {
		if strings.TrimSpace(mi.Name) == "" {
			return ValidationError{
				Field:   fmt.Sprintf("menuItems[%d].name", i),
				Message: "menu item name is required",
			}
		}
		if mi.PriceCents < 0 {
			return ValidationError{
				Field:   fmt.Sprintf("menuItems[%d].price", i),
				Message: "menu item price must not be negative",
			}
		}
	}
	return nil
}
