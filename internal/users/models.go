package users

import "time"

// User links the external identity-provider subject to an internal id. The
// subject is unique and never changes after creation.
type User struct {
	ID           string    `json:"id"`
	Subject      string    `json:"-"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	AddressLine1 string    `json:"addressLine1"`
	City         string    `json:"city"`
	Country      string    `json:"country"`
	CreatedAt    time.Time `json:"createdAt"`
}
