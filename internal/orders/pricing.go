package orders

import (
	"fmt"

	"github.com/mealcourt/go-food-orders/internal/restaurants"
)

// UnknownMenuItemError aborts pricing for the whole cart; partial pricing is
// never allowed.
type UnknownMenuItemError struct{ MenuItemID string }

func (e UnknownMenuItemError) Error() string {
	return fmt.Sprintf("menu item not found: %s", e.MenuItemID)
}

// LineItem is a priced cart entry ready for session building. The unit
// amount comes from the restaurant's current menu, never from the client.
type LineItem struct {
	MenuItemID      string
	Name            string
	UnitAmountCents int64
	Quantity        int
}

// ResolveLineItems prices every cart item against the menu.
func ResolveLineItems(menu []restaurants.MenuItem, cart []CartItem) ([]LineItem, error) {
	byID := make(map[string]restaurants.MenuItem, len(menu))
	for _, mi := range menu {
		byID[mi.ID] = mi
	}

	out := make([]LineItem, 0, len(cart))
	for _, ci := range cart {
		mi, ok := byID[ci.MenuItemID]
		if !ok {
			return nil, UnknownMenuItemError{MenuItemID: ci.MenuItemID}
		}
		out = append(out, LineItem{
			MenuItemID:      mi.ID,
			Name:            mi.Name,
			UnitAmountCents: mi.PriceCents,
			Quantity:        ci.Quantity,
		})
	}
	return out, nil
}
