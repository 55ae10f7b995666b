package restaurants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSearchQuery(t *testing.T) {
	t.Run("city only", func(t *testing.T) {
		where, args, orderBy := buildSearchQuery(Filter{City: "London"})
		assert.Equal(t, "city ILIKE $1", where)
		assert.Equal(t, []any{"%London%"}, args)
		assert.Equal(t, "last_updated", orderBy)
	})

	t.Run("cuisine filter", func(t *testing.T) {
		where, args, _ := buildSearchQuery(Filter{City: "London", Cuisines: []string{"Italian", "Pizza"}})
		assert.Equal(t, "city ILIKE $1 AND cuisines @> $2::text[]", where)
		assert.Equal(t, []any{"%London%", []string{"Italian", "Pizza"}}, args)
	})

	t.Run("free text query matches name or cuisine", func(t *testing.T) {
		where, args, _ := buildSearchQuery(Filter{City: "London", Query: "napoli"})
		assert.Equal(t,
			"city ILIKE $1 AND (name ILIKE $2 OR EXISTS (SELECT 1 FROM unnest(cuisines) c WHERE c ILIKE $2))",
			where)
		assert.Equal(t, []any{"%London%", "%napoli%"}, args)
	})

	t.Run("sort options map to whitelisted columns", func(t *testing.T) {
		for opt, col := range map[string]string{
			"lastUpdated":           "last_updated",
			"deliveryPrice":         "delivery_price_cents",
			"estimatedDeliveryTime": "estimated_delivery_minutes",
		} {
			_, _, orderBy := buildSearchQuery(Filter{City: "London", SortOption: opt})
			assert.Equal(t, col, orderBy, "option %q", opt)
		}
	})

	t.Run("unknown sort option falls back to last updated", func(t *testing.T) {
		_, _, orderBy := buildSearchQuery(Filter{City: "London", SortOption: "price; DROP TABLE restaurants"})
		assert.Equal(t, "last_updated", orderBy)
	})
}
