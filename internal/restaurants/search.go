package restaurants

import (
	"fmt"
	"strings"
)

const pageSize = 10

// Filter is the explicit search criteria: every optional field is enumerated
// here instead of being assembled into an untyped query.
type Filter struct {
	City       string
	Query      string   // matches restaurant name or any cuisine
	Cuisines   []string // every listed cuisine must be present
	SortOption string
	Page       int
}

type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
}

type SearchResult struct {
	Data       []Restaurant `json:"data"`
	Pagination Pagination   `json:"pagination"`
}

var sortColumns = map[string]string{
	"lastUpdated":           "last_updated",
	"deliveryPrice":         "delivery_price_cents",
	"estimatedDeliveryTime": "estimated_delivery_minutes",
}

// buildSearchQuery returns the WHERE clause (without the keyword), its
// arguments, and the ORDER BY column for a filter.
func buildSearchQuery(f Filter) (where string, args []any, orderBy string) {
	conds := []string{}

	args = append(args, "%"+f.City+"%")
	conds = append(conds, fmt.Sprintf("city ILIKE $%d", len(args)))

	if len(f.Cuisines) > 0 {
		args = append(args, f.Cuisines)
		conds = append(conds, fmt.Sprintf("cuisines @> $%d::text[]", len(args)))
	}

	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(name ILIKE $%d OR EXISTS (SELECT 1 FROM unnest(cuisines) c WHERE c ILIKE $%d))", n, n))
	}

	orderBy, ok := sortColumns[f.SortOption]
	if !ok {
		orderBy = sortColumns["lastUpdated"]
	}
	return strings.Join(conds, " AND "), args, orderBy
}
