package orders

type Status string

const (
	StatusPlaced         Status = "placed"
	StatusPaid           Status = "paid"
	StatusInProgress     Status = "inProgress"
	StatusOutForDelivery Status = "outForDelivery"
	StatusDelivered      Status = "delivered"
)

var allStatuses = map[Status]bool{
	StatusPlaced:         true,
	StatusPaid:           true,
	StatusInProgress:     true,
	StatusOutForDelivery: true,
	StatusDelivered:      true,
}

func (s Status) Valid() bool { return allStatuses[s] }

// OwnerSettable reports whether a restaurant owner may set s through the
// status API. Fulfillment statuses are deliberately unordered; the owner may
// move between them freely. "placed" would regress a paid order and "paid"
// is asserted only by the payment webhook, so both are excluded.
func (s Status) OwnerSettable() bool {
	return s.Valid() && s != StatusPlaced && s != StatusPaid
}
