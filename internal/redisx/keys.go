package redisx

import "time"

const (
	// Cache of an order's current status: order_status:{order_id}
	KeyOrderStatus = "order_status:%s"

	// Dedup of processed external events: dedup:{consumer}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
