package orders

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mealcourt/go-food-orders/internal/redisx"
)

// RedisCache is best-effort: the database stays the source of truth and
// every write error is ignored.
type RedisCache struct{ Client *redis.Client }

func (c *RedisCache) CacheStatus(ctx context.Context, orderID string, status Status) {
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	_ = c.Client.Set(ctx, key, fmt.Sprintf(`{"status":%q}`, status), redisx.TTLStatusCache).Err()
}

// SeenEvent reports whether a webhook event id was already processed. When
// redis is unreachable it reports false so the caller falls through to the
// idempotent database transition.
func (c *RedisCache) SeenEvent(ctx context.Context, eventID string) bool {
	key := fmt.Sprintf(redisx.KeyDedup, "webhook", eventID)
	seen, err := redisx.Exists(ctx, c.Client, key)
	return err == nil && seen
}

func (c *RedisCache) MarkEvent(ctx context.Context, eventID string) {
	key := fmt.Sprintf(redisx.KeyDedup, "webhook", eventID)
	_ = c.Client.Set(ctx, key, "1", redisx.TTLDedup).Err()
}
