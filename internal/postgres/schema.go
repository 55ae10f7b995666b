package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Bootstrap applies the schema. Every statement is idempotent, so running it
// on every startup is safe.
func Bootstrap(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	oidc_subject  TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL,
	name          TEXT NOT NULL DEFAULT '',
	address_line1 TEXT NOT NULL DEFAULT '',
	city          TEXT NOT NULL DEFAULT '',
	country       TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS restaurants (
	id                         UUID PRIMARY KEY,
	user_id                    UUID NOT NULL UNIQUE REFERENCES users(id),
	name                       TEXT NOT NULL,
	city                       TEXT NOT NULL,
	country                    TEXT NOT NULL,
	delivery_price_cents       BIGINT NOT NULL CHECK (delivery_price_cents >= 0),
	estimated_delivery_minutes INT NOT NULL CHECK (estimated_delivery_minutes > 0),
	cuisines                   TEXT[] NOT NULL DEFAULT '{}',
	image_url                  TEXT NOT NULL DEFAULT '',
	last_updated               TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS menu_items (
	id            UUID PRIMARY KEY,
	restaurant_id UUID NOT NULL REFERENCES restaurants(id) ON DELETE CASCADE,
	name          TEXT NOT NULL,
	price_cents   BIGINT NOT NULL CHECK (price_cents >= 0),
	position      INT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_menu_items_restaurant ON menu_items(restaurant_id);

CREATE TABLE IF NOT EXISTS orders (
	id               UUID PRIMARY KEY,
	restaurant_id    UUID NOT NULL REFERENCES restaurants(id),
	user_id          UUID NOT NULL REFERENCES users(id),
	status           TEXT NOT NULL,
	total_cents      BIGINT NOT NULL DEFAULT 0,
	delivery_email   TEXT NOT NULL,
	delivery_name    TEXT NOT NULL,
	delivery_address TEXT NOT NULL,
	delivery_city    TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id);
CREATE INDEX IF NOT EXISTS idx_orders_restaurant ON orders(restaurant_id);

CREATE TABLE IF NOT EXISTS order_items (
	id           BIGSERIAL PRIMARY KEY,
	order_id     UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	menu_item_id UUID NOT NULL,
	name         TEXT NOT NULL,
	quantity     INT NOT NULL CHECK (quantity > 0)
);
CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);
`
