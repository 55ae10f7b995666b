package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrOrderNotFound = errors.New("order not found")

type Repo struct{ DB *pgxpool.Pool }

// Create persists the order and its item snapshot. Callers only invoke this
// after the payment session exists, so no order row is left without a
// payable session behind it.
func (r *Repo) Create(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, restaurant_id, user_id, status, total_cents,
			delivery_email, delivery_name, delivery_address, delivery_city, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		o.ID, o.RestaurantID, o.UserID, o.Status, o.TotalCents,
		o.DeliveryDetails.Email, o.DeliveryDetails.Name,
		o.DeliveryDetails.AddressLine1, o.DeliveryDetails.City, o.CreatedAt,
	)
	if err != nil {
		return err
	}
	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, menu_item_id, name, quantity)
			VALUES ($1,$2,$3,$4)`,
			o.ID, it.MenuItemID, it.Name, it.Quantity,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// MarkPaid applies the placed -> paid transition and records the settled
// total reported by the provider. A single conditional UPDATE gives the
// per-row atomicity this transition needs; repeating it with the same amount
// is a no-op in effect.
func (r *Repo) MarkPaid(ctx context.Context, orderID string, totalCents int64) error {
	ct, err := r.DB.Exec(ctx,
		`UPDATE orders SET status=$2, total_cents=$3 WHERE id=$1`,
		orderID, StatusPaid, totalCents,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// UpdateStatus is last-write-wins on the status field; concurrent owner
// updates are an accepted race.
func (r *Repo) UpdateStatus(ctx context.Context, orderID string, s Status) error {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET status=$2 WHERE id=$1`, orderID, s)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

const orderSelect = `
	SELECT o.id, o.restaurant_id, o.user_id, o.status, o.total_cents,
		o.delivery_email, o.delivery_name, o.delivery_address, o.delivery_city, o.created_at,
		r.name, r.city, r.estimated_delivery_minutes, r.image_url,
		u.email, u.name
	FROM orders o
	JOIN restaurants r ON r.id = o.restaurant_id
	JOIN users u ON u.id = o.user_id`

func (r *Repo) GetByID(ctx context.Context, id string) (*Order, error) {
	row := r.DB.QueryRow(ctx, orderSelect+` WHERE o.id=$1`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	items, err := r.loadItems(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return r.list(ctx, ` WHERE o.user_id=$1 ORDER BY o.created_at DESC`, userID)
}

func (r *Repo) ListByRestaurant(ctx context.Context, restaurantID string) ([]Order, error) {
	return r.list(ctx, ` WHERE o.restaurant_id=$1 ORDER BY o.created_at DESC`, restaurantID)
}

func (r *Repo) list(ctx context.Context, where string, arg any) ([]Order, error) {
	rows, err := r.DB.Query(ctx, orderSelect+where, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Order{}
	ids := []string{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

func (r *Repo) loadItems(ctx context.Context, orderIDs []string) (map[string][]OrderItem, error) {
	if len(orderIDs) == 0 {
		return map[string][]OrderItem{}, nil
	}
	rows, err := r.DB.Query(ctx, `
		SELECT order_id, menu_item_id, name, quantity FROM order_items
		WHERE order_id = ANY($1::uuid[]) ORDER BY id`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]OrderItem{}
	for rows.Next() {
		var oid string
		var it OrderItem
		if err := rows.Scan(&oid, &it.MenuItemID, &it.Name, &it.Quantity); err != nil {
			return nil, err
		}
		out[oid] = append(out[oid], it)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.RestaurantID, &o.UserID, &o.Status, &o.TotalCents,
		&o.DeliveryDetails.Email, &o.DeliveryDetails.Name,
		&o.DeliveryDetails.AddressLine1, &o.DeliveryDetails.City, &o.CreatedAt,
		&o.Restaurant.Name, &o.Restaurant.City, &o.Restaurant.EstimatedDeliveryMinutes,
		&o.Restaurant.ImageURL, &o.User.Email, &o.User.Name)
	if err != nil {
		return nil, err
	}
	o.Restaurant.ID = o.RestaurantID
	o.User.ID = o.UserID
	return &o, nil
}
