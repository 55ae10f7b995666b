package restaurants

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound      = errors.New("restaurant not found")
	ErrAlreadyExists = errors.New("user already owns a restaurant")
)

type Repo struct{ DB *pgxpool.Pool }

const restaurantColumns = `id, user_id, name, city, country, delivery_price_cents,
	estimated_delivery_minutes, cuisines, image_url, last_updated`

// Create inserts the restaurant and its menu. One restaurant per owner: a
// second create for the same user fails with ErrAlreadyExists.
func (r *Repo) Create(ctx context.Context, rest *Restaurant) error {
	var existing string
	err := r.DB.QueryRow(ctx, `SELECT id FROM restaurants WHERE user_id=$1`, rest.UserID).Scan(&existing)
	if err == nil {
		return ErrAlreadyExists
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if rest.ID == "" {
		rest.ID = uuid.NewString()
	}
	rest.LastUpdated = time.Now().UTC()
	_, err = tx.Exec(ctx, `
		INSERT INTO restaurants(id, user_id, name, city, country, delivery_price_cents,
			estimated_delivery_minutes, cuisines, image_url, last_updated)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		rest.ID, rest.UserID, rest.Name, rest.City, rest.Country, rest.DeliveryPriceCents,
		rest.EstimatedDeliveryMinutes, rest.Cuisines, rest.ImageURL, rest.LastUpdated,
	)
	if err != nil {
		return err
	}

	for i := range rest.MenuItems {
		if rest.MenuItems[i].ID == "" {
			rest.MenuItems[i].ID = uuid.NewString()
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO menu_items(id, restaurant_id, name, price_cents, position)
			VALUES ($1,$2,$3,$4,$5)`,
			rest.MenuItems[i].ID, rest.ID, rest.MenuItems[i].Name, rest.MenuItems[i].PriceCents, i,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Update replaces the profile and the full menu. Items resubmitted with an id
// keep it; items without one are minted a fresh id; items missing from the
// submission are removed.
func (r *Repo) Update(ctx context.Context, rest *Restaurant) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rest.LastUpdated = time.Now().UTC()
	ct, err := tx.Exec(ctx, `
		UPDATE restaurants
		SET name=$2, city=$3, country=$4, delivery_price_cents=$5,
			estimated_delivery_minutes=$6, cuisines=$7, image_url=$8, last_updated=$9
		WHERE id=$1`,
		rest.ID, rest.Name, rest.City, rest.Country, rest.DeliveryPriceCents,
		rest.EstimatedDeliveryMinutes, rest.Cuisines, rest.ImageURL, rest.LastUpdated,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}

	keep := make([]string, 0, len(rest.MenuItems))
	for i := range rest.MenuItems {
		if rest.MenuItems[i].ID == "" {
			rest.MenuItems[i].ID = uuid.NewString()
		}
		keep = append(keep, rest.MenuItems[i].ID)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM menu_items WHERE restaurant_id=$1 AND NOT (id = ANY($2::uuid[]))`,
		rest.ID, keep,
	); err != nil {
		return err
	}
	for i := range rest.MenuItems {
		if _, err := tx.Exec(ctx, `
			INSERT INTO menu_items(id, restaurant_id, name, price_cents, position)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name,
				price_cents=EXCLUDED.price_cents, position=EXCLUDED.position`,
			rest.MenuItems[i].ID, rest.ID, rest.MenuItems[i].Name, rest.MenuItems[i].PriceCents, i,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Restaurant, error) {
	return r.getOne(ctx, `WHERE id=$1`, id)
}

func (r *Repo) GetByOwner(ctx context.Context, userID string) (*Restaurant, error) {
	return r.getOne(ctx, `WHERE user_id=$1`, userID)
}

func (r *Repo) getOne(ctx context.Context, where string, arg any) (*Restaurant, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+restaurantColumns+` FROM restaurants `+where, arg)
	rest, err := scanRestaurant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	menus, err := r.loadMenus(ctx, []string{rest.ID})
	if err != nil {
		return nil, err
	}
	rest.MenuItems = menus[rest.ID]
	return rest, nil
}

func (r *Repo) Search(ctx context.Context, f Filter) (SearchResult, error) {
	where, args, orderBy := buildSearchQuery(f)

	var total int
	if err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM restaurants WHERE `+where, args...,
	).Scan(&total); err != nil {
		return SearchResult{}, err
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	res := SearchResult{
		Data:       []Restaurant{},
		Pagination: Pagination{Total: total, Page: page, Pages: (total + pageSize - 1) / pageSize},
	}
	if total == 0 {
		res.Pagination.Page = 1
		res.Pagination.Pages = 1
		return res, nil
	}

	args = append(args, pageSize, (page-1)*pageSize)
	rows, err := r.DB.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM restaurants WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		restaurantColumns, where, orderBy, len(args)-1, len(args)), args...)
	if err != nil {
		return SearchResult{}, err
	}
	defer rows.Close()

	ids := make([]string, 0, pageSize)
	for rows.Next() {
		rest, err := scanRestaurant(rows)
		if err != nil {
			return SearchResult{}, err
		}
		res.Data = append(res.Data, *rest)
		ids = append(ids, rest.ID)
	}
	if err := rows.Err(); err != nil {
		return SearchResult{}, err
	}

	menus, err := r.loadMenus(ctx, ids)
	if err != nil {
		return SearchResult{}, err
	}
	for i := range res.Data {
		res.Data[i].MenuItems = menus[res.Data[i].ID]
	}
	return res, nil
}

func (r *Repo) loadMenus(ctx context.Context, restaurantIDs []string) (map[string][]MenuItem, error) {
	if len(restaurantIDs) == 0 {
		return map[string][]MenuItem{}, nil
	}
	rows, err := r.DB.Query(ctx, `
		SELECT restaurant_id, id, name, price_cents FROM menu_items
		WHERE restaurant_id = ANY($1::uuid[]) ORDER BY restaurant_id, position`, restaurantIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]MenuItem{}
	for rows.Next() {
		var rid string
		var mi MenuItem
		if err := rows.Scan(&rid, &mi.ID, &mi.Name, &mi.PriceCents); err != nil {
			return nil, err
		}
		out[rid] = append(out[rid], mi)
	}
	return out, rows.Err()
}

func scanRestaurant(row pgx.Row) (*Restaurant, error) {
	var rest Restaurant
	err := row.Scan(&rest.ID, &rest.UserID, &rest.Name, &rest.City, &rest.Country,
		&rest.DeliveryPriceCents, &rest.EstimatedDeliveryMinutes, &rest.Cuisines,
		&rest.ImageURL, &rest.LastUpdated)
	if err != nil {
		return nil, err
	}
	return &rest, nil
}
