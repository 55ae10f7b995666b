package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("user not found")

type Repo struct{ DB *pgxpool.Pool }

const userColumns = `id, oidc_subject, email, name, address_line1, city, country, created_at`

// Create registers a user for the given subject if none exists yet. It
// returns the stored user and whether a row was created, so first-login and
// repeat-login can share the endpoint.
func (r *Repo) Create(ctx context.Context, subject, email string) (*User, bool, error) {
	u := &User{
		ID:        uuid.NewString(),
		Subject:   subject,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	ct, err := r.DB.Exec(ctx, `
		INSERT INTO users(id, oidc_subject, email, created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (oidc_subject) DO NOTHING`,
		u.ID, u.Subject, u.Email, u.CreatedAt,
	)
	if err != nil {
		return nil, false, err
	}
	if ct.RowsAffected() == 1 {
		return u, true, nil
	}
	existing, err := r.GetBySubject(ctx, subject)
	return existing, false, err
}

func (r *Repo) GetBySubject(ctx context.Context, subject string) (*User, error) {
	return r.getOne(ctx, `WHERE oidc_subject=$1`, subject)
}

func (r *Repo) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getOne(ctx, `WHERE id=$1`, id)
}

func (r *Repo) getOne(ctx context.Context, where string, arg any) (*User, error) {
	var u User
	err := r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users `+where, arg).
		Scan(&u.ID, &u.Subject, &u.Email, &u.Name, &u.AddressLine1, &u.City, &u.Country, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// UpdateProfile updates the mutable profile fields only; subject and email
// stay as issued by the identity provider.
func (r *Repo) UpdateProfile(ctx context.Context, id, name, addressLine1, city, country string) (*User, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE users SET name=$2, address_line1=$3, city=$4, country=$5 WHERE id=$1`,
		id, name, addressLine1, city, country,
	)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}
