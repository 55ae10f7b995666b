package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealcourt/go-food-orders/internal/auth"
	"github.com/mealcourt/go-food-orders/internal/users"
)

type userStoreFake struct {
	bySubject map[string]*users.User
	byID      map[string]*users.User
}

func newUserStoreFake() *userStoreFake {
	return &userStoreFake{bySubject: map[string]*users.User{}, byID: map[string]*users.User{}}
}

func (f *userStoreFake) Create(_ context.Context, subject, email string) (*users.User, bool, error) {
	if u, ok := f.bySubject[subject]; ok {
		return u, false, nil
	}
	u := &users.User{ID: "u-new", Subject: subject, Email: email}
	f.bySubject[subject] = u
	f.byID[u.ID] = u
	return u, true, nil
}

func (f *userStoreFake) GetByID(_ context.Context, id string) (*users.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return u, nil
}

func (f *userStoreFake) GetBySubject(_ context.Context, subject string) (*users.User, error) {
	u, ok := f.bySubject[subject]
	if !ok {
		return nil, users.ErrNotFound
	}
	return u, nil
}

func (f *userStoreFake) UpdateProfile(_ context.Context, id, name, addressLine1, city, country string) (*users.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	u.Name = name
	u.AddressLine1 = addressLine1
	u.City = city
	u.Country = country
	return u, nil
}

func newUsersRouter(store *userStoreFake) http.Handler {
	r := NewRouter(nil)
	(&UsersHandler{Store: store}).Register(r,
		auth.RequireToken(stubVerifier{}),
		auth.RequireUser(stubVerifier{}, store))
	return r
}

func TestCreateUserEndpoint(t *testing.T) {
	t.Run("first login creates the record", func(t *testing.T) {
		store := newUserStoreFake()
		router := newUsersRouter(store)

		req := httptest.NewRequest(http.MethodPost, "/user",
			bytes.NewBufferString(`{"email":"jo@example.com"}`))
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var u users.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
		assert.Equal(t, "jo@example.com", u.Email)
		assert.NotNil(t, store.bySubject["auth0|abc"])
	})

	t.Run("repeat login is a 200 without a body", func(t *testing.T) {
		store := newUserStoreFake()
		store.bySubject["auth0|abc"] = &users.User{ID: "u1", Subject: "auth0|abc"}
		router := newUsersRouter(store)

		req := httptest.NewRequest(http.MethodPost, "/user",
			bytes.NewBufferString(`{"email":"jo@example.com"}`))
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Body.Bytes())
	})

	t.Run("invalid email is a 400", func(t *testing.T) {
		router := newUsersRouter(newUserStoreFake())
		req := httptest.NewRequest(http.MethodPost, "/user",
			bytes.NewBufferString(`{"email":"nope"}`))
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUpdateUserEndpoint(t *testing.T) {
	store := newUserStoreFake()
	store.bySubject["auth0|abc"] = &users.User{ID: "u1", Subject: "auth0|abc", Email: "jo@example.com"}
	store.byID["u1"] = store.bySubject["auth0|abc"]
	router := newUsersRouter(store)

	req := httptest.NewRequest(http.MethodPut, "/user",
		bytes.NewBufferString(`{"name":"Jo","addressLine1":"1 High St","city":"London","country":"UK"}`))
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "London", store.byID["u1"].City)
}
