package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mealcourt/go-food-orders/internal/auth"
	"github.com/mealcourt/go-food-orders/internal/users"
	"github.com/mealcourt/go-food-orders/internal/validation"
)

type UserStore interface {
	Create(ctx context.Context, subject, email string) (*users.User, bool, error)
	GetByID(ctx context.Context, id string) (*users.User, error)
	UpdateProfile(ctx context.Context, id, name, addressLine1, city, country string) (*users.User, error)
}

type UsersHandler struct {
	Store UserStore
}

func (h *UsersHandler) Register(r chi.Router, requireToken, requireUser func(http.Handler) http.Handler) {
	// Creation runs behind token verification only: the user record does
	// not exist yet on first login.
	r.With(requireToken).Post("/user", h.create)

	r.Group(func(g chi.Router) {
		g.Use(requireUser)
		g.Get("/user", h.getCurrent)
		g.Put("/user", h.updateCurrent)
	})
}

func (h *UsersHandler) create(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.Subject(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}

	u, created, err := h.Store.Create(r.Context(), subject, req.Email)
	if err != nil {
		internalError(w, "create user", err)
		return
	}
	if !created {
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *UsersHandler) getCurrent(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	u, err := h.Store.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		internalError(w, "get user", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UsersHandler) updateCurrent(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var req validation.UserProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validation.ValidateUserProfile(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.Store.UpdateProfile(r.Context(), userID, req.Name, req.AddressLine1, req.City, req.Country)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		internalError(w, "update user", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
