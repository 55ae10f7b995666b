package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/mealcourt/go-food-orders/internal/auth"
	"github.com/mealcourt/go-food-orders/internal/images"
	"github.com/mealcourt/go-food-orders/internal/restaurants"
	"github.com/mealcourt/go-food-orders/internal/validation"
)

const maxImageBytes = 5 << 20 // 5 MB

type RestaurantStore interface {
	Create(ctx context.Context, rest *restaurants.Restaurant) error
	Update(ctx context.Context, rest *restaurants.Restaurant) error
	GetByID(ctx context.Context, id string) (*restaurants.Restaurant, error)
	GetByOwner(ctx context.Context, userID string) (*restaurants.Restaurant, error)
	Search(ctx context.Context, f restaurants.Filter) (restaurants.SearchResult, error)
}

type RestaurantsHandler struct {
	Store       RestaurantStore
	Images      images.Uploader
	FrontendURL string
}

func (h *RestaurantsHandler) Register(r chi.Router, requireUser func(http.Handler) http.Handler) {
	r.Get("/restaurant/search/{city}", h.search)
	r.Get("/restaurant/{restaurantID}", h.get)
	r.Get("/restaurant/{restaurantID}/qr", h.qr)

	r.Group(func(g chi.Router) {
		g.Use(requireUser)
		g.Post("/restaurant", h.createMine)
		g.Get("/restaurant", h.getMine)
		g.Put("/restaurant", h.updateMine)
	})
}

func (h *RestaurantsHandler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))

	f := restaurants.Filter{
		City:       chi.URLParam(r, "city"),
		Query:      q.Get("searchQuery"),
		SortOption: q.Get("sortOption"),
		Page:       page,
	}
	if cs := q.Get("selectedCuisines"); cs != "" {
		for _, c := range strings.Split(cs, ",") {
			if t := strings.TrimSpace(c); t != "" {
				f.Cuisines = append(f.Cuisines, t)
			}
		}
	}

	res, err := h.Store.Search(r.Context(), f)
	if err != nil {
		internalError(w, "search restaurants", err)
		return
	}
	if res.Pagination.Total == 0 {
		writeJSON(w, http.StatusNotFound, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *RestaurantsHandler) get(w http.ResponseWriter, r *http.Request) {
	rest, err := h.Store.GetByID(r.Context(), chi.URLParam(r, "restaurantID"))
	if err != nil {
		if errors.Is(err, restaurants.ErrNotFound) {
			writeError(w, http.StatusNotFound, "restaurant not found")
			return
		}
		internalError(w, "get restaurant", err)
		return
	}
	writeJSON(w, http.StatusOK, rest)
}

func (h *RestaurantsHandler) qr(w http.ResponseWriter, r *http.Request) {
	rest, err := h.Store.GetByID(r.Context(), chi.URLParam(r, "restaurantID"))
	if err != nil {
		if errors.Is(err, restaurants.ErrNotFound) {
			writeError(w, http.StatusNotFound, "restaurant not found")
			return
		}
		internalError(w, "restaurant qr", err)
		return
	}

	png, err := qrcode.Encode(h.FrontendURL+"/detail/"+rest.ID, qrcode.Medium, 256)
	if err != nil {
		internalError(w, "encode qr", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *RestaurantsHandler) getMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	rest, err := h.Store.GetByOwner(r.Context(), userID)
	if err != nil {
		if errors.Is(err, restaurants.ErrNotFound) {
			writeError(w, http.StatusNotFound, "restaurant not found")
			return
		}
		internalError(w, "get my restaurant", err)
		return
	}
	writeJSON(w, http.StatusOK, rest)
}

func (h *RestaurantsHandler) createMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	req, imageData, imageType, err := parseRestaurantForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rest := &restaurants.Restaurant{
		ID:                       uuid.NewString(),
		UserID:                   userID,
		Name:                     req.Name,
		City:                     req.City,
		Country:                  req.Country,
		DeliveryPriceCents:       req.DeliveryPriceCents,
		EstimatedDeliveryMinutes: req.EstimatedDeliveryMinutes,
		Cuisines:                 req.Cuisines,
		MenuItems:                toMenuItems(req.MenuItems),
	}

	if imageData != nil {
		url, err := h.Images.Upload(r.Context(), "restaurants/"+rest.ID, imageType, imageData)
		if err != nil {
			internalError(w, "upload restaurant image", err)
			return
		}
		rest.ImageURL = url
	}

	if err := h.Store.Create(r.Context(), rest); err != nil {
		if errors.Is(err, restaurants.ErrAlreadyExists) {
			writeError(w, http.StatusConflict, "user restaurant already exists")
			return
		}
		internalError(w, "create restaurant", err)
		return
	}
	writeJSON(w, http.StatusCreated, rest)
}

func (h *RestaurantsHandler) updateMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	rest, err := h.Store.GetByOwner(r.Context(), userID)
	if err != nil {
		if errors.Is(err, restaurants.ErrNotFound) {
			writeError(w, http.StatusNotFound, "restaurant not found")
			return
		}
		internalError(w, "get my restaurant", err)
		return
	}

	req, imageData, imageType, err := parseRestaurantForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rest.Name = req.Name
	rest.City = req.City
	rest.Country = req.Country
	rest.DeliveryPriceCents = req.DeliveryPriceCents
	rest.EstimatedDeliveryMinutes = req.EstimatedDeliveryMinutes
	rest.Cuisines = req.Cuisines
	rest.MenuItems = toMenuItems(req.MenuItems)

	if imageData != nil {
		url, err := h.Images.Upload(r.Context(), "restaurants/"+rest.ID, imageType, imageData)
		if err != nil {
			internalError(w, "upload restaurant image", err)
			return
		}
		rest.ImageURL = url
	}

	if err := h.Store.Update(r.Context(), rest); err != nil {
		internalError(w, "update restaurant", err)
		return
	}
	writeJSON(w, http.StatusOK, rest)
}

// parseRestaurantForm reads the multipart form: a JSON "restaurant" part and
// an optional "imageFile" part capped at 5 MB.
func parseRestaurantForm(r *http.Request) (*validation.RestaurantRequest, []byte, string, error) {
	if err := r.ParseMultipartForm(maxImageBytes + 1<<20); err != nil {
		return nil, nil, "", validation.ValidationError{Field: "body", Message: "expected multipart form"}
	}

	req, err := validation.ParseRestaurantForm([]byte(r.FormValue("restaurant")))
	if err != nil {
		return nil, nil, "", err
	}

	file, header, err := r.FormFile("imageFile")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return req, nil, "", nil
		}
		return nil, nil, "", validation.ValidationError{Field: "imageFile", Message: "invalid image upload"}
	}
	defer file.Close()

	if header.Size > maxImageBytes {
		return nil, nil, "", validation.ValidationError{Field: "imageFile", Message: "image exceeds 5 MB"}
	}
	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		return nil, nil, "", validation.ValidationError{Field: "imageFile", Message: "cannot read image"}
	}
	return req, data, header.Header.Get("Content-Type"), nil
}

func toMenuItems(in []validation.RestaurantMenuItem) []restaurants.MenuItem {
	out := make([]restaurants.MenuItem, 0, len(in))
	for _, mi := range in {
		out = append(out, restaurants.MenuItem{ID: mi.ID, Name: mi.Name, PriceCents: mi.PriceCents})
	}
	return out
}
